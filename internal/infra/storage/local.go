package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/bryanwahyu/finsight/internal/domain/documents"
)

const namePrefix = "financial_document_"

// Local stages uploads as files under Dir.
type Local struct {
	Dir string
}

// NewLocal returns a stager rooted at dir, creating it if needed. An empty
// dir means os.TempDir().
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Local{Dir: dir}, nil
}

func (l *Local) Stage(ctx context.Context, doc *documents.Document) (documents.Staged, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(l.Dir, namePrefix+uuid.NewString()+doc.Extension())
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}
	if _, err := f.Write(doc.Content); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write staged file: %w", err)
	}
	return &localFile{f: f, path: path, size: int64(len(doc.Content))}, nil
}

// Check verifies the staging directory is writable.
func (l *Local) Check(context.Context) error {
	f, err := os.CreateTemp(l.Dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("staging dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

type localFile struct {
	f    *os.File
	path string
	size int64
	once sync.Once
	err  error
}

func (l *localFile) ReadAt(p []byte, off int64) (int, error) { return l.f.ReadAt(p, off) }
func (l *localFile) Size() int64                              { return l.size }
func (l *localFile) Location() string                         { return l.path }

func (l *localFile) Remove(context.Context) error {
	l.once.Do(func() {
		l.f.Close()
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			l.err = err
		}
	})
	return l.err
}
