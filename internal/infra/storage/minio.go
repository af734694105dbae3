package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/finsight/internal/domain/documents"
)

// MinioOptions configures the object-store stager.
type MinioOptions struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
	// Transport overrides the HTTP transport; nil uses minio's default.
	Transport http.RoundTripper
}

// Store stages uploads as objects in a MinIO / S3 bucket.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// New connects to MinIO and makes sure the bucket exists.
func New(ctx context.Context, opts MinioOptions) (*Store, error) {
	cli, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:    opts.UseSSL,
		Region:    opts.Region,
		Transport: opts.Transport,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", opts.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", opts.Bucket, err)
		}
	}

	return &Store{client: cli, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (s *Store) Stage(ctx context.Context, doc *documents.Document) (documents.Staged, error) {
	key := s.prefix + namePrefix + uuid.NewString() + doc.Extension()
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := int64(len(doc.Content))

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(doc.Content), size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err == nil {
		var info minio.ObjectInfo
		if info, err = obj.Stat(); err == nil {
			return &object{store: s, obj: obj, key: key, size: info.Size}, nil
		}
		obj.Close()
	}
	// the upload went through, so the object must not outlive the request
	s.client.RemoveObject(context.WithoutCancel(ctx), s.bucket, key, minio.RemoveObjectOptions{})
	return nil, fmt.Errorf("read back object: %w", err)
}

// Check reports whether the bucket is reachable.
func (s *Store) Check(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %q does not exist", s.bucket)
	}
	return nil
}

type object struct {
	store *Store
	obj   *minio.Object
	key   string
	size  int64
	once  sync.Once
	err   error
}

func (o *object) ReadAt(p []byte, off int64) (int, error) { return o.obj.ReadAt(p, off) }
func (o *object) Size() int64                              { return o.size }

func (o *object) Location() string {
	return fmt.Sprintf("s3://%s/%s", o.store.bucket, o.key)
}

// Remove deletes the object after a successful or failed analysis
func (o *object) Remove(ctx context.Context) error {
	o.once.Do(func() {
		o.obj.Close()
		o.err = o.store.client.RemoveObject(ctx, o.store.bucket, o.key, minio.RemoveObjectOptions{})
	})
	return o.err
}
