package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/finsight/internal/application"
	"github.com/bryanwahyu/finsight/internal/domain/documents"
	"github.com/bryanwahyu/finsight/internal/domain/reports"
)

var (
	// ErrGeneration wraps any failure reported by the configured generator.
	ErrGeneration = errors.New("report generation failed")
	// ErrStaging wraps failures to write or read the temporary copy.
	ErrStaging = errors.New("document staging failed")
)

// Observer receives pipeline events. The HTTP layer uses it for metrics.
type Observer interface {
	DocumentAnalyzed(generator string)
	DocumentRejected(err error)
	ExtractionFailed()
	GenerationFailed()
}

// Service implements the analyze use-case: validate, stage, extract,
// generate. It holds no per-request state and is safe for concurrent use.
type Service struct {
	Policy    documents.Policy
	Stager    documents.Stager
	Extractor documents.Extractor
	Generator reports.Generator
	Clock     application.Clock
	Logger    *zap.Logger
	Observer  Observer
}

// AnalyzeCommand is one uploaded document plus the user's question.
type AnalyzeCommand struct {
	Filename    string
	ContentType string
	Size        int64
	Content     []byte
	Query       string
}

// Precheck validates what is known before the body is read: the filename,
// its extension, and the declared size (0 when unknown).
func (s *Service) Precheck(filename string, declaredSize int64) error {
	if err := s.Policy.CheckName(filename); err != nil {
		return err
	}
	if !s.Extractor.Supports(documents.ExtensionOf(filename)) {
		return fmt.Errorf("%w: no extractor for %q", documents.ErrUnsupportedType, documents.ExtensionOf(filename))
	}
	if declaredSize > 0 && s.Policy.MaxBytes > 0 && declaredSize > s.Policy.MaxBytes {
		return s.Policy.CheckSize(declaredSize)
	}
	return nil
}

// Analyze runs the full pipeline for one document.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*reports.Report, error) {
	rep, err := s.analyze(ctx, cmd)
	if err != nil {
		s.Reject(err)
		return nil, err
	}
	if s.Observer != nil {
		s.Observer.DocumentAnalyzed(rep.Generator)
	}
	return rep, nil
}

func (s *Service) analyze(ctx context.Context, cmd AnalyzeCommand) (*reports.Report, error) {
	doc := &documents.Document{
		Filename:    documents.BaseName(cmd.Filename),
		ContentType: cmd.ContentType,
		Size:        cmd.Size,
		Content:     cmd.Content,
	}
	if err := s.Precheck(doc.Filename, doc.Size); err != nil {
		return nil, err
	}
	if err := s.Policy.Validate(doc); err != nil {
		return nil, err
	}
	query, err := reports.NormalizeQuery(cmd.Query)
	if err != nil {
		return nil, err
	}

	log := s.logger().With(
		zap.String("filename", doc.Filename),
		zap.Int64("size", int64(len(doc.Content))),
	)

	ex, err := s.extract(ctx, doc)
	if errors.Is(err, ErrStaging) {
		return nil, err
	}
	if err != nil {
		if s.Observer != nil {
			s.Observer.ExtractionFailed()
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if s.Generator.RequiresText() {
			return nil, fmt.Errorf("%w: %v", documents.ErrNoText, err)
		}
		log.Warn("text extraction failed, continuing without text", zap.Error(err))
		ex = documents.Extraction{}
	}
	if s.Generator.RequiresText() && strings.TrimSpace(ex.Text) == "" {
		return nil, documents.ErrNoText
	}

	now := s.clock().Now()
	in := reports.Input{
		Info:  reports.NewDocumentInfo(doc, ex, now),
		Text:  ex.Text,
		Query: query,
	}
	rep, err := s.Generator.Generate(ctx, in)
	if err != nil {
		if s.Observer != nil {
			s.Observer.GenerationFailed()
		}
		log.Error("report generation failed", zap.String("generator", s.Generator.Name()), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	rep.Status = reports.StatusSuccess
	rep.ID = uuid.New().String()
	rep.Generator = s.Generator.Name()
	rep.Query = query
	rep.GeneratedAt = now
	rep.DocumentInfo = in.Info
	rep.Normalize()
	if err := rep.Validate(); err != nil {
		return nil, err
	}

	log.Info("document analyzed",
		zap.String("analysis_id", rep.ID),
		zap.String("generator", rep.Generator),
		zap.String("document_type", rep.DocumentInfo.DocumentType),
		zap.Int("text_length", rep.DocumentInfo.TextLength),
	)
	return rep, nil
}

// extract stages the document, pulls its text and always removes the staged
// copy before returning.
func (s *Service) extract(ctx context.Context, doc *documents.Document) (documents.Extraction, error) {
	staged, err := s.Stager.Stage(ctx, doc)
	if err != nil {
		return documents.Extraction{}, fmt.Errorf("%w: %w", ErrStaging, err)
	}
	defer func() {
		if err := staged.Remove(context.WithoutCancel(ctx)); err != nil {
			s.logger().Warn("failed to remove staged document",
				zap.String("location", staged.Location()), zap.Error(err))
		}
	}()
	return s.Extractor.Extract(ctx, doc.Extension(), staged)
}

// Reject reports a client error found outside Analyze, such as while reading
// the upload. Errors that are not the client's fault are ignored.
func (s *Service) Reject(err error) {
	if s.Observer == nil || !IsRejection(err) {
		return
	}
	s.Observer.DocumentRejected(err)
}

// IsRejection reports whether err is the client's fault rather than ours.
func IsRejection(err error) bool {
	for _, target := range []error{
		documents.ErrMissingFile,
		documents.ErrEmpty,
		documents.ErrInvalidFilename,
		documents.ErrUnsupportedType,
		documents.ErrTooLarge,
		documents.ErrNoText,
		reports.ErrInvalidQuery,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}
