package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bryanwahyu/finsight/internal/application"
	"github.com/bryanwahyu/finsight/internal/application/analysis"
	"github.com/bryanwahyu/finsight/internal/config"
	"github.com/bryanwahyu/finsight/internal/domain/ai"
	"github.com/bryanwahyu/finsight/internal/domain/documents"
	"github.com/bryanwahyu/finsight/internal/domain/reports"
	"github.com/bryanwahyu/finsight/internal/infra/ai/gemini"
	"github.com/bryanwahyu/finsight/internal/infra/ai/openai"
	"github.com/bryanwahyu/finsight/internal/infra/extract"
	"github.com/bryanwahyu/finsight/internal/infra/httpserver"
	"github.com/bryanwahyu/finsight/internal/infra/report"
	"github.com/bryanwahyu/finsight/internal/infra/storage"
	"github.com/bryanwahyu/finsight/internal/middleware"
)

// stager is a documents.Stager that can report its own readiness.
type stager interface {
	documents.Stager
	middleware.HealthChecker
}

type app struct {
	svc      *analysis.Service
	metrics  *middleware.Metrics
	checkers map[string]middleware.HealthChecker
}

func newLogger(cfg config.Log, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log.level: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	stg, err := newStager(ctx, cfg.Staging)
	if err != nil {
		return nil, fmt.Errorf("staging: %w", err)
	}
	gen, err := newGenerator(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	metrics := middleware.NewMetrics()
	svc := &analysis.Service{
		Policy: documents.Policy{
			MaxBytes:          cfg.Upload.MaxBytes,
			AllowedExtensions: cfg.Upload.AllowedExtensions,
		},
		Stager:    stg,
		Extractor: extract.NewRegistry(cfg.Upload.MaxTextChars),
		Generator: gen,
		Clock:     application.SystemClock{},
		Logger:    logger,
		Observer:  metrics,
	}

	checkers := map[string]middleware.HealthChecker{"staging": stg}
	if gen.RequiresText() {
		checkers["ai"] = middleware.CheckerFunc(func(context.Context) error {
			if cfg.AI.APIKey == "" {
				return fmt.Errorf("%w: %s", ai.ErrNotConfigured, cfg.AI.Provider)
			}
			return nil
		})
	}
	return &app{svc: svc, metrics: metrics, checkers: checkers}, nil
}

func newStager(ctx context.Context, cfg config.Staging) (stager, error) {
	switch cfg.Backend {
	case "minio":
		return storage.New(ctx, storage.MinioOptions{
			Endpoint:  cfg.Minio.Endpoint,
			Region:    cfg.Minio.Region,
			Bucket:    cfg.Minio.BucketName,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
			Prefix:    cfg.Minio.Prefix,
		})
	default:
		return storage.NewLocal(cfg.Dir)
	}
}

func newGenerator(ctx context.Context, cfg *config.Config, logger *zap.Logger) (reports.Generator, error) {
	if cfg.Generator.Mode != "ai" {
		return report.Mock{}, nil
	}
	client, err := newAIClient(ctx, cfg.AI, logger)
	if err != nil {
		return nil, err
	}
	return &report.Crew{
		Client:         client,
		MaxPromptChars: cfg.AI.MaxPromptChars,
		Timeout:        cfg.AI.Timeout,
		Logger:         logger,
	}, nil
}

func newAIClient(ctx context.Context, cfg config.AI, logger *zap.Logger) (ai.Client, error) {
	if cfg.APIKey == "" {
		logger.Warn("no API key for AI provider, analysis requests will fail until one is set",
			zap.String("provider", cfg.Provider))
		return ai.NotConfigured{Provider: cfg.Provider}, nil
	}
	switch cfg.Provider {
	case "openai":
		return openai.NewClient(openai.Options{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}), nil
	default:
		return gemini.NewClient(ctx, gemini.Options{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	}
}

func (a *app) handler(cfg *config.Config, logger *zap.Logger) (http.Handler, error) {
	var limiter *middleware.RateLimiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	for client := range cfg.Auth.APIKeys {
		if err := middleware.ValidateClientID(client); err != nil {
			return nil, fmt.Errorf("auth.apiKeys: %w", err)
		}
	}
	return httpserver.NewRouter(httpserver.Options{
		Service:  a.svc,
		Logger:   logger,
		Metrics:  a.metrics,
		Checkers: a.checkers,
		Info: middleware.ServiceInfo{
			Service:          config.ServiceName,
			Version:          config.Version,
			Generator:        a.svc.Generator.Name(),
			APIKeyConfigured: cfg.AI.APIKey != "",
		},
		APIKeys:     cfg.Auth.APIKeys,
		RateLimiter: limiter,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
}
