package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readiness/internal/ai"
	"github.com/xxxsen/readiness/internal/assessment"
	"github.com/xxxsen/readiness/internal/config"
	"github.com/xxxsen/readiness/internal/db"
	"github.com/xxxsen/readiness/internal/embedcache"
	"github.com/xxxsen/readiness/internal/events"
	"github.com/xxxsen/readiness/internal/extract"
	"github.com/xxxsen/readiness/internal/filestore"
	"github.com/xxxsen/readiness/internal/ingest"
	"github.com/xxxsen/readiness/internal/job"
	"github.com/xxxsen/readiness/internal/metrics"
	"github.com/xxxsen/readiness/internal/repo"
	"github.com/xxxsen/readiness/internal/retrieval"
	"github.com/xxxsen/readiness/internal/schedule"
	"github.com/xxxsen/readiness/internal/service"
	"github.com/xxxsen/readiness/internal/session"
	"github.com/xxxsen/readiness/internal/vectorstore"
)

type app struct {
	cfg        *config.Config
	db         *sql.DB
	sessions   session.Store
	notifier   events.Notifier
	metrics    *metrics.Collector
	service    *service.AssessmentService
	embedCache *repo.EmbeddingCacheRepo
}

func (a *app) Close() {
	logger := logutil.GetLogger(context.Background())
	if a.service != nil {
		a.service.Wait()
	}
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			logger.Warn("close notifier failed", zap.Error(err))
		}
	}
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			logger.Warn("close session store failed", zap.Error(err))
		}
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func providerSpecs(items []config.ProviderConfig) []ai.ProviderSpec {
	specs := make([]ai.ProviderSpec, 0, len(items))
	for _, item := range items {
		specs = append(specs, ai.ProviderSpec{
			Name:     item.Name,
			Provider: item.Provider,
			Model:    item.Model,
			Data:     item.Data,
		})
	}
	return specs
}

func buildApp(cfg *config.Config) (*app, error) {
	logger := logutil.GetLogger(context.Background())
	a := &app{cfg: cfg, metrics: metrics.New()}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if cfg.Database.Enabled() {
		conn, err := db.Open(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		a.db = conn
		if err := db.ApplyMigrations(conn); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	generator, err := ai.BuildGenerator(providerSpecs(cfg.AI.Generator))
	if err != nil {
		return nil, fmt.Errorf("init generator: %w", err)
	}
	embedder, err := ai.BuildEmbedder(providerSpecs(cfg.AI.Embedder))
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	embedder = ai.NewRetryEmbedder(embedder, ai.RetryConfig{
		MaxAttempts: cfg.Retrieval.MaxAttempts,
		Timeout:     time.Duration(cfg.Retrieval.TimeoutSeconds) * time.Second,
		Backoff:     time.Duration(cfg.Retrieval.BackoffMs) * time.Millisecond,
	})
	if cfg.AI.PersistEmbedCache && a.db != nil {
		a.embedCache = repo.NewEmbeddingCacheRepo(a.db)
		embedder = embedcache.WrapDBCacheToEmbedder(embedder, a.embedCache)
	}
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.AI.EmbedCacheSize,
		time.Duration(cfg.AI.EmbedCacheTTLMinutes)*time.Minute)

	var vectors vectorstore.Store
	switch cfg.VectorStore.Type {
	case "pgvector":
		vectors = vectorstore.NewPGStore(a.db)
	default:
		vectors = vectorstore.NewMemoryStore()
	}

	a.sessions, err = session.New(cfg.Session.Store, session.Options{
		Data:        cfg.Session.Data,
		MaxSessions: cfg.Session.MaxSessions,
		DB:          a.db,
	})
	if err != nil {
		return nil, fmt.Errorf("init session store: %w", err)
	}

	var files filestore.Store
	if cfg.FileStore.Type != "none" {
		files, err = filestore.New(cfg.FileStore)
		if err != nil {
			return nil, fmt.Errorf("init file store: %w", err)
		}
	}

	switch cfg.Events.Type {
	case "nats":
		a.notifier, err = events.NewNATSNotifier(cfg.Events.URL, cfg.Events.Subject)
		if err != nil {
			return nil, fmt.Errorf("init notifier: %w", err)
		}
	default:
		a.notifier = events.NewNoop()
	}

	caller := ai.NewCaller(generator, time.Duration(cfg.AI.TimeoutSeconds)*time.Second, *cfg.AI.GenerativeRetries)
	gateway := retrieval.NewGateway(embedder, vectors)
	scoring := assessment.ScoringConfig{
		TopK:            cfg.Scoring.TopK,
		MinRelevance:    cfg.Scoring.MinRelevance,
		EvidenceCeiling: cfg.Scoring.EvidenceCeiling,
	}
	formats := extract.NewRegistry()
	a.service = service.NewAssessmentService(service.Dependencies{
		Sessions: a.sessions,
		Formats:  formats,
		Ingestor: ingest.NewBuilder(formats, embedder, vectors, ingest.Config{
			ChunkSize:        cfg.Ingest.ChunkSize,
			ChunkOverlap:     cfg.Ingest.ChunkOverlap,
			MaxDocuments:     cfg.Ingest.MaxDocuments,
			MaxDocumentBytes: cfg.Ingest.MaxDocumentBytes,
			MaxTotalChunks:   cfg.Ingest.MaxTotalChunks,
			EmbedConcurrency: cfg.Ingest.EmbedConcurrency,
		}),
		Vectors:     vectors,
		Scorer:      assessment.NewScorer(gateway, caller, scoring),
		UseCases:    assessment.NewUseCaseIdentifier(gateway, caller, scoring),
		Synthesizer: assessment.NewSynthesizer(caller),
		Files:       files,
		Notifier:    a.notifier,
		Metrics:     a.metrics,
	})

	logger.Info("assessment engine ready",
		zap.Int("generators", len(cfg.AI.Generator)),
		zap.String("embedder", embedder.ModelName()),
		zap.String("session_store", cfg.Session.Store),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("events", cfg.Events.Type),
	)
	ok = true
	return a, nil
}

func (a *app) scheduler() (*schedule.CronScheduler, error) {
	sched := schedule.NewCronScheduler(5 * time.Minute)
	if err := sched.AddJob(job.NewSessionEvictionJob(a.service, a.cfg.Session.RetentionHours), a.cfg.Session.EvictionCron); err != nil {
		return nil, fmt.Errorf("add session eviction job: %w", err)
	}
	if a.embedCache != nil {
		if err := sched.AddJob(job.NewEmbeddingCacheCleanupJob(a.embedCache, 0), "0 3 * * *"); err != nil {
			return nil, fmt.Errorf("add embedding cache cleanup job: %w", err)
		}
	}
	return sched, nil
}
