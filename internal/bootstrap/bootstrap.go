package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cleanlight/instant-sme/internal/config"
	"github.com/cleanlight/instant-sme/internal/core/ports"
	"github.com/cleanlight/instant-sme/internal/core/usecase"
	hashedembed "github.com/cleanlight/instant-sme/internal/infrastructure/embedding/hashed"
	"github.com/cleanlight/instant-sme/internal/infrastructure/embedding/lazy"
	ollamaembed "github.com/cleanlight/instant-sme/internal/infrastructure/embedding/ollama"
	openaiembed "github.com/cleanlight/instant-sme/internal/infrastructure/embedding/openai"
	neo4jgraph "github.com/cleanlight/instant-sme/internal/infrastructure/graph/neo4j"
	natsqueue "github.com/cleanlight/instant-sme/internal/infrastructure/queue/nats"
	"github.com/cleanlight/instant-sme/internal/infrastructure/resilience"
	"github.com/cleanlight/instant-sme/internal/infrastructure/store/postgres"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Store   ports.LayeredStore
	Queue   ports.JobQueue
	Answers ports.AnswerService
	Hints   ports.HintsService
	Reembed *usecase.ReembedUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pgStore := postgres.NewLayeredStore(db)
	if err := pgStore.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	var store ports.LayeredStore = pgStore
	var graphStore *neo4jgraph.GraphStore
	if cfg.Neo4jURI != "" {
		graphStore, err = neo4jgraph.New(neo4jgraph.Config{
			URI:      cfg.Neo4jURI,
			Username: cfg.Neo4jUsername,
			Password: cfg.Neo4jPassword,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init neo4j: %w", err)
		}
		store = &graphOverlayStore{LayeredStore: pgStore, graph: graphStore}
		logger.Info("graph_level_served_by_neo4j", "uri", cfg.Neo4jURI)
	}
	store = newResilientStore(store, executor)

	var queue *natsqueue.Queue
	if cfg.NATSURL != "" {
		queue, err = natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init job queue: %w", err)
		}
	}

	provider := buildEmbeddingProvider(cfg, logger)
	scorer := usecase.NewScorer(provider, logger)
	bundles := usecase.NewBundleUseCase(store, scorer, logger)
	answers := usecase.NewAskUseCase(bundles, usecase.NewStubConsistencyChecker(), usecase.AskDefaults{
		Beam:         cfg.AskBeam,
		CitationsMax: cfg.AskCitationsMax,
		ChunkTextMax: cfg.AskChunkTextMax,
	}, logger)
	hints := usecase.NewHintsUseCase(store, logger)
	reembed := usecase.NewReembedUseCase(pgStore, provider, cfg.ReembedWorkers, logger)

	app := &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Answers: answers,
		Hints:   hints,
		Reembed: reembed,

		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			if graphStore != nil {
				_ = graphStore.Close(context.Background())
			}
			_ = db.Close()
		},
	}
	if queue != nil {
		app.Queue = queue
	}
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// buildEmbeddingProvider wraps the configured backend in a lazy guard so
// the service starts, and answers lexically, even when the embedding
// backend is down.
func buildEmbeddingProvider(cfg config.Config, logger *slog.Logger) ports.EmbeddingProvider {
	switch strings.ToLower(strings.TrimSpace(cfg.EmbeddingBackend)) {
	case "ollama":
		return lazy.New(func() (ports.EmbeddingProvider, error) {
			return ollamaembed.New(cfg.OllamaURL, cfg.OllamaEmbedModel), nil
		}, logger)
	case "openai":
		return lazy.New(func() (ports.EmbeddingProvider, error) {
			return openaiembed.New(openaiembed.Config{
				BaseURL: cfg.OpenAIBaseURL,
				Token:   cfg.OpenAIToken,
				Model:   cfg.OpenAIEmbedModel,
			}, logger)
		}, logger)
	case "hashed":
		return hashedembed.New(cfg.HashedEmbedDimensions)
	default:
		logger.Info("embedding_disabled_lexical_only", "backend", cfg.EmbeddingBackend)
		return nil
	}
}
