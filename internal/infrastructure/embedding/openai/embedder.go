package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder targets OpenAI-compatible embedding endpoints, including
// local inference servers that ignore the token.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

type Config struct {
	BaseURL string
	Token   string
	Model   string
}

func New(cfg Config, logger *slog.Logger) (*Embedder, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai embedder: base url is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai embedder: model is required")
	}
	token := cfg.Token
	if token == "" {
		token = "none"
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: create client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("openai embedder: wrap client: %w", err)
	}

	return &Embedder{embedder: embedder, logger: logger}, nil
}

func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("embed_texts_failed", "count", len(texts), "error", err)
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("openai embed: expected %d vectors, got %d", len(texts), len(vectors))
	}
	return vectors, nil
}
