package lazy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cleanlight/instant-sme/internal/core/ports"
)

// Provider defers embedding backend construction until the first call.
// The api process should come up and serve lexically even when the
// embedding backend is down; a failed initialization is remembered and
// returned on every subsequent call so the scorer keeps falling back.
type Provider struct {
	construct func() (ports.EmbeddingProvider, error)
	logger    *slog.Logger

	once     sync.Once
	delegate ports.EmbeddingProvider
	initErr  error
}

func New(construct func() (ports.EmbeddingProvider, error), logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{construct: construct, logger: logger}
}

func (p *Provider) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	p.once.Do(func() {
		p.delegate, p.initErr = p.construct()
		if p.initErr != nil {
			p.logger.Warn("embedding_provider_init_failed", "error", p.initErr)
		}
	})
	if p.initErr != nil {
		return nil, fmt.Errorf("embedding provider unavailable: %w", p.initErr)
	}
	return p.delegate.EmbedTexts(ctx, texts)
}
