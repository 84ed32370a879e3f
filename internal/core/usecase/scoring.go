package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cleanlight/instant-sme/internal/core/ports"
)

// Scorer turns a query and candidate texts into comparable relevance
// scores. With an embedding provider the score is cosine similarity over
// unit-length vectors, which reduces to a dot product. Without one, or
// when the provider fails, scoring falls back to token overlap in [0,1];
// the fallback is a deliberate, logged branch reported to the caller.
type Scorer struct {
	provider ports.EmbeddingProvider
	logger   *slog.Logger
}

func NewScorer(provider ports.EmbeddingProvider, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{provider: provider, logger: logger}
}

// ScoreTexts scores every candidate text against the query. The boolean
// reports whether lexical fallback was used, so downstream calibration
// can penalize it.
func (s *Scorer) ScoreTexts(ctx context.Context, query string, texts []string) ([]float64, bool) {
	if len(texts) == 0 {
		return []float64{}, false
	}

	if s.provider != nil {
		scores, err := s.scoreByEmbedding(ctx, query, texts)
		if err == nil {
			return scores, false
		}
		s.logger.Warn("embedding_unavailable_lexical_fallback", "error", err)
	}

	scores := make([]float64, len(texts))
	for i, text := range texts {
		scores[i] = lexicalScore(query, text)
	}
	return scores, true
}

func (s *Scorer) scoreByEmbedding(ctx context.Context, query string, texts []string) ([]float64, error) {
	inputs := make([]string, 0, len(texts)+1)
	inputs = append(inputs, query)
	inputs = append(inputs, texts...)

	vectors, err := s.provider.EmbedTexts(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(inputs) {
		return nil, fmt.Errorf("vectors/texts mismatch: %d/%d", len(vectors), len(inputs))
	}

	queryVector := vectors[0]
	scores := make([]float64, len(texts))
	for i, vector := range vectors[1:] {
		scores[i] = dotProduct(queryVector, vector)
	}
	return scores, nil
}

// lexicalScore is the ultra-light fallback: lower-cased whitespace
// tokens, query tokens longer than two characters, overlap divided by
// the query token count.
func lexicalScore(query, text string) float64 {
	if query == "" || text == "" {
		return 0
	}
	queryTokens := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(query)) {
		if len(token) > 2 {
			queryTokens[token] = struct{}{}
		}
	}
	if len(queryTokens) == 0 {
		return 0
	}
	matched := 0
	textTokens := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(text)) {
		textTokens[token] = struct{}{}
	}
	for token := range queryTokens {
		if _, ok := textTokens[token]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

func dotProduct(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
