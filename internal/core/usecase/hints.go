package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cleanlight/instant-sme/internal/core/domain"
	"github.com/cleanlight/instant-sme/internal/core/ports"
)

const (
	hintsDocSample    = 8
	hintsDefaultTopK  = 8
	hintsMaxRows      = 1000
	hintsSeedFallback = "how should I stitch a crown ribbon to a hat?"
)

// HintsUseCase builds the self-describing envelope for agent callers:
// what the store holds, how much of it, and which call shapes to try
// next. Every part fails soft; degradation is reported inside the
// payload rather than as an error.
type HintsUseCase struct {
	store  ports.LayeredStore
	logger *slog.Logger
}

func NewHintsUseCase(store ports.LayeredStore, logger *slog.Logger) *HintsUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &HintsUseCase{store: store, logger: logger}
}

func (uc *HintsUseCase) BuildHints(ctx context.Context, question, docPattern string) (*domain.Hints, error) {
	hints := &domain.Hints{
		Capabilities: uc.capabilities(ctx),
		Coverage:     uc.coverage(ctx),
		Limits: map[string]int{
			"default_top_k": hintsDefaultTopK,
			"max_rows":      hintsMaxRows,
		},
		Recommend:   uc.recommendCalls(ctx, question, docPattern),
		DefaultFlow: "Use bundle -> targeted chunks. If you need surrounding context, pull a same-doc page window (+/-1 page).",
		Strategies:  hintStrategies(question),
	}
	return hints, nil
}

func (uc *HintsUseCase) capabilities(ctx context.Context) map[string]int {
	levels := []domain.RetrievalLevel{
		domain.LevelSubjects,
		domain.LevelDocuments,
		domain.LevelGraphNodes,
		domain.LevelEdges,
		domain.LevelChunks,
	}
	out := make(map[string]int, len(levels))
	for _, level := range levels {
		count, err := uc.store.CountRecords(ctx, level)
		if err != nil {
			uc.logger.Warn("capability_count_failed", "level", level.String(), "error", err)
			count = 0
		}
		out[level.String()] = count
	}
	return out
}

func (uc *HintsUseCase) coverage(ctx context.Context) domain.HintsCoverage {
	coverage := domain.HintsCoverage{
		TopDocs:    []domain.Document{},
		RecentDocs: []domain.Document{},
	}

	topDocs, err := uc.store.FetchDocuments(ctx, hintsDocSample)
	if err != nil {
		coverage.Warn = fmt.Sprintf("coverage degraded: %v", err)
		return coverage
	}
	coverage.TopDocs = topDocs

	recentDocs, err := uc.store.FetchRecentDocuments(ctx, hintsDocSample)
	if err != nil {
		coverage.Warn = fmt.Sprintf("coverage degraded: %v", err)
		return coverage
	}
	coverage.RecentDocs = recentDocs
	return coverage
}

func (uc *HintsUseCase) recommendCalls(ctx context.Context, question, docPattern string) []domain.HintCall {
	seed := question
	if seed == "" {
		seed = hintsSeedFallback
	}

	recs := []domain.HintCall{
		{
			Title: "Subject bundle",
			Call: map[string]any{
				"path": "/v1/bundle",
				"body": map[string]any{"topic": seed},
			},
		},
		{
			Title: "Ask with trace",
			Call: map[string]any{
				"path": "/v1/ask",
				"body": map[string]any{"question": seed, "return_trace": true},
			},
		},
	}
	if docPattern != "" {
		call := map[string]any{
			"path": "/v1/bundle",
			"body": map[string]any{"topic": docPattern, "limits": map[string]int{"l2": 50}},
		}
		if labels := uc.matchedLabels(ctx, docPattern); len(labels) > 0 {
			call["sample_labels"] = labels
		}
		recs = append(recs, domain.HintCall{
			Title: "Graph nodes by label",
			Call:  call,
		})
	}
	return recs
}

// matchedLabels previews which graph labels the pattern would hit so the
// caller can refine it before spending a bundle call. Lookup failures
// just drop the preview.
func (uc *HintsUseCase) matchedLabels(ctx context.Context, pattern string) []string {
	nodes, err := uc.store.SearchGraphNodes(ctx, pattern, hintsDocSample)
	if err != nil {
		uc.logger.Warn("label_preview_failed", "pattern", pattern, "error", err)
		return nil
	}
	labels := make([]string, 0, len(nodes))
	for _, node := range nodes {
		labels = append(labels, node.Label)
	}
	return labels
}

func hintStrategies(question string) []domain.HintStrategy {
	seed := question
	if seed == "" {
		seed = "<seed_phrase>"
	}
	return []domain.HintStrategy{
		{
			Name: "bundle_then_chunks",
			When: "General knowledge questions requiring SME synthesis",
			Steps: []map[string]any{
				{"call": "bundle", "topic": seed, "chunk_text_max": 800},
				{"call": "ask", "question": "<precision_terms 3-6>", "chunk_text_max": 800},
			},
			Notes: []string{
				"Derive precision terms from bundle.l2 labels and l3 chunk n-grams.",
				"Prefer chunks that include all precision terms.",
			},
		},
		{
			Name: "widen_context_window",
			When: "Follow-ups after you have a hit chunk",
			Steps: []map[string]any{
				{"call": "bundle", "topic": "<hit chunk terms>", "l3": 20, "chunk_text_max": 800},
			},
			Notes: []string{
				"Clamp page_from >= 1; prefer a same-doc page window to fetch neighbors.",
			},
		},
	}
}
