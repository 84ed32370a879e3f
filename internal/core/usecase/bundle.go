package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/cleanlight/instant-sme/internal/core/domain"
	"github.com/cleanlight/instant-sme/internal/core/ports"
)

// Upper fetch caps per level, independent of the final keep limits.
const (
	fetchCapSubjects   = 200
	fetchCapDocuments  = 50
	fetchCapGraphNodes = 300
	fetchCapChunks     = 300
)

const truncationMarker = "…"

// DefaultBundleLimits are the keep limits used by the standalone bundle
// entry point.
func DefaultBundleLimits() domain.BundleLimits {
	return domain.BundleLimits{
		Subjects:     8,
		Documents:    5,
		GraphNodes:   25,
		Chunks:       20,
		ChunkTextMax: 300,
	}
}

// BundleUseCase composes four level retrievals into one layered bundle
// for a topic: subjects, documents, graph nodes and chunks, each scored
// against the topic and kept to its limit.
type BundleUseCase struct {
	store  ports.LayeredStore
	scorer *Scorer
	logger *slog.Logger
}

func NewBundleUseCase(store ports.LayeredStore, scorer *Scorer, logger *slog.Logger) *BundleUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &BundleUseCase{store: store, scorer: scorer, logger: logger}
}

type levelOutcome struct {
	fallback bool
	err      error
}

// Build retrieves and scores all four levels concurrently. A failed
// level contributes an empty list and a note; only all four levels
// failing is an error. An empty topic yields an empty bundle, not an
// error.
func (uc *BundleUseCase) Build(ctx context.Context, topic string, limits domain.BundleLimits) (*domain.Bundle, error) {
	topic = strings.TrimSpace(topic)
	lim := normalizeBundleLimits(limits)

	bundle := &domain.Bundle{
		Topic:      topic,
		Subjects:   []domain.KnowledgeCard{},
		Documents:  []domain.Document{},
		GraphNodes: []domain.GraphNode{},
		Chunks:     []domain.Chunk{},
		Meta:       domain.BundleMeta{Limits: lim},
	}
	if topic == "" {
		bundle.Meta.Notes = []string{"empty topic"}
		return bundle, nil
	}

	var (
		subjects []domain.KnowledgeCard
		docs     []domain.Document
		nodes    []domain.GraphNode
		chunks   []domain.Chunk
		outcomes [4]levelOutcome
		wg       sync.WaitGroup
	)

	// The four level retrievals share the topic but hit disjoint store
	// queries, so they fan out and join before assembly.
	wg.Add(4)
	go func() {
		defer wg.Done()
		subjects, outcomes[0] = uc.retrieveSubjects(ctx, topic, lim.Subjects)
	}()
	go func() {
		defer wg.Done()
		docs, outcomes[1] = uc.retrieveDocuments(ctx, topic, lim.Documents)
	}()
	go func() {
		defer wg.Done()
		nodes, outcomes[2] = uc.retrieveGraphNodes(ctx, topic, lim.GraphNodes)
	}()
	go func() {
		defer wg.Done()
		chunks, outcomes[3] = uc.retrieveChunks(ctx, topic, lim.Chunks, lim.ChunkTextMax)
	}()
	wg.Wait()

	levels := [4]domain.RetrievalLevel{
		domain.LevelSubjects,
		domain.LevelDocuments,
		domain.LevelGraphNodes,
		domain.LevelChunks,
	}
	failed := 0
	var firstErr error
	for i, outcome := range outcomes {
		if outcome.err != nil {
			failed++
			if firstErr == nil {
				firstErr = outcome.err
			}
			uc.logger.Warn("level_retrieval_failed", "level", levels[i].String(), "error", outcome.err)
			bundle.Meta.Notes = append(bundle.Meta.Notes, fmt.Sprintf("%s unavailable", levels[i]))
			continue
		}
		if outcome.fallback {
			bundle.Meta.LexicalFallback = true
		}
	}
	if failed == len(outcomes) {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "build bundle", firstErr)
	}
	if bundle.Meta.LexicalFallback {
		bundle.Meta.Notes = append(bundle.Meta.Notes, "lexical_fallback")
	}

	if subjects != nil {
		bundle.Subjects = subjects
	}
	if docs != nil {
		bundle.Documents = docs
	}
	if nodes != nil {
		bundle.GraphNodes = nodes
	}
	if chunks != nil {
		bundle.Chunks = chunks
	}
	return bundle, nil
}

func (uc *BundleUseCase) retrieveSubjects(ctx context.Context, topic string, keep int) ([]domain.KnowledgeCard, levelOutcome) {
	cards, err := uc.store.FetchKnowledgeCards(ctx, fetchCapSubjects)
	if err != nil {
		return nil, levelOutcome{err: fmt.Errorf("fetch knowledge cards: %w", err)}
	}
	texts := make([]string, len(cards))
	for i, card := range cards {
		texts[i] = card.Question
	}
	scores, fallback := uc.scorer.ScoreTexts(ctx, topic, texts)
	out := make([]domain.KnowledgeCard, 0, keep)
	for _, idx := range topIndices(scores, keep) {
		out = append(out, cards[idx])
	}
	return out, levelOutcome{fallback: fallback}
}

func (uc *BundleUseCase) retrieveDocuments(ctx context.Context, topic string, keep int) ([]domain.Document, levelOutcome) {
	docs, err := uc.store.FetchDocuments(ctx, fetchCapDocuments)
	if err != nil {
		return nil, levelOutcome{err: fmt.Errorf("fetch documents: %w", err)}
	}
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = strings.TrimSpace(doc.Title + " " + doc.Meta["author"])
	}
	scores, fallback := uc.scorer.ScoreTexts(ctx, topic, texts)
	out := make([]domain.Document, 0, keep)
	for _, idx := range topIndices(scores, keep) {
		out = append(out, docs[idx])
	}
	return out, levelOutcome{fallback: fallback}
}

func (uc *BundleUseCase) retrieveGraphNodes(ctx context.Context, topic string, keep int) ([]domain.GraphNode, levelOutcome) {
	nodes, err := uc.store.FetchGraphNodes(ctx, fetchCapGraphNodes)
	if err != nil {
		return nil, levelOutcome{err: fmt.Errorf("fetch graph nodes: %w", err)}
	}
	texts := make([]string, len(nodes))
	for i, node := range nodes {
		texts[i] = node.Label
	}
	scores, fallback := uc.scorer.ScoreTexts(ctx, topic, texts)
	out := make([]domain.GraphNode, 0, keep)
	for _, idx := range topIndices(scores, keep) {
		out = append(out, nodes[idx])
	}
	return out, levelOutcome{fallback: fallback}
}

func (uc *BundleUseCase) retrieveChunks(ctx context.Context, topic string, keep, textMax int) ([]domain.Chunk, levelOutcome) {
	chunks, err := uc.store.FetchChunks(ctx, fetchCapChunks)
	if err != nil {
		return nil, levelOutcome{err: fmt.Errorf("fetch chunks: %w", err)}
	}
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	scores, fallback := uc.scorer.ScoreTexts(ctx, topic, texts)
	out := make([]domain.Chunk, 0, keep)
	for _, idx := range topIndices(scores, keep) {
		chunk := chunks[idx]
		chunk.Text = truncateWithMarker(chunk.Text, textMax)
		out = append(out, chunk)
	}
	return out, levelOutcome{fallback: fallback}
}

// topIndices returns the indices of the k highest scores, descending,
// with ties kept in first-seen order.
func topIndices(scores []float64, k int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	if k < 0 {
		k = 0
	}
	if k > len(idx) {
		k = len(idx)
	}
	return idx[:k]
}

// truncateWithMarker caps text at max runes plus the marker; text at or
// under the budget is returned unmodified.
func truncateWithMarker(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + truncationMarker
}

func normalizeBundleLimits(limits domain.BundleLimits) domain.BundleLimits {
	def := DefaultBundleLimits()
	if limits.Subjects <= 0 {
		limits.Subjects = def.Subjects
	}
	if limits.Documents <= 0 {
		limits.Documents = def.Documents
	}
	if limits.GraphNodes <= 0 {
		limits.GraphNodes = def.GraphNodes
	}
	if limits.Chunks <= 0 {
		limits.Chunks = def.Chunks
	}
	if limits.ChunkTextMax <= 0 {
		limits.ChunkTextMax = def.ChunkTextMax
	}
	return limits
}
