package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/cleanlight/instant-sme/internal/core/domain"
	"github.com/cleanlight/instant-sme/internal/core/ports"
)

const (
	defaultBeam         = 3
	maxBeam             = 4
	defaultCitationsMax = 6
	defaultChunkTextMax = 800
	rerankPoolTopK      = 12
	consistencyHead     = 6
	maxContradictions   = 3

	lowDiversityThreshold = 0.35
	maxExpansionTermLen   = 24
)

// askBundleLimits are the per-level keep limits used by the orchestrator;
// wider at the chunk level than the standalone bundle defaults.
var askBundleLimits = domain.BundleLimits{
	Subjects:   8,
	Documents:  6,
	GraphNodes: 12,
	Chunks:     40,
}

// assemblyPaddingTerms top up the expansion beam when too few graph-node
// labels survive filtering.
var assemblyPaddingTerms = []string{"components", "parts", "assembly", "construction"}

// AskDefaults are the deployment-level request defaults, applied when a
// request leaves the matching field zero. Zero fields fall back to the
// built-in constants.
type AskDefaults struct {
	Beam         int
	CitationsMax int
	ChunkTextMax int
}

func (d AskDefaults) normalize() AskDefaults {
	if d.Beam <= 0 {
		d.Beam = defaultBeam
	}
	if d.Beam > maxBeam {
		d.Beam = maxBeam
	}
	if d.CitationsMax <= 0 {
		d.CitationsMax = defaultCitationsMax
	}
	if d.ChunkTextMax <= 0 {
		d.ChunkTextMax = defaultChunkTextMax
	}
	return d
}

// AskUseCase is the top-level pipeline: build a bundle, detect
// under-coverage, laterally expand the query from graph-node labels,
// rerank, assemble a mode-specific answer and calibrate confidence.
type AskUseCase struct {
	bundles     *BundleUseCase
	consistency ports.ConsistencyChecker
	defaults    AskDefaults
	logger      *slog.Logger
}

func NewAskUseCase(bundles *BundleUseCase, consistency ports.ConsistencyChecker, defaults AskDefaults, logger *slog.Logger) *AskUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AskUseCase{
		bundles:     bundles,
		consistency: consistency,
		defaults:    defaults.normalize(),
		logger:      logger,
	}
}

// Bundle exposes the layered retrieval result directly, without answer
// assembly.
func (uc *AskUseCase) Bundle(ctx context.Context, topic string, limits domain.BundleLimits) (*domain.Bundle, error) {
	return uc.bundles.Build(ctx, topic, limits)
}

// Ask runs the full pipeline. A whitespace-only question produces a
// degenerate low-confidence pack, not an error; only total store
// unavailability is an error.
func (uc *AskUseCase) Ask(ctx context.Context, req domain.AskRequest) (*domain.AnswerPack, error) {
	question := strings.TrimSpace(req.Question)
	beam := req.Beam
	if beam <= 0 {
		beam = uc.defaults.Beam
	}
	beam = clampBeam(beam)
	citationsMax := req.CitationsMax
	if citationsMax <= 0 {
		citationsMax = uc.defaults.CitationsMax
	}
	chunkTextMax := req.ChunkTextMax
	if chunkTextMax <= 0 {
		chunkTextMax = uc.defaults.ChunkTextMax
	}
	returnTrace := req.ReturnTrace == nil || *req.ReturnTrace

	// Mode is selected once, before any retrieval, and reused through
	// expansion and assembly.
	mode := chooseAnswerMode(question)

	limits := askBundleLimits
	limits.ChunkTextMax = chunkTextMax

	bundle, err := uc.bundles.Build(ctx, question, limits)
	if err != nil {
		return nil, err
	}
	trace := []domain.TraceStep{{
		Step:    1,
		Call:    map[string]any{"call": "bundle", "topic": question},
		Summary: bundleSummary(bundle),
	}}

	pool := bundle.Chunks
	lexicalFallback := bundle.Meta.LexicalFallback

	needExpand := chunkDiversity(bundle.Chunks) < lowDiversityThreshold || lexicalFallback
	if needExpand && mode == domain.ModeAssembly && question != "" {
		terms := expansionTerms(question, bundle.GraphNodes, beam)
		for _, expanded := range uc.expand(ctx, question, terms, limits) {
			if expanded.err != nil {
				uc.logger.Warn("expansion_bundle_failed", "term", expanded.term, "error", expanded.err)
				continue
			}
			pool = unionChunks(pool, expanded.bundle.Chunks)
			lexicalFallback = lexicalFallback || expanded.bundle.Meta.LexicalFallback
			trace = append(trace, domain.TraceStep{
				Step:    len(trace) + 1,
				Call:    map[string]any{"call": "bundle", "topic": question + " " + expanded.term},
				Summary: bundleSummary(expanded.bundle),
			})
		}
	}

	ranked := rerankCandidates(question, pool, rerankPoolTopK)
	consistencyScore, contradictions := uc.consistency.Check(headCandidates(ranked, consistencyHead))
	diversity := rankedDiversity(ranked)
	coverage := meanCoverage(question, ranked)

	confidence := 0.0
	if len(ranked) > 0 {
		confidence = calibrateConfidence(coverage, consistencyScore, diversity, lexicalFallback)
	}
	if len(contradictions) > maxContradictions {
		contradictions = contradictions[:maxContradictions]
	}

	pack := &domain.AnswerPack{
		Answer:    assembleAnswer(ranked, mode),
		Citations: buildCitations(ranked, citationsMax),
		Meta: domain.AnswerMeta{
			AnswerMode:      mode,
			Confidence:      confidence,
			Diversity:       diversity,
			LexicalFallback: lexicalFallback,
			Expanded:        len(trace) > 1,
			Contradictions:  contradictions,
		},
	}
	if returnTrace {
		pack.Trace = trace
	}
	return pack, nil
}

type expansionResult struct {
	term   string
	bundle *domain.Bundle
	err    error
}

// expand fans the per-term bundle calls out concurrently and joins before
// reranking. A failed expansion is logged and skipped, never fatal.
func (uc *AskUseCase) expand(ctx context.Context, question string, terms []string, limits domain.BundleLimits) []expansionResult {
	results := make([]expansionResult, len(terms))
	var wg sync.WaitGroup
	for i, term := range terms {
		wg.Add(1)
		go func(i int, term string) {
			defer wg.Done()
			bundle, err := uc.bundles.Build(ctx, question+" "+term, limits)
			results[i] = expansionResult{term: term, bundle: bundle, err: err}
		}(i, term)
	}
	wg.Wait()
	return results
}

// expansionTerms derives up to beam short terms from graph-node labels,
// skipping terms already present in the question and over-long labels,
// padded with fixed assembly terms when too few remain.
func expansionTerms(question string, nodes []domain.GraphNode, beam int) []string {
	questionLower := strings.ToLower(question)
	seen := make(map[string]struct{})
	terms := make([]string, 0, beam)

	consider := func(raw string) {
		if len(terms) >= beam {
			return
		}
		term := strings.ToLower(strings.TrimSpace(raw))
		if term == "" || len(term) > maxExpansionTermLen {
			return
		}
		if strings.Contains(questionLower, term) {
			return
		}
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}

	for _, node := range nodes {
		consider(node.Label)
	}
	for _, term := range assemblyPaddingTerms {
		consider(term)
	}
	return terms
}

// unionChunks merges extra chunks into the pool, de-duplicated by chunk
// id (document id + text when the id is empty), preserving pool order.
func unionChunks(pool, extra []domain.Chunk) []domain.Chunk {
	seen := make(map[string]struct{}, len(pool))
	for _, chunk := range pool {
		seen[chunkKey(chunk)] = struct{}{}
	}
	for _, chunk := range extra {
		key := chunkKey(chunk)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		pool = append(pool, chunk)
	}
	return pool
}

func chunkKey(chunk domain.Chunk) string {
	if chunk.ID != "" {
		return chunk.ID
	}
	return chunk.DocumentID + "|" + chunk.Text
}

// chunkDiversity is the fraction of distinct document ids among the
// chunks, 1 when there are none.
func chunkDiversity(chunks []domain.Chunk) float64 {
	if len(chunks) == 0 {
		return 1
	}
	docs := make(map[string]struct{}, len(chunks))
	for _, chunk := range chunks {
		docs[chunk.DocumentID] = struct{}{}
	}
	return float64(len(docs)) / float64(len(chunks))
}

func rankedDiversity(ranked []domain.RankedCandidate) float64 {
	if len(ranked) == 0 {
		return 1
	}
	docs := make(map[string]struct{}, len(ranked))
	for _, candidate := range ranked {
		docs[candidate.Chunk.DocumentID] = struct{}{}
	}
	return float64(len(docs)) / float64(len(ranked))
}

// meanCoverage averages the reranker's token coverage over the final
// candidates; it feeds the calibrator.
func meanCoverage(question string, ranked []domain.RankedCandidate) float64 {
	if len(ranked) == 0 {
		return 0
	}
	questionTokens := alphaTokenSet(question)
	var sum float64
	for _, candidate := range ranked {
		sum += tokenCoverage(questionTokens, candidate.Chunk.Text)
	}
	return sum / float64(len(ranked))
}

func buildCitations(ranked []domain.RankedCandidate, max int) []domain.Citation {
	if max > len(ranked) {
		max = len(ranked)
	}
	citations := make([]domain.Citation, 0, max)
	for _, candidate := range ranked[:max] {
		citations = append(citations, domain.Citation{
			DocumentID: candidate.Chunk.DocumentID,
			ChunkID:    candidate.Chunk.ID,
			PageFrom:   candidate.Chunk.PageFrom,
			PageTo:     candidate.Chunk.PageTo,
		})
	}
	return citations
}

func headCandidates(ranked []domain.RankedCandidate, n int) []domain.RankedCandidate {
	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n]
}

func bundleSummary(bundle *domain.Bundle) map[string]int {
	if bundle == nil {
		return map[string]int{}
	}
	return map[string]int{
		"l0": len(bundle.Subjects),
		"l1": len(bundle.Documents),
		"l2": len(bundle.GraphNodes),
		"l3": len(bundle.Chunks),
	}
}

func clampBeam(beam int) int {
	if beam <= 0 {
		return defaultBeam
	}
	if beam > maxBeam {
		return maxBeam
	}
	return beam
}
