package usecase

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/cleanlight/instant-sme/internal/core/domain"
)

const (
	rerankCoverageWeight = 0.65
	rerankBrevityWeight  = 0.35
	brevityPivot         = 80.0
	lengthBandWidth      = 200
)

// rerankCandidates re-scores candidates against the question by token
// coverage and brevity, then walks the ranked list keeping at most one
// candidate per text-length band so near-duplicate chunks from the same
// region cannot dominate. Pure and deterministic; equal scores preserve
// the original relative order.
func rerankCandidates(question string, candidates []domain.Chunk, topK int) []domain.RankedCandidate {
	if topK <= 0 {
		topK = 10
	}
	questionTokens := alphaTokenSet(question)

	ranked := make([]domain.RankedCandidate, 0, len(candidates))
	for _, chunk := range candidates {
		coverage := tokenCoverage(questionTokens, chunk.Text)
		brevity := brevityPivot / math.Max(float64(len(chunk.Text)), brevityPivot)
		ranked = append(ranked, domain.RankedCandidate{
			Chunk: chunk,
			Score: rerankCoverageWeight*coverage + rerankBrevityWeight*brevity,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	seenBands := make(map[int]struct{})
	out := make([]domain.RankedCandidate, 0, topK)
	for _, candidate := range ranked {
		band := len(candidate.Chunk.Text) / lengthBandWidth
		if _, ok := seenBands[band]; ok {
			continue
		}
		seenBands[band] = struct{}{}
		out = append(out, candidate)
		if len(out) >= topK {
			break
		}
	}
	return out
}

// tokenCoverage is the fraction of question tokens present in the text,
// 1 when the question has no usable tokens.
func tokenCoverage(questionTokens map[string]struct{}, text string) float64 {
	if len(questionTokens) == 0 {
		return 1
	}
	matched := 0
	textTokens := alphaTokenSet(text)
	for token := range questionTokens {
		if _, ok := textTokens[token]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(questionTokens))
}

// alphaTokenSet lower-cases, splits on whitespace and keeps only
// all-letter tokens.
func alphaTokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(s)) {
		if isAlphaToken(token) {
			out[token] = struct{}{}
		}
	}
	return out
}

func isAlphaToken(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
