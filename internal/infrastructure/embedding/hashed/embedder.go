package hashed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const (
	defaultDimensions = 1024
	tfSaturationK     = 1.2
)

// Embedder produces deterministic bag-of-words vectors by hashing tokens
// into a fixed number of buckets with saturated term-frequency weights.
// It needs no external model, so it serves as the fully offline backend:
// dot products over its unit vectors approximate lexical overlap.
type Embedder struct {
	dimensions int
}

func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}
	return &Embedder{dimensions: dimensions}
}

func (e *Embedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *Embedder) embed(text string) []float32 {
	vector := make([]float32, e.dimensions)

	termFreq := make(map[int]float64, 64)
	for _, token := range tokenizeAlphaNum(text) {
		termFreq[e.bucket(token)]++
	}
	for idx, tf := range termFreq {
		vector[idx] = float32((tf * (tfSaturationK + 1.0)) / (tf + tfSaturationK))
	}

	normalize(vector)
	return vector
}

func (e *Embedder) bucket(token string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(e.dimensions))
}

func normalize(vector []float32) {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vector {
		vector[i] /= norm
	}
}

func tokenizeAlphaNum(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
