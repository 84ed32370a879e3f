package hashed

import (
	"context"
	"math"
	"testing"
)

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func TestEmbedTextsDeterministic(t *testing.T) {
	e := New(256)
	v1, err := e.EmbedTexts(context.Background(), []string{"attach the brim to the crown"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v2, _ := e.EmbedTexts(context.Background(), []string{"attach the brim to the crown"})
	for i := range v1[0] {
		if v1[0][i] != v2[0][i] {
			t.Fatalf("vectors differ at %d: %f vs %f", i, v1[0][i], v2[0][i])
		}
	}
}

func TestEmbedTextsUnitNorm(t *testing.T) {
	e := New(0)
	vectors, err := e.EmbedTexts(context.Background(), []string{"steam the felt body over the block"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 1 || len(vectors[0]) != defaultDimensions {
		t.Fatalf("unexpected shape: %d vectors", len(vectors))
	}
	if norm := dot(vectors[0], vectors[0]); math.Abs(norm-1.0) > 1e-6 {
		t.Fatalf("expected unit norm, got %f", norm)
	}
}

func TestEmbedTextsLexicalOverlapOrdersSimilarity(t *testing.T) {
	e := New(512)
	vectors, err := e.EmbedTexts(context.Background(), []string{
		"sew the grosgrain ribbon around the crown",
		"stitch the grosgrain ribbon to the crown base",
		"ship the finished order to the customer",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	related := dot(vectors[0], vectors[1])
	unrelated := dot(vectors[0], vectors[2])
	if related <= unrelated {
		t.Fatalf("overlapping texts must score higher: related=%f unrelated=%f", related, unrelated)
	}
}

func TestEmbedTextsNoiseOnlyInput(t *testing.T) {
	e := New(64)
	vectors, err := e.EmbedTexts(context.Background(), []string{"___---!!!"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range vectors[0] {
		if v != 0 {
			t.Fatalf("expected zero vector for noise input, got %f at %d", v, i)
		}
	}
}

func TestTokenizeAlphaNumUnicodeAndDigits(t *testing.T) {
	tokens := tokenizeAlphaNum("Felt HAT-0001 блок-2")
	foundHat := false
	foundNum := false
	for _, tok := range tokens {
		if tok == "hat" {
			foundHat = true
		}
		if tok == "0001" {
			foundNum = true
		}
	}
	if !foundHat || !foundNum {
		t.Fatalf("expected hat and 0001 tokens, got %v", tokens)
	}
}

func TestEmbedTextsEmptyInput(t *testing.T) {
	vectors, err := New(64).EmbedTexts(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors != nil {
		t.Fatalf("expected nil vectors for empty input")
	}
}
