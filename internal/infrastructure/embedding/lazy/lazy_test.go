package lazy

import (
	"context"
	"errors"
	"testing"

	"github.com/cleanlight/instant-sme/internal/core/ports"
)

type stubProvider struct {
	calls int
}

func (s *stubProvider) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1}
	}
	return vectors, nil
}

func TestLazyConstructsOnce(t *testing.T) {
	stub := &stubProvider{}
	constructed := 0
	provider := New(func() (ports.EmbeddingProvider, error) {
		constructed++
		return stub, nil
	}, nil)

	for i := 0; i < 3; i++ {
		if _, err := provider.EmbedTexts(context.Background(), []string{"a"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if constructed != 1 {
		t.Fatalf("expected single construction, got %d", constructed)
	}
	if stub.calls != 3 {
		t.Fatalf("expected 3 delegate calls, got %d", stub.calls)
	}
}

func TestLazyRemembersInitFailure(t *testing.T) {
	constructed := 0
	provider := New(func() (ports.EmbeddingProvider, error) {
		constructed++
		return nil, errors.New("backend down")
	}, nil)

	for i := 0; i < 2; i++ {
		if _, err := provider.EmbedTexts(context.Background(), []string{"a"}); err == nil {
			t.Fatalf("expected error")
		}
	}
	if constructed != 1 {
		t.Fatalf("failed construction must not be retried, got %d", constructed)
	}
}
