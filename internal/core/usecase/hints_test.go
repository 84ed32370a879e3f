package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cleanlight/instant-sme/internal/core/domain"
)

func TestBuildHintsCapabilitiesAndCoverage(t *testing.T) {
	store := &fakeLayeredStore{
		docs: []domain.Document{{ID: "D1", Title: "Hat Construction"}},
		counts: map[domain.RetrievalLevel]int{
			domain.LevelSubjects:   3,
			domain.LevelDocuments:  1,
			domain.LevelGraphNodes: 12,
			domain.LevelEdges:      9,
			domain.LevelChunks:     40,
		},
	}
	uc := NewHintsUseCase(store, nil)

	hints, err := uc.BuildHints(context.Background(), "how to wire a brim", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hints.Capabilities[domain.LevelChunks.String()] != 40 {
		t.Fatalf("expected 40 chunks, got %d", hints.Capabilities[domain.LevelChunks.String()])
	}
	if len(hints.Capabilities) != 5 {
		t.Fatalf("expected a count per level, got %v", hints.Capabilities)
	}
	if len(hints.Coverage.TopDocs) != 1 || hints.Coverage.TopDocs[0].ID != "D1" {
		t.Fatalf("expected D1 in top docs, got %+v", hints.Coverage.TopDocs)
	}
	if hints.Coverage.Warn != "" {
		t.Fatalf("healthy store must not warn, got %q", hints.Coverage.Warn)
	}
	if hints.Limits["default_top_k"] != hintsDefaultTopK {
		t.Fatalf("expected default_top_k limit, got %v", hints.Limits)
	}
	if len(hints.Strategies) == 0 || hints.Strategies[0].Name != "bundle_then_chunks" {
		t.Fatalf("expected bundle_then_chunks strategy first, got %+v", hints.Strategies)
	}
}

func TestBuildHintsFailsSoft(t *testing.T) {
	store := &fakeLayeredStore{
		countErr: errors.New("counts broken"),
		docsErr:  errors.New("docs broken"),
	}
	uc := NewHintsUseCase(store, nil)

	hints, err := uc.BuildHints(context.Background(), "", "")
	if err != nil {
		t.Fatalf("hints must never error: %v", err)
	}
	for level, count := range hints.Capabilities {
		if count != 0 {
			t.Fatalf("failed count must report 0, got %s=%d", level, count)
		}
	}
	if !strings.Contains(hints.Coverage.Warn, "coverage degraded") {
		t.Fatalf("expected degraded warning, got %q", hints.Coverage.Warn)
	}
	if hints.Coverage.TopDocs == nil || hints.Coverage.RecentDocs == nil {
		t.Fatalf("coverage lists must be non-nil even when degraded")
	}
}

func TestRecommendCallsSeedsEmptyQuestion(t *testing.T) {
	uc := NewHintsUseCase(&fakeLayeredStore{}, nil)
	recs := uc.recommendCalls(context.Background(), "", "")
	if len(recs) != 2 {
		t.Fatalf("expected bundle and ask recommendations, got %d", len(recs))
	}
	body, ok := recs[0].Call["body"].(map[string]any)
	if !ok {
		t.Fatalf("expected body map, got %T", recs[0].Call["body"])
	}
	if body["topic"] != hintsSeedFallback {
		t.Fatalf("empty question must seed the example topic, got %v", body["topic"])
	}
}

func TestRecommendCallsAddsGraphLookupForPattern(t *testing.T) {
	store := &fakeLayeredStore{
		nodes: []domain.GraphNode{
			{ID: "n1", Label: "sweatband"},
			{ID: "n2", Label: "sweatband stitching"},
		},
	}
	uc := NewHintsUseCase(store, nil)

	recs := uc.recommendCalls(context.Background(), "q", "sweatband")
	if len(recs) != 3 {
		t.Fatalf("expected graph lookup recommendation, got %d", len(recs))
	}
	if recs[2].Title != "Graph nodes by label" {
		t.Fatalf("unexpected third recommendation: %+v", recs[2])
	}
	labels, ok := recs[2].Call["sample_labels"].([]string)
	if !ok || len(labels) != 2 || labels[0] != "sweatband" {
		t.Fatalf("expected matched label preview, got %v", recs[2].Call["sample_labels"])
	}
}

func TestRecommendCallsDropsLabelPreviewOnLookupFailure(t *testing.T) {
	store := &fakeLayeredStore{nodesErr: errors.New("graph down")}
	uc := NewHintsUseCase(store, nil)

	recs := uc.recommendCalls(context.Background(), "q", "sweatband")
	if len(recs) != 3 {
		t.Fatalf("lookup failure must not drop the recommendation, got %d", len(recs))
	}
	if _, present := recs[2].Call["sample_labels"]; present {
		t.Fatalf("failed lookup must omit the label preview")
	}
}
