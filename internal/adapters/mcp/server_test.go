package mcpadapter

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cleanlight/instant-sme/internal/core/domain"
)

type answerServiceFake struct {
	lastAsk domain.AskRequest
}

func (f *answerServiceFake) Ask(_ context.Context, req domain.AskRequest) (*domain.AnswerPack, error) {
	f.lastAsk = req
	return &domain.AnswerPack{Answer: "ok"}, nil
}

func (f *answerServiceFake) Bundle(context.Context, string, domain.BundleLimits) (*domain.Bundle, error) {
	return &domain.Bundle{}, nil
}

type hintsServiceFake struct{}

func (hintsServiceFake) BuildHints(context.Context, string, string) (*domain.Hints, error) {
	return &domain.Hints{}, nil
}

func askToolRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = "ask"
	req.Params.Arguments = args
	return req
}

func TestHandleAskForwardsAllParameters(t *testing.T) {
	answers := &answerServiceFake{}
	srv := NewServer(answers, hintsServiceFake{}, "test", nil)

	res, err := srv.handleAsk(context.Background(), askToolRequest(map[string]any{
		"question":       "how do I block a crown?",
		"strategy":       "bundle_then_chunks",
		"beam":           2,
		"citations_max":  3,
		"chunk_text_max": 120,
		"return_trace":   false,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res)
	}

	got := answers.lastAsk
	if got.Question != "how do I block a crown?" {
		t.Fatalf("question not forwarded: %q", got.Question)
	}
	if got.Strategy != "bundle_then_chunks" {
		t.Fatalf("strategy not forwarded: %q", got.Strategy)
	}
	if got.Beam != 2 || got.CitationsMax != 3 || got.ChunkTextMax != 120 {
		t.Fatalf("numeric parameters not forwarded: %+v", got)
	}
	if got.ReturnTrace == nil || *got.ReturnTrace {
		t.Fatalf("trace opt-out not forwarded: %+v", got.ReturnTrace)
	}
}

func TestHandleAskDefaultsLeaveZeroValues(t *testing.T) {
	answers := &answerServiceFake{}
	srv := NewServer(answers, hintsServiceFake{}, "test", nil)

	if _, err := srv.handleAsk(context.Background(), askToolRequest(map[string]any{
		"question": "what is a fedora?",
	})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := answers.lastAsk
	if got.Beam != 0 || got.CitationsMax != 0 || got.ChunkTextMax != 0 || got.Strategy != "" {
		t.Fatalf("omitted parameters must stay zero: %+v", got)
	}
	if got.ReturnTrace != nil {
		t.Fatalf("default trace must stay unset, got %v", *got.ReturnTrace)
	}
}

func TestHandleAskRequiresQuestion(t *testing.T) {
	srv := NewServer(&answerServiceFake{}, hintsServiceFake{}, "test", nil)

	res, err := srv.handleAsk(context.Background(), askToolRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("missing question must be a tool error, not a transport error: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error result")
	}
	if len(res.Content) == 0 {
		t.Fatalf("expected error content")
	}
	text, ok := mcp.AsTextContent(res.Content[0])
	if !ok || !strings.Contains(text.Text, "question") {
		t.Fatalf("expected question in error text, got %+v", res.Content[0])
	}
}
