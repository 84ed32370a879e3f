package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/cleanlight/instant-sme/internal/core/domain"
)

type answerServiceFake struct {
	pack      *domain.AnswerPack
	bundle    *domain.Bundle
	askErr    error
	bundleErr error

	lastAsk   domain.AskRequest
	lastTopic string
}

func (f *answerServiceFake) Ask(_ context.Context, req domain.AskRequest) (*domain.AnswerPack, error) {
	f.lastAsk = req
	return f.pack, f.askErr
}

func (f *answerServiceFake) Bundle(_ context.Context, topic string, _ domain.BundleLimits) (*domain.Bundle, error) {
	f.lastTopic = topic
	return f.bundle, f.bundleErr
}

type hintsServiceFake struct {
	hints *domain.Hints
}

func (f *hintsServiceFake) BuildHints(context.Context, string, string) (*domain.Hints, error) {
	return f.hints, nil
}

type jobQueueFake struct {
	published []string
	err       error
}

func (f *jobQueueFake) PublishReembed(_ context.Context, jobID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, jobID)
	return nil
}

func (f *jobQueueFake) SubscribeReembed(context.Context, func(context.Context, string) error) error {
	return nil
}

func newTestRouter(answers *answerServiceFake, queue *jobQueueFake) http.Handler {
	options := RouterOptions{
		Answers: answers,
		Hints:   &hintsServiceFake{hints: &domain.Hints{DefaultFlow: "bundle first"}},
	}
	if queue != nil {
		options.Queue = queue
	}
	return NewRouter(options).Handler()
}

func TestAskEndpointReturnsPack(t *testing.T) {
	answers := &answerServiceFake{
		pack: &domain.AnswerPack{
			Answer:    "Steps:\n- Press the seam flat",
			Citations: []domain.Citation{{DocumentID: "D1", ChunkID: "c1"}},
			Meta:      domain.AnswerMeta{AnswerMode: domain.ModeProcedure, Confidence: 0.8},
		},
	}
	handler := newTestRouter(answers, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"how to press a seam","beam":2}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if answers.lastAsk.Question != "how to press a seam" || answers.lastAsk.Beam != 2 {
		t.Fatalf("request not decoded: %+v", answers.lastAsk)
	}
	var pack domain.AnswerPack
	if err := json.Unmarshal(rec.Body.Bytes(), &pack); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if pack.Meta.AnswerMode != domain.ModeProcedure {
		t.Fatalf("unexpected mode: %s", pack.Meta.AnswerMode)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestAskEndpointRejectsBadJSON(t *testing.T) {
	handler := newTestRouter(&answerServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAskEndpointMapsStoreUnavailable(t *testing.T) {
	answers := &answerServiceFake{
		askErr: domain.WrapError(domain.ErrStoreUnavailable, "build bundle", errors.New("down")),
	}
	handler := newTestRouter(answers, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"q"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAskEndpointMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(&answerServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/ask", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestBundleEndpoint(t *testing.T) {
	answers := &answerServiceFake{
		bundle: &domain.Bundle{
			Topic:      "seam",
			Subjects:   []domain.KnowledgeCard{},
			Documents:  []domain.Document{},
			GraphNodes: []domain.GraphNode{},
			Chunks:     []domain.Chunk{{ID: "c1", DocumentID: "D1", Text: "Press the seam."}},
		},
	}
	handler := newTestRouter(answers, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/bundle", strings.NewReader(`{"topic":"seam","limits":{"l3":5}}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if answers.lastTopic != "seam" {
		t.Fatalf("topic not decoded: %q", answers.lastTopic)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := payload["l3"]; !ok {
		t.Fatalf("expected l3 key in bundle payload: %v", payload)
	}
}

func TestHintEndpoint(t *testing.T) {
	handler := newTestRouter(&answerServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/hint?question=how+to+block+felt", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["agent_default_flow"] != "bundle first" {
		t.Fatalf("unexpected hints payload: %v", payload)
	}
}

func TestSchemaEndpointServesOpenAPI(t *testing.T) {
	handler := newTestRouter(&answerServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/schema", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["openapi"] != "3.0.3" {
		t.Fatalf("expected openapi version, got %v", payload["openapi"])
	}
	paths, ok := payload["paths"].(map[string]any)
	if !ok {
		t.Fatalf("expected paths object")
	}
	for _, path := range []string{"/v1/ask", "/v1/bundle", "/v1/hint", "/v1/admin/reembed"} {
		if _, ok := paths[path]; !ok {
			t.Fatalf("schema missing %s", path)
		}
	}
}

func TestReembedEndpointPublishesJob(t *testing.T) {
	queue := &jobQueueFake{}
	handler := newTestRouter(&answerServiceFake{}, queue)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/reembed", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(queue.published) != 1 {
		t.Fatalf("expected 1 published job, got %d", len(queue.published))
	}
	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["job_id"] != queue.published[0] {
		t.Fatalf("job id mismatch: %v vs %v", payload["job_id"], queue.published)
	}
}

func TestReembedEndpointWithoutQueue(t *testing.T) {
	handler := newTestRouter(&answerServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/reembed", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	router := NewRouter(RouterOptions{
		Answers:        &answerServiceFake{},
		Hints:          &hintsServiceFake{hints: &domain.Hints{}},
		RateLimitRPS:   1,
		RateLimitBurst: 1,
	})
	handler := router.Handler()

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	handler := newTestRouter(&answerServiceFake{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get(requestIDHeader) != "req-42" {
		t.Fatalf("inbound request id must be echoed, got %q", rec.Header().Get(requestIDHeader))
	}
}

func TestRateLimiterAllowsAtConfiguredRate(t *testing.T) {
	limiter := rate.NewLimiter(rate.Inf, 0)
	handler := rateLimitMiddleware(limiter, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unlimited limiter must pass requests, got %d", rec.Code)
	}
}
