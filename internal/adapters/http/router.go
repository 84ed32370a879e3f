package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/cleanlight/instant-sme/internal/core/domain"
	"github.com/cleanlight/instant-sme/internal/core/ports"
	"github.com/cleanlight/instant-sme/internal/observability/metrics"
)

const serviceName = "instant-sme-api"

type Router struct {
	answers ports.AnswerService
	hints   ports.HintsService
	queue   ports.JobQueue
	metrics *metrics.HTTPServerMetrics
	logger  *slog.Logger
	limiter *rate.Limiter
}

type RouterOptions struct {
	Answers ports.AnswerService
	Hints   ports.HintsService
	Queue   ports.JobQueue
	Metrics *metrics.HTTPServerMetrics
	Logger  *slog.Logger

	// RateLimitRPS of zero disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(options RouterOptions) *Router {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if options.RateLimitRPS > 0 {
		burst := options.RateLimitBurst
		if burst <= 0 {
			burst = int(options.RateLimitRPS)
			if burst < 1 {
				burst = 1
			}
		}
		limiter = rate.NewLimiter(rate.Limit(options.RateLimitRPS), burst)
	}
	return &Router{
		answers: options.Answers,
		hints:   options.Hints,
		queue:   options.Queue,
		metrics: options.Metrics,
		logger:  logger,
		limiter: limiter,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/ask", rt.ask)
	mux.HandleFunc("/v1/bundle", rt.bundle)
	mux.HandleFunc("/v1/hint", rt.hint)
	mux.HandleFunc("/v1/schema", rt.schema)
	mux.HandleFunc("/v1/admin/reembed", rt.reembed)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = rateLimitMiddleware(rt.limiter, handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	pack, err := rt.answers.Ask(r.Context(), req)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAsk(
			serviceName,
			string(pack.Meta.AnswerMode),
			pack.Meta.Confidence,
			pack.Meta.LexicalFallback,
			pack.Meta.Expanded,
			time.Since(start),
		)
	}

	writeJSON(w, http.StatusOK, pack)
}

func (rt *Router) bundle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Topic  string              `json:"topic"`
		Limits domain.BundleLimits `json:"limits"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	bundle, err := rt.answers.Bundle(r.Context(), req.Topic, req.Limits)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordBundle(serviceName, len(bundle.Chunks), bundle.Meta.LexicalFallback)
	}

	writeJSON(w, http.StatusOK, bundle)
}

func (rt *Router) hint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	question := r.URL.Query().Get("question")
	docPattern := r.URL.Query().Get("doc_pattern")

	hints, err := rt.hints.BuildHints(r.Context(), question, docPattern)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hints)
}

func (rt *Router) schema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, apiSchema())
}

func (rt *Router) reembed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.queue == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "job queue not configured"})
		return
	}

	jobID := uuid.NewString()
	if err := rt.queue.PublishReembed(r.Context(), jobID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
