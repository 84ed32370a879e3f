package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	askTotal             *prometheus.CounterVec
	askDuration          *prometheus.HistogramVec
	askConfidence        *prometheus.HistogramVec
	askExpansionTotal    *prometheus.CounterVec
	lexicalFallbackTotal *prometheus.CounterVec
	bundleChunks         *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sme",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sme",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sme",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	askTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sme",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total successful ask requests by answer mode.",
		},
		[]string{"service", "mode"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sme",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "Ask pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	askConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sme",
			Subsystem: "ask",
			Name:      "confidence",
			Help:      "Distribution of calibrated answer confidence.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9},
		},
		[]string{"service", "mode"},
	)
	askExpansionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sme",
			Subsystem: "ask",
			Name:      "expansion_total",
			Help:      "Total ask requests that triggered lateral expansion.",
		},
		[]string{"service"},
	)
	lexicalFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sme",
			Subsystem: "retrieval",
			Name:      "lexical_fallback_total",
			Help:      "Total requests scored without embeddings.",
		},
		[]string{"service", "endpoint"},
	)
	bundleChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sme",
			Subsystem: "retrieval",
			Name:      "bundle_chunks",
			Help:      "Distribution of chunks returned per bundle.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		askTotal,
		askDuration,
		askConfidence,
		askExpansionTotal,
		lexicalFallbackTotal,
		bundleChunks,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		askTotal:             askTotal,
		askDuration:          askDuration,
		askConfidence:        askConfidence,
		askExpansionTotal:    askExpansionTotal,
		lexicalFallbackTotal: lexicalFallbackTotal,
		bundleChunks:         bundleChunks,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordAsk observes a completed ask pipeline run. Trace steps beyond
// the first one mean lateral expansion fired.
func (m *HTTPServerMetrics) RecordAsk(service, mode string, confidence float64, lexicalFallback, expanded bool, duration time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	m.askTotal.WithLabelValues(service, mode).Inc()
	m.askDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.askConfidence.WithLabelValues(service, mode).Observe(confidence)
	if expanded {
		m.askExpansionTotal.WithLabelValues(service).Inc()
	}
	if lexicalFallback {
		m.lexicalFallbackTotal.WithLabelValues(service, "ask").Inc()
	}
}

func (m *HTTPServerMetrics) RecordBundle(service string, chunkCount int, lexicalFallback bool) {
	m.bundleChunks.WithLabelValues(service).Observe(float64(chunkCount))
	if lexicalFallback {
		m.lexicalFallbackTotal.WithLabelValues(service, "bundle").Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
