package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	jobTotal       *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobsInFlight   prometheus.Gauge
	chunksEmbedded *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	jobTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sme",
			Subsystem: "worker",
			Name:      "reembed_jobs_total",
			Help:      "Total re-embedding jobs by status.",
		},
		[]string{"service", "status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sme",
			Subsystem: "worker",
			Name:      "reembed_job_duration_seconds",
			Help:      "Re-embedding job duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sme",
			Subsystem: "worker",
			Name:      "reembed_jobs_in_flight",
			Help:      "Number of in-flight re-embedding jobs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chunksEmbedded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sme",
			Subsystem: "worker",
			Name:      "chunks_embedded_total",
			Help:      "Total chunks embedded and persisted.",
		},
		[]string{"service"},
	)

	registry.MustRegister(jobTotal, jobDuration, jobsInFlight, chunksEmbedded)

	return &WorkerMetrics{
		registry:       registry,
		jobTotal:       jobTotal,
		jobDuration:    jobDuration,
		jobsInFlight:   jobsInFlight,
		chunksEmbedded: chunksEmbedded,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartJob() {
	m.jobsInFlight.Inc()
}

func (m *WorkerMetrics) FinishJob(service string, duration time.Duration, err error) {
	m.jobsInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.jobTotal.WithLabelValues(service, status).Inc()
	m.jobDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) AddChunksEmbedded(service string, count int) {
	if count <= 0 {
		return
	}
	m.chunksEmbedded.WithLabelValues(service).Add(float64(count))
}
