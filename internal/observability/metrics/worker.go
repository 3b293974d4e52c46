package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string

	jobsTotal       *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	jobsInFlight    prometheus.Gauge
	queueLag        *prometheus.HistogramVec
	membersTotal    *prometheus.CounterVec
	classifications *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docclf",
			Subsystem: "worker",
			Name:      "archive_jobs_total",
			Help:      "Total processed archive jobs by status.",
		},
		[]string{"service", "status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docclf",
			Subsystem: "worker",
			Name:      "archive_job_duration_seconds",
			Help:      "Archive job processing duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docclf",
			Subsystem: "worker",
			Name:      "archive_jobs_in_flight",
			Help:      "Number of in-flight archive jobs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docclf",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between archive job creation and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	membersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docclf",
			Subsystem: "archive",
			Name:      "members_total",
			Help:      "Archive members seen by outcome.",
		},
		[]string{"service", "status"},
	)
	classifications := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docclf",
			Subsystem: "classifier",
			Name:      "classifications_total",
			Help:      "Stored classifications by model and category.",
		},
		[]string{"service", "model", "category"},
	)

	registry.MustRegister(jobsTotal, jobDuration, jobsInFlight, queueLag, membersTotal, classifications)

	return &WorkerMetrics{
		registry:        registry,
		service:         service,
		jobsTotal:       jobsTotal,
		jobDuration:     jobDuration,
		jobsInFlight:    jobsInFlight,
		queueLag:        queueLag,
		membersTotal:    membersTotal,
		classifications: classifications,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartJob() {
	m.jobsInFlight.Inc()
}

// FinishJob records a processed job. status is the terminal job status, or
// "error" when the status could not be determined.
func (m *WorkerMetrics) FinishJob(status string, duration time.Duration) {
	m.jobsInFlight.Dec()
	if status == "" {
		status = "error"
	}
	m.jobsTotal.WithLabelValues(m.service, status).Inc()
	m.jobDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) ObserveClassification(model string, category domain.Category) {
	if model == "" {
		model = "unknown"
	}
	m.classifications.WithLabelValues(m.service, model, string(category)).Inc()
}

func (m *WorkerMetrics) ObserveArchiveMember(status domain.MemberStatus) {
	m.membersTotal.WithLabelValues(m.service, string(status)).Inc()
}
