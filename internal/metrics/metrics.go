// Package metrics defines the Prometheus collectors exported by examcore.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the service collectors. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	attempts        *prometheus.CounterVec
	attemptScore    prometheus.Histogram
	conflictRetries prometheus.Counter
	queueSize       prometheus.Histogram
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "examcore_attempts_total",
				Help: "Submitted attempts by rule kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		attemptScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "examcore_attempt_score",
			Help:    "Normalized score of graded attempts",
			Buckets: []float64{0, 0.2, 0.4, 0.6, 0.85, 1},
		}),
		conflictRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "examcore_conflict_retries_total",
			Help: "Optimistic-concurrency conflicts retried by the session service",
		}),
		queueSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "examcore_queue_size",
			Help:    "Number of items in generated session queues",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		}),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "examcore_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "examcore_http_request_duration_seconds",
				Help:    "Duration of HTTP requests",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
			},
			[]string{"method", "endpoint"},
		),
	}
	reg.MustRegister(
		r.attempts, r.attemptScore, r.conflictRetries,
		r.queueSize, r.requests, r.requestDuration,
	)
	return r
}

// Attempt outcomes.
const (
	OutcomeGraded   = "graded"
	OutcomeInvalid  = "invalid"
	OutcomeNotFound = "not_found"
	OutcomeFailed   = "failed"
)

// ObserveAttempt records one submitted attempt. score is only observed for
// graded attempts.
func (r *Recorder) ObserveAttempt(kind, outcome string, score float64) {
	if r == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	r.attempts.WithLabelValues(kind, outcome).Inc()
	if outcome == OutcomeGraded {
		r.attemptScore.Observe(score)
	}
}

// ConflictRetried counts one retry after a version conflict.
func (r *Recorder) ConflictRetried() {
	if r == nil {
		return
	}
	r.conflictRetries.Inc()
}

// ObserveQueue records the size of a generated queue.
func (r *Recorder) ObserveQueue(size int) {
	if r == nil {
		return
	}
	r.queueSize.Observe(float64(size))
}

// ObserveRequest records one HTTP request.
func (r *Recorder) ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}
