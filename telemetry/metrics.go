// Package telemetry provides Prometheus metrics, OpenTelemetry tracing
// setup, and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	SubmissionsAccepted prometheus.Counter
	SubmissionsRejected prometheus.Counter
	StatusChecks        prometheus.Counter
	ArchivesCompleted   prometheus.Counter
	PollsAbandoned      prometheus.Counter
	RequestsBlacklisted prometheus.Counter

	// Histograms (seconds)
	PollTaskDuration prometheus.Observer

	// Gauges
	ActivePollersGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		SubmissionsAccepted = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_submissions_accepted_total", Help: "Archive submissions accepted by the remote service"})
		SubmissionsRejected = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_submissions_rejected_total", Help: "Archive submissions rejected or failed in transit"})
		StatusChecks = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_status_checks_total", Help: "Status check attempts issued by polling tasks"})
		ArchivesCompleted = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_archives_completed_total", Help: "Polling tasks that observed a finished archive"})
		PollsAbandoned = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_polls_abandoned_total", Help: "Polling tasks that exhausted their attempt budget"})
		RequestsBlacklisted = promauto.NewCounter(prometheus.CounterOpts{Name: "relay_requests_blacklisted_total", Help: "Requests dropped by the blacklist gate"})
		PollTaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "relay_poll_task_duration_seconds", Help: "Lifetime of a polling task from spawn to terminal state", Buckets: prometheus.ExponentialBuckets(30, 2, 8)})
		ActivePollersGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "relay_active_pollers", Help: "Polling tasks currently in flight"})
	})
}

// PollerStarted bumps the live poller gauge.
func PollerStarted() {
	if ActivePollersGauge != nil {
		ActivePollersGauge.Inc()
	}
}

// PollerFinished decrements the live poller gauge.
func PollerFinished() {
	if ActivePollersGauge != nil {
		ActivePollersGauge.Dec()
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
