// Package monitoring tracks pipeline run health and exposes prometheus
// metrics for runs and reads.
package monitoring

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"yt-analytics/shared/logger"
)

const namespace = "yt_analytics"

// Run outcomes recorded by the runs_total counter.
const (
	StatusSuccess  = "success"
	StatusPartial  = "partial"
	StatusCritical = "critical"
)

// Monitor remembers the outcome of the last pipeline run. It is safe for
// concurrent use.
type Monitor struct {
	mu             sync.RWMutex
	lastRunSuccess bool
	lastRunTime    time.Time
	lastSummary    string
	log            logger.Logger

	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	datasetRows prometheus.Gauge
	queries     *prometheus.CounterVec
	predictions prometheus.Counter
}

// NewMonitor creates a monitor with its own metrics registry.
func NewMonitor(log logger.Logger) *Monitor {
	m := &Monitor{
		log:      log,
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		datasetRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Videos in the published dataset.",
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Read requests served by endpoint.",
		}, []string{"endpoint"}),
		predictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "View predictions served.",
		}),
	}

	m.registry.MustRegister(
		m.runs,
		m.runDuration,
		m.datasetRows,
		m.queries,
		m.predictions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry holding the monitor's metrics.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Monitor) RecordSuccess(summary string, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = true
	m.lastRunTime = time.Now()
	m.lastSummary = summary
	m.mu.Unlock()

	m.runs.WithLabelValues(StatusSuccess).Inc()
	m.runDuration.Observe(duration.Seconds())
	m.log.Info("Run completed successfully",
		logger.String("summary", summary),
		logger.Duration("duration", duration),
	)
}

// RecordPartialFailure logs a degraded run without changing health.
func (m *Monitor) RecordPartialFailure(err error, duration time.Duration) {
	m.runs.WithLabelValues(StatusPartial).Inc()
	m.log.Warn("Partial failure", logger.Error(err), logger.Duration("duration", duration))
}

func (m *Monitor) RecordCriticalFailure(err error, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = false
	m.lastRunTime = time.Now()
	m.lastSummary = err.Error()
	m.mu.Unlock()

	m.runs.WithLabelValues(StatusCritical).Inc()
	m.runDuration.Observe(duration.Seconds())
	m.log.Error("Critical failure", logger.Error(err), logger.Duration("duration", duration))
}

// SetDatasetRows publishes the size of the served dataset.
func (m *Monitor) SetDatasetRows(n int) {
	m.datasetRows.Set(float64(n))
}

// RecordQuery counts one read request.
func (m *Monitor) RecordQuery(endpoint string) {
	m.queries.WithLabelValues(endpoint).Inc()
}

// RecordPrediction counts one served prediction.
func (m *Monitor) RecordPrediction() {
	m.predictions.Inc()
}

func (m *Monitor) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastRunTime.IsZero() {
		return true // No runs yet, assume healthy
	}
	return m.lastRunSuccess
}

func (m *Monitor) GetStatusSummary() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastRunTime.IsZero() {
		return "No runs yet"
	}
	if m.lastRunSuccess {
		return fmt.Sprintf("Last run: %s (%s)", m.lastRunTime.Format("Jan 2 15:04"), m.lastSummary)
	}
	return fmt.Sprintf("Last run failed: %s (%s)", m.lastRunTime.Format("Jan 2 15:04"), m.lastSummary)
}
