package monitoring

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-analytics/shared/logger"
)

func TestMonitorHealth(t *testing.T) {
	m := NewMonitor(logger.NewNop())

	assert.True(t, m.IsHealthy())
	assert.Equal(t, "No runs yet", m.GetStatusSummary())

	m.RecordSuccess("120 videos", time.Second)
	assert.True(t, m.IsHealthy())
	assert.Contains(t, m.GetStatusSummary(), "120 videos")

	m.RecordPartialFailure(errors.New("3 comments failed"), time.Second)
	assert.True(t, m.IsHealthy(), "partial failures keep health")

	m.RecordCriticalFailure(errors.New("quota exceeded"), time.Second)
	assert.False(t, m.IsHealthy())
	assert.True(t, strings.HasPrefix(m.GetStatusSummary(), "Last run failed"))

	m.RecordSuccess("ok", time.Second)
	assert.True(t, m.IsHealthy())
}

func TestMonitorMetrics(t *testing.T) {
	m := NewMonitor(logger.NewNop())

	m.RecordSuccess("ok", 2*time.Second)
	m.RecordCriticalFailure(errors.New("x"), time.Second)
	m.RecordCriticalFailure(errors.New("y"), time.Second)
	m.SetDatasetRows(42)
	m.RecordQuery("videos")
	m.RecordQuery("videos")
	m.RecordPrediction()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues(StatusCritical)))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.datasetRows))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.queries.WithLabelValues("videos")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.predictions))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	var observed uint64
	for _, f := range families {
		if f.GetName() == "yt_analytics_run_duration_seconds" {
			observed = f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(3), observed)
}

func TestMonitorsDoNotShareRegistries(t *testing.T) {
	a := NewMonitor(logger.NewNop())
	b := NewMonitor(logger.NewNop())

	a.RecordPrediction()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.predictions))
}
