package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-analytics/shared/logger"
	"yt-analytics/shared/monitoring"
)

type summary string

func (s summary) GetSummary() string { return string(s) }

type fakeAgent struct {
	runs    atomic.Int32
	initErr error
	run     func(ctx context.Context, events *AgentEvents) error
}

func (f *fakeAgent) Name() string      { return "fake" }
func (f *fakeAgent) Initialize() error { return f.initErr }

func (f *fakeAgent) RunOnce(ctx context.Context, events *AgentEvents) error {
	f.runs.Add(1)
	if f.run != nil {
		return f.run(ctx, events)
	}
	events.OnSuccess(summary("done"), time.Millisecond)
	return nil
}

func TestRunOnceSuccess(t *testing.T) {
	monitor := monitoring.NewMonitor(logger.NewNop())
	s := New("@daily", &fakeAgent{}, monitor, logger.NewNop())

	require.NoError(t, s.RunOnce(context.Background()))
	assert.True(t, monitor.IsHealthy())
	assert.Contains(t, monitor.GetStatusSummary(), "done")
}

func TestRunOnceFailure(t *testing.T) {
	monitor := monitoring.NewMonitor(logger.NewNop())
	agent := &fakeAgent{run: func(context.Context, *AgentEvents) error {
		return errors.New("quota exceeded")
	}}
	s := New("@daily", agent, monitor, logger.NewNop())

	err := s.RunOnce(context.Background())
	assert.ErrorContains(t, err, "quota exceeded")
	assert.False(t, monitor.IsHealthy())
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := New("not a schedule", &fakeAgent{}, monitoring.NewMonitor(logger.NewNop()), logger.NewNop())
	assert.Error(t, s.Start(context.Background()))
}

func TestStartInitializeError(t *testing.T) {
	agent := &fakeAgent{initErr: errors.New("no credentials")}
	s := New("@daily", agent, monitoring.NewMonitor(logger.NewNop()), logger.NewNop())
	assert.ErrorContains(t, s.Start(context.Background()), "no credentials")
}

func TestStartRunsOnSchedule(t *testing.T) {
	agent := &fakeAgent{}
	s := New("* * * * * *", agent, monitoring.NewMonitor(logger.NewNop()), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	assert.Eventually(t, func() bool { return agent.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestParserAcceptsFiveAndSixFields(t *testing.T) {
	for _, spec := range []string{"0 9 * * *", "30 0 9 * * *", "@hourly"} {
		_, err := Parser.Parse(spec)
		assert.NoError(t, err, spec)
	}
}
