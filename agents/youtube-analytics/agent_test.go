package youtubeanalytics

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-analytics/internal/etl"
	"yt-analytics/internal/models"
	"yt-analytics/internal/predictor"
	"yt-analytics/shared/config"
	"yt-analytics/shared/email"
	"yt-analytics/shared/logger"
	"yt-analytics/shared/scheduler"
	"yt-analytics/shared/storage"
)

type fakeSource struct {
	mu            sync.Mutex
	videos        []models.RawVideo
	searchErr     error
	commentErrs   map[string]error
	commentCalls  int
	searchQueries []string
}

func (f *fakeSource) SearchVideoIDs(_ context.Context, query string, max int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchQueries = append(f.searchQueries, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var ids []string
	for _, v := range f.videos {
		if len(ids) == max {
			break
		}
		ids = append(ids, v.ID)
	}
	return ids, nil
}

func (f *fakeSource) FetchVideos(_ context.Context, ids []string) ([]models.RawVideo, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var out []models.RawVideo
	for _, v := range f.videos {
		if wanted[v.ID] {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeSource) FetchComments(_ context.Context, videoID string, max int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commentCalls++
	if err := f.commentErrs[videoID]; err != nil {
		return nil, err
	}
	comments := []string{"great video", "really love this", "boring"}
	return comments[:min(max, len(comments))], nil
}

type fakeNotifier struct {
	reports []*email.DigestReport
	err     error
}

func (f *fakeNotifier) SendDigest(report *email.DigestReport) error {
	f.reports = append(f.reports, report)
	return f.err
}

func counter(v int64) models.Counter {
	return models.Counter{Value: v, Present: true}
}

func rawVideos(n int) []models.RawVideo {
	videos := make([]models.RawVideo, n)
	for i := range videos {
		likes := int64(10 * (i + 1))
		comments := int64(3*i + 1)
		videos[i] = models.RawVideo{
			ID: fmt.Sprintf("vid%02d", i),
			Snippet: models.RawSnippet{
				Title:       fmt.Sprintf("Golang tutorial part %d", i),
				Description: "Learn concurrency with goroutines and channels",
				PublishedAt: fmt.Sprintf("2024-01-%02dT10:00:00Z", i+1),
			},
			Statistics: models.RawStatistics{
				ViewCount:    counter(1000 + 40*likes + 7*comments),
				LikeCount:    counter(likes),
				CommentCount: counter(comments),
			},
			ContentDetails: models.RawContentDetails{Duration: fmt.Sprintf("PT%dM", 5+i%4)},
		}
	}
	return videos
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		YouTube: config.YouTubeConfig{
			Query:       "golang",
			MaxResults:  50,
			MaxComments: 3,
			CommentTTL:  time.Hour,
		},
		AI: config.AIConfig{SentimentProvider: config.ProviderVader},
		Pipeline: config.PipelineConfig{
			DataDir:     dir,
			OutputDir:   filepath.Join(dir, "models"),
			MaxKeywords: 20,
			TestRatio:   0.2,
			Seed:        42,
		},
		Email: config.EmailConfig{TopN: 3},
	}
}

var halfPositive = etl.ScorerFunc(func(_ context.Context, text string) (float64, error) {
	return 0.5, nil
})

func newTestAgent(t *testing.T, source Source, opts ...Option) *AnalyticsAgent {
	t.Helper()
	opts = append([]Option{WithSource(source), WithScorer(halfPositive)}, opts...)
	agent := NewAnalyticsAgent(testConfig(t), logger.NewNop(), opts...)
	agent.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	require.NoError(t, agent.Initialize())
	return agent
}

type capturedEvents struct {
	success *RunMetrics
	partial error
}

func (c *capturedEvents) events() *scheduler.AgentEvents {
	return &scheduler.AgentEvents{
		OnSuccess: func(m scheduler.Metrics, _ time.Duration) {
			c.success = m.(*RunMetrics)
		},
		OnPartialFailure: func(err error, _ time.Duration) {
			c.partial = err
		},
	}
}

func TestAgentName(t *testing.T) {
	agent := NewAnalyticsAgent(testConfig(t), logger.NewNop())
	assert.Equal(t, "YouTube Analytics", agent.Name())
}

func TestRunMetricsGetSummary(t *testing.T) {
	tests := []struct {
		name     string
		metrics  RunMetrics
		expected string
	}{
		{
			name:     "Nothing trained",
			metrics:  RunMetrics{},
			expected: "fetched 0 videos (0 comment sets, 0 reused), 0 rows, model not trained",
		},
		{
			name: "Trained with evaluation",
			metrics: RunMetrics{
				Fetch: FetchReport{Videos: 12, CommentsFetched: 10, CommentsReused: 2},
				Build: BuildReport{Rows: 12, Trained: true, Evaluation: &predictor.Evaluation{R2: 0.8123}},
			},
			expected: "fetched 12 videos (10 comment sets, 2 reused), 12 rows, R² 0.812",
		},
		{
			name: "Comment errors and digest",
			metrics: RunMetrics{
				Fetch:      FetchReport{Videos: 5, CommentsFetched: 4, CommentFailures: 1},
				Build:      BuildReport{Rows: 5, Trained: true},
				DigestSent: true,
			},
			expected: "fetched 5 videos (4 comment sets, 0 reused), 5 rows (1 comment fetch errors), digest sent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.metrics.GetSummary())
		})
	}
}

func TestRunOnce(t *testing.T) {
	source := &fakeSource{videos: rawVideos(10)}
	notifier := &fakeNotifier{}
	agent := newTestAgent(t, source, WithNotifier(notifier))

	var captured capturedEvents
	require.NoError(t, agent.RunOnce(context.Background(), captured.events()))

	require.NoError(t, captured.partial)
	require.NotNil(t, captured.success)
	m := captured.success
	assert.NotEmpty(t, m.RunID)
	assert.Equal(t, 10, m.Fetch.Videos)
	assert.Equal(t, 10, m.Fetch.CommentsFetched)
	assert.Equal(t, 10, m.Build.Rows)
	assert.True(t, m.Build.Trained)
	require.NotNil(t, m.Build.Evaluation)
	assert.Equal(t, 2, m.Build.Evaluation.Rows)
	assert.True(t, m.DigestSent)
	assert.Equal(t, []string{"golang"}, source.searchQueries)

	ds, err := storage.NewDatasetStore(agent.config.Pipeline.DataDir).Load()
	require.NoError(t, err)
	require.Len(t, ds, 10)
	for _, r := range ds {
		require.NotNil(t, r.AvgSentiment)
		assert.InDelta(t, 0.5, *r.AvgSentiment, 1e-9)
		assert.NotEmpty(t, r.TopKeyword)
	}

	model, err := storage.NewModelStore(agent.config.Pipeline.OutputDir).Load()
	require.NoError(t, err)
	assert.Equal(t, 8, model.TrainRows)

	require.Len(t, notifier.reports, 1)
	report := notifier.reports[0]
	assert.Equal(t, m.RunID, report.RunID)
	assert.Equal(t, "golang", report.Query)
	assert.Len(t, report.Videos, 3)
	assert.Equal(t, 10, report.Summary.Videos)
	require.NotNil(t, report.Model)
	assert.InDelta(t, model.Evaluation.R2, report.Model.R2, 1e-9)
}

func TestRunOnceReusesFreshComments(t *testing.T) {
	source := &fakeSource{videos: rawVideos(7)}
	agent := newTestAgent(t, source)

	var first capturedEvents
	require.NoError(t, agent.RunOnce(context.Background(), first.events()))
	require.NotNil(t, first.success)
	assert.Equal(t, 7, source.commentCalls)

	var second capturedEvents
	require.NoError(t, agent.RunOnce(context.Background(), second.events()))
	require.NotNil(t, second.success)
	assert.Equal(t, 7, second.success.Fetch.CommentsReused)
	assert.Equal(t, 0, second.success.Fetch.CommentsFetched)
	assert.Equal(t, 7, source.commentCalls)
}

func TestRunOnceInsufficientDataIsPartialFailure(t *testing.T) {
	source := &fakeSource{videos: rawVideos(3)}
	agent := newTestAgent(t, source)

	var captured capturedEvents
	require.NoError(t, agent.RunOnce(context.Background(), captured.events()))

	assert.Nil(t, captured.success)
	require.Error(t, captured.partial)
	assert.ErrorIs(t, captured.partial, predictor.ErrInsufficientData)

	ds, err := storage.NewDatasetStore(agent.config.Pipeline.DataDir).Load()
	require.NoError(t, err)
	assert.Len(t, ds, 3)

	_, err = storage.NewModelStore(agent.config.Pipeline.OutputDir).Load()
	assert.ErrorIs(t, err, storage.ErrModelNotFound)
}

func TestRunOnceCommentFailuresArePartial(t *testing.T) {
	source := &fakeSource{
		videos:      rawVideos(8),
		commentErrs: map[string]error{"vid02": errors.New("quota exceeded")},
	}
	agent := newTestAgent(t, source)

	var captured capturedEvents
	require.NoError(t, agent.RunOnce(context.Background(), captured.events()))
	require.Error(t, captured.partial)
	assert.Contains(t, captured.partial.Error(), "comments of 1 videos")

	ds, err := storage.NewDatasetStore(agent.config.Pipeline.DataDir).Load()
	require.NoError(t, err)
	idx := ds.Index()
	assert.Nil(t, ds[idx["vid02"]].AvgSentiment)
	assert.NotNil(t, ds[idx["vid01"]].AvgSentiment)
}

func TestRunOnceTooManyCommentFailures(t *testing.T) {
	source := &fakeSource{
		videos: rawVideos(2),
		commentErrs: map[string]error{
			"vid00": errors.New("boom"),
			"vid01": errors.New("boom"),
		},
	}
	agent := newTestAgent(t, source)

	err := agent.RunOnce(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many comment fetch failures")
}

func TestRunOnceSearchError(t *testing.T) {
	source := &fakeSource{searchErr: errors.New("quota exceeded")}
	agent := newTestAgent(t, source)

	err := agent.RunOnce(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch failed")
}

func TestRunOnceDigestFailureIsPartial(t *testing.T) {
	source := &fakeSource{videos: rawVideos(8)}
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	agent := newTestAgent(t, source, WithNotifier(notifier))

	var captured capturedEvents
	require.NoError(t, agent.RunOnce(context.Background(), captured.events()))
	require.Error(t, captured.partial)
	assert.Contains(t, captured.partial.Error(), "smtp down")
}

func TestFetchRequiresQuery(t *testing.T) {
	agent := newTestAgent(t, &fakeSource{videos: rawVideos(3)})
	agent.config.YouTube.Query = ""

	_, err := agent.Fetch(context.Background())
	require.Error(t, err)
}

func TestStagesRunIndividually(t *testing.T) {
	agent := newTestAgent(t, &fakeSource{videos: rawVideos(7)})
	ctx := context.Background()

	fetch, err := agent.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, fetch.Found)

	cleanReport, err := agent.Clean(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, cleanReport.Output)

	store := storage.NewDatasetStore(agent.config.Pipeline.DataDir)
	ds, err := store.Load()
	require.NoError(t, err)
	for _, r := range ds {
		assert.Nil(t, r.AvgSentiment)
		assert.Empty(t, r.TopKeyword)
	}

	sentimentReport, err := agent.Sentiment(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, sentimentReport.VideosScored)
	assert.Equal(t, 21, sentimentReport.CommentsScored)

	vocabulary, err := agent.Keywords(ctx)
	require.NoError(t, err)
	assert.Contains(t, vocabulary, "golang")

	model, err := agent.Train(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, model.TrainRows)

	ds, err = store.Load()
	require.NoError(t, err)
	for _, r := range ds {
		assert.NotNil(t, r.AvgSentiment)
		assert.NotEmpty(t, r.TopKeyword)
	}
}

func TestSentimentStageDropsStaleScores(t *testing.T) {
	agent := newTestAgent(t, &fakeSource{videos: rawVideos(7)})
	ctx := context.Background()

	_, err := agent.Fetch(ctx)
	require.NoError(t, err)
	_, err = agent.Clean(ctx)
	require.NoError(t, err)
	_, err = agent.Sentiment(ctx)
	require.NoError(t, err)

	raw := storage.NewRawStore(agent.config.Pipeline.DataDir)
	comments, err := raw.LoadComments()
	require.NoError(t, err)
	require.Contains(t, comments, "vid00")
	delete(comments, "vid00")
	require.NoError(t, raw.SaveComments(comments))

	report, err := agent.Sentiment(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, report.VideosScored)

	ds, err := storage.NewDatasetStore(agent.config.Pipeline.DataDir).Load()
	require.NoError(t, err)
	for _, r := range ds {
		if r.VideoID == "vid00" {
			assert.Nil(t, r.AvgSentiment, "score without comments must not survive a rerun")
			continue
		}
		require.NotNil(t, r.AvgSentiment, r.VideoID)
		assert.InDelta(t, 0.5, *r.AvgSentiment, 1e-9)
	}
}

func TestStagesWithoutArtifacts(t *testing.T) {
	agent := newTestAgent(t, &fakeSource{})
	ctx := context.Background()

	_, err := agent.Clean(ctx)
	require.Error(t, err)

	_, err = agent.Train(ctx)
	assert.ErrorIs(t, err, storage.ErrDatasetNotFound)
}
