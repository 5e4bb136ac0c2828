package youtubeanalytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"yt-analytics/agents/youtube-analytics/youtube"
	"yt-analytics/internal/etl"
	"yt-analytics/internal/models"
	"yt-analytics/internal/predictor"
	"yt-analytics/internal/query"
	"yt-analytics/shared/ai"
	"yt-analytics/shared/config"
	"yt-analytics/shared/email"
	"yt-analytics/shared/logger"
	"yt-analytics/shared/scheduler"
	"yt-analytics/shared/storage"
)

// Source is the platform the agent ingests from.
type Source interface {
	SearchVideoIDs(ctx context.Context, query string, max int) ([]string, error)
	FetchVideos(ctx context.Context, ids []string) ([]models.RawVideo, error)
	FetchComments(ctx context.Context, videoID string, max int) ([]string, error)
}

// Notifier delivers the digest at the end of a run.
type Notifier interface {
	SendDigest(report *email.DigestReport) error
}

// AnalyticsAgent implements the scheduler.Agent interface. A run fetches the
// configured search, rebuilds the dataset and retrains the view predictor.
type AnalyticsAgent struct {
	config   *config.Config
	log      logger.Logger
	source   Source
	scorer   etl.Scorer
	notifier Notifier
	tracker  *storage.FetchTracker

	raw        *storage.RawStore
	datasets   *storage.DatasetStore
	modelStore *storage.ModelStore

	now func() time.Time
}

// Option overrides a collaborator the agent would otherwise build itself.
type Option func(*AnalyticsAgent)

func WithSource(s Source) Option { return func(a *AnalyticsAgent) { a.source = s } }

func WithScorer(s etl.Scorer) Option { return func(a *AnalyticsAgent) { a.scorer = s } }

func WithNotifier(n Notifier) Option { return func(a *AnalyticsAgent) { a.notifier = n } }

func NewAnalyticsAgent(cfg *config.Config, log logger.Logger, opts ...Option) *AnalyticsAgent {
	a := &AnalyticsAgent{
		config:     cfg,
		log:        log,
		raw:        storage.NewRawStore(cfg.Pipeline.DataDir),
		datasets:   storage.NewDatasetStore(cfg.Pipeline.DataDir),
		modelStore: storage.NewModelStore(cfg.Pipeline.OutputDir),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *AnalyticsAgent) Name() string {
	return "YouTube Analytics"
}

// Initialize prepares everything a full run needs. Stage methods that work
// on stored artifacts do not require it.
func (a *AnalyticsAgent) Initialize() error {
	a.log.Info("Initializing agent", logger.String("agent", a.Name()))

	if a.source == nil {
		if err := a.config.RequireYouTube(); err != nil {
			return err
		}
		client, err := youtube.NewClient(context.Background(), &a.config.YouTube, a.log)
		if err != nil {
			return fmt.Errorf("failed to create YouTube client: %w", err)
		}
		a.source = client
		a.log.Info("YouTube client initialized")
	}

	if a.tracker == nil {
		tracker, err := storage.NewFetchTracker(a.config.Pipeline.DataDir, a.config.YouTube.CommentTTL)
		if err != nil {
			return fmt.Errorf("failed to create fetch tracker: %w", err)
		}
		a.tracker = tracker
		a.log.Info("Fetch tracker initialized", logger.Int("tracked", tracker.Count()))
	}

	if _, err := a.ensureScorer(context.Background()); err != nil {
		return err
	}

	if a.notifier == nil && a.config.Email.Enabled() {
		if err := a.config.RequireEmail(); err != nil {
			return err
		}
		a.notifier = email.NewSender(&a.config.Email)
		a.log.Info("Email sender initialized")
	}

	return nil
}

func (a *AnalyticsAgent) ensureScorer(ctx context.Context) (etl.Scorer, error) {
	if a.scorer != nil {
		return a.scorer, nil
	}
	if err := a.config.RequireGemini(); err != nil {
		return nil, err
	}
	scorer, err := ai.NewScorer(ctx, a.config.AI)
	if err != nil {
		return nil, fmt.Errorf("failed to create sentiment scorer: %w", err)
	}
	a.scorer = scorer
	a.log.Info("Sentiment scorer initialized", logger.String("provider", a.config.AI.SentimentProvider))
	return scorer, nil
}

// RunMetrics describes one pipeline run.
type RunMetrics struct {
	RunID      string
	Fetch      FetchReport
	Build      BuildReport
	DigestSent bool
}

// GetSummary implements scheduler.Metrics.
func (m *RunMetrics) GetSummary() string {
	summary := fmt.Sprintf("fetched %d videos (%d comment sets, %d reused), %d rows",
		m.Fetch.Videos, m.Fetch.CommentsFetched, m.Fetch.CommentsReused, m.Build.Rows)
	if m.Build.Evaluation != nil {
		summary += fmt.Sprintf(", R² %.3f", m.Build.Evaluation.R2)
	} else if !m.Build.Trained {
		summary += ", model not trained"
	}
	if m.Fetch.CommentFailures > 0 {
		summary += fmt.Sprintf(" (%d comment fetch errors)", m.Fetch.CommentFailures)
	}
	if m.DigestSent {
		summary += ", digest sent"
	}
	return summary
}

// RunOnce fetches, rebuilds every artifact and sends the digest. Failures
// that leave usable artifacts behind are reported as partial failures.
func (a *AnalyticsAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	start := time.Now()
	metrics := &RunMetrics{RunID: uuid.NewString()}
	log := a.log.With(logger.String("run_id", metrics.RunID))

	var partial []error

	fetch, err := a.Fetch(ctx)
	metrics.Fetch = fetch
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	if fetch.CommentFailures > 0 {
		partial = append(partial, fmt.Errorf("comments of %d videos could not be fetched", fetch.CommentFailures))
	}

	build, ds, model, err := a.build(ctx, log)
	metrics.Build = build
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	if build.TrainError != nil {
		partial = append(partial, build.TrainError)
	}

	sent, err := a.sendDigest(metrics.RunID, ds, model)
	metrics.DigestSent = sent
	if err != nil {
		log.Error("Failed to send digest", logger.Error(err))
		partial = append(partial, fmt.Errorf("failed to send digest: %w", err))
	}

	duration := time.Since(start)
	log.Info("Run complete",
		logger.String("summary", metrics.GetSummary()),
		logger.Duration("duration", duration),
	)

	if events == nil {
		return nil
	}
	if len(partial) > 0 {
		if events.OnPartialFailure != nil {
			events.OnPartialFailure(errors.Join(partial...), duration)
		}
		return nil
	}
	if events.OnSuccess != nil {
		events.OnSuccess(metrics, duration)
	}
	return nil
}

func (a *AnalyticsAgent) sendDigest(runID string, ds models.Dataset, model *predictor.Model) (bool, error) {
	if a.notifier == nil {
		return false, nil
	}

	now := a.now()
	views := query.DeriveAll(ds, now)
	report := &email.DigestReport{
		RunID:   runID,
		Date:    now,
		Query:   a.config.YouTube.Query,
		Summary: query.Summarize(views),
		Videos:  query.TopByViewsPerDay(views, a.config.Email.TopN),
	}
	if model != nil {
		report.Model = model.Evaluation
	}
	if len(report.Videos) == 0 {
		return false, nil
	}

	if err := a.notifier.SendDigest(report); err != nil {
		return false, err
	}
	return true, nil
}
