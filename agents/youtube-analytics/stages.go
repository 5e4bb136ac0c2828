package youtubeanalytics

import (
	"context"
	"errors"
	"fmt"
	"os"

	"yt-analytics/internal/etl"
	"yt-analytics/internal/models"
	"yt-analytics/internal/predictor"
	"yt-analytics/shared/logger"
)

// FetchReport counts the work done by Fetch.
type FetchReport struct {
	Found           int
	Videos          int
	CommentsFetched int
	CommentsReused  int
	CommentFailures int
}

// BuildReport counts the work done by the offline stages.
type BuildReport struct {
	Clean      etl.CleanReport
	Sentiment  etl.SentimentReport
	Vocabulary []string
	Rows       int
	Trained    bool
	Evaluation *predictor.Evaluation
	// TrainError is set when the dataset was rebuilt but no model could be
	// fitted on it. The previous model is left in place.
	TrainError error
}

// Fetch searches the configured query and stores the raw videos and their
// comments. Comments fetched within the configured TTL are reused.
func (a *AnalyticsAgent) Fetch(ctx context.Context) (FetchReport, error) {
	var report FetchReport
	if a.source == nil || a.tracker == nil {
		return report, fmt.Errorf("agent is not initialized")
	}
	cfg := a.config.YouTube
	if cfg.Query == "" {
		return report, fmt.Errorf("youtube.query is required to fetch videos")
	}

	ids, err := a.source.SearchVideoIDs(ctx, cfg.Query, cfg.MaxResults)
	if err != nil {
		return report, err
	}
	report.Found = len(ids)

	videos, err := a.source.FetchVideos(ctx, ids)
	if err != nil {
		return report, err
	}
	report.Videos = len(videos)
	a.log.Info("Fetched videos", logger.String("query", cfg.Query), logger.Int("found", len(ids)), logger.Int("videos", len(videos)))

	previous, err := a.raw.LoadComments()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			a.log.Warn("Ignoring unreadable stored comments", logger.Error(err))
		}
		previous = models.CommentSet{}
	}

	comments := make(models.CommentSet, len(videos))
	var fetched []string
	if cfg.MaxComments > 0 {
		for i, v := range videos {
			if stored, ok := previous[v.ID]; ok && a.tracker.IsFresh(v.ID) {
				comments[v.ID] = stored
				report.CommentsReused++
				continue
			}

			texts, err := a.source.FetchComments(ctx, v.ID, cfg.MaxComments)
			if err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				a.log.Warn("Failed to fetch comments", logger.String("video_id", v.ID), logger.Error(err))
				report.CommentFailures++
				if report.CommentFailures > len(videos)/2 {
					return report, fmt.Errorf("too many comment fetch failures (%d/%d), stopping", report.CommentFailures, i+1)
				}
				continue
			}
			comments[v.ID] = texts
			fetched = append(fetched, v.ID)
			report.CommentsFetched++
		}
	}

	if err := a.raw.SaveVideos(videos); err != nil {
		return report, fmt.Errorf("failed to save raw videos: %w", err)
	}
	if err := a.raw.SaveComments(comments); err != nil {
		return report, fmt.Errorf("failed to save comments: %w", err)
	}
	if len(fetched) > 0 {
		if err := a.tracker.MarkFetched(fetched...); err != nil {
			a.log.Warn("Failed to update fetch tracker", logger.Error(err))
		}
	}

	return report, nil
}

// Clean rebuilds the dataset from the stored raw videos. Sentiment and
// keywords are left absent until their stages run.
func (a *AnalyticsAgent) Clean(ctx context.Context) (etl.CleanReport, error) {
	raws, err := a.raw.LoadVideos()
	if err != nil {
		return etl.CleanReport{}, fmt.Errorf("failed to load raw videos: %w", err)
	}
	ds, report, err := a.clean(raws)
	if err != nil {
		return report, err
	}
	if err := a.datasets.Save(ds); err != nil {
		return report, fmt.Errorf("failed to save dataset: %w", err)
	}
	return report, nil
}

// Sentiment scores the stored comments into the stored dataset.
func (a *AnalyticsAgent) Sentiment(ctx context.Context) (etl.SentimentReport, error) {
	ds, err := a.datasets.Load()
	if err != nil {
		return etl.SentimentReport{}, err
	}
	comments, err := a.loadComments()
	if err != nil {
		return etl.SentimentReport{}, err
	}
	// Scores from an earlier run must not outlive their comments.
	for i := range ds {
		ds[i].AvgSentiment = nil
	}
	ds, report, err := a.sentiment(ctx, ds, comments)
	if err != nil {
		return report, err
	}
	if err := a.datasets.Save(ds); err != nil {
		return report, fmt.Errorf("failed to save dataset: %w", err)
	}
	return report, nil
}

// Keywords assigns top keywords in the stored dataset and returns the
// fitted vocabulary.
func (a *AnalyticsAgent) Keywords(ctx context.Context) ([]string, error) {
	ds, err := a.datasets.Load()
	if err != nil {
		return nil, err
	}
	ds, vocabulary := a.keywords(ds)
	if err := a.datasets.Save(ds); err != nil {
		return nil, fmt.Errorf("failed to save dataset: %w", err)
	}
	return vocabulary, nil
}

// Train fits the predictor on the stored dataset and stores it.
func (a *AnalyticsAgent) Train(ctx context.Context) (*predictor.Model, error) {
	ds, err := a.datasets.Load()
	if err != nil {
		return nil, err
	}
	return a.train(ds)
}

// Build runs every offline stage on the stored raw data.
func (a *AnalyticsAgent) Build(ctx context.Context) (BuildReport, error) {
	report, _, _, err := a.build(ctx, a.log)
	return report, err
}

func (a *AnalyticsAgent) build(ctx context.Context, log logger.Logger) (BuildReport, models.Dataset, *predictor.Model, error) {
	var report BuildReport

	raws, err := a.raw.LoadVideos()
	if err != nil {
		return report, nil, nil, fmt.Errorf("failed to load raw videos: %w", err)
	}
	comments, err := a.loadComments()
	if err != nil {
		return report, nil, nil, err
	}

	ds, cleanReport, err := a.clean(raws)
	report.Clean = cleanReport
	if err != nil {
		return report, nil, nil, err
	}

	ds, sentimentReport, err := a.sentiment(ctx, ds, comments)
	report.Sentiment = sentimentReport
	if err != nil {
		return report, nil, nil, err
	}

	ds, report.Vocabulary = a.keywords(ds)
	report.Rows = len(ds)

	if err := a.datasets.Save(ds); err != nil {
		return report, nil, nil, fmt.Errorf("failed to save dataset: %w", err)
	}
	log.Info("Dataset rebuilt", logger.Int("rows", len(ds)), logger.String("path", a.datasets.Path()))

	model, err := a.train(ds)
	if err != nil {
		log.Warn("Model not trained", logger.Error(err))
		report.TrainError = err
		return report, ds, nil, nil
	}
	report.Trained = true
	report.Evaluation = model.Evaluation
	return report, ds, model, nil
}

func (a *AnalyticsAgent) loadComments() (models.CommentSet, error) {
	comments, err := a.raw.LoadComments()
	if errors.Is(err, os.ErrNotExist) {
		a.log.Warn("No stored comments, sentiment stays absent", logger.String("path", a.raw.CommentsPath()))
		return models.CommentSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}
	return comments, nil
}

func (a *AnalyticsAgent) clean(raws []models.RawVideo) (models.Dataset, etl.CleanReport, error) {
	ds, report, err := etl.Clean(raws, etl.CleanOptions{StrictIDs: a.config.Pipeline.StrictIDs})
	if err != nil {
		return nil, report, fmt.Errorf("failed to clean raw videos: %w", err)
	}
	a.log.Info("Cleaned raw videos",
		logger.Int("input", report.Input),
		logger.Int("output", report.Output),
		logger.Int("missing_id", report.MissingID),
		logger.Int("duplicates", report.Duplicates),
		logger.Int("invalid_duration", report.InvalidDuration),
		logger.Int("invalid_published", report.InvalidPublished),
		logger.Int("invalid_statistics", report.InvalidStatistics),
	)
	return ds, report, nil
}

func (a *AnalyticsAgent) sentiment(ctx context.Context, ds models.Dataset, comments models.CommentSet) (models.Dataset, etl.SentimentReport, error) {
	scorer, err := a.ensureScorer(ctx)
	if err != nil {
		return nil, etl.SentimentReport{}, err
	}
	out, report, err := etl.EnrichSentiment(ctx, ds, comments, scorer)
	if err != nil {
		return nil, report, err
	}
	a.log.Info("Scored comment sentiment",
		logger.Int("videos", report.VideosScored),
		logger.Int("comments", report.CommentsScored),
		logger.Int("failed", report.FailedComments),
		logger.Int("unknown_videos", report.UnknownVideos),
	)
	return out, report, nil
}

func (a *AnalyticsAgent) keywords(ds models.Dataset) (models.Dataset, []string) {
	out, vec := etl.ExtractKeywords(ds, etl.KeywordOptions{MaxFeatures: a.config.Pipeline.MaxKeywords})
	a.log.Info("Extracted keywords", logger.Int("vocabulary", len(vec.Vocabulary)))
	return out, vec.Vocabulary
}

func (a *AnalyticsAgent) train(ds models.Dataset) (*predictor.Model, error) {
	model, err := predictor.Train(ds, predictor.TrainOptions{
		TestRatio: a.config.Pipeline.TestRatio,
		Seed:      a.config.Pipeline.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to train predictor: %w", err)
	}
	if err := a.modelStore.Save(model); err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}

	fields := []logger.Field{
		logger.Int("train_rows", model.TrainRows),
		logger.Int("test_rows", model.TestRows),
		logger.String("path", a.modelStore.Path()),
	}
	if model.Evaluation != nil {
		fields = append(fields,
			logger.Float64("r2", model.Evaluation.R2),
			logger.Float64("mae", model.Evaluation.MAE),
		)
	}
	a.log.Info("Trained view predictor", fields...)
	return model, nil
}
