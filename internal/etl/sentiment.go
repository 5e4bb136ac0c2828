package etl

import (
	"context"
	"fmt"
	"math"

	"yt-analytics/internal/models"
)

// Scorer rates the polarity of a text in [-1, 1].
type Scorer interface {
	Score(ctx context.Context, text string) (float64, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, text string) (float64, error)

func (f ScorerFunc) Score(ctx context.Context, text string) (float64, error) {
	return f(ctx, text)
}

// SentimentReport counts the work done by EnrichSentiment.
type SentimentReport struct {
	VideosScored   int
	CommentsScored int
	FailedComments int
	// UnknownVideos counts comment-set ids with no row in the dataset.
	UnknownVideos int
}

// EnrichSentiment sets AvgSentiment on every video present in comments to
// the mean polarity of its comments. A video with an empty comment list
// scores 0; a video missing from comments keeps a nil AvgSentiment. A comment
// the scorer fails on counts as neutral.
func EnrichSentiment(ctx context.Context, ds models.Dataset, comments models.CommentSet, scorer Scorer) (models.Dataset, SentimentReport, error) {
	var report SentimentReport
	if scorer == nil {
		return nil, report, fmt.Errorf("sentiment scorer is required")
	}

	out := ds.Clone()
	idx := out.Index()

	for id := range comments {
		if _, ok := idx[id]; !ok {
			report.UnknownVideos++
		}
	}

	for i := range out {
		texts, ok := comments[out[i].VideoID]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, report, fmt.Errorf("sentiment enrichment interrupted: %w", err)
		}

		avg, failed := averagePolarity(ctx, scorer, texts)
		out[i].AvgSentiment = models.Float64Ptr(avg)
		report.VideosScored++
		report.CommentsScored += len(texts)
		report.FailedComments += failed
	}

	return out, report, nil
}

func averagePolarity(ctx context.Context, scorer Scorer, texts []string) (float64, int) {
	if len(texts) == 0 {
		return 0, 0
	}

	var sum float64
	var failed int
	for _, text := range texts {
		score, err := scorer.Score(ctx, text)
		if err != nil || math.IsNaN(score) {
			failed++
			continue
		}
		sum += clamp(score, -1, 1)
	}
	return sum / float64(len(texts)), failed
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
