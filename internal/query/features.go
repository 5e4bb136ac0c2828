// Package query serves read-only views of the canonical dataset: read-time
// metrics, filtering and the rankings and aggregates built on top of them.
package query

import (
	"math"
	"time"

	"yt-analytics/internal/models"
)

const day = 24 * time.Hour

// Derive computes the read-time metrics of a record as of the given time.
// The result depends on asOf and must not be cached across requests.
func Derive(r models.VideoRecord, asOf time.Time) models.VideoView {
	days := int64(math.Floor(float64(asOf.Sub(r.PublishedAt)) / float64(day)))
	if days < 1 {
		days = 1
	}

	views := r.Views
	if views < 1 {
		views = 1
	}

	return models.VideoView{
		VideoRecord:     r,
		EngagementRate:  float64(r.Likes+r.Comments) / float64(views),
		DaysSinceUpload: days,
		ViewsPerDay:     float64(r.Views) / float64(days),
	}
}

// DeriveAll derives every record, preserving order.
func DeriveAll(ds models.Dataset, asOf time.Time) []models.VideoView {
	out := make([]models.VideoView, len(ds))
	for i, r := range ds {
		out[i] = Derive(r, asOf)
	}
	return out
}
