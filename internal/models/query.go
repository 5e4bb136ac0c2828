package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DateRange bounds publish time inclusively. A zero bound is open.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// FilterCriteria holds the user-chosen constraints of a filtered view.
// All criteria combine with logical AND; zero values constrain nothing.
type FilterCriteria struct {
	DateRange        DateRange `json:"date_range"`
	Keywords         []string  `json:"keywords"`
	MinViews         int64     `json:"min_views"`
	MinLikes         int64     `json:"min_likes"`
	MinEngagementPct float64   `json:"min_engagement_pct"`
	TitleSubstring   string    `json:"title_substring"`
}

// FeatureNames lists the regressor inputs in model order.
var FeatureNames = []string{"duration_sec", "likes", "comments", "avg_sentiment"}

// Features is one regressor input, ordered as FeatureNames.
type Features struct {
	DurationSec  float64 `json:"duration_sec"`
	Likes        float64 `json:"likes"`
	Comments     float64 `json:"comments"`
	AvgSentiment float64 `json:"avg_sentiment"`
}

// ErrInvalidFeatures is returned for feature tuples outside the model's domain.
var ErrInvalidFeatures = errors.New("invalid features")

// Vector returns the features in model order.
func (f Features) Vector() []float64 {
	return []float64{f.DurationSec, f.Likes, f.Comments, f.AvgSentiment}
}

// Validate checks the inference input domain.
func (f Features) Validate() error {
	for i, v := range f.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidFeatures, FeatureNames[i])
		}
	}
	switch {
	case f.DurationSec < 0:
		return fmt.Errorf("%w: duration_sec must be >= 0, got %v", ErrInvalidFeatures, f.DurationSec)
	case f.Likes < 0:
		return fmt.Errorf("%w: likes must be >= 0, got %v", ErrInvalidFeatures, f.Likes)
	case f.Comments < 0:
		return fmt.Errorf("%w: comments must be >= 0, got %v", ErrInvalidFeatures, f.Comments)
	case f.AvgSentiment < -1 || f.AvgSentiment > 1:
		return fmt.Errorf("%w: avg_sentiment must be in [-1,1], got %v", ErrInvalidFeatures, f.AvgSentiment)
	}
	return nil
}

// FeaturesOf extracts the regressor input of a record. Absent duration and
// sentiment count as zero.
func FeaturesOf(r VideoRecord) Features {
	f := Features{
		Likes:    float64(r.Likes),
		Comments: float64(r.Comments),
	}
	if r.DurationSec != nil {
		f.DurationSec = float64(*r.DurationSec)
	}
	if r.AvgSentiment != nil {
		f.AvgSentiment = *r.AvgSentiment
	}
	return f
}
