package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"yt-analytics/internal/models"
)

// Predicate reports whether a view belongs in a result.
type Predicate func(models.VideoView) bool

// And combines predicates with logical AND. No predicates match everything.
func And(preds ...Predicate) Predicate {
	return func(v models.VideoView) bool {
		for _, p := range preds {
			if !p(v) {
				return false
			}
		}
		return true
	}
}

// CriteriaPredicate composes one predicate per active criterion. Criteria
// left at their zero value add no constraint.
func CriteriaPredicate(c models.FilterCriteria) Predicate {
	var preds []Predicate

	if from := c.DateRange.From; !from.IsZero() {
		preds = append(preds, func(v models.VideoView) bool { return !v.PublishedAt.Before(from) })
	}
	if to := c.DateRange.To; !to.IsZero() {
		preds = append(preds, func(v models.VideoView) bool { return !v.PublishedAt.After(to) })
	}
	if c.MinViews > 0 {
		preds = append(preds, func(v models.VideoView) bool { return v.Views >= c.MinViews })
	}
	if c.MinLikes > 0 {
		preds = append(preds, func(v models.VideoView) bool { return v.Likes >= c.MinLikes })
	}
	if c.MinEngagementPct > 0 {
		preds = append(preds, func(v models.VideoView) bool { return v.EngagementRate*100 >= c.MinEngagementPct })
	}
	if len(c.Keywords) > 0 {
		set := make(map[string]struct{}, len(c.Keywords))
		for _, k := range c.Keywords {
			set[k] = struct{}{}
		}
		preds = append(preds, func(v models.VideoView) bool {
			_, ok := set[v.TopKeyword]
			return ok
		})
	}
	if c.TitleSubstring != "" {
		needle := strings.ToLower(c.TitleSubstring)
		preds = append(preds, func(v models.VideoView) bool {
			return strings.Contains(strings.ToLower(v.Title), needle)
		})
	}

	return And(preds...)
}

// Filter keeps the views matching every criterion, in input order.
func Filter(views []models.VideoView, c models.FilterCriteria) []models.VideoView {
	pred := CriteriaPredicate(c)
	out := make([]models.VideoView, 0, len(views))
	for _, v := range views {
		if pred(v) {
			out = append(out, v)
		}
	}
	return out
}

// DateLayout is the calendar date form accepted for range bounds.
const DateLayout = "2006-01-02"

// ParseDateBound accepts a calendar date or an RFC 3339 timestamp. A bare
// date used as an upper bound covers the whole day.
func ParseDateBound(s string, upper bool) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		if upper {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC 3339, got %q", s)
	}
	return t.UTC(), nil
}

// SortKey names a ranking order of a result.
type SortKey string

const (
	SortNone        SortKey = ""
	SortViews       SortKey = "views"
	SortViewsPerDay SortKey = "views_per_day"
	SortPublished   SortKey = "published"
	SortSentiment   SortKey = "sentiment"
)

// ParseSortKey validates a user-supplied sort key.
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortNone, SortViews, SortViewsPerDay, SortPublished, SortSentiment:
		return k, true
	}
	return SortNone, false
}

// TopByViews returns the n most viewed views. n <= 0 keeps all.
func TopByViews(views []models.VideoView, n int) []models.VideoView {
	return topBy(views, n, func(a, b models.VideoView) bool { return a.Views > b.Views })
}

// TopByViewsPerDay returns the n views with the highest daily view rate.
func TopByViewsPerDay(views []models.VideoView, n int) []models.VideoView {
	return topBy(views, n, func(a, b models.VideoView) bool { return a.ViewsPerDay > b.ViewsPerDay })
}

// MostPositive returns the n views with the highest average sentiment.
// Views without a sentiment score are left out.
func MostPositive(views []models.VideoView, n int) []models.VideoView {
	scored := make([]models.VideoView, 0, len(views))
	for _, v := range views {
		if v.AvgSentiment != nil {
			scored = append(scored, v)
		}
	}
	return topBy(scored, n, func(a, b models.VideoView) bool { return *a.AvgSentiment > *b.AvgSentiment })
}

// Timeline orders views by publish time, oldest first.
func Timeline(views []models.VideoView) []models.VideoView {
	return topBy(views, 0, func(a, b models.VideoView) bool { return a.PublishedAt.Before(b.PublishedAt) })
}

func topBy(views []models.VideoView, n int, less func(a, b models.VideoView) bool) []models.VideoView {
	out := make([]models.VideoView, len(views))
	copy(out, views)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Request is one filtered, ranked read of the dataset.
type Request struct {
	Criteria models.FilterCriteria
	Sort     SortKey
	Top      int
	AsOf     time.Time
}

// Run derives, filters, ranks and slices the dataset for a request.
func Run(ds models.Dataset, req Request) []models.VideoView {
	views := Filter(DeriveAll(ds, req.AsOf), req.Criteria)

	switch req.Sort {
	case SortViews:
		return TopByViews(views, req.Top)
	case SortViewsPerDay:
		return TopByViewsPerDay(views, req.Top)
	case SortPublished:
		views = Timeline(views)
	case SortSentiment:
		return MostPositive(views, req.Top)
	}

	if req.Top > 0 && req.Top < len(views) {
		views = views[:req.Top]
	}
	return views
}
