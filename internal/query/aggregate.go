package query

import (
	"sort"

	"yt-analytics/internal/models"
	"yt-analytics/internal/tfidf"
)

// Summary is the overview of a filtered view.
type Summary struct {
	Videos              int     `json:"videos"`
	TotalViews          int64   `json:"total_views"`
	MedianEngagementPct float64 `json:"median_engagement_pct"`
}

// Summarize computes the overview figures of views.
func Summarize(views []models.VideoView) Summary {
	s := Summary{Videos: len(views)}
	if len(views) == 0 {
		return s
	}

	rates := make([]float64, len(views))
	for i, v := range views {
		s.TotalViews += v.Views
		rates[i] = v.EngagementRate
	}
	sort.Float64s(rates)

	mid := len(rates) / 2
	median := rates[mid]
	if len(rates)%2 == 0 {
		median = (rates[mid-1] + rates[mid]) / 2
	}
	s.MedianEngagementPct = median * 100
	return s
}

// TermCount pairs a term with how often it occurs.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// KeywordCounts tallies the top keywords of views, most frequent first.
// Views without a keyword are not counted.
func KeywordCounts(views []models.VideoView, n int) []TermCount {
	counts := make(map[string]int)
	for _, v := range views {
		if v.TopKeyword != "" {
			counts[v.TopKeyword]++
		}
	}
	return rankCounts(counts, n)
}

// WordFrequencies counts non-stop-word terms across the titles and
// descriptions of views. It feeds word-cloud style renderings.
func WordFrequencies(views []models.VideoView, n int) []TermCount {
	counts := make(map[string]int)
	for _, v := range views {
		for _, term := range tfidf.Terms(v.Title+" "+v.Description, nil) {
			counts[term]++
		}
	}
	return rankCounts(counts, n)
}

func rankCounts(counts map[string]int, n int) []TermCount {
	out := make([]TermCount, 0, len(counts))
	for term, c := range counts {
		out = append(out, TermCount{Term: term, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// Bin is one histogram bucket covering [Lower, Upper).
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// SentimentHistogram buckets the present sentiment scores of views into
// equal-width bins over [-1, 1]. A score of exactly 1 lands in the last bin.
func SentimentHistogram(views []models.VideoView, bins int) []Bin {
	if bins <= 0 {
		bins = 20
	}
	width := 2.0 / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lower: -1 + float64(i)*width, Upper: -1 + float64(i+1)*width}
	}

	for _, v := range views {
		if v.AvgSentiment == nil {
			continue
		}
		i := int((*v.AvgSentiment + 1) / width)
		if i < 0 {
			i = 0
		}
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}
