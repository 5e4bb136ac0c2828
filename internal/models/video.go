package models

import (
	"time"
)

// VideoRecord is one canonical row of the analytics dataset.
type VideoRecord struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PublishedAt  time.Time `json:"published_at"`
	Views        int64     `json:"views"`
	Likes        int64     `json:"likes"`
	Comments     int64     `json:"comments"`
	DurationSec  *int64    `json:"duration_sec"`
	AvgSentiment *float64  `json:"avg_sentiment"`
	TopKeyword   string    `json:"top_keyword"`
}

// Clone returns a deep copy, including the optional fields.
func (r VideoRecord) Clone() VideoRecord {
	out := r
	if r.DurationSec != nil {
		d := *r.DurationSec
		out.DurationSec = &d
	}
	if r.AvgSentiment != nil {
		s := *r.AvgSentiment
		out.AvgSentiment = &s
	}
	return out
}

// Dataset is the canonical collection of videos, unique by VideoID.
type Dataset []VideoRecord

// Clone returns a deep copy so a stage never aliases its input.
func (d Dataset) Clone() Dataset {
	if d == nil {
		return nil
	}
	out := make(Dataset, len(d))
	for i, r := range d {
		out[i] = r.Clone()
	}
	return out
}

// Index maps each video id to its position in the dataset.
func (d Dataset) Index() map[string]int {
	idx := make(map[string]int, len(d))
	for i, r := range d {
		idx[r.VideoID] = i
	}
	return idx
}

// IDs returns the video ids in dataset order.
func (d Dataset) IDs() []string {
	ids := make([]string, len(d))
	for i, r := range d {
		ids[i] = r.VideoID
	}
	return ids
}

// CommentSet maps a video id to its raw comment texts, in fetch order.
type CommentSet map[string][]string

// VideoView is a record with its read-time metrics. It is never persisted.
type VideoView struct {
	VideoRecord
	EngagementRate  float64 `json:"engagement_rate"`
	DaysSinceUpload int64   `json:"days_since_upload"`
	ViewsPerDay     float64 `json:"views_per_day"`
}

// Int64Ptr and Float64Ptr build optional field values.
func Int64Ptr(v int64) *int64 { return &v }

func Float64Ptr(v float64) *float64 { return &v }
