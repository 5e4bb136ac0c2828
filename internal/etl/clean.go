// Package etl holds the batch stages that turn raw platform records and
// comments into the canonical dataset: cleaning, sentiment enrichment and
// keyword extraction. Every stage takes a Dataset value and returns a new one.
package etl

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"yt-analytics/internal/models"
)

// ErrMissingVideoID is returned in strict mode for a raw record without an id.
var ErrMissingVideoID = errors.New("raw record is missing its video id")

// CleanOptions tunes the cleaning stage.
type CleanOptions struct {
	// StrictIDs turns a record without an id into a fatal error instead of
	// dropping it.
	StrictIDs bool
}

// CleanReport counts the recoverable problems met while cleaning.
type CleanReport struct {
	Input             int
	Output            int
	MissingID         int
	Duplicates        int
	InvalidDuration   int
	InvalidPublished  int
	InvalidStatistics int
}

// Clean normalizes raw video records into the canonical dataset. Records
// sharing an id collapse into one row placed at the first occurrence and
// carrying the values of the last one.
func Clean(raws []models.RawVideo, opts CleanOptions) (models.Dataset, CleanReport, error) {
	report := CleanReport{Input: len(raws)}
	ds := make(models.Dataset, 0, len(raws))
	seen := make(map[string]int, len(raws))

	for i, raw := range raws {
		id := strings.TrimSpace(raw.ID)
		if id == "" {
			if opts.StrictIDs {
				return nil, report, fmt.Errorf("record %d: %w", i, ErrMissingVideoID)
			}
			report.MissingID++
			continue
		}

		rec := cleanRecord(id, raw, &report)
		if pos, ok := seen[id]; ok {
			report.Duplicates++
			ds[pos] = rec
			continue
		}
		seen[id] = len(ds)
		ds = append(ds, rec)
	}

	report.Output = len(ds)
	return ds, report, nil
}

func cleanRecord(id string, raw models.RawVideo, report *CleanReport) models.VideoRecord {
	rec := models.VideoRecord{
		VideoID:     id,
		Title:       raw.Snippet.Title,
		Description: raw.Snippet.Description,
		Views:       counterValue(raw.Statistics.ViewCount, report),
		Likes:       counterValue(raw.Statistics.LikeCount, report),
		Comments:    counterValue(raw.Statistics.CommentCount, report),
	}

	if raw.Snippet.PublishedAt != "" {
		if ts, err := time.Parse(time.RFC3339, raw.Snippet.PublishedAt); err == nil {
			rec.PublishedAt = ts.UTC()
		} else {
			report.InvalidPublished++
		}
	}

	if secs, ok := ParseISODuration(raw.ContentDetails.Duration); ok {
		rec.DurationSec = models.Int64Ptr(secs)
	} else {
		report.InvalidDuration++
	}

	return rec
}

func counterValue(c models.Counter, report *CleanReport) int64 {
	if c.Invalid {
		report.InvalidStatistics++
		return 0
	}
	return c.Value
}
