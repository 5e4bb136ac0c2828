package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"yt-analytics/internal/models"
)

// ErrDatasetNotFound is returned when the dataset has not been built yet.
var ErrDatasetNotFound = errors.New("dataset not found")

// DatasetColumns is the CSV header, in write order.
var DatasetColumns = []string{
	"video_id", "title", "description", "publishedAt",
	"views", "likes", "comments", "duration_sec", "avg_sentiment", "top_keyword",
}

// Optional columns may be missing from files written before enrichment.
var optionalColumns = map[string]bool{
	"duration_sec":  true,
	"avg_sentiment": true,
	"top_keyword":   true,
}

// publishedLayouts are accepted when reading; RFC 3339 is always written.
var publishedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// DatasetStore persists the canonical dataset as CSV. An empty cell marks an
// absent value.
type DatasetStore struct {
	path string
}

// NewDatasetStore returns a store writing into dataDir.
func NewDatasetStore(dataDir string) *DatasetStore {
	return &DatasetStore{path: filepath.Join(dataDir, DatasetFile)}
}

// Path is the CSV location.
func (s *DatasetStore) Path() string { return s.path }

// Save replaces the stored dataset.
func (s *DatasetStore) Save(ds models.Dataset) error {
	return writeFileAtomic(s.path, func(w io.Writer) error {
		return WriteDatasetCSV(w, ds)
	})
}

// Load reads the stored dataset.
func (s *DatasetStore) Load() (models.Dataset, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrDatasetNotFound
		}
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	ds, err := ReadDatasetCSV(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return ds, nil
}

// WriteDatasetCSV encodes ds with the DatasetColumns header.
func WriteDatasetCSV(w io.Writer, ds models.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DatasetColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range ds {
		row := []string{
			r.VideoID,
			r.Title,
			r.Description,
			r.PublishedAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(r.Views, 10),
			strconv.FormatInt(r.Likes, 10),
			strconv.FormatInt(r.Comments, 10),
			"",
			"",
			r.TopKeyword,
		}
		if r.DurationSec != nil {
			row[7] = strconv.FormatInt(*r.DurationSec, 10)
		}
		if r.AvgSentiment != nil {
			row[8] = strconv.FormatFloat(*r.AvgSentiment, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write %s: %w", r.VideoID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadDatasetCSV decodes a dataset, locating columns by header name.
func ReadDatasetCSV(r io.Reader) (models.Dataset, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")] = i
	}
	for _, name := range DatasetColumns {
		if _, ok := col[name]; !ok && !optionalColumns[name] {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	ds := models.Dataset{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		row, err := parseRow(get)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ds = append(ds, row)
	}
	return ds, nil
}

func parseRow(get func(string) string) (models.VideoRecord, error) {
	r := models.VideoRecord{
		VideoID:     get("video_id"),
		Title:       get("title"),
		Description: get("description"),
		TopKeyword:  get("top_keyword"),
	}

	published, err := parsePublished(get("publishedAt"))
	if err != nil {
		return r, err
	}
	r.PublishedAt = published

	for _, c := range []struct {
		name string
		dst  *int64
	}{
		{"views", &r.Views},
		{"likes", &r.Likes},
		{"comments", &r.Comments},
	} {
		v, err := parseCount(get(c.name))
		if err != nil {
			return r, fmt.Errorf("%s: %w", c.name, err)
		}
		*c.dst = v
	}

	if s := strings.TrimSpace(get("duration_sec")); s != "" {
		v, err := parseCount(s)
		if err != nil {
			return r, fmt.Errorf("duration_sec: %w", err)
		}
		r.DurationSec = &v
	}
	if s := strings.TrimSpace(get("avg_sentiment")); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return r, fmt.Errorf("avg_sentiment: invalid value %q", s)
		}
		r.AvgSentiment = &v
	}
	return r, nil
}

func parsePublished(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("publishedAt: invalid timestamp %q", s)
}

// parseCount reads a non-negative integer, tolerating float formatting such
// as "213.0". Empty means zero.
func parseCount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return 0, fmt.Errorf("negative value %q", s)
		}
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) || f >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid count %q", s)
	}
	return int64(f), nil
}
