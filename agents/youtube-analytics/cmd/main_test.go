package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yt-analytics/internal/models"
	"yt-analytics/internal/query"
	"yt-analytics/shared/storage"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// writeConfig points the pipeline at a fresh data directory.
func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("pipeline:\n  data_dir: %s\nlogging:\n  level: error\n", dataDir)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path, dataDir
}

func sampleDataset() models.Dataset {
	return models.Dataset{
		{
			VideoID: "go1", Title: "Learn Go in one video", PublishedAt: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			Views: 125000, Likes: 4000, Comments: 300, DurationSec: models.Int64Ptr(3600),
			AvgSentiment: models.Float64Ptr(0.4), TopKeyword: "go",
		},
		{
			VideoID: "rs1", Title: "Rust for beginners", PublishedAt: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			Views: 90000, Likes: 2500, Comments: 120, TopKeyword: "rust",
		},
		{
			VideoID: "go2", Title: "Go concurrency patterns", PublishedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Views: 30000, Likes: 1500, Comments: 80, TopKeyword: "go",
		},
	}
}

func rawVideos(n int) []models.RawVideo {
	videos := make([]models.RawVideo, n)
	for i := range videos {
		likes := int64(25 * (i + 1))
		videos[i] = models.RawVideo{
			ID: fmt.Sprintf("raw%02d", i),
			Snippet: models.RawSnippet{
				Title:       fmt.Sprintf("Kubernetes deep dive %d", i),
				Description: "Operators, controllers and reconciliation loops",
				PublishedAt: fmt.Sprintf("2024-04-%02dT08:00:00Z", i+1),
			},
			Statistics: models.RawStatistics{
				ViewCount:    models.Counter{Value: 500 + 30*likes, Present: true},
				LikeCount:    models.Counter{Value: likes, Present: true},
				CommentCount: models.Counter{Value: int64(i * 2), Present: true},
			},
			ContentDetails: models.RawContentDetails{Duration: fmt.Sprintf("PT%dM30S", 3+i)},
		}
	}
	return videos
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-45000, "-45,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatCount(tt.in))
	}
}

func TestParseDuration(t *testing.T) {
	secs, err := parseDuration("253")
	require.NoError(t, err)
	assert.Equal(t, 253.0, secs)

	secs, err = parseDuration("PT4M13S")
	require.NoError(t, err)
	assert.Equal(t, 253.0, secs)

	_, err = parseDuration("four minutes")
	assert.Error(t, err)
}

func TestFilterFlagsRequest(t *testing.T) {
	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	flags := filterFlags{
		from:          "2024-01-01",
		to:            "2024-01-31",
		keywords:      []string{" go ", "", "rust"},
		minEngagement: 2.5,
		title:         "  tutorial ",
		sort:          "views_per_day",
		top:           5,
	}

	req, err := flags.request(asOf)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), req.Criteria.DateRange.From)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 999999999, time.UTC), req.Criteria.DateRange.To)
	assert.Equal(t, []string{"go", "rust"}, req.Criteria.Keywords)
	assert.Equal(t, "  tutorial ", req.Criteria.TitleSubstring, "title search is passed through untrimmed")
	assert.Equal(t, query.SortViewsPerDay, req.Sort)
	assert.Equal(t, 5, req.Top)
	assert.Equal(t, asOf, req.AsOf)

	bad := []filterFlags{
		{sort: "likes"},
		{from: "yesterday"},
		{minEngagement: 120},
		{minViews: -1},
		{top: -3},
	}
	for _, f := range bad {
		_, err := f.request(asOf)
		assert.Error(t, err, "%+v", f)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "yt-analytics dev\n", out)
}

func TestQueryCommand(t *testing.T) {
	cfgPath, dataDir := writeConfig(t)
	require.NoError(t, storage.NewDatasetStore(dataDir).Save(sampleDataset()))

	out, err := execute(t, "query", "--config", cfgPath, "--keyword", "go")
	require.NoError(t, err)
	assert.Contains(t, out, "go1")
	assert.Contains(t, out, "go2")
	assert.NotContains(t, out, "rs1")
	assert.Contains(t, out, "155,000")

	out, err = execute(t, "query", "--config", cfgPath, "--q", "nothing like this")
	require.NoError(t, err)
	assert.Contains(t, out, "No videos match.")

	_, err = execute(t, "query", "--config", cfgPath, "--sort", "likes")
	assert.Error(t, err)
}

func TestQueryCommandWithoutDataset(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	_, err := execute(t, "query", "--config", cfgPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrDatasetNotFound)
}

func TestExportCommand(t *testing.T) {
	cfgPath, dataDir := writeConfig(t)
	require.NoError(t, storage.NewDatasetStore(dataDir).Save(sampleDataset()))
	path := filepath.Join(t.TempDir(), "out.xlsx")

	out, err := execute(t, "export", "--config", cfgPath, "--min-views", "50000", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 videos")
	assert.FileExists(t, path)
}

func TestPredictCommandWithoutModel(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	_, err := execute(t, "predict", "--config", cfgPath, "--duration", "PT5M", "--likes", "10")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrModelNotFound)
}

func TestPredictCommandRejectsInvalidFeatures(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	_, err := execute(t, "predict", "--config", cfgPath, "--sentiment", "2")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidFeatures)
}

func TestBuildThenPredict(t *testing.T) {
	cfgPath, dataDir := writeConfig(t)
	require.NoError(t, storage.NewRawStore(dataDir).SaveVideos(rawVideos(8)))

	out, err := execute(t, "build", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Dataset: 8 videos")
	assert.Contains(t, out, "R²")

	out, err = execute(t, "predict", "--config", cfgPath, "--duration", "PT5M", "--likes", "100", "--comments", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Predicted views:")

	out, err = execute(t, "trending", "--config", cfgPath, "--top", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "raw07")
}
