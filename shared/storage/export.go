package storage

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"yt-analytics/internal/models"
)

// ExportSheet is the worksheet written by ExportXLSX.
const ExportSheet = "Videos"

var exportColumns = []string{
	"video_id", "title", "published_at", "views", "likes", "comments",
	"duration_sec", "avg_sentiment", "top_keyword",
	"engagement_rate", "days_since_upload", "views_per_day",
}

// ExportXLSX writes views to a spreadsheet at path, one row per video with
// the stored and derived columns.
func ExportXLSX(path string, views []models.VideoView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, h := range exportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(ExportSheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for r, v := range views {
		row := []any{
			v.VideoID,
			v.Title,
			v.PublishedAt.UTC().Format(time.RFC3339),
			v.Views,
			v.Likes,
			v.Comments,
			"",
			"",
			v.TopKeyword,
			v.EngagementRate,
			v.DaysSinceUpload,
			v.ViewsPerDay,
		}
		if v.DurationSec != nil {
			row[6] = *v.DurationSec
		}
		if v.AvgSentiment != nil {
			row[7] = *v.AvgSentiment
		}

		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s: %w", v.VideoID, err)
		}
	}

	if err := f.SetPanes(ExportSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
