package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"yt-analytics/internal/models"
	"yt-analytics/internal/predictor"
	"yt-analytics/internal/query"
)

const maxTitleWidth = 48

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}

func renderVideos(out io.Writer, views []models.VideoView) {
	if len(views) == 0 {
		fmt.Fprintln(out, "No videos match.")
		return
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"#", "Video", "Title", "Published", "Views", "Likes", "Eng %", "Views/Day", "Sentiment", "Keyword"})
	for i, v := range views {
		sentiment := "-"
		if v.AvgSentiment != nil {
			sentiment = strconv.FormatFloat(*v.AvgSentiment, 'f', 3, 64)
		}
		t.AppendRow(table.Row{
			i + 1,
			v.VideoID,
			text.Trim(v.Title, maxTitleWidth),
			v.PublishedAt.Format(query.DateLayout),
			formatCount(v.Views),
			formatCount(v.Likes),
			fmt.Sprintf("%.2f", v.EngagementRate*100),
			fmt.Sprintf("%.1f", v.ViewsPerDay),
			sentiment,
			v.TopKeyword,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
		{Number: 9, Align: text.AlignRight},
	})
	t.Render()
}

func renderSummary(out io.Writer, s query.Summary) {
	t := newTable(out)
	t.AppendRow(table.Row{"Videos analysed", s.Videos})
	t.AppendRow(table.Row{"Total views", formatCount(s.TotalViews)})
	t.AppendRow(table.Row{"Median engagement", fmt.Sprintf("%.2f%%", s.MedianEngagementPct)})
	t.Render()
}

func renderModel(out io.Writer, m *predictor.Model) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Feature", "Weight"})
	t.AppendRow(table.Row{"(intercept)", fmt.Sprintf("%.4f", m.Intercept)})
	for i, name := range m.Features {
		t.AppendRow(table.Row{name, fmt.Sprintf("%.4f", m.Weights[i])})
	}
	if m.Evaluation != nil {
		t.AppendFooter(table.Row{"R²", fmt.Sprintf("%.4f", m.Evaluation.R2)})
		t.AppendFooter(table.Row{"MAE", fmt.Sprintf("%.0f", m.Evaluation.MAE)})
	}
	t.Render()
	fmt.Fprintf(out, "Trained on %d videos, evaluated on %d\n", m.TrainRows, m.TestRows)
}

// formatCount renders n with thousands separators.
func formatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := n < 0
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-" + s
	}
	return s
}
