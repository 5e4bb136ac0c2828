package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"yt-analytics/internal/etl"
	"yt-analytics/internal/models"
	"yt-analytics/internal/predictor"
	"yt-analytics/internal/query"
	"yt-analytics/shared/storage"
)

// filterFlags are the filter and ranking options shared by the read commands.
type filterFlags struct {
	from          string
	to            string
	keywords      []string
	minViews      int64
	minLikes      int64
	minEngagement float64
	title         string
	sort          string
	top           int
}

func (f *filterFlags) register(cmd *cobra.Command, defaultSort string, defaultTop int) {
	cmd.Flags().StringVar(&f.from, "from", "", "earliest publish date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&f.to, "to", "", "latest publish date, inclusive (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringSliceVar(&f.keywords, "keyword", nil, "keep videos whose top keyword is one of these")
	cmd.Flags().Int64Var(&f.minViews, "min-views", 0, "minimum views")
	cmd.Flags().Int64Var(&f.minLikes, "min-likes", 0, "minimum likes")
	cmd.Flags().Float64Var(&f.minEngagement, "min-engagement", 0, "minimum engagement rate in percent")
	cmd.Flags().StringVar(&f.title, "q", "", "title substring, case-insensitive")
	cmd.Flags().StringVar(&f.sort, "sort", defaultSort, "ranking: views, views_per_day, published or sentiment")
	cmd.Flags().IntVar(&f.top, "top", defaultTop, "number of videos to show, 0 for all")
}

func (f *filterFlags) request(asOf time.Time) (query.Request, error) {
	var req query.Request
	var err error

	if f.from != "" {
		if req.Criteria.DateRange.From, err = query.ParseDateBound(f.from, false); err != nil {
			return req, fmt.Errorf("--from: %w", err)
		}
	}
	if f.to != "" {
		if req.Criteria.DateRange.To, err = query.ParseDateBound(f.to, true); err != nil {
			return req, fmt.Errorf("--to: %w", err)
		}
	}
	if f.minViews < 0 || f.minLikes < 0 {
		return req, fmt.Errorf("--min-views and --min-likes must not be negative")
	}
	if f.minEngagement < 0 || f.minEngagement > 100 {
		return req, fmt.Errorf("--min-engagement must be a percentage in [0,100], got %v", f.minEngagement)
	}
	if f.top < 0 {
		return req, fmt.Errorf("--top must not be negative, got %d", f.top)
	}

	for _, k := range f.keywords {
		if k = strings.TrimSpace(k); k != "" {
			req.Criteria.Keywords = append(req.Criteria.Keywords, k)
		}
	}
	req.Criteria.MinViews = f.minViews
	req.Criteria.MinLikes = f.minLikes
	req.Criteria.MinEngagementPct = f.minEngagement
	req.Criteria.TitleSubstring = f.title

	key, ok := query.ParseSortKey(f.sort)
	if !ok {
		return req, fmt.Errorf("unknown sort key %q", f.sort)
	}
	req.Sort = key
	req.Top = f.top
	req.AsOf = asOf
	return req, nil
}

func loadDataset(d *deps) (models.Dataset, error) {
	ds, err := storage.NewDatasetStore(d.config.Pipeline.DataDir).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset (run build first): %w", err)
	}
	return ds, nil
}

func newQueryCommand() *cobra.Command {
	var flags filterFlags
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter and rank the stored dataset",
		RunE: withDeps(func(cmd *cobra.Command, d *deps, args []string) error {
			ds, err := loadDataset(d)
			if err != nil {
				return err
			}
			req, err := flags.request(time.Now())
			if err != nil {
				return err
			}

			views := query.Run(ds, req)
			out := cmd.OutOrStdout()
			renderVideos(out, views)
			renderSummary(out, query.Summarize(query.Filter(query.DeriveAll(ds, req.AsOf), req.Criteria)))
			return nil
		}),
	}
	flags.register(cmd, string(query.SortViews), 20)
	return cmd
}

func newTrendingCommand() *cobra.Command {
	var flags filterFlags
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Show the videos gaining views fastest",
		RunE: withDeps(func(cmd *cobra.Command, d *deps, args []string) error {
			ds, err := loadDataset(d)
			if err != nil {
				return err
			}
			flags.sort = string(query.SortViewsPerDay)
			if flags.top == 0 {
				flags.top = d.config.Server.TopN
			}
			req, err := flags.request(time.Now())
			if err != nil {
				return err
			}
			renderVideos(cmd.OutOrStdout(), query.Run(ds, req))
			return nil
		}),
	}
	flags.register(cmd, string(query.SortViewsPerDay), 0)
	_ = cmd.Flags().MarkHidden("sort")
	return cmd
}

// parseDuration accepts whole seconds or an ISO 8601 duration such as PT4M13S.
func parseDuration(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return secs, nil
	}
	if secs, ok := etl.ParseISODuration(s); ok {
		return float64(secs), nil
	}
	return 0, fmt.Errorf("expected seconds or an ISO 8601 duration, got %q", s)
}

func newPredictCommand() *cobra.Command {
	var (
		duration  string
		likes     float64
		comments  float64
		sentiment float64
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the views of a video from its engagement",
		RunE: withDeps(func(cmd *cobra.Command, d *deps, args []string) error {
			secs, err := parseDuration(duration)
			if err != nil {
				return fmt.Errorf("--duration: %w", err)
			}
			f := models.Features{
				DurationSec:  secs,
				Likes:        likes,
				Comments:     comments,
				AvgSentiment: sentiment,
			}
			if err := f.Validate(); err != nil {
				return err
			}

			model, err := storage.NewModelStore(d.config.Pipeline.OutputDir).Load()
			if err != nil {
				return fmt.Errorf("failed to load model (run train first): %w", err)
			}

			pred := model.Predict(f)
			fmt.Fprintf(cmd.OutOrStdout(), "Predicted views: %s\n", formatCount(predictor.ClampViews(pred)))
			return nil
		}),
	}
	cmd.Flags().StringVar(&duration, "duration", "0", "video length in seconds or ISO 8601 (PT4M13S)")
	cmd.Flags().Float64Var(&likes, "likes", 0, "number of likes")
	cmd.Flags().Float64Var(&comments, "comments", 0, "number of comments")
	cmd.Flags().Float64Var(&sentiment, "sentiment", 0, "average comment sentiment in [-1, 1]")
	return cmd
}

func newExportCommand() *cobra.Command {
	var (
		flags filterFlags
		path  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the filtered dataset to an Excel workbook",
		RunE: withDeps(func(cmd *cobra.Command, d *deps, args []string) error {
			ds, err := loadDataset(d)
			if err != nil {
				return err
			}
			req, err := flags.request(time.Now())
			if err != nil {
				return err
			}
			views := query.Run(ds, req)
			if err := storage.ExportXLSX(path, views); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d videos to %s\n", len(views), path)
			return nil
		}),
	}
	flags.register(cmd, string(query.SortNone), 0)
	cmd.Flags().StringVarP(&path, "out", "o", "videos.xlsx", "output workbook")
	return cmd
}
