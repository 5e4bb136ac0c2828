package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"yt-analytics/shared/monitoring"
	"yt-analytics/shared/scheduler"
)

func newFetchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Search YouTube and store raw videos and comments",
		RunE: withDeps(func(cmd *cobra.Command, d *deps, args []string) error {
			if q, _ := cmd.Flags().GetString("query"); q != "" {
				d.config.YouTube.Query = q
			}
			if n, _ := cmd.Flags().GetInt("max-results"); n > 0 {
				d.config.YouTube.MaxResults = n
			}
			if cmd.Flags().Changed("max-comments") {
				n, _ := cmd.Flags().GetInt("max-comments")
				if n < 0 {
					return fmt.Errorf("--max-comments must not be negative, got %d", n)
				}
				d.config.YouTube.MaxComments = n
			}

			agent := d.agent()
			if err := agent.Initialize(); err != nil {
				return fmt.Errorf("failed to initialize agent: %w", err)
			}
			report, err := agent.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fetched %d of %d videos: comments fetched for %d, reused for %d, failed for %d\n",
				report.Videos, report.Found, report.CommentsFetched, report.CommentsReused, report.CommentFailures)
			return nil
		}),
	}
	cmd.Flags().String("query", "", "search query (overrides youtube.query)")
	cmd.Flags().Int("max-results", 0, "maximum number of videos (overrides youtube.max_results)")
	cmd.Flags().Int("max-comments", 0, "maximum comments per video (overrides youtube.max_comments)")
	return cmd
}

func newCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Rebuild the dataset from the stored raw videos",
		RunE: withDeps(func(cmd *cobra.Command, d *deps, args []string) error {
			report, err := d.agent().Clean(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleaned %d raw records into %d videos (%d without id, %d duplicates)\n",
				report.Input, report.Output, report.MissingID, report.Duplicates)
			return nil
		}),
	}
}

func newSentimentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sentiment",
		Short: "Score stored comments into the dataset",
		RunE: withDeps(func(cmd *cobra.Command, d *deps, args []string) error {
			report, err := d.agent().Sentiment(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scored %d comments across %d videos (%d failed)\n",
				report.CommentsScored, report.VideosScored, report.FailedComments)
			return nil
		}),
	}
}

func newKeywordsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keywords",
		Short: "Assign the top tf-idf keyword of every video",
		RunE: withDeps(func(cmd *cobra.Command, d *deps, args []string) error {
			vocabulary, err := d.agent().Keywords(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Vocabulary (%d): %s\n", len(vocabulary), strings.Join(vocabulary, ", "))
			return nil
		}),
	}
}

func newTrainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train the view predictor on the stored dataset",
		RunE: withDeps(func(cmd *cobra.Command, d *deps, args []string) error {
			model, err := d.agent().Train(cmd.Context())
			if err != nil {
				return err
			}
			renderModel(cmd.OutOrStdout(), model)
			return nil
		}),
	}
}

func newBuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Run clean, sentiment, keywords and train on the stored raw data",
		RunE: withDeps(func(cmd *cobra.Command, d *deps, args []string) error {
			report, err := d.agent().Build(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Dataset: %d videos, vocabulary of %d terms\n", report.Rows, len(report.Vocabulary))
			if report.TrainError != nil {
				fmt.Fprintf(out, "Model not trained: %v\n", report.TrainError)
				return nil
			}
			if report.Evaluation != nil {
				fmt.Fprintf(out, "Model: R² %.4f, MAE %.0f on %d held-out videos\n",
					report.Evaluation.R2, report.Evaluation.MAE, report.Evaluation.Rows)
			} else {
				fmt.Fprintln(out, "Model trained without a held-out evaluation")
			}
			return nil
		}),
	}
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline on the configured schedule",
		RunE: withDeps(func(cmd *cobra.Command, d *deps, args []string) error {
			agent := d.agent()
			monitor := monitoring.NewMonitor(d.log)
			s := scheduler.New(d.config.Schedule, agent, monitor, d.log)

			if once, _ := cmd.Flags().GetBool("once"); once {
				if err := agent.Initialize(); err != nil {
					return fmt.Errorf("failed to initialize agent: %w", err)
				}
				if err := s.RunOnce(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), monitor.GetStatusSummary())
				return nil
			}

			if err := s.Start(cmd.Context()); err != nil && cmd.Context().Err() == nil {
				return fmt.Errorf("scheduler failed: %w", err)
			}
			return nil
		}),
	}
	cmd.Flags().Bool("once", false, "run the pipeline once and exit")
	return cmd
}
