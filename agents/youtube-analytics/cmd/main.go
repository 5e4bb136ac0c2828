// Command yt-analytics fetches YouTube search results, builds the analytics
// dataset and view predictor, and serves them from the command line or over
// HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	youtubeanalytics "yt-analytics/agents/youtube-analytics"
	"yt-analytics/shared/config"
	"yt-analytics/shared/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile string
	debug   bool
)

// deps is what every command needs.
type deps struct {
	config *config.Config
	log    logger.Logger
}

func loadDeps() (*deps, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg := logger.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development}
	if debug {
		logCfg.Level = "debug"
		logCfg.Development = true
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, err
	}
	return &deps{config: cfg, log: log}, nil
}

func (d *deps) agent(opts ...youtubeanalytics.Option) *youtubeanalytics.AnalyticsAgent {
	return youtubeanalytics.NewAnalyticsAgent(d.config, d.log, opts...)
}

// withDeps adapts a command body that needs configuration and a logger.
func withDeps(run func(cmd *cobra.Command, d *deps, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps()
		if err != nil {
			return err
		}
		defer func() { _ = d.log.Sync() }()
		return run(cmd, d, args)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "yt-analytics",
		Short:         "YouTube search analytics and view prediction",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CONFIG_FILE or ./config.yaml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newFetchCommand(),
		newCleanCommand(),
		newSentimentCommand(),
		newKeywordsCommand(),
		newTrainCommand(),
		newBuildCommand(),
		newRunCommand(),
		newQueryCommand(),
		newTrendingCommand(),
		newPredictCommand(),
		newExportCommand(),
		newServeCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "yt-analytics %s\n", version)
			},
		},
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
