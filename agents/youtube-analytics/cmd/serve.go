package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"yt-analytics/shared/api"
	"yt-analytics/shared/logger"
	"yt-analytics/shared/monitoring"
	"yt-analytics/shared/scheduler"
	"yt-analytics/shared/storage"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dataset and predictor over HTTP",
		Long: `Serve the dataset and predictor over HTTP. The published snapshot is
reloaded whenever the dataset or model file changes. With --schedule the
pipeline also runs in-process on the configured schedule.`,
		RunE: withDeps(func(cmd *cobra.Command, d *deps, args []string) error {
			cfg := d.config
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}

			monitor := monitoring.NewMonitor(d.log)
			snapshot := storage.NewSnapshot(
				storage.NewDatasetStore(cfg.Pipeline.DataDir),
				storage.NewModelStore(cfg.Pipeline.OutputDir),
				d.log,
			)
			snapshot.OnReload(func(st *storage.State) {
				monitor.SetDatasetRows(len(st.Dataset))
			})
			if err := snapshot.Reload(); err != nil {
				return fmt.Errorf("failed to load artifacts: %w", err)
			}

			handler := api.NewHandler(snapshot, monitor, cfg.Server.TopN, version)
			server := api.NewServer(cfg.Server.Addr, handler, monitor, d.log, debug)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error { return server.Run(ctx) })
			g.Go(func() error { return snapshot.Watch(ctx, cfg.Server.ReloadDebounce) })

			if schedule, _ := cmd.Flags().GetBool("schedule"); schedule {
				s := scheduler.New(cfg.Schedule, d.agent(), monitor, d.log)
				g.Go(func() error {
					if err := s.Start(ctx); err != nil && ctx.Err() == nil {
						return fmt.Errorf("scheduler failed: %w", err)
					}
					return nil
				})
				d.log.Info("In-process scheduler enabled", logger.String("schedule", cfg.Schedule))
			}

			return g.Wait()
		}),
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	cmd.Flags().Bool("schedule", false, "also run the pipeline on the configured schedule")
	return cmd
}
