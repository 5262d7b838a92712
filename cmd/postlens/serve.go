package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/postlens/internal/app"
	"github.com/ibeckermayer/postlens/internal/scheduler"
	"github.com/ibeckermayer/postlens/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve analyses over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return opts.withApp(ctx, func(a *app.App) error {
				if addr == "" {
					addr = a.Config.Server.Addr
				}
				srv := server.New(addr, a.Pipeline, a.Ping, a.Registry, a.Logger.Named("http"))

				g, ctx := errgroup.WithContext(ctx)
				g.Go(func() error { return srv.Run(ctx) })
				if watch {
					g.Go(func() error { return runWatch(ctx, a) })
				}
				return g.Wait()
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "also run the watch schedule")
	return cmd
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-analyze the configured entities on a schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return opts.withApp(ctx, func(a *app.App) error {
				if once {
					s, err := scheduler.New(a.Config.Watch.Timezone, a.Logger.Named("scheduler"))
					if err != nil {
						return err
					}
					job := scheduler.WatchJob(a.Config.Watch.Entities, a.Pipeline.Analyze, a.Logger.Named("watch"))
					return s.RunNow(ctx, "watch", job)
				}
				return runWatch(ctx, a)
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run one pass now and exit")
	return cmd
}

// runWatch runs the configured schedule until ctx is done
func runWatch(ctx context.Context, a *app.App) error {
	cfg := a.Config.Watch
	s, err := scheduler.New(cfg.Timezone, a.Logger.Named("scheduler"))
	if err != nil {
		return err
	}
	if err := s.AddWatchJob(cfg.Schedule, cfg.Entities, a.Pipeline.Analyze); err != nil {
		return err
	}
	if len(cfg.Entities) == 0 {
		a.Logger.Warn("watch list is empty; set watch.entities in the config")
	}

	s.Start()
	for _, job := range s.ListJobs() {
		a.Logger.Info("next run", zap.String("job", job.Name), zap.Time("at", job.NextRun))
	}

	<-ctx.Done()
	<-s.Stop().Done()
	return nil
}
