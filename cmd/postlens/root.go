package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/postlens/internal/app"
	"github.com/ibeckermayer/postlens/internal/config"
	"github.com/ibeckermayer/postlens/internal/logger"
)

type rootOptions struct {
	configPath string
	jsonOutput bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "postlens",
		Short:         "Analyze what tracked entities post against what they disclose",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default is the user config dir)")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newAnalyzeCmd(opts))
	rootCmd.AddCommand(newLatestPostCmd(opts))
	rootCmd.AddCommand(newInitDBCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newLoginCmd(opts))
	rootCmd.AddCommand(newLogoutCmd(opts))
	rootCmd.AddCommand(newOpenCmd())
	rootCmd.AddCommand(newBotTestCmd())

	return rootCmd
}

// load reads the config, creating a default one on first run, and builds the logger
func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, created, err := config.LoadOrCreate(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	if created {
		path := o.configPath
		if path == "" {
			path, _ = config.ConfigPath()
		}
		log.Info("created default config", zap.String("path", path))
	}
	return cfg, log, nil
}

// withApp opens the application for the duration of fn
func (o *rootOptions) withApp(ctx context.Context, fn func(*app.App) error, appOpts ...app.Option) error {
	cfg, log, err := o.load()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := app.Open(ctx, cfg, log, appOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
	}()

	return fn(a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
