package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ibeckermayer/postlens/internal/app"
)

func newInitDBCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the entity, disclosure and post tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			st, err := app.OpenStore(cfg.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Bootstrap(cmd.Context()); err != nil {
				return err
			}
			log.Info("schema applied", zap.String("driver", cfg.Database.Driver))
			fmt.Fprintln(cmd.OutOrStdout(), "Database ready.")
			return nil
		},
	}
}
