package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/postlens/internal/app"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to x.com in a browser and store the session for the browser backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := opts.load()
			if err != nil {
				return err
			}
			manager, cookies, err := app.NewAuthManager(log)
			if err != nil {
				return err
			}
			if manager.IsAuthenticated() && !force {
				fmt.Fprintf(cmd.OutOrStdout(), "Already logged in (%s). Use --force to log in again.\n", cookies.Path())
				return nil
			}
			if err := manager.Login(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session saved to %s\n", cookies.Path())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "log in even when a valid session is stored")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored x.com session",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := opts.load()
			if err != nil {
				return err
			}
			manager, _, err := app.NewAuthManager(log)
			if err != nil {
				return err
			}
			if err := manager.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}
