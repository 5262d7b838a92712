package main

import (
	"bufio"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	browseropts "github.com/ibeckermayer/postlens/internal/browser"
	"github.com/ibeckermayer/postlens/internal/config"
)

func newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "open <config|cache>",
		Short:     "Open the config file or cache directory",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"config", "cache"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			var err error

			switch args[0] {
			case "config":
				path, err = config.ConfigPath()
			case "cache":
				path, err = config.CacheDir()
			}
			if err != nil {
				return fmt.Errorf("failed to get path: %w", err)
			}

			if err := browser.OpenFile(path); err != nil {
				return fmt.Errorf("failed to open: %w", err)
			}
			return nil
		},
	}
}

func newBotTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "bot-test",
		Short:  "Open bot.sannysoft.com to audit the scraper's browser fingerprint",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := browseropts.Options(false) // non-headless so you can see it

			allocCtx, cancel := chromedp.NewExecAllocator(cmd.Context(), opts...)
			defer cancel()

			ctx, cancel := chromedp.NewContext(allocCtx)
			defer cancel()

			if err := chromedp.Run(ctx,
				chromedp.Navigate("https://bot.sannysoft.com"),
				chromedp.WaitVisible("body", chromedp.ByQuery),
			); err != nil {
				return fmt.Errorf("failed to navigate: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Press Enter to close the browser...")
			_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			return nil
		},
	}
}
