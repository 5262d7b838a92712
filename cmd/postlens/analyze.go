package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/postlens/internal/app"
	"github.com/ibeckermayer/postlens/internal/types"
)

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <entity-id>",
		Short: "Analyze the entity's latest post, using the cache when fresh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				result, err := a.Pipeline.Analyze(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), result)
				}
				printResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
}

func newLatestPostCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "latest-post <entity-id>",
		Short: "Fetch and store the entity's latest post without analyzing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				post, err := a.Pipeline.LatestPost(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if opts.jsonOutput {
					return writeJSON(cmd.OutOrStdout(), post)
				}
				if post == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No eligible posts.")
					return nil
				}
				printPost(cmd.OutOrStdout(), *post)
				return nil
			}, app.WithLazyAnalysis())
		},
	}
}

func printPost(w io.Writer, p types.SocialPost) {
	fmt.Fprintf(w, "%s post %s (%s)\n", p.Platform, p.PostID, p.CreatedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(p.Text, "\n", "\n  "))
	fmt.Fprintf(w, "  likes %d  reposts %d  replies %d\n", p.Metrics.Likes, p.Metrics.Reposts, p.Metrics.Replies)
}

func printResult(w io.Writer, r *types.AnalysisResult) {
	printPost(w, r.Post)
	fmt.Fprintf(w, "\nGenerated %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	if r.Report == nil {
		fmt.Fprintln(w, r.RawAnalysisText)
		return
	}

	sections := []struct {
		title, body string
	}{
		{"Classification", r.Report.Classification},
		{"Summary", r.Report.Summary},
		{"Evaluation", r.Report.Evaluation},
		{"Financial Connections", r.Report.FinancialConnections},
		{"Legal Relevance", r.Report.LegalRelevance},
		{"Supportive Reply", r.Report.SupportiveReply},
		{"Critical Reply", r.Report.CriticalReply},
	}
	fmt.Fprintf(w, "Sentiment: %s\n\n", r.Report.Sentiment)
	for _, s := range sections {
		fmt.Fprintf(w, "%s\n%s\n\n", s.title, s.body)
	}
}
