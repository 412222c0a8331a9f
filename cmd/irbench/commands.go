package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/logger"
)

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func validateSearch(p *pipeline.Pipeline) error {
	if err := p.ValidateIndex(); err != nil {
		return err
	}
	return p.ValidateSearch()
}

func newRunCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Build or reuse the index, rank the queries and evaluate the rankings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			p, cleanup, err := a.pipeline(ctx, (*pipeline.Pipeline).ValidateRun)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := p.Run(ctx)
			if err != nil {
				return err
			}
			logger.WithComponent("irbench").Info("run complete",
				"run_id", report.RunID,
				"index", report.IndexPath,
				"built", report.Built,
				"rankings", report.RankingPath,
				"queries", report.Queries,
				"elapsed", report.Elapsed,
			)
			return printRecords(cmd.OutOrStdout(), report.Records)
		},
	}
}

func newIndexCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Build the index for the configured corpus, analyzer and similarity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			p, cleanup, err := a.pipeline(ctx, (*pipeline.Pipeline).ValidateIndex)
			if err != nil {
				return err
			}
			defer cleanup()

			p.LogOptions()
			an, err := p.Analyzer()
			if err != nil {
				return err
			}
			idx, built, err := p.BuildOrOpen(ctx, an)
			if err != nil {
				return err
			}
			defer idx.Close()
			logger.WithComponent("irbench").Info("index ready",
				"index", p.IndexPath(),
				"built", built,
				"docs", idx.DocCount(),
				"terms", idx.TermCount(),
				"avg_doc_length", idx.AvgDocLength(),
			)
			return nil
		},
	}
}

func newSearchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search",
		Short: "Rank the queries file and write the ranking file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			p, cleanup, err := a.pipeline(ctx, validateSearch)
			if err != nil {
				return err
			}
			defer cleanup()

			p.LogOptions()
			an, err := p.Analyzer()
			if err != nil {
				return err
			}
			idx, _, err := p.BuildOrOpen(ctx, an)
			if err != nil {
				return err
			}
			defer idx.Close()
			if _, err := p.Search(ctx, idx, an); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p.RankingPath())
			return err
		},
	}
}

func newEvaluateCommand(a *app) *cobra.Command {
	var rankings string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a ranking file against the reference judgments",
		Long: `evaluate computes MAP@k and MAR@k for every configured cutoff and upserts the
records into the evaluation log. Without --rankings the ranking file of the
configured run is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start := time.Now()
			ctx, stop := signalContext(cmd)
			defer stop()

			// An explicit ranking file needs neither data_dir nor index_dir.
			validate := (*pipeline.Pipeline).ValidateEvaluation
			if rankings == "" {
				validate = func(p *pipeline.Pipeline) error {
					if err := a.cfg.Validate(); err != nil {
						return err
					}
					return p.ValidateEvaluation()
				}
			}
			p, cleanup, err := a.pipeline(ctx, validate)
			if err != nil {
				return err
			}
			defer cleanup()

			path := rankings
			if path == "" {
				path = p.RankingPath()
			}
			records, err := p.Evaluate(ctx, path, time.Since(start))
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().StringVar(&rankings, "rankings", "", "ranking file to evaluate")
	return cmd
}

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check input files, the index directory and the enabled backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			report := pipeline.New(a.cfg).Preflight().Run(ctx)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CHECK\tSTATUS\tLATENCY\tDETAIL")
			for _, c := range report.Components {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, c.Status, c.Latency, c.Message)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if failed := report.Failed(); len(failed) > 0 {
				return fmt.Errorf("%d preflight checks failed", len(failed))
			}
			return nil
		},
	}
}
