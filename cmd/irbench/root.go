package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/irbench/pkg/redis"
)

// app carries the configuration loaded by the root command to the
// subcommands.
type app struct {
	configPath string
	cfg        *config.Config
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "irbench",
		Short: "Batch retrieval and evaluation pipeline",
		Long: `irbench indexes a directory of plain-text documents, ranks a file of queries
against the index with BM25 or classic TF-IDF scoring, and records MAP@k and
MAR@k against relevance judgments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, cfg); err != nil {
				return err
			}
			logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
			a.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file path")
	registerFlags(root)

	root.AddCommand(newRunCommand(a))
	root.AddCommand(newIndexCommand(a))
	root.AddCommand(newSearchCommand(a))
	root.AddCommand(newEvaluateCommand(a))
	root.AddCommand(newCheckCommand(a))
	return root
}

// pipeline checks the configuration with validate and then wires the optional
// infrastructure it selects into a new pipeline. No backend is contacted
// when validation fails. The returned function releases the backends.
func (a *app) pipeline(ctx context.Context, validate func(*pipeline.Pipeline) error) (*pipeline.Pipeline, func(), error) {
	if err := validate(pipeline.New(a.cfg)); err != nil {
		return nil, nil, err
	}
	log := logger.WithComponent("irbench")
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	m := metrics.New()
	opts := []pipeline.Option{pipeline.WithMetrics(m)}
	if a.cfg.Metrics.Enabled {
		shutdown := m.StartServer(a.cfg.Metrics.Port)
		closers = append(closers, func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn("metrics server shutdown", "error", err)
			}
		})
	}

	if a.cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, a.cfg.Redis)
		if err != nil {
			log.Warn("ranking cache disabled", "addr", a.cfg.Redis.Addr, "error", err)
		} else {
			opts = append(opts, pipeline.WithCacheStore(client))
			closers = append(closers, func() { client.Close() })
		}
	}

	mirror, err := pipeline.OpenMirror(ctx, a.cfg)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("opening %s evaluation store: %w", a.cfg.Evaluation.Store, err)
	}
	if mirror != nil {
		opts = append(opts, pipeline.WithMirror(mirror))
		closers = append(closers, func() {
			if err := mirror.Close(); err != nil {
				log.Warn("closing evaluation store", "error", err)
			}
		})
	}

	if a.cfg.Kafka.Enabled {
		producer := kafka.NewProducer(a.cfg.Kafka)
		opts = append(opts, pipeline.WithEventWriter(producer))
		closers = append(closers, func() {
			if err := producer.Close(); err != nil {
				log.Warn("closing kafka producer", "error", err)
			}
		})
	}

	return pipeline.New(a.cfg, opts...), cleanup, nil
}

func printRecords(w io.Writer, records []evaluation.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tK\tMAP@K\tMAR@K\tTIME(S)")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			r.RunName, r.K,
			evaluation.FormatMetric(r.MAP),
			evaluation.FormatMetric(r.MAR),
			evaluation.FormatElapsed(r.ElapsedSeconds),
		)
	}
	return tw.Flush()
}
