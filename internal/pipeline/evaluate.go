package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/tracing"
)

const csvSink = "csv"

// Evaluate scores the ranking file at rankingPath against the reference
// judgments for every configured cutoff and upserts one record per cutoff.
// The run name is the ranking file's base name.
func (p *Pipeline) Evaluate(ctx context.Context, rankingPath string, elapsed time.Duration) ([]evaluation.Record, error) {
	ctx, span := tracing.StartChildSpan(ctx, "evaluate")
	defer span.End()

	judgments, err := corpus.ReadJudgments(p.cfg.ReferenceFile)
	if err != nil {
		return nil, err
	}
	results, err := corpus.ReadRankings(rankingPath)
	if err != nil {
		return nil, err
	}
	runName := filepath.Base(rankingPath)

	stores := []evaluation.RecordStore{}
	if p.mirror != nil {
		stores = append(stores, p.mirror)
	}
	store := evaluation.NewMultiStore(evaluation.NewCSVStore(p.cfg.EvaluationFile), stores...)

	now := time.Now().UTC()
	records := make([]evaluation.Record, 0, len(p.cfg.Cutoffs))
	for _, k := range p.cfg.Cutoffs {
		res := evaluation.Evaluate(results, judgments, k)
		rec := evaluation.Record{
			RunName:        runName,
			K:              k,
			MAP:            res.MAP,
			MAR:            res.MAR,
			ElapsedSeconds: elapsed.Seconds(),
			UpdatedAt:      now,
		}
		if err := store.Upsert(ctx, rec); err != nil {
			return nil, err
		}
		p.metrics.StorePublishedTotal.WithLabelValues(csvSink).Inc()
		if p.mirror != nil {
			p.metrics.StorePublishedTotal.WithLabelValues(p.cfg.Evaluation.Store).Inc()
		}
		p.metrics.ObserveEvaluation(runName, k, res.MAP, res.MAR)
		p.logger.Info("evaluation",
			"run", runName,
			"k", k,
			"map", evaluation.FormatMetric(res.MAP),
			"mar", evaluation.FormatMetric(res.MAR),
			"queries", len(results),
		)
		records = append(records, rec)
	}
	span.SetAttr("run", runName)
	span.SetAttr("cutoffs", len(records))

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, records); err != nil {
			return nil, err
		}
		p.metrics.StorePublishedTotal.WithLabelValues("kafka").Add(float64(len(records)))
	}
	return records, nil
}
