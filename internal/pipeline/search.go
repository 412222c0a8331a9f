package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/analysis"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/searcher/similarity"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/tracing"
)

const (
	cacheDisabled = "disabled"
	cacheHit      = "hit"
	cacheMiss     = "miss"
)

func (p *Pipeline) QueryParams() query.Params {
	return query.Params{
		Slop:          p.cfg.Slop,
		MaxEdits:      p.cfg.MaxEdits,
		PrefixLength:  p.cfg.PrefixLength,
		MaxExpansions: p.cfg.MaxExpansions,
	}
}

// Search ranks every query of the queries file against idx and writes the
// ranking file. It returns the number of queries read.
func (p *Pipeline) Search(ctx context.Context, idx *indexer.Index, an *analysis.Analyzer) (int, error) {
	ctx, span := tracing.StartChildSpan(ctx, "search")
	defer span.End()

	kind, err := query.ParseKind(p.cfg.QueryType)
	if err != nil {
		return 0, err
	}
	sim, err := similarity.Parse(p.cfg.Similarity, p.cfg.K1, p.cfg.B)
	if err != nil {
		return 0, err
	}
	queries, err := corpus.ReadQueries(p.cfg.Queries)
	if err != nil {
		return 0, err
	}
	params := p.QueryParams()
	exec := executor.New(idx, sim)

	rankings := make([]corpus.Ranking, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.cfg.Search.Workers, 1))
	for i, q := range queries {
		g.Go(func() error {
			docIDs, err := p.rank(gctx, exec, q, kind, params, an)
			if err != nil {
				return err
			}
			rankings[i] = corpus.Ranking{QueryID: q.ID, DocIDs: docIDs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	path := p.RankingPath()
	if err := corpus.WriteRankings(path, rankings); err != nil {
		return 0, err
	}
	span.SetAttr("queries", len(queries))
	span.SetAttr("kind", kind.String())
	p.logger.Info("rankings written", "path", path, "queries", len(queries), "query_type", kind.String())
	return len(queries), nil
}

func (p *Pipeline) rank(
	ctx context.Context,
	exec *executor.Executor,
	q corpus.Query,
	kind query.Kind,
	params query.Params,
	an *analysis.Analyzer,
) ([]int, error) {
	start := time.Now()
	built, err := query.Build(q.Text, kind, params, an)
	if err != nil {
		p.metrics.SearchQueriesTotal.WithLabelValues(kind.String(), "error").Inc()
		return nil, fmt.Errorf("building query %s: %w", q.ID, err)
	}

	compute := func() (*executor.SearchResult, error) {
		return exec.Execute(ctx, built, p.cfg.TopK)
	}
	var (
		result *executor.SearchResult
		status = cacheDisabled
	)
	if p.cache != nil {
		var hit bool
		result, hit, err = p.cache.GetOrCompute(ctx, built, p.cfg.TopK, compute)
		if hit {
			status = cacheHit
			p.metrics.CacheHitsTotal.Inc()
		} else {
			status = cacheMiss
			p.metrics.CacheMissesTotal.Inc()
		}
	} else {
		result, err = compute()
	}
	if err != nil {
		p.metrics.SearchQueriesTotal.WithLabelValues(kind.String(), "error").Inc()
		return nil, fmt.Errorf("searching query %s: %w", q.ID, err)
	}

	p.metrics.SearchLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
	p.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
	resultType := "hit"
	if len(result.Results) == 0 {
		resultType = "zero_result"
		p.logger.Debug("query matched nothing", "query_id", q.ID, "query", q.Text)
	}
	p.metrics.SearchQueriesTotal.WithLabelValues(kind.String(), resultType).Inc()

	docIDs := make([]int, len(result.Results))
	for i, r := range result.Results {
		docIDs[i] = r.DocID
	}
	return docIDs, nil
}
