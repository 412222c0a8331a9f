// Package pipeline runs the batch retrieval workflow: build or reuse the
// index, rank every query, write the ranking file and record MAP@k and
// MAR@k for each cutoff.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/analysis"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/searcher/similarity"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/tracing"
)

type Pipeline struct {
	cfg       *config.Config
	metrics   *metrics.Metrics
	cache     *cache.QueryCache
	mirror    evaluation.RecordStore
	publisher *evaluation.Publisher
	runID     string
	logger    *slog.Logger
}

type Option func(*Pipeline)

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithCacheStore enables the ranking cache, scoped to the run's index name.
func WithCacheStore(store cache.Store) Option {
	return func(p *Pipeline) {
		p.cache = cache.New(store, p.IndexName(), p.cfg.Redis.CacheTTL)
	}
}

// WithMirror upserts every evaluation record into store after the CSV log.
func WithMirror(store evaluation.RecordStore) Option {
	return func(p *Pipeline) { p.mirror = store }
}

// WithEventWriter publishes the records of each run through w.
func WithEventWriter(w evaluation.EventWriter) Option {
	return func(p *Pipeline) { p.publisher = evaluation.NewPublisher(w, p.runID) }
}

func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		metrics: metrics.New(),
		runID:   uuid.NewString(),
		logger:  logger.WithComponent("pipeline"),
	}
	p.logger = p.logger.With("run_id", p.runID)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) RunID() string {
	return p.runID
}

func (p *Pipeline) Metrics() *metrics.Metrics {
	return p.metrics
}

// IndexName is the directory name of the index for the configured corpus,
// analyzer and similarity.
func (p *Pipeline) IndexName() string {
	return corpus.IndexName(p.cfg.DataDir, p.cfg.Analyzer, p.cfg.Similarity, p.cfg.K1, p.cfg.B)
}

func (p *Pipeline) IndexPath() string {
	return filepath.Join(p.cfg.IndexDir, p.IndexName())
}

func (p *Pipeline) RankingPath() string {
	name := corpus.RankingFileName(p.IndexName(), p.cfg.QueryType, p.cfg.Slop, p.cfg.MaxEdits, p.cfg.Queries)
	return filepath.Join(p.cfg.RankingDir, name)
}

// Report summarises a finished run.
type Report struct {
	RunID       string
	IndexPath   string
	Built       bool
	RankingPath string
	Queries     int
	Records     []evaluation.Record
	Elapsed     time.Duration
}

// Run executes the whole workflow. Elapsed time covers everything up to the
// end of the search phase.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	if err := p.ValidateRun(); err != nil {
		return nil, err
	}
	p.LogOptions()

	ctx, span := tracing.StartSpan(ctx, "pipeline.run", p.runID)
	defer func() {
		span.End()
		span.Log(p.logger)
	}()

	an, err := p.Analyzer()
	if err != nil {
		return nil, err
	}
	idx, built, err := p.BuildOrOpen(ctx, an)
	if err != nil {
		return nil, err
	}
	defer idx.Close()

	n, err := p.Search(ctx, idx, an)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	p.logger.Info("search finished", "elapsed", evaluation.FormatElapsed(elapsed.Seconds()))

	records, err := p.Evaluate(ctx, p.RankingPath(), elapsed)
	if err != nil {
		return nil, err
	}
	p.metrics.RunDurationSeconds.Set(time.Since(start).Seconds())
	p.pushMetrics(ctx)

	return &Report{
		RunID:       p.runID,
		IndexPath:   p.IndexPath(),
		Built:       built,
		RankingPath: p.RankingPath(),
		Queries:     n,
		Records:     records,
		Elapsed:     elapsed,
	}, nil
}

// ValidateRun checks the configuration and input files needed by Run before
// any index or ranking work starts.
func (p *Pipeline) ValidateRun() error {
	if err := p.ValidateIndex(); err != nil {
		return err
	}
	if err := p.ValidateSearch(); err != nil {
		return err
	}
	return p.ValidateEvaluation()
}

func (p *Pipeline) ValidateIndex() error {
	if err := p.cfg.Validate(); err != nil {
		return err
	}
	kind, err := analysis.ParseKind(p.cfg.Analyzer)
	if err != nil {
		return err
	}
	if kind == analysis.EnglishSpacy {
		if err := requireFile(p.cfg.StopwordsFile, "stopwords_file"); err != nil {
			return err
		}
	}
	if _, err := similarity.Parse(p.cfg.Similarity, p.cfg.K1, p.cfg.B); err != nil {
		return err
	}
	return requireDir(p.cfg.DataDir, "data_dir")
}

func (p *Pipeline) ValidateSearch() error {
	if err := p.cfg.RequireSearch(); err != nil {
		return err
	}
	if _, err := query.ParseKind(p.cfg.QueryType); err != nil {
		return err
	}
	if err := p.QueryParams().Validate(); err != nil {
		return err
	}
	return requireFile(p.cfg.Queries, "queries")
}

// ValidateEvaluation checks what scoring a given ranking file needs; it does
// not require data_dir or index_dir.
func (p *Pipeline) ValidateEvaluation() error {
	if err := p.cfg.ValidateOptions(); err != nil {
		return err
	}
	if err := p.cfg.RequireEvaluation(); err != nil {
		return err
	}
	return requireFile(p.cfg.ReferenceFile, "reference_file")
}

func requireFile(path, key string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperrors.Newf(apperrors.ErrNotFound, "%s %s", key, path)
		}
		return fmt.Errorf("checking %s: %w", key, err)
	}
	if info.IsDir() {
		return apperrors.Newf(apperrors.ErrConfiguration, "%s %s is a directory", key, path)
	}
	return nil
}

func requireDir(path, key string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return apperrors.Newf(apperrors.ErrNotFound, "%s %s", key, path)
		}
		return fmt.Errorf("checking %s: %w", key, err)
	}
	if !info.IsDir() {
		return apperrors.Newf(apperrors.ErrConfiguration, "%s %s is not a directory", key, path)
	}
	return nil
}

// LogOptions logs every effective option at startup. k1 and b are only
// logged for bm25.
func (p *Pipeline) LogOptions() {
	attrs := []any{
		"data_dir", p.cfg.DataDir,
		"index_dir", p.cfg.IndexDir,
		"analyzer", p.cfg.Analyzer,
		"similarity", p.cfg.Similarity,
	}
	if strings.EqualFold(p.cfg.Similarity, "bm25") {
		attrs = append(attrs, "k1", p.cfg.K1, "b", p.cfg.B)
	}
	attrs = append(attrs,
		"queries", p.cfg.Queries,
		"ranking_dir", p.cfg.RankingDir,
		"evaluation_file", p.cfg.EvaluationFile,
		"reference_file", p.cfg.ReferenceFile,
		"query_type", p.cfg.QueryType,
		"top_k", p.cfg.TopK,
		"workers", p.cfg.Search.Workers,
	)
	switch p.cfg.QueryType {
	case "phrase":
		attrs = append(attrs, "slop", p.cfg.Slop)
	case "fuzzy":
		attrs = append(attrs,
			"maxEdits", p.cfg.MaxEdits,
			"prefix_length", p.cfg.PrefixLength,
			"max_expansions", p.cfg.MaxExpansions,
		)
	}
	p.logger.Info("pipeline options", attrs...)
}

func (p *Pipeline) pushMetrics(ctx context.Context) {
	if p.cfg.Metrics.PushURL == "" {
		return
	}
	if err := p.metrics.Push(ctx, p.cfg.Metrics.PushURL, p.cfg.Metrics.Job); err != nil {
		p.logger.Warn("metrics push failed", "url", p.cfg.Metrics.PushURL, "error", err)
	}
}
