package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/analysis"
	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/tracing"
)

const defaultStopwordSource = "default"

// Analyzer builds the configured analyzer. english_spacy reads its stopword
// list from stopwords_file.
func (p *Pipeline) Analyzer() (*analysis.Analyzer, error) {
	kind, err := analysis.ParseKind(p.cfg.Analyzer)
	if err != nil {
		return nil, err
	}
	var opts analysis.Options
	if kind == analysis.EnglishSpacy {
		words, err := analysis.LoadStopwordFile(p.cfg.StopwordsFile)
		if err != nil {
			return nil, err
		}
		opts.Stopwords = words
	}
	return analysis.New(kind, opts)
}

func (p *Pipeline) stopwordSource(kind analysis.Kind) string {
	if kind == analysis.EnglishSpacy {
		return p.cfg.StopwordsFile
	}
	return defaultStopwordSource
}

// BuildOrOpen reuses a non-empty index directory unless overwrite is set,
// otherwise it indexes the corpus. The boolean reports whether a build ran.
func (p *Pipeline) BuildOrOpen(ctx context.Context, an *analysis.Analyzer) (*indexer.Index, bool, error) {
	dir := p.IndexPath()
	empty, err := indexer.IsEmptyDir(dir)
	if err != nil {
		return nil, false, err
	}
	if !empty && !p.cfg.Overwrite {
		p.logger.Info("index directory exists, skipping indexing", "dir", dir)
		idx, err := indexer.Open(dir)
		if err != nil {
			return nil, false, err
		}
		if got, want := idx.Meta().Analyzer, an.Kind().String(); got != want {
			idx.Close()
			return nil, false, apperrors.Newf(apperrors.ErrConfiguration,
				"index %s was built with analyzer %q, configured %q", dir, got, want)
		}
		if got, want := idx.Meta().Stopwords, p.stopwordSource(an.Kind()); got != want {
			idx.Close()
			return nil, false, apperrors.Newf(apperrors.ErrConfiguration,
				"index %s was built with stopwords %q, configured %q", dir, got, want)
		}
		p.metrics.IndexTerms.Set(float64(idx.TermCount()))
		return idx, false, nil
	}

	idx, err := p.Build(ctx, an)
	if err != nil {
		return nil, false, err
	}
	if !empty && p.cache != nil {
		if err := p.cache.Invalidate(ctx); err != nil {
			p.logger.Warn("ranking cache not invalidated after rebuild", "error", err)
		}
	}
	return idx, true, nil
}

// Build indexes every document of data_dir into the index directory,
// replacing its contents when overwrite is set.
func (p *Pipeline) Build(ctx context.Context, an *analysis.Analyzer) (*indexer.Index, error) {
	ctx, span := tracing.StartChildSpan(ctx, "index.build")
	defer span.End()

	dir := p.IndexPath()
	meta := indexer.Meta{
		Stopwords:  p.stopwordSource(an.Kind()),
		Similarity: p.cfg.Similarity,
		K1:         p.cfg.K1,
		B:          p.cfg.B,
		Corpus:     p.cfg.DataDir,
	}
	builder, err := indexer.Begin(dir, an, meta, p.cfg.Overwrite)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	p.logger.Info("indexing directory", "data_dir", p.cfg.DataDir, "index", dir)
	err = corpus.WalkDocuments(p.cfg.DataDir, func(doc corpus.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := builder.AddDocument(doc.ID, doc.Text); err != nil {
			return fmt.Errorf("indexing %s: %w", doc.Path, err)
		}
		p.metrics.DocsIndexedTotal.Inc()
		return nil
	})
	if err != nil {
		return nil, err
	}
	docs := builder.DocCount()

	idx, err := builder.Close()
	if err != nil {
		return nil, err
	}
	duration := time.Since(start)
	p.metrics.IndexBuildDuration.Observe(duration.Seconds())
	p.metrics.IndexTerms.Set(float64(idx.TermCount()))
	span.SetAttr("docs", docs)
	span.SetAttr("terms", idx.TermCount())
	p.logger.Info("indexing complete", "index", dir, "docs", docs, "duration", duration)
	return idx, nil
}
