// Package executor matches analyzed queries against a closed index and
// scores the matches with a pluggable similarity.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/searcher/similarity"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/logger"
)

// Index is the read side of a closed index.
type Index interface {
	DocCount() int
	AvgDocLength() float64
	Doc(ord uint32) index.DocEntry
	DocFreq(term string) int
	Postings(term string) (index.PostingList, error)
	TermsWithPrefix(prefix string) []string
}

type SearchResult struct {
	Query     string             `json:"query"`
	Kind      string             `json:"kind"`
	TotalHits int                `json:"total_hits"`
	Results   []merger.ScoredDoc `json:"results"`
}

type Executor struct {
	idx    Index
	sim    similarity.Similarity
	stats  similarity.CorpusStats
	logger *slog.Logger
}

func New(idx Index, sim similarity.Similarity) *Executor {
	return &Executor{
		idx: idx,
		sim: sim,
		stats: similarity.CorpusStats{
			DocCount:     idx.DocCount(),
			AvgDocLength: idx.AvgDocLength(),
		},
		logger: logger.WithComponent("query-executor"),
	}
}

// Execute runs q and returns at most topK hits in rank order; topK <= 0
// returns every hit.
func (e *Executor) Execute(ctx context.Context, q *query.Query, topK int) (*SearchResult, error) {
	result := &SearchResult{
		Query:   q.Raw,
		Kind:    q.Kind.String(),
		Results: []merger.ScoredDoc{},
	}
	if len(q.Terms) == 0 || e.stats.DocCount == 0 {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		scores map[uint32]float64
		err    error
	)
	switch q.Kind {
	case query.FreeText:
		scores, err = e.disjunction(ctx, q.TermTexts())
	case query.BooleanAnd:
		scores, err = e.conjunction(ctx, q.TermTexts())
	case query.Phrase:
		scores, err = e.phrase(ctx, q.Terms, q.Params.Slop)
	case query.Fuzzy:
		scores, err = e.fuzzy(ctx, q.TermTexts(), q.Params)
	default:
		return nil, fmt.Errorf("unsupported query kind %s", q.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("executing %s query %q: %w", q.Kind, q.Raw, err)
	}

	hits := make([]merger.ScoredDoc, 0, len(scores))
	for ord, score := range scores {
		hits = append(hits, merger.ScoredDoc{
			DocID:   e.idx.Doc(ord).DocID,
			Ordinal: ord,
			Score:   score,
		})
	}
	result.TotalHits = len(hits)
	result.Results = merger.TopK(hits, topK)
	e.logger.Debug("query executed",
		"query", q.Raw,
		"kind", q.Kind.String(),
		"terms", q.TermTexts(),
		"hits", result.TotalHits,
		"returned", len(result.Results),
	)
	return result, nil
}

// termScores scores every posting of term. A missing term yields nil.
func (e *Executor) termScores(term string) (index.PostingList, []float64, error) {
	postings, err := e.idx.Postings(term)
	if err != nil {
		return nil, nil, fmt.Errorf("reading postings for %q: %w", term, err)
	}
	if len(postings) == 0 {
		return nil, nil, nil
	}
	df := len(postings)
	scores := make([]float64, len(postings))
	for i, p := range postings {
		docLen := e.idx.Doc(p.Doc).Length
		scores[i] = similarity.Score(e.sim, df, float64(p.Frequency), docLen, e.stats)
	}
	return postings, scores, nil
}

func (e *Executor) disjunction(ctx context.Context, terms []string) (map[uint32]float64, error) {
	acc := make(map[uint32]float64)
	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		postings, scores, err := e.termScores(term)
		if err != nil {
			return nil, err
		}
		for i, p := range postings {
			acc[p.Doc] += scores[i]
		}
	}
	return acc, nil
}

func (e *Executor) conjunction(ctx context.Context, terms []string) (map[uint32]float64, error) {
	candidates, err := e.intersect(terms)
	if err != nil {
		return nil, err
	}
	acc := make(map[uint32]float64)
	if candidates.IsEmpty() {
		return acc, nil
	}
	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		postings, scores, err := e.termScores(term)
		if err != nil {
			return nil, err
		}
		for i, p := range postings {
			if candidates.Contains(p.Doc) {
				acc[p.Doc] += scores[i]
			}
		}
	}
	return acc, nil
}

// intersect returns the ordinals containing every term. The smallest
// document sets are intersected first.
func (e *Executor) intersect(terms []string) (*roaring.Bitmap, error) {
	seen := make(map[string]struct{}, len(terms))
	sets := make([]*roaring.Bitmap, 0, len(terms))
	for _, term := range terms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		postings, err := e.idx.Postings(term)
		if err != nil {
			return nil, fmt.Errorf("reading postings for %q: %w", term, err)
		}
		if len(postings) == 0 {
			return roaring.New(), nil
		}
		sets = append(sets, docSet(postings))
	}
	sort.Slice(sets, func(i, j int) bool {
		return sets[i].GetCardinality() < sets[j].GetCardinality()
	})
	if len(sets) == 1 {
		return sets[0], nil
	}
	return roaring.FastAnd(sets...), nil
}

func docSet(postings index.PostingList) *roaring.Bitmap {
	bm := roaring.New()
	for _, p := range postings {
		bm.Add(p.Doc)
	}
	return bm
}
