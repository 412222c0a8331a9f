package executor

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/searcher/query"
)

// phrase scores documents where the query terms occur in order within slop
// positional moves. The phrase frequency of a document feeds the similarity's
// TF; the IDF is the sum of the terms' IDFs.
func (e *Executor) phrase(ctx context.Context, terms []query.Term, slop int) (map[uint32]float64, error) {
	if len(terms) == 1 {
		return e.disjunction(ctx, []string{terms[0].Text})
	}
	texts := make([]string, len(terms))
	for i, t := range terms {
		texts[i] = t.Text
	}
	candidates, err := e.intersect(texts)
	if err != nil {
		return nil, err
	}
	acc := make(map[uint32]float64)
	if candidates.IsEmpty() {
		return acc, nil
	}

	postingsByTerm := make(map[string]index.PostingList, len(terms))
	idfSum := 0.0
	for _, t := range terms {
		postings, ok := postingsByTerm[t.Text]
		if !ok {
			postings, err = e.idx.Postings(t.Text)
			if err != nil {
				return nil, fmt.Errorf("reading postings for %q: %w", t.Text, err)
			}
			postingsByTerm[t.Text] = postings
		}
		idfSum += e.sim.IDF(len(postings), e.stats)
	}

	clauses := make([]phraseClause, len(terms))
	it := candidates.Iterator()
	for it.HasNext() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ord := it.Next()
		for i, t := range terms {
			p := findPosting(postingsByTerm[t.Text], ord)
			clauses[i] = phraseClause{term: t.Text, offset: t.Offset, positions: p.Positions}
		}
		freq := sloppyFreq(clauses, slop)
		if freq == 0 {
			continue
		}
		docLen := e.idx.Doc(ord).Length
		acc[ord] = idfSum * e.sim.TF(freq, docLen, e.stats)
	}
	return acc, nil
}

func findPosting(postings index.PostingList, ord uint32) index.Posting {
	i := sort.Search(len(postings), func(i int) bool {
		return postings[i].Doc >= ord
	})
	if i < len(postings) && postings[i].Doc == ord {
		return postings[i]
	}
	return index.Posting{}
}

type phraseClause struct {
	term      string
	offset    int
	positions []int
	cursor    int
}

func (c *phraseClause) exhausted() bool { return c.cursor >= len(c.positions) }

// adjusted is the current position minus the clause's offset in the query.
// A perfect phrase occurrence has equal adjusted positions for all clauses.
func (c *phraseClause) adjusted() int { return c.positions[c.cursor] - c.offset }

func (c *phraseClause) actual() int { return c.positions[c.cursor] }

// sloppyFreq sums 1/(1+span) over non-overlapping phrase matches, where span
// is the spread of the clauses' adjusted positions and must not exceed slop.
// Clauses with the same term never share a document position.
func sloppyFreq(clauses []phraseClause, slop int) float64 {
	for i := range clauses {
		clauses[i].cursor = 0
		if len(clauses[i].positions) == 0 {
			return 0
		}
	}
	freq := 0.0
	for {
		if !resolveCollisions(clauses) {
			return freq
		}
		lo, hi := window(clauses)
		if hi-clauses[lo].adjusted() > slop {
			clauses[lo].cursor++
			if clauses[lo].exhausted() {
				return freq
			}
			continue
		}
		minimize(clauses, lo, hi)
		lo, hi = window(clauses)
		span := hi - clauses[lo].adjusted()
		freq += 1 / (1 + float64(span))
		for i := range clauses {
			clauses[i].cursor++
			if clauses[i].exhausted() {
				return freq
			}
		}
	}
}

// window returns the index of the clause with the lowest adjusted position
// and the highest adjusted position.
func window(clauses []phraseClause) (int, int) {
	lo, hi := 0, math.MinInt
	for i := range clauses {
		a := clauses[i].adjusted()
		if a < clauses[lo].adjusted() {
			lo = i
		}
		if a > hi {
			hi = a
		}
	}
	return lo, hi
}

// minimize advances the leading clause while its next position stays within
// the window, shrinking the span of the current match.
func minimize(clauses []phraseClause, lo, hi int) {
	for {
		c := &clauses[lo]
		if c.cursor+1 >= len(c.positions) || c.positions[c.cursor+1]-c.offset > hi {
			return
		}
		c.cursor++
		if collides(clauses, lo) {
			c.cursor--
			return
		}
		lo, _ = window(clauses)
	}
}

func collides(clauses []phraseClause, i int) bool {
	for j := range clauses {
		if j != i && clauses[j].term == clauses[i].term && clauses[j].actual() == clauses[i].actual() {
			return true
		}
	}
	return false
}

// resolveCollisions advances clauses that sit on the same document position
// as another clause with the same term. It reports false when a clause runs
// out of positions.
func resolveCollisions(clauses []phraseClause) bool {
	for {
		moved := false
		for i := range clauses {
			for j := i + 1; j < len(clauses); j++ {
				if clauses[i].term != clauses[j].term || clauses[i].actual() != clauses[j].actual() {
					continue
				}
				k := i
				if clauses[j].adjusted() < clauses[i].adjusted() {
					k = j
				}
				clauses[k].cursor++
				if clauses[k].exhausted() {
					return false
				}
				moved = true
			}
		}
		if !moved {
			return true
		}
	}
}
