package executor

import (
	"context"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/searcher/query"
)

type expansion struct {
	term     string
	distance int
	boost    float64
}

// expand lists the dictionary terms within params.MaxEdits of term that share
// its first params.PrefixLength runes, closest first, capped at
// params.MaxExpansions.
func (e *Executor) expand(term string, params query.Params) []expansion {
	runes := []rune(term)
	prefixLen := min(params.PrefixLength, len(runes))
	prefix := string(runes[:prefixLen])

	out := make([]expansion, 0)
	for _, candidate := range e.idx.TermsWithPrefix(prefix) {
		cr := []rune(candidate)
		d := boundedLevenshtein(runes, cr, params.MaxEdits)
		if d > params.MaxEdits {
			continue
		}
		shorter := min(len(runes), len(cr))
		if d > 0 && d >= shorter {
			continue
		}
		boost := 1.0
		if d > 0 {
			boost = 1 - float64(d)/float64(shorter)
		}
		out = append(out, expansion{term: candidate, distance: d, boost: boost})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].distance != out[j].distance {
			return out[i].distance < out[j].distance
		}
		return out[i].term < out[j].term
	})
	if len(out) > params.MaxExpansions {
		out = out[:params.MaxExpansions]
	}
	return out
}

// fuzzy combines the query terms disjunctively. Each term contributes, per
// document, the best boosted score among its expansions.
func (e *Executor) fuzzy(ctx context.Context, terms []string, params query.Params) (map[uint32]float64, error) {
	acc := make(map[uint32]float64)
	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		best := make(map[uint32]float64)
		for _, exp := range e.expand(term, params) {
			postings, scores, err := e.termScores(exp.term)
			if err != nil {
				return nil, err
			}
			for i, p := range postings {
				s := exp.boost * scores[i]
				if cur, ok := best[p.Doc]; !ok || s > cur {
					best[p.Doc] = s
				}
			}
		}
		for ord, s := range best {
			acc[ord] += s
		}
	}
	return acc, nil
}
