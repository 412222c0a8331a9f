// Package merger orders scored documents and selects the top k.
package merger

import (
	"container/heap"
	"sort"
)

// ScoredDoc is a ranked hit. Ordinal distinguishes documents indexed twice
// under the same DocID.
type ScoredDoc struct {
	DocID   int     `json:"doc_id"`
	Ordinal uint32  `json:"-"`
	Score   float64 `json:"score"`
}

// Before reports whether a ranks ahead of b: higher score first, then lower
// DocID, then lower ordinal.
func Before(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.DocID != b.DocID {
		return a.DocID < b.DocID
	}
	return a.Ordinal < b.Ordinal
}

// Sort orders docs in place by rank.
func Sort(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		return Before(docs[i], docs[j])
	})
}

// TopK returns the k best documents in rank order. k <= 0 returns every
// document.
func TopK(docs []ScoredDoc, k int) []ScoredDoc {
	if k <= 0 || k >= len(docs) {
		out := make([]ScoredDoc, len(docs))
		copy(out, docs)
		Sort(out)
		return out
	}
	h := &scoredDocHeap{}
	heap.Init(h)
	for _, doc := range docs {
		if h.Len() < k {
			heap.Push(h, doc)
			continue
		}
		if Before(doc, (*h)[0]) {
			(*h)[0] = doc
			heap.Fix(h, 0)
		}
	}
	result := make([]ScoredDoc, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(ScoredDoc)
	}
	return result
}

// scoredDocHeap is a min-heap on rank: the root is the worst kept document.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool { return Before(h[j], h[i]) }

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
