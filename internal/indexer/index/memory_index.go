package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/analysis"
)

// MemoryIndex accumulates postings while an index is being built. Ordinals
// are handed out in insertion order, so every posting list stays sorted
// without a final sort.
type MemoryIndex struct {
	mu          sync.RWMutex
	index       map[string]PostingList
	docs        []DocEntry
	totalLength int64
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		index: make(map[string]PostingList),
	}
}

// AddDocument appends the analyzed tokens of one document and returns the
// ordinal assigned to it. A repeated docID gets a fresh ordinal.
func (m *MemoryIndex) AddDocument(docID int, tokens []analysis.Token) uint32 {
	termData := make(map[string]*Posting)
	order := make([]string, 0, len(tokens))
	for _, token := range tokens {
		p, exists := termData[token.Term]
		if !exists {
			p = &Posting{Positions: make([]int, 0, 4)}
			termData[token.Term] = p
			order = append(order, token.Term)
		}
		p.Frequency++
		p.Positions = append(p.Positions, token.Position)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ord := uint32(len(m.docs))
	m.docs = append(m.docs, DocEntry{DocID: docID, Length: len(tokens)})
	m.totalLength += int64(len(tokens))
	for _, term := range order {
		posting := termData[term]
		posting.Doc = ord
		m.index[term] = append(m.index[term], *posting)
	}
	return ord
}

// Snapshot returns every term with its postings, sorted by term.
func (m *MemoryIndex) Snapshot() []TermEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]TermEntry, 0, len(m.index))
	for term, postings := range m.index {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

func (m *MemoryIndex) Search(term string) PostingList {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index[term]
}

// Docs returns a copy of the ordinal table.
func (m *MemoryIndex) Docs() []DocEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]DocEntry, len(m.docs))
	copy(docs, m.docs)
	return docs
}

func (m *MemoryIndex) DocCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func (m *MemoryIndex) TermCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index)
}

func (m *MemoryIndex) TotalLength() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalLength
}

func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = make(map[string]PostingList)
	m.docs = nil
	m.totalLength = 0
}
