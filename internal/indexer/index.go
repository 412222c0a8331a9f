package indexer

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/logger"
)

// Index is a closed, read-only index. All methods are safe for concurrent
// use.
type Index struct {
	reader      *segment.Reader
	docs        []index.DocEntry
	totalLength int64
	avgLength   float64
	logger      *slog.Logger
}

// Open loads the index persisted in dir.
func Open(dir string) (*Index, error) {
	reader, err := segment.OpenReader(filepath.Join(dir, segment.FileName))
	if err != nil {
		return nil, fmt.Errorf("opening index %s: %w", dir, err)
	}
	docs := reader.Docs()
	var total int64
	for _, d := range docs {
		total += int64(d.Length)
	}
	ix := &Index{
		reader:      reader,
		docs:        docs,
		totalLength: total,
		logger:      logger.WithComponent("indexer"),
	}
	if len(docs) > 0 {
		ix.avgLength = float64(total) / float64(len(docs))
	}
	ix.logger.Info("index opened",
		"path", reader.Path(),
		"docs", len(docs),
		"terms", reader.Terms(),
		"analyzer", reader.Meta().Analyzer,
	)
	return ix, nil
}

func (ix *Index) DocCount() int {
	return len(ix.docs)
}

// AvgDocLength is the total number of indexed terms divided by the number of
// documents, or 0 for an empty index.
func (ix *Index) AvgDocLength() float64 {
	return ix.avgLength
}

func (ix *Index) TotalLength() int64 {
	return ix.totalLength
}

// Doc returns the ordinal table row for ord.
func (ix *Index) Doc(ord uint32) index.DocEntry {
	return ix.docs[ord]
}

func (ix *Index) DocFreq(term string) int {
	return ix.reader.DocFreq(term)
}

func (ix *Index) Postings(term string) (index.PostingList, error) {
	return ix.reader.Search(term)
}

func (ix *Index) TermsWithPrefix(prefix string) []string {
	return ix.reader.TermsWithPrefix(prefix)
}

func (ix *Index) TermCount() int {
	return ix.reader.Terms()
}

func (ix *Index) Meta() Meta {
	return ix.reader.Meta()
}

func (ix *Index) Close() error {
	return ix.reader.Close()
}
