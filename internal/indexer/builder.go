// Package indexer builds and opens the persisted positional inverted index.
// A Builder is the single writer of an index directory; Close freezes the
// corpus statistics, persists one segment and reopens it read-only.
package indexer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/analysis"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/irbench/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/logger"
)

type Meta = index.Meta

type Builder struct {
	dir      string
	analyzer *analysis.Analyzer
	meta     Meta
	memIndex *index.MemoryIndex
	writer   *segment.Writer
	logger   *slog.Logger
	closed   bool
}

// Begin prepares a build into dir. A non-empty dir is refused with
// ErrAlreadyExists unless overwrite is set, in which case its contents are
// removed first. The analyzer kind is recorded in the index metadata.
func Begin(dir string, an *analysis.Analyzer, meta Meta, overwrite bool) (*Builder, error) {
	if an == nil {
		return nil, apperrors.New(apperrors.ErrConfiguration, "index build requires an analyzer")
	}
	empty, err := IsEmptyDir(dir)
	if err != nil {
		return nil, err
	}
	if !empty {
		if !overwrite {
			return nil, apperrors.Newf(apperrors.ErrAlreadyExists, "index directory %s is not empty", dir)
		}
		if err := clearDir(dir); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	meta.Analyzer = an.Kind().String()
	return &Builder{
		dir:      dir,
		analyzer: an,
		meta:     meta,
		memIndex: index.NewMemoryIndex(),
		writer:   segment.NewWriter(dir),
		logger:   logger.WithComponent("indexer"),
	}, nil
}

// AddDocument analyzes text and appends its postings under a fresh ordinal.
func (b *Builder) AddDocument(docID int, text string) error {
	if b.closed {
		return apperrors.New(apperrors.ErrInternal, "add to closed index builder")
	}
	tokens := b.analyzer.Analyze(text)
	ord := b.memIndex.AddDocument(docID, tokens)
	b.logger.Debug("document indexed in memory",
		"doc_id", docID,
		"ordinal", ord,
		"token_count", len(tokens),
	)
	return nil
}

func (b *Builder) DocCount() int {
	return b.memIndex.DocCount()
}

// Close persists the index and returns it opened for reading. The builder
// cannot be used afterwards.
func (b *Builder) Close() (*Index, error) {
	if b.closed {
		return nil, apperrors.New(apperrors.ErrInternal, "index builder already closed")
	}
	b.closed = true
	b.meta.CreatedAt = time.Now().UTC()

	start := time.Now()
	path, err := b.writer.Write(b.memIndex.Snapshot(), b.memIndex.Docs(), b.meta)
	if err != nil {
		return nil, fmt.Errorf("writing segment: %w", err)
	}
	b.logger.Info("index written",
		"path", path,
		"docs", b.memIndex.DocCount(),
		"terms", b.memIndex.TermCount(),
		"tokens", b.memIndex.TotalLength(),
		"duration", time.Since(start),
	)
	b.memIndex.Reset()
	return Open(b.dir)
}

// IsEmptyDir reports whether dir is missing or has no entries.
func IsEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, fmt.Errorf("reading index directory: %w", err)
	}
	return len(entries) == 0, nil
}

func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading index directory: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("clearing index directory: %w", err)
		}
	}
	return nil
}
