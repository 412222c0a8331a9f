// Package corpus reads and writes the pipeline's files: the document
// directory, the query and judgment tables, and the ranking output.
package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
)

const documentExt = ".txt"

type Document struct {
	ID   int
	Path string
	Text string
}

// DocumentID extracts the numeric id from names like "output_123.txt": the
// text between the first underscore and the following dot.
func DocumentID(name string) (int, error) {
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return 0, apperrors.Newf(apperrors.ErrFormat, "document name %q has no id segment", name)
	}
	idText := strings.Split(parts[1], ".")[0]
	id, err := strconv.Atoi(idText)
	if err != nil {
		return 0, apperrors.Newf(apperrors.ErrFormat, "document name %q: invalid id %q", name, idText)
	}
	return id, nil
}

// ListDocuments returns the .txt files of dir in name order. Other files and
// subdirectories are skipped.
func ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "data directory %s", dir)
		}
		return nil, fmt.Errorf("reading data directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), documentExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// WalkDocuments reads every document of dir and passes it to fn, stopping at
// the first error.
func WalkDocuments(dir string, fn func(Document) error) error {
	names, err := ListDocuments(dir)
	if err != nil {
		return err
	}
	for _, name := range names {
		id, err := DocumentID(name)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading document %s: %w", path, err)
		}
		if err := fn(Document{ID: id, Path: path, Text: string(data)}); err != nil {
			return err
		}
	}
	return nil
}
