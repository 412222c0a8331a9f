package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/evaluation"
	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
)

const (
	queryIDColumn   = "Query number"
	queryTextColumn = "Query"
	refQueryColumn  = "Query_number"
	refDocColumn    = "doc_number"
)

type Query struct {
	ID   string
	Text string
}

// Ranking is the ordered result list of one query.
type Ranking struct {
	QueryID string
	DocIDs  []int
}

// table is a delimited file with a header row.
type table struct {
	path    string
	columns map[string]int
	rows    [][]string
}

func (t *table) column(name string) (int, error) {
	idx, ok := t.columns[name]
	if !ok {
		return 0, apperrors.Newf(apperrors.ErrFormat, "%s: missing column %q", t.path, name)
	}
	return idx, nil
}

// Delimiter picks the field separator: tab for .tsv files, otherwise tab
// only when the header line has a tab and no comma.
func Delimiter(path, header string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	if strings.Contains(header, "\t") && !strings.Contains(header, ",") {
		return '\t'
	}
	return ','
}

func readTable(path string) (*table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.Newf(apperrors.ErrNotFound, "file %s", path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	text := strings.TrimPrefix(string(data), "\uFEFF")
	header, _, _ := strings.Cut(text, "\n")

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = Delimiter(path, header)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	head, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, apperrors.Newf(apperrors.ErrFormat, "%s: empty file", path)
		}
		return nil, apperrors.Newf(apperrors.ErrFormat, "%s: reading header: %v", path, err)
	}
	t := &table{path: path, columns: make(map[string]int, len(head))}
	for i, name := range head {
		t.columns[strings.TrimSpace(name)] = i
	}
	rows, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrFormat, "%s: %v", path, err)
	}
	t.rows = rows
	return t, nil
}

func field(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// ReadQueries loads the query table, keeping file order.
func ReadQueries(path string) ([]Query, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	idCol, err := t.column(queryIDColumn)
	if err != nil {
		return nil, err
	}
	textCol, err := t.column(queryTextColumn)
	if err != nil {
		return nil, err
	}
	queries := make([]Query, 0, len(t.rows))
	for i, row := range t.rows {
		id := field(row, idCol)
		if id == "" {
			return nil, apperrors.Newf(apperrors.ErrFormat, "%s line %d: empty query number", path, i+2)
		}
		queries = append(queries, Query{ID: id, Text: field(row, textCol)})
	}
	return queries, nil
}

// ReadJudgments loads the relevance judgments.
func ReadJudgments(path string) (evaluation.Judgments, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	return pairs(t, func(j evaluation.Judgments, q string, d int) { j.Add(q, d) })
}

// ReadRankings loads a ranking file, keeping rank order within each query.
func ReadRankings(path string) (map[string][]int, error) {
	t, err := readTable(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]int)
	_, err = pairs(t, func(_ evaluation.Judgments, q string, d int) {
		out[q] = append(out[q], d)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func pairs(t *table, add func(evaluation.Judgments, string, int)) (evaluation.Judgments, error) {
	qCol, err := t.column(refQueryColumn)
	if err != nil {
		return nil, err
	}
	dCol, err := t.column(refDocColumn)
	if err != nil {
		return nil, err
	}
	j := make(evaluation.Judgments)
	for i, row := range t.rows {
		q := field(row, qCol)
		docText := field(row, dCol)
		d, err := strconv.Atoi(docText)
		if err != nil || q == "" {
			return nil, apperrors.Newf(apperrors.ErrFormat, "%s line %d: invalid row %q", t.path, i+2, strings.Join(row, ","))
		}
		add(j, q, d)
	}
	return j, nil
}

// WriteRankings writes the ranking file atomically with one row per
// returned document.
func WriteRankings(path string, rankings []Ranking) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating ranking directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating ranking file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{refQueryColumn, refDocColumn}); err != nil {
		f.Close()
		return fmt.Errorf("writing ranking header: %w", err)
	}
	for _, r := range rankings {
		for _, d := range r.DocIDs {
			if err := w.Write([]string{r.QueryID, strconv.Itoa(d)}); err != nil {
				f.Close()
				return fmt.Errorf("writing ranking row: %w", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing ranking file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing ranking file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming ranking file: %w", err)
	}
	return nil
}
