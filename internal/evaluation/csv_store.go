package evaluation

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/irbench/pkg/errors"
)

var csvHeader = []string{"run_name", "k", "MAP@K", "MAR@K", "time(s)"}

// CSVStore keeps the evaluation log in a CSV file. Every upsert rewrites
// the file through a temporary file and a rename.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) Path() string {
	return s.path
}

func (s *CSVStore) Upsert(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRows()
	if err != nil {
		return err
	}
	if len(rows) == 0 || !isHeader(rows[0]) {
		rows = append([][]string{csvHeader}, rows...)
	}
	row := []string{
		rec.RunName,
		strconv.Itoa(rec.K),
		FormatMetric(rec.MAP),
		FormatMetric(rec.MAR),
		FormatElapsed(rec.ElapsedSeconds),
	}
	updated := false
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) < 2 || rows[i][0] != rec.RunName {
			continue
		}
		k, err := strconv.Atoi(rows[i][1])
		if err != nil {
			return apperrors.Newf(apperrors.ErrFormat, "%s line %d: invalid k %q", s.path, i+1, rows[i][1])
		}
		if k == rec.K {
			rows[i] = row
			updated = true
			break
		}
	}
	if !updated {
		rows = append(rows, row)
	}
	return s.writeRows(rows)
}

func (s *CSVStore) List(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readRows()
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrFormat, "%s line %d: %v", s.path, i+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *CSVStore) Close() error {
	return nil
}

func (s *CSVStore) readRows() ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening evaluation file: %w", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrFormat, "reading evaluation file %s: %v", s.path, err)
	}
	return rows, nil
}

func (s *CSVStore) writeRows(rows [][]string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating evaluation directory: %w", err)
		}
	}
	tmpPath := s.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp evaluation file: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("writing evaluation file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing evaluation file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming evaluation file: %w", err)
	}
	return nil
}

func isHeader(row []string) bool {
	if len(row) != len(csvHeader) {
		return false
	}
	for i := range row {
		if row[i] != csvHeader[i] {
			return false
		}
	}
	return true
}

func parseRow(row []string) (Record, error) {
	if len(row) != len(csvHeader) {
		return Record{}, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(row))
	}
	k, err := strconv.Atoi(row[1])
	if err != nil {
		return Record{}, fmt.Errorf("invalid k %q", row[1])
	}
	values := make([]float64, 3)
	for i, col := range row[2:] {
		v, err := strconv.ParseFloat(col, 64)
		if err != nil {
			return Record{}, fmt.Errorf("invalid %s %q", csvHeader[i+2], col)
		}
		values[i] = v
	}
	return Record{
		RunName:        row[0],
		K:              k,
		MAP:            values[0],
		MAR:            values[1],
		ElapsedSeconds: values[2],
	}, nil
}
