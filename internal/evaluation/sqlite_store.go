package evaluation

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore mirrors the evaluation log into a SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL: %w", err)
	}
	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluations (
		run_name TEXT NOT NULL,
		k INTEGER NOT NULL,
		map_at_k REAL NOT NULL,
		mar_at_k REAL NOT NULL,
		elapsed_seconds REAL NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (run_name, k)
	);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteStore) Upsert(ctx context.Context, rec Record) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations (run_name, k, map_at_k, mar_at_k, elapsed_seconds, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_name, k) DO UPDATE SET
		   map_at_k = excluded.map_at_k,
		   mar_at_k = excluded.mar_at_k,
		   elapsed_seconds = excluded.elapsed_seconds,
		   updated_at = excluded.updated_at`,
		rec.RunName, rec.K, rec.MAP, rec.MAR, rec.ElapsedSeconds, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting evaluation %s@%d: %w", rec.RunName, rec.K, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_name, k, map_at_k, mar_at_k, elapsed_seconds, updated_at
		 FROM evaluations ORDER BY run_name, k`)
	if err != nil {
		return nil, fmt.Errorf("listing evaluations: %w", err)
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.RunName, &rec.K, &rec.MAP, &rec.MAR, &rec.ElapsedSeconds, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning evaluation row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
