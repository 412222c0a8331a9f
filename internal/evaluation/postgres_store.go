package evaluation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/postgres"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS evaluations (
	run_name        TEXT             NOT NULL,
	k               INTEGER          NOT NULL,
	map_at_k        DOUBLE PRECISION NOT NULL,
	mar_at_k        DOUBLE PRECISION NOT NULL,
	elapsed_seconds DOUBLE PRECISION NOT NULL,
	updated_at      TIMESTAMPTZ      NOT NULL DEFAULT now(),
	PRIMARY KEY (run_name, k)
)`

// PostgresStore mirrors the evaluation log into PostgreSQL.
type PostgresStore struct {
	client *postgres.Client
}

func NewPostgresStore(ctx context.Context, client *postgres.Client) (*PostgresStore, error) {
	if _, err := client.DB.ExecContext(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("creating evaluations table: %w", err)
	}
	return &PostgresStore{client: client}, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, rec Record) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO evaluations (run_name, k, map_at_k, mar_at_k, elapsed_seconds, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (run_name, k) DO UPDATE SET
			   map_at_k = EXCLUDED.map_at_k,
			   mar_at_k = EXCLUDED.mar_at_k,
			   elapsed_seconds = EXCLUDED.elapsed_seconds,
			   updated_at = EXCLUDED.updated_at`,
			rec.RunName, rec.K, rec.MAP, rec.MAR, rec.ElapsedSeconds, rec.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upserting evaluation %s@%d: %w", rec.RunName, rec.K, err)
		}
		return nil
	})
}

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.client.DB.QueryContext(ctx,
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

func (s *PostgresStore) Close() error {
	return s.client.Close()
}
