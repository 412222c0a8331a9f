package pipeline

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/irbench/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/postgres"
)

// OpenMirror opens the database store selected by evaluation.store. It
// returns nil for "csv", where the CSV log is the only store.
func OpenMirror(ctx context.Context, cfg *config.Config) (evaluation.RecordStore, error) {
	switch cfg.Evaluation.Store {
	case "sqlite":
		store, err := evaluation.NewSQLiteStore(cfg.Evaluation.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		store, err := evaluation.NewPostgresStore(ctx, client)
		if err != nil {
			client.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, nil
	}
}
