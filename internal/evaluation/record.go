package evaluation

import (
	"context"
	"strconv"
	"time"
)

// Record is one row of the evaluation log, keyed by (RunName, K).
type Record struct {
	RunName        string    `json:"run_name"`
	K              int       `json:"k"`
	MAP            float64   `json:"map_at_k"`
	MAR            float64   `json:"mar_at_k"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RecordStore upserts evaluation records: writing an existing key replaces
// its metric and timing values in place.
type RecordStore interface {
	Upsert(ctx context.Context, rec Record) error
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// FormatMetric renders a metric with the shortest exact decimal form.
func FormatMetric(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatElapsed renders a duration in seconds with two decimals.
func FormatElapsed(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 2, 64)
}
