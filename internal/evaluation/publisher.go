package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/irbench/pkg/kafka"
)

// EventWriter is satisfied by *kafka.Producer.
type EventWriter interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// RecordEvent is the message published for every persisted record.
type RecordEvent struct {
	EventID     string    `json:"event_id"`
	RunID       string    `json:"run_id"`
	Record      Record    `json:"record"`
	PublishedAt time.Time `json:"published_at"`
}

// Publisher announces evaluation records on a Kafka topic, keyed by run name
// so every cutoff of a run lands on the same partition.
type Publisher struct {
	writer EventWriter
	runID  string
}

func NewPublisher(writer EventWriter, runID string) *Publisher {
	return &Publisher{writer: writer, runID: runID}
}

func (p *Publisher) Publish(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UTC()
	events := make([]kafka.Event, 0, len(records))
	for _, rec := range records {
		id := uuid.NewString()
		events = append(events, kafka.Event{
			Key: rec.RunName,
			Value: RecordEvent{
				EventID:     id,
				RunID:       p.runID,
				Record:      rec,
				PublishedAt: now,
			},
			Headers: map[string]string{"event_id": id},
		})
	}
	if err := p.writer.PublishBatch(ctx, events); err != nil {
		return fmt.Errorf("publishing %d evaluation records: %w", len(records), err)
	}
	return nil
}
