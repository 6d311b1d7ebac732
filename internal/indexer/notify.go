package indexer

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/kafka"
)

// IndexCompleteEvent announces a finished global index.
type IndexCompleteEvent struct {
	RunID         string    `json:"run_id"`
	IndexName     string    `json:"index_name"`
	OutputDir     string    `json:"output_dir"`
	Codec         string    `json:"codec"`
	Blocks        int       `json:"blocks"`
	Documents     int       `json:"documents"`
	Terms         int       `json:"terms"`
	PostingsBytes int64     `json:"postings_bytes"`
	CompletedAt   time.Time `json:"completed_at"`
	DurationMS    int64     `json:"duration_ms"`
}

// Notifier is told about every successful run.
type Notifier interface {
	IndexComplete(ctx context.Context, event IndexCompleteEvent) error
}

// Publisher is the part of *kafka.Producer the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// KafkaNotifier publishes IndexCompleteEvents keyed by index name, so every
// event for one index lands on the same partition in order.
type KafkaNotifier struct {
	publisher Publisher
}

func NewKafkaNotifier(p Publisher) *KafkaNotifier {
	return &KafkaNotifier{publisher: p}
}

func (n *KafkaNotifier) IndexComplete(ctx context.Context, event IndexCompleteEvent) error {
	return n.publisher.Publish(ctx, kafka.Event{
		Key:   event.IndexName,
		Value: event,
	})
}
