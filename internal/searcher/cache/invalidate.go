package cache

import (
	"context"
	"fmt"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/logger"
)

// HandleIndexComplete returns a kafka.MessageHandler that drops the cached
// results of the index named in each index.complete event. Results ranked
// against the previous build would otherwise outlive it by up to the TTL.
func HandleIndexComplete(store Store, opts ...Option) kafka.MessageHandler {
	log := logger.WithComponent("cache-invalidator")
	return func(ctx context.Context, key, value []byte) error {
		event, err := kafka.DecodeJSON[indexer.IndexCompleteEvent](value)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
		}
		if event.IndexName == "" {
			return fmt.Errorf("%w: index.complete event %s has no index name", apperrors.ErrInvalidInput, event.RunID)
		}
		c := New(store, 0, append(slices.Clip(opts), WithIndexName(event.IndexName))...)
		deleted, err := c.Invalidate(ctx)
		if err != nil {
			return err
		}
		log.Info("index rebuilt, cached results dropped",
			"index", event.IndexName,
			"run_id", event.RunID,
			"keys_deleted", deleted,
		)
		return nil
	}
}
