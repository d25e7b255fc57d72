package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jobmate/catalog-service/internal/model"
)

// BulkResult reports per-item outcomes of a bulk load. Earlier batches are
// never rolled back by later failures.
type BulkResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// BulkLoader creates many postings with one permission check.
type BulkLoader struct {
	remote    JobRepository
	cache     *LocalCache
	gate      Gate
	events    Publisher
	batchSize int
	now       func() time.Time
	metrics   Recorder
	logger    *slog.Logger
}

// Load creates a posting per input. Batches the remote store rejects are
// written record by record to the cache instead.
func (b *BulkLoader) Load(ctx context.Context, inputs []model.JobInput) (BulkResult, error) {
	if !b.gate.CanMutate(ctx) {
		return BulkResult{}, ErrPermissionDenied
	}
	actor := b.gate.Actor(ctx)
	now := b.now()

	recs := make([]model.JobRecord, len(inputs))
	for i, in := range inputs {
		recs[i] = model.NewJobRecord(in, actor, now)
	}

	res := BulkResult{Errors: []string{}}
	for _, batch := range Batches(recs, b.batchSize) {
		err := b.remote.BulkCreate(ctx, batch)
		if err == nil {
			for _, r := range batch {
				b.cache.Upsert(ctx, r)
			}
			res.Success += len(batch)
			continue
		}

		b.logger.Warn("bulk batch rejected by remote store, writing to local cache", "size", len(batch), "err", err)
		b.metrics.FallbackWrite("bulk_create")
		for _, r := range batch {
			if b.cache.AddManual(ctx, r) {
				res.Success++
				continue
			}
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s (%s): not stored: %v", r.Title, r.ID, err))
		}
	}

	if res.Success > 0 {
		b.events.Publish(ctx, Event{Type: EventJobBulkCreated, Count: res.Success, Actor: actor, At: now.UTC()})
	}
	return res, nil
}
