package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"jobmate/catalog-service/internal/model"
)

// BatchSize caps the number of records committed to the remote store in
// one write.
const BatchSize = 500

// SyncReport summarises one synchronizer run.
type SyncReport struct {
	Triggered bool `json:"triggered"`
	Busy      bool `json:"busy"`
	Pushed    int  `json:"pushed"`
	Failed    int  `json:"failed"`
	Batches   int  `json:"batches"`
}

// Synchronizer pushes cache-only records to the remote store. At most one
// run executes at a time; a trigger that arrives during a run is a no-op.
type Synchronizer struct {
	remote    JobRepository
	cache     *LocalCache
	batchSize int
	running   atomic.Bool
	metrics   Recorder
	logger    *slog.Logger
}

// Push sends every record the remote store has not confirmed.
func (s *Synchronizer) Push(ctx context.Context) SyncReport {
	return s.run(ctx, s.cache.Pending)
}

// Bootstrap checks the remote store with a one-record read. An empty store
// is assumed cold and receives the whole local cache.
func (s *Synchronizer) Bootstrap(ctx context.Context) (SyncReport, error) {
	recs, err := s.remote.Sample(ctx, model.Filter{}, 1)
	if err != nil {
		return SyncReport{}, fmt.Errorf("bootstrap check: %w", err)
	}
	if len(recs) > 0 {
		s.logger.Debug("bootstrap found remote data, nothing to push")
		return SyncReport{}, nil
	}

	s.logger.Info("remote store is empty, pushing local cache")
	return s.run(ctx, s.cache.ReadAll), nil
}

// Running reports whether a push is in progress.
func (s *Synchronizer) Running() bool { return s.running.Load() }

func (s *Synchronizer) run(ctx context.Context, collect func(context.Context) []model.JobRecord) SyncReport {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("sync already in progress, trigger ignored")
		return SyncReport{Busy: true}
	}
	defer s.running.Store(false)

	rep := SyncReport{Triggered: true}
	recs := collect(ctx)
	if len(recs) == 0 {
		return rep
	}

	for _, batch := range Batches(recs, s.batchSize) {
		out := make([]model.JobRecord, len(batch))
		for i, r := range batch {
			r.Origin = model.OriginSynced
			out[i] = r
		}

		if err := s.remote.BulkCreate(ctx, out); err != nil {
			s.logger.Warn("sync batch failed", "size", len(out), "err", err)
			s.metrics.SyncBatch(false, len(out))
			rep.Failed += len(out)
			continue
		}
		s.metrics.SyncBatch(true, len(out))
		for _, r := range out {
			s.cache.Confirm(ctx, r)
		}
		rep.Pushed += len(out)
		rep.Batches++
	}

	s.logger.Info("sync complete", "pushed", rep.Pushed, "failed", rep.Failed, "batches", rep.Batches)
	return rep
}

// Batches splits items into consecutive groups of at most size.
func Batches[T any](items []T, size int) [][]T {
	if size < 1 {
		size = BatchSize
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
