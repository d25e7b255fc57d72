package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"jobmate/catalog-service/internal/model"
)

// Counters maintains the engagement counters. Increments are not gated.
//
// The remote store increments atomically; the cached counters are mirrored
// with a plain +1 and are display data only, so two processes sharing a
// cache may drift from the remote values until the next refresh.
type Counters struct {
	remote  RemoteStore
	cache   *LocalCache
	metrics Recorder
	logger  *slog.Logger
}

// IncrementView counts a view of job id.
func (c *Counters) IncrementView(ctx context.Context, id string) (int64, error) {
	return c.Increment(ctx, id, model.CounterViews)
}

// IncrementShare counts a share of job id.
func (c *Counters) IncrementShare(ctx context.Context, id string) (int64, error) {
	return c.Increment(ctx, id, model.CounterShares)
}

// IncrementApplication counts an application to job id.
func (c *Counters) IncrementApplication(ctx context.Context, id string) (int64, error) {
	return c.Increment(ctx, id, model.CounterApplications)
}

// IncrementSave counts a save of job id.
func (c *Counters) IncrementSave(ctx context.Context, id string) (int64, error) {
	return c.Increment(ctx, id, model.CounterSaves)
}

// Increment adds one to counter ct on job id in the remote store when
// reachable and always in the cache. It returns the remote value when there
// is one, else the cached value.
func (c *Counters) Increment(ctx context.Context, id string, ct model.Counter) (int64, error) {
	if !ct.Valid() {
		return 0, &ValidationError{Msg: fmt.Sprintf("unknown counter %q", ct)}
	}

	v, err := c.remote.IncrementCounter(ctx, id, ct)
	if err != nil && !errors.Is(err, ErrNotFound) {
		c.logger.Warn("remote counter increment failed", "id", id, "counter", ct, "err", err)
	}
	cached, ok := c.cache.MirrorIncrement(ctx, id, ct)

	switch {
	case err == nil:
		c.metrics.CounterIncremented(ct)
		return v, nil
	case ok:
		c.metrics.CounterIncremented(ct)
		return cached, nil
	case errors.Is(err, ErrNotFound):
		return 0, ErrNotFound
	}
	return 0, fmt.Errorf("increment %s on job %s: %w", ct, id, err)
}
