package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jobmate/catalog-service/internal/model"
)

// Service is the entry point for catalog reads and mutations. Mutations
// pass the Gate first, then write remote-then-cache and fall back to a
// cache-only write when the remote store fails.
type Service struct {
	remote  RemoteStore
	cache   *LocalCache
	gate    Gate
	events  Publisher
	metrics Recorder
	now     func() time.Time
	logger  *slog.Logger
}

// Create stores a new posting built from in.
func (s *Service) Create(ctx context.Context, in model.JobInput) (model.JobRecord, error) {
	if !s.gate.CanMutate(ctx) {
		return model.JobRecord{}, ErrPermissionDenied
	}
	actor := s.gate.Actor(ctx)
	rec := model.NewJobRecord(in, actor, s.now())

	if err := s.remote.Create(ctx, rec); err != nil {
		if !degraded(err) {
			return model.JobRecord{}, fmt.Errorf("create job: %w", err)
		}
		s.logger.Warn("remote create failed, job kept in local cache", "id", rec.ID, "err", err)
		s.metrics.FallbackWrite("create")
		rec.Origin = model.OriginLocal
		s.cache.AddManual(ctx, rec)
	} else {
		s.cache.Upsert(ctx, rec)
	}

	s.publish(ctx, Event{Type: EventJobCreated, JobID: rec.ID, Actor: actor})
	return rec, nil
}

// Get reads a posting from the remote store, falling back to the cache.
// A cache fallback read counts as a view.
func (s *Service) Get(ctx context.Context, id string) (model.JobRecord, error) {
	rec, err := s.remote.Get(ctx, id)
	switch {
	case err == nil:
		s.cache.Refresh(ctx, []model.JobRecord{rec}, false)
		return rec, nil

	case errors.Is(err, ErrNotFound):
		cached, cerr := s.cache.Get(ctx, id)
		if cerr == nil && cached.Origin == model.OriginLocal {
			return s.GetByID(ctx, id)
		}
		if cerr == nil {
			// gone remotely; the cached copy is stale
			s.cache.Remove(ctx, id)
		}
		return model.JobRecord{}, ErrNotFound

	default:
		s.logger.Warn("remote get failed, reading local cache", "id", id, "err", err)
		s.metrics.FallbackRead("get")
		return s.GetByID(ctx, id)
	}
}

// GetByID reads a posting from the local cache only, counting a view.
func (s *Service) GetByID(ctx context.Context, id string) (model.JobRecord, error) {
	rec, ok := s.cache.GetByID(ctx, id)
	if !ok {
		return model.JobRecord{}, ErrNotFound
	}
	return rec, nil
}

// Update applies patch to the posting id.
func (s *Service) Update(ctx context.Context, id string, patch model.JobPatch) (model.JobRecord, error) {
	if !s.gate.CanMutate(ctx) {
		return model.JobRecord{}, ErrPermissionDenied
	}
	actor := s.gate.Actor(ctx)

	rec, err := s.remote.Update(ctx, id, patch, actor)
	switch {
	case err == nil:
		s.cache.MirrorUpdate(ctx, id, patch, actor, &rec)

	case errors.Is(err, ErrNotFound):
		// may exist only in the cache, waiting for a push
		cached, cerr := s.cache.Get(ctx, id)
		if cerr != nil || cached.Origin != model.OriginLocal {
			return model.JobRecord{}, ErrNotFound
		}
		if rec, err = s.cache.Update(ctx, id, patch, actor); err != nil {
			return model.JobRecord{}, err
		}

	case degraded(err):
		s.logger.Warn("remote update failed, updating local cache", "id", id, "err", err)
		s.metrics.FallbackWrite("update")
		cached, cerr := s.cache.Update(ctx, id, patch, actor)
		if cerr != nil {
			return model.JobRecord{}, fmt.Errorf("update job %s: %w", id, err)
		}
		rec = cached

	default:
		return model.JobRecord{}, fmt.Errorf("update job %s: %w", id, err)
	}

	s.publish(ctx, Event{Type: EventJobUpdated, JobID: id, Actor: actor})
	return rec, nil
}

// Delete deactivates the posting id. Nothing is ever removed.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !s.gate.CanMutate(ctx) {
		return ErrPermissionDenied
	}
	actor := s.gate.Actor(ctx)

	err := s.remote.SoftDelete(ctx, id, actor)
	switch {
	case err == nil:
		s.cache.MirrorUpdate(ctx, id, model.Deactivate(), actor, nil)

	case errors.Is(err, ErrNotFound):
		cached, cerr := s.cache.Get(ctx, id)
		if cerr != nil || cached.Origin != model.OriginLocal {
			return ErrNotFound
		}
		if err := s.cache.SoftDelete(ctx, id, actor); err != nil {
			return err
		}

	case degraded(err):
		s.logger.Warn("remote delete failed, deactivating in local cache", "id", id, "err", err)
		s.metrics.FallbackWrite("delete")
		if cerr := s.cache.SoftDelete(ctx, id, actor); cerr != nil {
			return fmt.Errorf("delete job %s: %w", id, err)
		}

	default:
		return fmt.Errorf("delete job %s: %w", id, err)
	}

	s.publish(ctx, Event{Type: EventJobDeleted, JobID: id, Actor: actor})
	return nil
}

// Query returns one page of the filtered catalog. Remote results refresh
// the cache; on remote failure the page is served from the cache and
// Source says so. Query itself never fails.
func (s *Service) Query(ctx context.Context, f model.Filter, page, pageSize int) model.Page {
	p, err := s.remote.Query(ctx, f, page, pageSize)
	if err == nil {
		p.Source = model.SourceRemote
		s.cache.Refresh(ctx, p.Jobs, f.IsZero() && p.Total == len(p.Jobs))
		return p
	}

	s.logger.Warn("remote query failed, serving local cache", "err", err)
	s.metrics.FallbackRead("query")
	p, _ = s.cache.Query(ctx, f, page, pageSize)
	return p
}

// CacheCapturedAt returns when the cache snapshot was last replaced.
func (s *Service) CacheCapturedAt(ctx context.Context) time.Time {
	return s.cache.CapturedAt(ctx)
}

// Ping reports whether the remote store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.remote.Ping(ctx)
}

func (s *Service) publish(ctx context.Context, ev Event) {
	if ev.At.IsZero() {
		ev.At = s.now().UTC()
	}
	s.events.Publish(ctx, ev)
}
