package catalog

import (
	"context"
	"log/slog"
	"time"

	"jobmate/catalog-service/internal/model"
)

// LocalCache is the local fallback cache. It always answers: storage errors
// are logged and swallowed, and show up only as a false ok or an empty read.
//
// It also implements JobRepository. Every write made through that interface
// is tagged OriginLocal so the synchronizer pushes it later.
type LocalCache struct {
	store  CacheStore
	now    func() time.Time
	logger *slog.Logger
}

// NewLocalCache wraps store.
func NewLocalCache(store CacheStore, now func() time.Time, logger *slog.Logger) *LocalCache {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalCache{store: store, now: now, logger: logger}
}

func (c *LocalCache) warn(op string, err error, args ...any) {
	c.logger.Warn("local cache "+op+" failed", append(args, "err", err)...)
}

// ReadAll returns the snapshot plus the manual bucket. A manual record
// shadows a snapshot record with the same id.
func (c *LocalCache) ReadAll(ctx context.Context) []model.JobRecord {
	snap, err := c.store.Load(ctx)
	if err != nil {
		c.warn("load", err)
	}
	manual := c.Manual(ctx)

	shadowed := make(map[string]struct{}, len(manual))
	for _, r := range manual {
		shadowed[r.ID] = struct{}{}
	}
	out := make([]model.JobRecord, 0, len(snap.Jobs)+len(manual))
	for _, r := range snap.Jobs {
		if _, ok := shadowed[r.ID]; ok {
			continue
		}
		r.Normalize()
		out = append(out, r)
	}
	return append(out, manual...)
}

// CapturedAt returns when the snapshot was last replaced. Zero if never.
func (c *LocalCache) CapturedAt(ctx context.Context) time.Time {
	snap, err := c.store.Load(ctx)
	if err != nil {
		c.warn("load", err)
		return time.Time{}
	}
	return snap.CapturedAt
}

// ReplaceSnapshot swaps the snapshot for recs. Records still waiting for a
// push are kept even when recs does not contain them.
func (c *LocalCache) ReplaceSnapshot(ctx context.Context, recs []model.JobRecord) bool {
	snap, err := c.store.Load(ctx)
	if err != nil {
		c.warn("load", err)
	}

	incoming := make(map[string]struct{}, len(recs))
	merged := make([]model.JobRecord, 0, len(recs))
	for _, r := range recs {
		incoming[r.ID] = struct{}{}
	}
	for _, r := range snap.Jobs {
		if r.Origin != model.OriginLocal {
			continue
		}
		// the local edit is newer than what the remote store returned
		delete(incoming, r.ID)
		merged = append(merged, r)
	}
	for _, r := range recs {
		if _, ok := incoming[r.ID]; ok {
			merged = append(merged, r)
		}
	}

	if err := c.store.Replace(ctx, merged, c.now().UTC()); err != nil {
		c.warn("replace", err, "count", len(merged))
		return false
	}
	return true
}

// Refresh hands a successful remote read to the cache. A complete read
// replaces the snapshot; a partial one is merged record by record.
func (c *LocalCache) Refresh(ctx context.Context, recs []model.JobRecord, complete bool) {
	if complete {
		c.ReplaceSnapshot(ctx, recs)
		return
	}
	for _, r := range recs {
		cur, ok, err := c.store.Get(ctx, r.ID)
		if err != nil {
			c.warn("get", err, "id", r.ID)
			continue
		}
		if ok && cur.Origin == model.OriginLocal {
			continue
		}
		c.Upsert(ctx, r)
	}
}

// Upsert writes rec into the snapshot.
func (c *LocalCache) Upsert(ctx context.Context, rec model.JobRecord) bool {
	rec.Normalize()
	if err := c.store.Put(ctx, rec); err != nil {
		c.warn("put", err, "id", rec.ID)
		return false
	}
	return true
}

// Remove drops id from both the snapshot and the manual bucket.
func (c *LocalCache) Remove(ctx context.Context, id string) bool {
	ok := true
	if err := c.store.Delete(ctx, id); err != nil {
		c.warn("delete", err, "id", id)
		ok = false
	}
	if err := c.store.DeleteManual(ctx, id); err != nil {
		c.warn("delete manual", err, "id", id)
		ok = false
	}
	return ok
}

// GetByID returns the cached record and counts the read as a view.
func (c *LocalCache) GetByID(ctx context.Context, id string) (model.JobRecord, bool) {
	rec, manual, ok := c.find(ctx, id)
	if !ok {
		return model.JobRecord{}, false
	}
	rec.Bump(model.CounterViews)
	c.write(ctx, rec, manual)
	return rec, true
}

// Manual returns the records created while offline.
func (c *LocalCache) Manual(ctx context.Context) []model.JobRecord {
	recs, err := c.store.LoadManual(ctx)
	if err != nil {
		c.warn("load manual", err)
		return []model.JobRecord{}
	}
	for i := range recs {
		recs[i].Normalize()
	}
	return recs
}

// AddManual stores rec in the manual bucket as a cache-only record.
func (c *LocalCache) AddManual(ctx context.Context, rec model.JobRecord) bool {
	rec.Origin = model.OriginLocal
	rec.Normalize()
	if err := c.store.PutManual(ctx, rec); err != nil {
		c.warn("put manual", err, "id", rec.ID)
		return false
	}
	return true
}

// Confirm records that rec now exists remotely: it moves into the snapshot
// with its remote origin and leaves the manual bucket.
func (c *LocalCache) Confirm(ctx context.Context, rec model.JobRecord) bool {
	if !c.Upsert(ctx, rec) {
		return false
	}
	if err := c.store.DeleteManual(ctx, rec.ID); err != nil {
		c.warn("delete manual", err, "id", rec.ID)
		return false
	}
	return true
}

// Pending returns every record that the remote store has not confirmed.
func (c *LocalCache) Pending(ctx context.Context) []model.JobRecord {
	var out []model.JobRecord
	for _, r := range c.ReadAll(ctx) {
		if r.Origin == model.OriginLocal {
			out = append(out, r)
		}
	}
	return out
}

// MirrorIncrement adds one to counter ct on the cached copy of id. The
// cached counters are display data only.
func (c *LocalCache) MirrorIncrement(ctx context.Context, id string, ct model.Counter) (int64, bool) {
	rec, manual, ok := c.find(ctx, id)
	if !ok {
		return 0, false
	}
	v := rec.Bump(ct)
	return v, c.write(ctx, rec, manual)
}

func (c *LocalCache) find(ctx context.Context, id string) (model.JobRecord, bool, bool) {
	rec, ok, err := c.store.Get(ctx, id)
	if err != nil {
		c.warn("get", err, "id", id)
	}
	for _, m := range c.Manual(ctx) {
		if m.ID == id {
			return m, true, true
		}
	}
	if ok {
		rec.Normalize()
	}
	return rec, false, ok
}

func (c *LocalCache) write(ctx context.Context, rec model.JobRecord, manual bool) bool {
	if manual {
		return c.AddManual(ctx, rec)
	}
	return c.Upsert(ctx, rec)
}

// MirrorUpdate mirrors a write the remote store accepted. A cached copy
// still waiting for a push keeps its origin and gets the same patch so the
// push does not undo the write; otherwise fresh (when known) replaces it.
func (c *LocalCache) MirrorUpdate(ctx context.Context, id string, patch model.JobPatch, actor string, fresh *model.JobRecord) {
	cur, manual, ok := c.find(ctx, id)
	switch {
	case ok && cur.Origin == model.OriginLocal:
		patch.ApplyTo(&cur, actor, c.now())
		c.write(ctx, cur, manual)
	case fresh != nil:
		c.Upsert(ctx, *fresh)
	case ok:
		patch.ApplyTo(&cur, actor, c.now())
		c.write(ctx, cur, manual)
	}
}

// ─── JobRepository ───────────────────────────────────────────────────────────

// Create stores rec in the manual bucket.
func (c *LocalCache) Create(ctx context.Context, rec model.JobRecord) error {
	c.AddManual(ctx, rec)
	return nil
}

// Get returns the cached record without counting a view.
func (c *LocalCache) Get(ctx context.Context, id string) (model.JobRecord, error) {
	rec, _, ok := c.find(ctx, id)
	if !ok {
		return model.JobRecord{}, ErrNotFound
	}
	return rec, nil
}

// Update patches the cached record and marks it for the next push.
func (c *LocalCache) Update(ctx context.Context, id string, patch model.JobPatch, actor string) (model.JobRecord, error) {
	rec, manual, ok := c.find(ctx, id)
	if !ok {
		return model.JobRecord{}, ErrNotFound
	}
	patch.ApplyTo(&rec, actor, c.now())
	rec.Origin = model.OriginLocal
	c.write(ctx, rec, manual)
	return rec, nil
}

// SoftDelete deactivates the cached record.
func (c *LocalCache) SoftDelete(ctx context.Context, id string, actor string) error {
	_, err := c.Update(ctx, id, model.Deactivate(), actor)
	return err
}

// Query filters and paginates the cached records.
func (c *LocalCache) Query(ctx context.Context, f model.Filter, page, pageSize int) (model.Page, error) {
	p := model.Select(c.ReadAll(ctx), f, page, pageSize)
	p.Source = model.SourceCache
	return p, nil
}

// Sample returns up to limit filtered cached records, newest first.
func (c *LocalCache) Sample(ctx context.Context, f model.Filter, limit int) ([]model.JobRecord, error) {
	p := model.Select(c.ReadAll(ctx), f, 1, max(limit, 1))
	return p.Jobs, nil
}

// BulkCreate stores every record in the manual bucket.
func (c *LocalCache) BulkCreate(ctx context.Context, recs []model.JobRecord) error {
	for _, r := range recs {
		c.AddManual(ctx, r)
	}
	return nil
}
