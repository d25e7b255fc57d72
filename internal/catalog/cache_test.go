package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/catalog-service/internal/catalog"
	"jobmate/catalog-service/internal/model"
)

func TestLocalCache_SwallowsWriteErrors(t *testing.T) {
	store := newMemCache()
	store.failWrites = true
	c := catalog.NewLocalCache(store, fixedNow, quietLogger())
	ctx := context.Background()

	assert.False(t, c.Upsert(ctx, job("x", t0)))
	assert.False(t, c.AddManual(ctx, job("y", t0)))
	assert.False(t, c.ReplaceSnapshot(ctx, nil))
	assert.Empty(t, c.ReadAll(ctx))
}

func TestLocalCache_ManualShadowsSnapshot(t *testing.T) {
	c := catalog.NewLocalCache(newMemCache(), fixedNow, quietLogger())
	ctx := context.Background()
	rec := job("snap", t0)
	c.Upsert(ctx, rec)

	rec.Title = "manual"
	c.AddManual(ctx, rec)

	all := c.ReadAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, "manual", all[0].Title)
	assert.Equal(t, model.OriginLocal, all[0].Origin)
}

func TestLocalCache_ReplaceKeepsPending(t *testing.T) {
	c := catalog.NewLocalCache(newMemCache(), fixedNow, quietLogger())
	ctx := context.Background()

	pending := job("pending", t0)
	pending.Origin = model.OriginLocal
	c.Upsert(ctx, pending)
	c.Upsert(ctx, job("gone", t0))

	fresh := job("fresh", t0)
	stalePending := pending
	stalePending.Title = "remote copy"
	stalePending.Origin = model.OriginRemote
	require.True(t, c.ReplaceSnapshot(ctx, []model.JobRecord{fresh, stalePending}))

	all := c.ReadAll(ctx)
	titles := make([]string, 0, len(all))
	for _, r := range all {
		titles = append(titles, r.Title)
	}
	assert.ElementsMatch(t, []string{"pending", "fresh"}, titles)
	assert.Equal(t, t0, c.CapturedAt(ctx))
}

func TestLocalCache_RemoveAndMirror(t *testing.T) {
	c := catalog.NewLocalCache(newMemCache(), fixedNow, quietLogger())
	ctx := context.Background()
	rec := job("x", t0)
	c.AddManual(ctx, rec)

	v, ok := c.MirrorIncrement(ctx, rec.ID, model.CounterApplications)
	assert.True(t, ok)
	assert.Equal(t, int64(1), v)

	_, ok = c.MirrorIncrement(ctx, "missing", model.CounterApplications)
	assert.False(t, ok)

	assert.True(t, c.Remove(ctx, rec.ID))
	_, err := c.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}
