package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/catalog-service/internal/catalog"
	"jobmate/catalog-service/internal/model"
)

func TestCounters_WriteThroughBothStores(t *testing.T) {
	h := newHarness(t, false) // counters are not gated
	ctx := context.Background()
	rec := job("counted", t0)
	h.remote.put(rec)
	h.eng.Cache.Upsert(ctx, rec)

	v, err := h.eng.Counters.IncrementShare(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = h.eng.Counters.IncrementShare(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	remote, _ := h.remote.Get(ctx, rec.ID)
	cached, _ := h.eng.Cache.Get(ctx, rec.ID)
	assert.Equal(t, int64(2), remote.Shares)
	assert.Equal(t, int64(2), cached.Shares)
}

func TestCounters_AllKinds(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	rec := job("counted", t0)
	h.remote.put(rec)

	_, err := h.eng.Counters.IncrementView(ctx, rec.ID)
	require.NoError(t, err)
	_, err = h.eng.Counters.IncrementApplication(ctx, rec.ID)
	require.NoError(t, err)
	_, err = h.eng.Counters.IncrementSave(ctx, rec.ID)
	require.NoError(t, err)

	got, _ := h.remote.Get(ctx, rec.ID)
	assert.Equal(t, int64(1), got.Views)
	assert.Equal(t, int64(1), got.Applications)
	assert.Equal(t, int64(1), got.Saves)
}

func TestCounters_RemoteDownUsesCache(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	rec := job("counted", t0)
	h.eng.Cache.Upsert(ctx, rec)
	h.remote.down = true

	v, err := h.eng.Counters.IncrementSave(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestCounters_Errors(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	_, err := h.eng.Counters.IncrementView(ctx, "missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	h.remote.down = true
	_, err = h.eng.Counters.IncrementView(ctx, "missing")
	assert.ErrorIs(t, err, catalog.ErrRemoteUnavailable)

	_, err = h.eng.Counters.Increment(ctx, "x", model.Counter("likes"))
	var ve *catalog.ValidationError
	assert.ErrorAs(t, err, &ve)
}
