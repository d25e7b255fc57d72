package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/catalog-service/internal/catalog"
)

type countingSweeper struct {
	runs atomic.Int32
	err  error
}

func (c *countingSweeper) Run(context.Context) (catalog.SweepReport, error) {
	c.runs.Add(1)
	return catalog.SweepReport{}, c.err
}

type countingBoot struct{ runs atomic.Int32 }

func (c *countingBoot) Bootstrap(context.Context) (catalog.SyncReport, error) {
	c.runs.Add(1)
	return catalog.SyncReport{Triggered: true}, nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestAfter_FiresOnce(t *testing.T) {
	at := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	s := after(at)
	assert.Equal(t, at, s.Next(at.Add(-time.Minute)))
	assert.True(t, s.Next(at.Add(time.Minute)).IsZero())

	late := after(at)
	now := at.Add(time.Second)
	assert.Equal(t, now, late.Next(now))
	assert.True(t, late.Next(now).IsZero())
}

func TestScheduler_ZeroDelayRunsImmediately(t *testing.T) {
	sw := &countingSweeper{}
	s := New(sw, nil, Options{SweepSpec: "@every 1h"}, quiet())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return sw.runs.Load() == 1 }, 5*time.Second, 20*time.Millisecond)
}

func TestScheduler_RunsDelayedJobs(t *testing.T) {
	sw := &countingSweeper{}
	boot := &countingBoot{}
	s := New(sw, boot, Options{SweepSpec: "@every 1h", SweepDelay: 10 * time.Millisecond, BootstrapDelay: 10 * time.Millisecond}, quiet())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool {
		return sw.runs.Load() == 1 && boot.runs.Load() == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestScheduler_NegativeDelayDisablesOneShot(t *testing.T) {
	sw := &countingSweeper{}
	boot := &countingBoot{}
	s := New(sw, boot, Options{SweepSpec: "@every 1h", SweepDelay: -1, BootstrapDelay: 10 * time.Millisecond}, quiet())

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return boot.runs.Load() == 1 }, 5*time.Second, 20*time.Millisecond)
	s.Stop()

	assert.Zero(t, sw.runs.Load())
}

func TestScheduler_SweepErrorIsLogged(t *testing.T) {
	sw := &countingSweeper{err: errors.New("remote down")}
	s := New(sw, nil, Options{SweepSpec: "@every 1h", SweepDelay: 10 * time.Millisecond}, quiet())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return sw.runs.Load() == 1 }, 5*time.Second, 20*time.Millisecond)
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := New(&countingSweeper{}, nil, Options{SweepSpec: "not a spec"}, quiet())
	assert.Error(t, s.Start(context.Background()))
}
