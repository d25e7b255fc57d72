package catalog_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"sync"
	"testing"
	"time"

	"jobmate/catalog-service/internal/catalog"
	"jobmate/catalog-service/internal/model"
)

var t0 = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return t0 }

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// ── memRemote ──────────────────────────────────────────────────────────────

type memRemote struct {
	mu        sync.Mutex
	jobs      map[string]model.JobRecord
	down      bool
	noIndex   bool
	bulkCalls int

	block   chan struct{}
	entered chan struct{}
}

func newMemRemote() *memRemote {
	return &memRemote{jobs: make(map[string]model.JobRecord)}
}

func (m *memRemote) fail(op string) error {
	if m.down {
		return catalog.Unavailable(op, errors.New("connection refused"))
	}
	return nil
}

func (m *memRemote) dump() map[string]model.JobRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.jobs)
}

func (m *memRemote) put(recs ...model.JobRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		m.jobs[r.ID] = r
	}
}

func (m *memRemote) Create(_ context.Context, rec model.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create"); err != nil {
		return err
	}
	m.jobs[rec.ID] = rec
	return nil
}

func (m *memRemote) Get(_ context.Context, id string) (model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("get"); err != nil {
		return model.JobRecord{}, err
	}
	r, ok := m.jobs[id]
	if !ok {
		return model.JobRecord{}, catalog.ErrNotFound
	}
	return r, nil
}

func (m *memRemote) Update(_ context.Context, id string, patch model.JobPatch, actor string) (model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("update"); err != nil {
		return model.JobRecord{}, err
	}
	r, ok := m.jobs[id]
	if !ok {
		return model.JobRecord{}, catalog.ErrNotFound
	}
	patch.ApplyTo(&r, actor, t0)
	m.jobs[id] = r
	return r, nil
}

func (m *memRemote) SoftDelete(ctx context.Context, id string, actor string) error {
	_, err := m.Update(ctx, id, model.Deactivate(), actor)
	return err
}

func (m *memRemote) all() []model.JobRecord {
	out := make([]model.JobRecord, 0, len(m.jobs))
	for _, r := range m.jobs {
		out = append(out, r)
	}
	return out
}

func (m *memRemote) Query(_ context.Context, f model.Filter, page, pageSize int) (model.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("query"); err != nil {
		return model.Page{}, err
	}
	return model.Select(m.all(), f, page, pageSize), nil
}

func (m *memRemote) Sample(_ context.Context, f model.Filter, limit int) ([]model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("sample"); err != nil {
		return nil, err
	}
	if m.noIndex {
		return nil, catalog.ErrIndexUnsupported
	}
	return model.Select(m.all(), f, 1, limit).Jobs, nil
}

func (m *memRemote) BulkCreate(_ context.Context, recs []model.JobRecord) error {
	if m.block != nil {
		m.entered <- struct{}{}
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("bulk create"); err != nil {
		return err
	}
	m.bulkCalls++
	for _, r := range recs {
		m.jobs[r.ID] = r
	}
	return nil
}

func (m *memRemote) IncrementCounter(_ context.Context, id string, c model.Counter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("increment"); err != nil {
		return 0, err
	}
	r, ok := m.jobs[id]
	if !ok {
		return 0, catalog.ErrNotFound
	}
	v := r.Bump(c)
	m.jobs[id] = r
	return v, nil
}

func (m *memRemote) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fail("ping")
}

// ── memCache ───────────────────────────────────────────────────────────────

type memCache struct {
	mu         sync.Mutex
	snap       map[string]model.JobRecord
	manual     map[string]model.JobRecord
	capturedAt time.Time
	failWrites bool
}

func newMemCache() *memCache {
	return &memCache{snap: make(map[string]model.JobRecord), manual: make(map[string]model.JobRecord)}
}

var errDiskFull = errors.New("disk full")

func (m *memCache) dump() (map[string]model.JobRecord, map[string]model.JobRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.snap), maps.Clone(m.manual)
}

func (m *memCache) Load(context.Context) (model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Snapshot{CapturedAt: m.capturedAt}
	for _, r := range m.snap {
		s.Jobs = append(s.Jobs, r)
	}
	return s, nil
}

func (m *memCache) Replace(_ context.Context, recs []model.JobRecord, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errDiskFull
	}
	m.snap = make(map[string]model.JobRecord, len(recs))
	for _, r := range recs {
		m.snap[r.ID] = r
	}
	m.capturedAt = at
	return nil
}

func (m *memCache) Put(_ context.Context, rec model.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errDiskFull
	}
	m.snap[rec.ID] = rec
	return nil
}

func (m *memCache) Get(_ context.Context, id string) (model.JobRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.snap[id]
	return r, ok, nil
}

func (m *memCache) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snap, id)
	return nil
}

func (m *memCache) LoadManual(context.Context) ([]model.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.JobRecord, 0, len(m.manual))
	for _, r := range m.manual {
		out = append(out, r)
	}
	return out, nil
}

func (m *memCache) PutManual(_ context.Context, rec model.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errDiskFull
	}
	m.manual[rec.ID] = rec
	return nil
}

func (m *memCache) DeleteManual(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.manual, id)
	return nil
}

// ── gate / publisher ───────────────────────────────────────────────────────

type fakeGate struct{ allow bool }

func (g fakeGate) CanMutate(context.Context) bool { return g.allow }
func (g fakeGate) Actor(context.Context) string   { return "admin-1" }

type recordingPublisher struct {
	mu     sync.Mutex
	events []catalog.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev catalog.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []catalog.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]catalog.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// ── harness ────────────────────────────────────────────────────────────────

type harness struct {
	remote *memRemote
	cache  *memCache
	events *recordingPublisher
	eng    *catalog.Engine
}

func newHarness(t *testing.T, allow bool) *harness {
	t.Helper()
	h := &harness{remote: newMemRemote(), cache: newMemCache(), events: &recordingPublisher{}}
	h.eng = catalog.New(catalog.Options{
		Remote: h.remote,
		Cache:  h.cache,
		Gate:   fakeGate{allow: allow},
		Events: h.events,
		Now:    fixedNow,
		Logger: quietLogger(),
	})
	return h
}

func job(title string, createdAt time.Time) model.JobRecord {
	return model.NewJobRecord(model.JobInput{Title: title, Company: "Acme", Sector: "tech"}, "seed", createdAt)
}
