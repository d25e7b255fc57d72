// Package catalog is the job catalog synchronization engine. It keeps the
// catalog readable and writable through the remote store, degrades to the
// local fallback cache when the remote store fails, pushes cache-only
// records back in batches and deactivates postings past their TTL.
package catalog

import (
	"context"
	"time"

	"jobmate/catalog-service/internal/model"
)

// JobRepository is the operation set shared by the remote store and the
// local cache, so the synchronizer and the sweeper do not care which one
// they talk to.
type JobRepository interface {
	// Create inserts a new record.
	Create(ctx context.Context, rec model.JobRecord) error

	// Get returns the record with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (model.JobRecord, error)

	// Update applies a partial update and returns the updated record.
	Update(ctx context.Context, id string, patch model.JobPatch, actor string) (model.JobRecord, error)

	// SoftDelete marks the record inactive. Records are never removed.
	SoftDelete(ctx context.Context, id string, actor string) error

	// Query returns one page of the filtered catalog, newest first.
	Query(ctx context.Context, f model.Filter, page, pageSize int) (model.Page, error)

	// Sample returns at most limit filtered records, newest first.
	Sample(ctx context.Context, f model.Filter, limit int) ([]model.JobRecord, error)

	// BulkCreate writes all records in one commit, replacing any record
	// that already exists under the same id.
	BulkCreate(ctx context.Context, recs []model.JobRecord) error
}

// RemoteStore is the authoritative store.
type RemoteStore interface {
	JobRepository

	// IncrementCounter atomically adds one to a counter and returns the new value.
	IncrementCounter(ctx context.Context, id string, c model.Counter) (int64, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// CacheStore is the durable backend of the local fallback cache. Errors are
// returned here and swallowed by LocalCache.
type CacheStore interface {
	Load(ctx context.Context) (model.Snapshot, error)
	Replace(ctx context.Context, recs []model.JobRecord, capturedAt time.Time) error
	Put(ctx context.Context, rec model.JobRecord) error
	Get(ctx context.Context, id string) (model.JobRecord, bool, error)
	Delete(ctx context.Context, id string) error

	LoadManual(ctx context.Context) ([]model.JobRecord, error)
	PutManual(ctx context.Context, rec model.JobRecord) error
	DeleteManual(ctx context.Context, id string) error
}

// Gate answers whether the actor in ctx may mutate the catalog.
type Gate interface {
	CanMutate(ctx context.Context) bool
	Actor(ctx context.Context) string
}

// Publisher emits analytics events. Implementations must not block the
// caller on delivery failures.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Recorder receives engine metrics.
type Recorder interface {
	FallbackWrite(op string)
	FallbackRead(op string)
	SyncBatch(committed bool, size int)
	Deactivated(n int)
	CounterIncremented(c model.Counter)
}

// EventType names an analytics event.
type EventType string

const (
	EventJobCreated     EventType = "JOB_CREATED"
	EventJobUpdated     EventType = "JOB_UPDATED"
	EventJobDeleted     EventType = "JOB_DELETED"
	EventJobBulkCreated EventType = "JOB_BULK_CREATED"
)

// Event is emitted after a successful mutation.
type Event struct {
	Type  EventType `json:"type"`
	JobID string    `json:"jobId,omitempty"`
	Count int       `json:"count,omitempty"`
	Actor string    `json:"actor"`
	At    time.Time `json:"at"`
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

type nopRecorder struct{}

func (nopRecorder) FallbackWrite(string)             {}
func (nopRecorder) FallbackRead(string)              {}
func (nopRecorder) SyncBatch(bool, int)              {}
func (nopRecorder) Deactivated(int)                  {}
func (nopRecorder) CounterIncremented(model.Counter) {}
