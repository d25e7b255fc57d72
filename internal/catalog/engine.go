package catalog

import (
	"log/slog"
	"time"
)

// Options carries the collaborators of an Engine. Remote, Cache and Gate
// are required.
type Options struct {
	Remote  RemoteStore
	Cache   CacheStore
	Gate    Gate
	Events  Publisher
	Metrics Recorder
	Now     func() time.Time
	Logger  *slog.Logger

	BatchSize       int
	SweepSampleSize int
}

// Engine bundles the catalog components built over one remote store and
// one local cache.
type Engine struct {
	Service  *Service
	Counters *Counters
	Sync     *Synchronizer
	Sweeper  *Sweeper
	Bulk     *BulkLoader
	Cache    *LocalCache
}

// New wires an Engine.
func New(opts Options) *Engine {
	if opts.Events == nil {
		opts.Events = nopPublisher{}
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = BatchSize
	}

	cache := NewLocalCache(opts.Cache, opts.Now, opts.Logger.With("component", "cache"))

	sweeper := NewSweeper(opts.Remote, opts.SweepSampleSize, opts.Now, opts.Metrics,
		opts.Logger.With("component", "sweeper"))
	sweeper.mirror = cache

	return &Engine{
		Service: &Service{
			remote:  opts.Remote,
			cache:   cache,
			gate:    opts.Gate,
			events:  opts.Events,
			metrics: opts.Metrics,
			now:     opts.Now,
			logger:  opts.Logger.With("component", "service"),
		},
		Counters: &Counters{
			remote:  opts.Remote,
			cache:   cache,
			metrics: opts.Metrics,
			logger:  opts.Logger.With("component", "counters"),
		},
		Sync: &Synchronizer{
			remote:    opts.Remote,
			cache:     cache,
			batchSize: opts.BatchSize,
			metrics:   opts.Metrics,
			logger:    opts.Logger.With("component", "sync"),
		},
		Sweeper: sweeper,
		Bulk: &BulkLoader{
			remote:    opts.Remote,
			cache:     cache,
			gate:      opts.Gate,
			events:    opts.Events,
			batchSize: opts.BatchSize,
			now:       opts.Now,
			metrics:   opts.Metrics,
			logger:    opts.Logger.With("component", "bulk"),
		},
		Cache: cache,
	}
}
