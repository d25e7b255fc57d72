package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"jobmate/catalog-service/internal/cache"
	"jobmate/catalog-service/internal/catalog"
	"jobmate/catalog-service/internal/config"
	"jobmate/catalog-service/internal/db"
	"jobmate/catalog-service/internal/events"
	"jobmate/catalog-service/internal/metrics"
	"jobmate/catalog-service/internal/permission"
	"jobmate/catalog-service/internal/postgres"
)

// startupPingTimeout bounds the initial PostgreSQL check. The remote store
// is optional at startup; the local cache is not.
const startupPingTimeout = 5 * time.Second

// runtime holds the connections and the engine shared by every command.
type runtime struct {
	cfg      *config.Config
	pool     *pgxpool.Pool
	rdb      *redis.Client
	sqlite   *sql.DB
	store    *postgres.Store
	admins   *postgres.AdminDirectory
	gate     *permission.Gate
	registry *prometheus.Registry
	metrics  *metrics.Collector
	engine   *catalog.Engine
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	rt := &runtime{cfg: cfg}

	log.Println("[catalog-service] Connecting to PostgreSQL…")
	rt.pool, err = db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	rt.store = postgres.NewStore(rt.pool, cfg.QueryFetchCap)

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	err = rt.store.Ping(pingCtx)
	cancel()
	if err != nil {
		log.Printf("[catalog-service] PostgreSQL unreachable, starting on local cache: %v", err)
	} else {
		log.Println("[catalog-service] PostgreSQL connected ✓")
	}

	log.Println("[catalog-service] Connecting to Redis…")
	rt.rdb, err = db.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	log.Println("[catalog-service] Redis connected ✓")

	var cacheStore catalog.CacheStore
	switch cfg.CacheBackend {
	case config.CacheSQLite:
		rt.sqlite, err = db.NewSQLite(ctx, cfg.CacheSQLitePath)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		s, err := cache.NewSQLiteStore(ctx, rt.sqlite)
		if err != nil {
			rt.Close()
			return nil, err
		}
		cacheStore = s
		log.Printf("[catalog-service] Local cache: sqlite (%s)", cfg.CacheSQLitePath)
	default:
		cacheStore = cache.NewRedisStore(rt.rdb, cache.DefaultRedisPrefix)
		log.Println("[catalog-service] Local cache: redis")
	}

	logger := slog.Default()

	rt.registry = prometheus.NewRegistry()
	rt.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rt.metrics = metrics.NewCollector(rt.registry)

	rt.admins = postgres.NewAdminDirectory(rt.pool)
	rt.gate = permission.NewGate(rt.admins, cfg.AdminFallbackEnabled, cfg.AdminTokenHash, logger.With("component", "gate"))

	rt.engine = catalog.New(catalog.Options{
		Remote:          rt.store,
		Cache:           cacheStore,
		Gate:            rt.gate,
		Events:          events.NewRedisPublisher(rt.rdb, cfg.EventsChannel, logger.With("component", "events")),
		Metrics:         rt.metrics,
		Logger:          logger,
		SweepSampleSize: cfg.SweepSampleSize,
	})

	return rt, nil
}

// Close releases every connection that was opened.
func (rt *runtime) Close() {
	if rt.sqlite != nil {
		rt.sqlite.Close()
	}
	if rt.rdb != nil {
		rt.rdb.Close()
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
}
