package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"jobmate/catalog-service/internal/model"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS cache_jobs (
		bucket TEXT NOT NULL,
		id     TEXT NOT NULL,
		data   TEXT NOT NULL,
		PRIMARY KEY (bucket, id)
	)`,
	`CREATE TABLE IF NOT EXISTS cache_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

const (
	bucketSnapshot = "snapshot"
	bucketManual   = "manual"
	metaCapturedAt = "captured_at"
)

// SQLiteStore keeps the cache in a local SQLite file, for deployments
// without Redis.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates the cache tables on db if needed.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("create cache schema: %w", err)
		}
	}
	return &SQLiteStore{db: db, logger: slog.Default().With("component", "sqlite-cache")}, nil
}

// Load returns the snapshot bucket and its capture time.
func (s *SQLiteStore) Load(ctx context.Context) (model.Snapshot, error) {
	jobs, err := s.loadBucket(ctx, bucketSnapshot)
	if err != nil {
		return model.Snapshot{}, err
	}

	var at string
	err = s.db.QueryRowContext(ctx,
		`SELECT value FROM cache_meta WHERE key = ?`, metaCapturedAt).Scan(&at)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, fmt.Errorf("read capture time: %w", err)
	}
	return model.Snapshot{Jobs: jobs, CapturedAt: parseTime(at)}, nil
}

// Replace swaps the snapshot bucket in one transaction.
func (s *SQLiteStore) Replace(ctx context.Context, recs []model.JobRecord, capturedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_jobs WHERE bucket = ?`, bucketSnapshot); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	for _, r := range recs {
		b, err := encode(r)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cache_jobs (bucket, id, data) VALUES (?, ?, ?)`,
			bucketSnapshot, r.ID, string(b),
		); err != nil {
			return fmt.Errorf("insert %s: %w", r.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cache_meta (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		metaCapturedAt, formatTime(capturedAt),
	); err != nil {
		return fmt.Errorf("write capture time: %w", err)
	}
	return tx.Commit()
}

// Put writes one snapshot record.
func (s *SQLiteStore) Put(ctx context.Context, rec model.JobRecord) error {
	return s.put(ctx, bucketSnapshot, rec)
}

// Get reads one snapshot record.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.JobRecord, bool, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM cache_jobs WHERE bucket = ? AND id = ?`, bucketSnapshot, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.JobRecord{}, false, nil
	}
	if err != nil {
		return model.JobRecord{}, false, fmt.Errorf("get %s: %w", id, err)
	}
	rec, err := decode([]byte(data))
	if err != nil {
		return model.JobRecord{}, false, err
	}
	return rec, true, nil
}

// Delete removes one snapshot record.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, bucketSnapshot, id)
}

// LoadManual returns the manual bucket.
func (s *SQLiteStore) LoadManual(ctx context.Context) ([]model.JobRecord, error) {
	return s.loadBucket(ctx, bucketManual)
}

// PutManual writes one manual record.
func (s *SQLiteStore) PutManual(ctx context.Context, rec model.JobRecord) error {
	return s.put(ctx, bucketManual, rec)
}

// DeleteManual removes one manual record.
func (s *SQLiteStore) DeleteManual(ctx context.Context, id string) error {
	return s.delete(ctx, bucketManual, id)
}

func (s *SQLiteStore) put(ctx context.Context, bucket string, rec model.JobRecord) error {
	b, err := encode(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cache_jobs (bucket, id, data) VALUES (?, ?, ?)
		 ON CONFLICT (bucket, id) DO UPDATE SET data = excluded.data`,
		bucket, rec.ID, string(b),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) delete(ctx context.Context, bucket, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_jobs WHERE bucket = ? AND id = ?`, bucket, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, id, err)
	}
	return nil
}

func (s *SQLiteStore) loadBucket(ctx context.Context, bucket string) ([]model.JobRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM cache_jobs WHERE bucket = ?`, bucket)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", bucket, err)
	}
	defer rows.Close()

	recs := make([]model.JobRecord, 0)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan %s: %w", bucket, err)
		}
		rec, err := decode([]byte(data))
		if err != nil {
			s.logger.Warn("skipping undecodable cache entry", "bucket", bucket, "id", id, "err", err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
