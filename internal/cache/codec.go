// Package cache holds the durable backends of the local fallback cache:
// a Redis store and a single-file SQLite store. Both satisfy
// catalog.CacheStore and keep records as JSON documents.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"jobmate/catalog-service/internal/model"
)

func encode(rec model.JobRecord) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode job %s: %w", rec.ID, err)
	}
	return b, nil
}

func decode(data []byte) (model.JobRecord, error) {
	var rec model.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.JobRecord{}, fmt.Errorf("decode cached job: %w", err)
	}
	rec.Normalize()
	return rec, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
