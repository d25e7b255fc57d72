package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"jobmate/catalog-service/internal/catalog"
	"jobmate/catalog-service/internal/model"
)

func TestBuildWhere_Empty(t *testing.T) {
	where, args := buildWhere(model.Filter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestBuildWhere_AllConstraints(t *testing.T) {
	featured := true
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	where, args := buildWhere(model.Filter{
		ActiveOnly:    true,
		Sectors:       []string{"tech", "health"},
		Type:          "full-time",
		Locations:     []string{"Paris"},
		Experience:    "senior",
		Featured:      &featured,
		CreatedBefore: cutoff,
		Search:        "ignored by SQL",
	})

	assert.Equal(t,
		" WHERE is_active = true AND sector = ANY($1) AND job_type = $2 AND location = ANY($3)"+
			" AND experience = $4 AND featured = $5 AND created_at < $6",
		where)
	assert.Equal(t, []any{
		[]string{"tech", "health"}, "full-time", []string{"Paris"}, "senior", true, cutoff,
	}, args)
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	assert.ErrorIs(t, classify(ctx, "get", pgx.ErrNoRows), catalog.ErrNotFound)

	idx := classify(ctx, "query", &pgconn.PgError{Code: "0A000"})
	assert.ErrorIs(t, idx, catalog.ErrIndexUnsupported)

	timeout := classify(ctx, "query", &pgconn.PgError{Code: "57014"})
	assert.ErrorIs(t, timeout, catalog.ErrIndexUnsupported)

	down := classify(ctx, "create", errors.New("dial tcp: connection refused"))
	assert.ErrorIs(t, down, catalog.ErrRemoteUnavailable)

	ve := &catalog.ValidationError{Msg: "bad"}
	assert.Same(t, ve, classify(ctx, "x", ve))
}

func TestClassify_CallerCancellationIsNotIndexProblem(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := classify(ctx, "query", &pgconn.PgError{Code: "57014"})
	assert.NotErrorIs(t, err, catalog.ErrIndexUnsupported)
	assert.ErrorIs(t, err, catalog.ErrRemoteUnavailable)

	// feature_not_supported stays an index problem whatever the context
	assert.ErrorIs(t, classify(ctx, "query", &pgconn.PgError{Code: "0A000"}), catalog.ErrIndexUnsupported)
}

func TestJobArgsMatchColumns(t *testing.T) {
	rec := model.NewJobRecord(model.JobInput{Title: "x"}, "a", time.Now())
	assert.Len(t, jobArgs(rec), 25)
}

func TestNewStore_DefaultFetchCap(t *testing.T) {
	assert.Equal(t, DefaultFetchCap, NewStore(nil, 0).fetchCap)
	assert.Equal(t, 50, NewStore(nil, 50).fetchCap)
}
