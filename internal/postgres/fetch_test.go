package postgres

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/catalog-service/internal/catalog"
	"jobmate/catalog-service/internal/model"
)

// ── fakes ──────────────────────────────────────────────────────────────────

// sliceRows serves records as pgx.Rows in the order given.
type sliceRows struct {
	recs []model.JobRecord
	i    int
}

func (r *sliceRows) Close()                                       {}
func (r *sliceRows) Err() error                                   { return nil }
func (r *sliceRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *sliceRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *sliceRows) Values() ([]any, error)                       { return jobArgs(r.recs[r.i-1]), nil }
func (r *sliceRows) RawValues() [][]byte                          { return nil }
func (r *sliceRows) Conn() *pgx.Conn                              { return nil }

func (r *sliceRows) Next() bool {
	if r.i >= len(r.recs) {
		return false
	}
	r.i++
	return true
}

// Scan copies the row's values in column order, the same order jobArgs uses.
func (r *sliceRows) Scan(dest ...any) error {
	vals := jobArgs(r.recs[r.i-1])
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(vals[i]))
	}
	return nil
}

// scriptedReader answers every query with recs, unsorted, except that an
// ordered query fails with orderedErr when it is set.
type scriptedReader struct {
	recs       []model.JobRecord
	orderedErr error
	queries    []string
}

func (q *scriptedReader) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.queries = append(q.queries, sql)
	if q.orderedErr != nil && strings.Contains(sql, "ORDER BY") {
		return nil, q.orderedErr
	}
	return &sliceRows{recs: q.recs}, nil
}

var fetchBase = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func unsortedJobs() []model.JobRecord {
	mk := func(title string, ageDays int) model.JobRecord {
		return model.NewJobRecord(model.JobInput{Title: title, Sector: "tech"}, "admin", fetchBase.AddDate(0, 0, -ageDays))
	}
	return []model.JobRecord{mk("middle", 5), mk("oldest", 9), mk("newest", 1)}
}

func titles(recs []model.JobRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title
	}
	return out
}

// ── fetch ──────────────────────────────────────────────────────────────────

func TestQuery_OrderedWhenSupported(t *testing.T) {
	reader := &scriptedReader{recs: unsortedJobs()}
	s := &Store{reader: reader, fetchCap: 10}

	_, err := s.Query(context.Background(), model.Filter{}, 1, 10)
	require.NoError(t, err)

	require.Len(t, reader.queries, 1)
	assert.Contains(t, reader.queries[0], "ORDER BY created_at DESC")
}

func TestQuery_FeatureNotSupportedFallsBackToClientSort(t *testing.T) {
	reader := &scriptedReader{
		recs:       unsortedJobs(),
		orderedErr: &pgconn.PgError{Code: "0A000", Message: "index missing"},
	}
	s := &Store{reader: reader, fetchCap: 10}

	p, err := s.Query(context.Background(), model.Filter{Sectors: []string{"tech"}}, 1, 10)
	require.NoError(t, err)

	require.Len(t, reader.queries, 2)
	assert.Contains(t, reader.queries[0], "ORDER BY")
	assert.NotContains(t, reader.queries[1], "ORDER BY")
	assert.Contains(t, reader.queries[1], "LIMIT $2")

	assert.Equal(t, []string{"newest", "middle", "oldest"}, titles(p.Jobs))
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, model.SourceRemote, p.Source)
}

func TestSample_StatementTimeoutFallsBack(t *testing.T) {
	reader := &scriptedReader{
		recs:       unsortedJobs(),
		orderedErr: &pgconn.PgError{Code: "57014"},
	}
	s := &Store{reader: reader, fetchCap: 10}

	recs, err := s.Sample(context.Background(), model.Filter{}, 2)
	require.NoError(t, err)
	assert.Equal(t, "newest", recs[0].Title)
	assert.Len(t, reader.queries, 2)
}

func TestSample_CancelledCallerIsNotRetried(t *testing.T) {
	reader := &scriptedReader{
		recs:       unsortedJobs(),
		orderedErr: &pgconn.PgError{Code: "57014"},
	}
	s := &Store{reader: reader, fetchCap: 10}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Sample(ctx, model.Filter{}, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrRemoteUnavailable)
	assert.Len(t, reader.queries, 1)
}

func TestQuery_SearchAppliedAfterFetch(t *testing.T) {
	reader := &scriptedReader{recs: unsortedJobs()}
	s := &Store{reader: reader, fetchCap: 10}

	p, err := s.Query(context.Background(), model.Filter{Search: "OLD"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"oldest"}, titles(p.Jobs))
}
