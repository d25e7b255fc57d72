package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyExecer fails the first failures calls, then succeeds.
type flakyExecer struct {
	failures int
	calls    int
}

func (e *flakyExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	e.calls++
	if e.calls <= e.failures {
		return pgconn.CommandTag{}, errors.New("dial tcp: connection refused")
	}
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func TestSchemaGuard_RetriesUntilApplied(t *testing.T) {
	ex := &flakyExecer{failures: 2}
	g := &schemaGuard{db: ex}
	ctx := context.Background()

	require.Error(t, g.ensure(ctx))
	require.Error(t, g.ensure(ctx))
	require.NoError(t, g.ensure(ctx))
	assert.Equal(t, 3, ex.calls)

	require.NoError(t, g.ensure(ctx))
	require.NoError(t, g.ensure(ctx))
	assert.Equal(t, 3, ex.calls, "schema is applied once")
}

func TestEnsureSchema_WrapsError(t *testing.T) {
	err := EnsureSchema(context.Background(), &flakyExecer{failures: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply schema")
}
