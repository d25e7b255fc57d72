package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/catalog-service/internal/catalog"
	"jobmate/catalog-service/internal/model"
)

// DefaultFetchCap bounds how many rows a query reads before paginating.
const DefaultFetchCap = 1000

const jobColumns = `id, title, company, location, job_type, sector, salary, description,
	requirements, qualifications, experience, apply_link, featured,
	is_active, is_approved, views, shares, applications, saves,
	created_at, updated_at, expires_at, created_by, last_updated_by, origin`

const upsertJob = `
	INSERT INTO job_postings (` + jobColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
	        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title, company = EXCLUDED.company, location = EXCLUDED.location,
		job_type = EXCLUDED.job_type, sector = EXCLUDED.sector, salary = EXCLUDED.salary,
		description = EXCLUDED.description, requirements = EXCLUDED.requirements,
		qualifications = EXCLUDED.qualifications, experience = EXCLUDED.experience,
		apply_link = EXCLUDED.apply_link, featured = EXCLUDED.featured,
		is_active = EXCLUDED.is_active, is_approved = EXCLUDED.is_approved,
		views = GREATEST(job_postings.views, EXCLUDED.views),
		shares = GREATEST(job_postings.shares, EXCLUDED.shares),
		applications = GREATEST(job_postings.applications, EXCLUDED.applications),
		saves = GREATEST(job_postings.saves, EXCLUDED.saves),
		updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at,
		last_updated_by = EXCLUDED.last_updated_by, origin = EXCLUDED.origin`

// counterColumns whitelists the columns IncrementCounter may touch.
var counterColumns = map[model.Counter]string{
	model.CounterViews:        "views",
	model.CounterShares:       "shares",
	model.CounterApplications: "applications",
	model.CounterSaves:        "saves",
}

// querier is what reads need; *pgxpool.Pool and pgx.Tx both satisfy it.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store implements catalog.RemoteStore on PostgreSQL.
type Store struct {
	pool     *pgxpool.Pool
	reader   querier
	schema   *schemaGuard
	fetchCap int
}

// NewStore returns a Store. fetchCap <= 0 means DefaultFetchCap.
func NewStore(pool *pgxpool.Pool, fetchCap int) *Store {
	if fetchCap <= 0 {
		fetchCap = DefaultFetchCap
	}
	s := &Store{pool: pool, fetchCap: fetchCap}
	if pool != nil {
		s.reader = pool
		s.schema = &schemaGuard{db: pool}
	}
	return s
}

// Create inserts rec.
func (s *Store) Create(ctx context.Context, rec model.JobRecord) error {
	rec.Normalize()
	if _, err := s.pool.Exec(ctx, upsertJob, jobArgs(rec)...); err != nil {
		return classify(ctx, "create job", err)
	}
	return nil
}

// Get returns the job with the given id.
func (s *Store) Get(ctx context.Context, id string) (model.JobRecord, error) {
	rec, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM job_postings WHERE id = $1`, id))
	if err != nil {
		return model.JobRecord{}, classify(ctx, "get job", err)
	}
	return rec, nil
}

// Update applies patch inside a transaction that locks the row.
func (s *Store) Update(ctx context.Context, id string, patch model.JobPatch, actor string) (model.JobRecord, error) {
	var rec model.JobRecord
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		rec, err = scanJob(tx.QueryRow(ctx,
			`SELECT `+jobColumns+` FROM job_postings WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		now, err := dbNow(ctx, tx)
		if err != nil {
			return err
		}
		patch.ApplyTo(&rec, actor, now)

		_, err = tx.Exec(ctx, upsertJob, jobArgs(rec)...)
		return err
	})
	if err != nil {
		return model.JobRecord{}, classify(ctx, "update job", err)
	}
	return rec, nil
}

// SoftDelete marks the job inactive.
func (s *Store) SoftDelete(ctx context.Context, id string, actor string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE job_postings
		 SET is_active = false, updated_at = NOW(), last_updated_by = $2
		 WHERE id = $1`,
		id, actor,
	)
	if err != nil {
		return classify(ctx, "soft delete job", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// Query reads up to the fetch cap of matching rows and slices out one page.
func (s *Store) Query(ctx context.Context, f model.Filter, page, pageSize int) (model.Page, error) {
	recs, err := s.fetch(ctx, f, s.fetchCap)
	if err != nil {
		return model.Page{}, err
	}
	p := model.Paginate(recs, page, pageSize)
	p.Source = model.SourceRemote
	return p, nil
}

// Sample returns at most limit matching rows, newest first.
func (s *Store) Sample(ctx context.Context, f model.Filter, limit int) ([]model.JobRecord, error) {
	return s.fetch(ctx, f, max(limit, 1))
}

// BulkCreate upserts recs in one transaction.
func (s *Store) BulkCreate(ctx context.Context, recs []model.JobRecord) error {
	if len(recs) == 0 {
		return nil
	}
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, r := range recs {
			r.Normalize()
			batch.Queue(upsertJob, jobArgs(r)...)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return classify(ctx, fmt.Sprintf("bulk create %d jobs", len(recs)), err)
	}
	return nil
}

// IncrementCounter adds one to counter c in a single statement.
func (s *Store) IncrementCounter(ctx context.Context, id string, c model.Counter) (int64, error) {
	col, ok := counterColumns[c]
	if !ok {
		return 0, &catalog.ValidationError{Msg: fmt.Sprintf("unknown counter %q", c)}
	}
	var v int64
	err := s.pool.QueryRow(ctx,
		`UPDATE job_postings SET `+col+` = `+col+` + 1 WHERE id = $1 RETURNING `+col,
		id,
	).Scan(&v)
	if err != nil {
		return 0, classify(ctx, "increment "+col, err)
	}
	return v, nil
}

// Ping checks connectivity. The first successful ping also applies the
// schema.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return catalog.Unavailable("ping", err)
	}
	if s.schema != nil {
		if err := s.schema.ensure(ctx); err != nil {
			return catalog.Unavailable("ensure schema", err)
		}
	}
	return nil
}

// fetch runs the ordered query and, when the store cannot serve it, the
// unordered one followed by an in-process sort. The search term is applied
// after fetching.
func (s *Store) fetch(ctx context.Context, f model.Filter, limit int) ([]model.JobRecord, error) {
	where, args := buildWhere(f)
	args = append(args, limit)
	lim := fmt.Sprintf(" LIMIT $%d", len(args))
	base := `SELECT ` + jobColumns + ` FROM job_postings` + where

	recs, err := s.collect(ctx, base+` ORDER BY created_at DESC, id DESC`+lim, args)
	if isIndexUnsupported(ctx, err) {
		recs, err = s.collect(ctx, base+lim, args)
		if err == nil {
			model.SortNewestFirst(recs)
		}
	}
	if err != nil {
		return nil, classify(ctx, "query jobs", err)
	}

	if f.Search == "" {
		return recs, nil
	}
	out := recs[:0]
	for _, r := range recs {
		if f.MatchesSearch(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) collect(ctx context.Context, sql string, args []any) ([]model.JobRecord, error) {
	rows, err := s.reader.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := make([]model.JobRecord, 0)
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// buildWhere turns the equality constraints of f into a WHERE clause with
// positional arguments. The search term is not part of it.
func buildWhere(f model.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.ActiveOnly {
		conds = append(conds, "is_active = true")
	}
	if len(f.Sectors) > 0 {
		add("sector = ANY($%d)", f.Sectors)
	}
	if f.Type != "" {
		add("job_type = $%d", f.Type)
	}
	if len(f.Locations) > 0 {
		add("location = ANY($%d)", f.Locations)
	}
	if f.Experience != "" {
		add("experience = $%d", f.Experience)
	}
	if f.Featured != nil {
		add("featured = $%d", *f.Featured)
	}
	if !f.CreatedBefore.IsZero() {
		add("created_at < $%d", f.CreatedBefore)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func jobArgs(r model.JobRecord) []any {
	return []any{
		r.ID, r.Title, r.Company, r.Location, r.Type, r.Sector, r.Salary, r.Description,
		r.Requirements, r.Qualifications, r.Experience, r.ApplyLink, r.Featured,
		r.IsActive, r.IsApproved, r.Views, r.Shares, r.Applications, r.Saves,
		r.CreatedAt, r.UpdatedAt, r.ExpiresAt, r.CreatedBy, r.LastUpdatedBy, string(r.Origin),
	}
}

func scanJob(row pgx.Row) (model.JobRecord, error) {
	var (
		r      model.JobRecord
		origin string
	)
	err := row.Scan(
		&r.ID, &r.Title, &r.Company, &r.Location, &r.Type, &r.Sector, &r.Salary, &r.Description,
		&r.Requirements, &r.Qualifications, &r.Experience, &r.ApplyLink, &r.Featured,
		&r.IsActive, &r.IsApproved, &r.Views, &r.Shares, &r.Applications, &r.Saves,
		&r.CreatedAt, &r.UpdatedAt, &r.ExpiresAt, &r.CreatedBy, &r.LastUpdatedBy, &origin,
	)
	if err != nil {
		return model.JobRecord{}, err
	}
	r.Origin = model.Origin(origin)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	r.Normalize()
	return r, nil
}

func dbNow(ctx context.Context, tx pgx.Tx) (t time.Time, err error) {
	err = tx.QueryRow(ctx, `SELECT NOW()`).Scan(&t)
	return t, err
}

// PostgreSQL error codes that mean the ordered query cannot be served.
const (
	codeFeatureNotSupported = "0A000"
	codeQueryCanceled       = "57014" // statement_timeout on an unindexed sort
)

// isIndexUnsupported reports whether err means the ordered query cannot be
// served. A cancellation caused by ctx itself is not an index problem.
func isIndexUnsupported(ctx context.Context, err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeFeatureNotSupported:
		return true
	case codeQueryCanceled:
		return ctx.Err() == nil
	}
	return false
}

// classify maps driver errors onto the catalog error taxonomy.
func classify(ctx context.Context, op string, err error) error {
	var ve *catalog.ValidationError
	switch {
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, catalog.ErrNotFound):
		return catalog.ErrNotFound
	case errors.As(err, &ve):
		return err
	case isIndexUnsupported(ctx, err):
		return fmt.Errorf("%s: %w: %w", op, catalog.ErrIndexUnsupported, err)
	}
	return catalog.Unavailable(op, err)
}
