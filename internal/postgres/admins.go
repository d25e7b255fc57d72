package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdminDirectory answers whether a user holds the catalog admin claim,
// backed by the catalog_admins table.
type AdminDirectory struct {
	pool *pgxpool.Pool
}

// NewAdminDirectory returns an AdminDirectory.
func NewAdminDirectory(pool *pgxpool.Pool) *AdminDirectory {
	return &AdminDirectory{pool: pool}
}

// IsAdmin reports whether userID is listed in catalog_admins.
func (d *AdminDirectory) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var ok bool
	err := d.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM catalog_admins WHERE user_id = $1)`,
		userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("lookup admin %s: %w", userID, err)
	}
	return ok, nil
}

// Grant adds userID to catalog_admins.
func (d *AdminDirectory) Grant(ctx context.Context, userID string) error {
	_, err := d.pool.Exec(ctx,
		`INSERT INTO catalog_admins (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("grant admin %s: %w", userID, err)
	}
	return nil
}
