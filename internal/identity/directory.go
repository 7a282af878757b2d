package identity

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// User is a directory entry for an account known to the platform.
type User struct {
	ID            types.ID `json:"id"`
	Kind          Kind     `json:"kind"`
	Role          Role     `json:"role"`
	BeneficiaryID types.ID `json:"beneficiary_id,omitempty"`
}

// Directory looks up accounts. The session issuer owns the table; this side
// only reads it.
type Directory interface {
	FindUser(ctx context.Context, id types.ID) (*User, error)
}

// PostgresDirectory implements Directory over the users table.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory creates a directory backed by PostgreSQL.
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

// FindUser finds a user account by ID.
func (d *PostgresDirectory) FindUser(ctx context.Context, id types.ID) (*User, error) {
	query := `SELECT id, kind, role, beneficiary_id FROM users WHERE id = $1`

	u := &User{}
	err := d.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Kind, &u.Role, &u.BeneficiaryID)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("user", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}
	return u, nil
}
