package beneficiary

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// Repository defines the interface for beneficiary persistence
type Repository interface {
	FindByID(ctx context.Context, id types.ID) (*Beneficiary, error)
	FindByUserID(ctx context.Context, userID types.ID) (*Beneficiary, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const beneficiaryColumns = `id, user_id, full_name, email, phone, created_at`

// FindByID finds a beneficiary by ID
func (r *PostgresRepository) FindByID(ctx context.Context, id types.ID) (*Beneficiary, error) {
	return r.findBy(ctx, "id", id)
}

// FindByUserID finds a beneficiary by the linked user account
func (r *PostgresRepository) FindByUserID(ctx context.Context, userID types.ID) (*Beneficiary, error) {
	return r.findBy(ctx, "user_id", userID)
}

func (r *PostgresRepository) findBy(ctx context.Context, column string, value types.ID) (*Beneficiary, error) {
	query := `SELECT ` + beneficiaryColumns + ` FROM beneficiaries WHERE ` + column + ` = $1`

	b := &Beneficiary{}
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&b.ID, &b.UserID, &b.FullName, &b.Email, &b.Phone, &b.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("beneficiary", value.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find beneficiary")
	}
	return b, nil
}
