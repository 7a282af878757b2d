package judicial

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// Repository defines the interface for judicial-service persistence
type Repository interface {
	Save(ctx context.Context, s *Service) error
	FindByID(ctx context.Context, id types.ID) (*Service, error)
	Update(ctx context.Context, s *Service) error
	Delete(ctx context.Context, id types.ID) error

	List(ctx context.Context, filter ListFilter) ([]Service, int, error)
	FindByBeneficiary(ctx context.Context, beneficiaryID types.ID, filter ListFilter) ([]Service, int, error)
	FindByAssignedLawyer(ctx context.Context, lawyerID types.ID, filter ListFilter) ([]Service, int, error)
}

// ListFilter defines filters for listing judicial services
type ListFilter struct {
	Status *Status
	Limit  int
	Offset int
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const serviceColumns = `id, status, service_type, description, court_reference,
	beneficiary_id, assigned_lawyer_id, review_notes, created_at, updated_at`

// Save inserts a new judicial service
func (r *PostgresRepository) Save(ctx context.Context, s *Service) error {
	query := `
		INSERT INTO judicial_services (` + serviceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.Status, s.ServiceType, s.Description, s.CourtReference,
		s.BeneficiaryID, s.AssignedLawyerID, s.ReviewNotes, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save judicial service")
	}
	return nil
}

// FindByID finds a judicial service by ID
func (r *PostgresRepository) FindByID(ctx context.Context, id types.ID) (*Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM judicial_services WHERE id = $1`

	s := &Service{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.Status, &s.ServiceType, &s.Description, &s.CourtReference,
		&s.BeneficiaryID, &s.AssignedLawyerID, &s.ReviewNotes, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("judicial service", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find judicial service")
	}
	return s, nil
}

// Update persists the judicial service row
func (r *PostgresRepository) Update(ctx context.Context, s *Service) error {
	query := `
		UPDATE judicial_services SET
			status = $2, service_type = $3, description = $4, court_reference = $5,
			assigned_lawyer_id = $6, review_notes = $7, updated_at = $8
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		s.ID, s.Status, s.ServiceType, s.Description, s.CourtReference,
		s.AssignedLawyerID, s.ReviewNotes, s.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update judicial service")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("judicial service", s.ID.String())
	}
	return nil
}

// Delete hard-deletes a judicial service
func (r *PostgresRepository) Delete(ctx context.Context, id types.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM judicial_services WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete judicial service")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("judicial service", id.String())
	}
	return nil
}

// List lists all judicial services matching the filter
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Service, int, error) {
	return r.query(ctx, filter, "", nil)
}

// FindByBeneficiary lists services owned by the beneficiary
func (r *PostgresRepository) FindByBeneficiary(ctx context.Context, beneficiaryID types.ID, filter ListFilter) ([]Service, int, error) {
	return r.query(ctx, filter, "beneficiary_id", beneficiaryID)
}

// FindByAssignedLawyer lists services assigned to the lawyer
func (r *PostgresRepository) FindByAssignedLawyer(ctx context.Context, lawyerID types.ID, filter ListFilter) ([]Service, int, error) {
	return r.query(ctx, filter, "assigned_lawyer_id", lawyerID)
}

func (r *PostgresRepository) query(ctx context.Context, filter ListFilter, scopeColumn string, scopeValue any) ([]Service, int, error) {
	var conditions []string
	var args []any

	if scopeColumn != "" {
		args = append(args, scopeValue)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", scopeColumn, len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM judicial_services"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count judicial services")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	clause := fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	clause += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, "SELECT "+serviceColumns+" FROM judicial_services"+where+clause, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list judicial services")
	}
	defer rows.Close()

	var services []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(
			&s.ID, &s.Status, &s.ServiceType, &s.Description, &s.CourtReference,
			&s.BeneficiaryID, &s.AssignedLawyerID, &s.ReviewNotes, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan judicial service")
		}
		services = append(services, s)
	}

	return services, total, nil
}
