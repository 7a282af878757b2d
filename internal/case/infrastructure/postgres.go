// Package infrastructure implements case persistence over PostgreSQL.
package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/legalaid-center/platform/internal/case/domain"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// PostgresRepository implements domain.Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const caseColumns = `id, case_number, status, title, description, category,
	beneficiary_id, assigned_lawyer_id, internal_notes,
	accepted_by_user_id, accepted_at, completed_at, closed_at,
	created_at, updated_at`

// Save inserts a new case together with its creation timeline event.
func (r *PostgresRepository) Save(ctx context.Context, c *domain.Case) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO cases (` + caseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = tx.Exec(ctx, query,
		c.ID, c.CaseNumber, c.Status, c.Title, c.Description, c.Category,
		c.BeneficiaryID, c.AssignedLawyerID, c.InternalNotes,
		c.AcceptedByUserID, c.AcceptedAt, c.CompletedAt, c.ClosedAt,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return errors.Conflict("case with this number already exists")
		}
		return errors.Wrap(err, "failed to save case")
	}

	for _, e := range c.PendingEvents() {
		if err := saveEvent(ctx, tx, &e); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	c.ClearPendingEvents()
	return nil
}

// FindByID finds a case by ID
func (r *PostgresRepository) FindByID(ctx context.Context, id types.ID) (*domain.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE id = $1`

	c := &domain.Case{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.CaseNumber, &c.Status, &c.Title, &c.Description, &c.Category,
		&c.BeneficiaryID, &c.AssignedLawyerID, &c.InternalNotes,
		&c.AcceptedByUserID, &c.AcceptedAt, &c.CompletedAt, &c.ClosedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("case", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find case")
	}
	return c, nil
}

// Update persists the case row and any pending timeline events in one
// transaction. If the event write fails the status write is rolled back.
func (r *PostgresRepository) Update(ctx context.Context, c *domain.Case) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE cases SET
			status = $2, title = $3, description = $4, category = $5,
			assigned_lawyer_id = $6, internal_notes = $7,
			accepted_by_user_id = $8, accepted_at = $9,
			completed_at = $10, closed_at = $11, updated_at = $12
		WHERE id = $1`

	tag, err := tx.Exec(ctx, query,
		c.ID, c.Status, c.Title, c.Description, c.Category,
		c.AssignedLawyerID, c.InternalNotes,
		c.AcceptedByUserID, c.AcceptedAt,
		c.CompletedAt, c.ClosedAt, c.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update case")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("case", c.ID.String())
	}

	for _, e := range c.PendingEvents() {
		if err := saveEvent(ctx, tx, &e); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	c.ClearPendingEvents()
	return nil
}

// Delete hard-deletes a case. Timeline events cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id types.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cases WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete case")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("case", id.String())
	}
	return nil
}

// List lists all cases matching the filter
func (r *PostgresRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Case, int, error) {
	return r.query(ctx, filter, "", nil)
}

// FindByBeneficiary lists cases owned by the beneficiary
func (r *PostgresRepository) FindByBeneficiary(ctx context.Context, beneficiaryID types.ID, filter domain.ListFilter) ([]domain.Case, int, error) {
	return r.query(ctx, filter, "beneficiary_id", beneficiaryID)
}

// FindByAssignedLawyer lists cases assigned to the lawyer
func (r *PostgresRepository) FindByAssignedLawyer(ctx context.Context, lawyerID types.ID, filter domain.ListFilter) ([]domain.Case, int, error) {
	return r.query(ctx, filter, "assigned_lawyer_id", lawyerID)
}

func (r *PostgresRepository) query(ctx context.Context, filter domain.ListFilter, scopeColumn string, scopeValue any) ([]domain.Case, int, error) {
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
	if filter.Category != nil {
		args = append(args, *filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR case_number ILIKE $%d)", len(args), len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM cases"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count cases")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	limitClause := fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	limitClause += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, "SELECT "+caseColumns+" FROM cases"+where+limitClause, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list cases")
	}
	defer rows.Close()

	var cases []domain.Case
	for rows.Next() {
		var c domain.Case
		if err := rows.Scan(
			&c.ID, &c.CaseNumber, &c.Status, &c.Title, &c.Description, &c.Category,
			&c.BeneficiaryID, &c.AssignedLawyerID, &c.InternalNotes,
			&c.AcceptedByUserID, &c.AcceptedAt, &c.CompletedAt, &c.ClosedAt,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan case")
		}
		cases = append(cases, c)
	}

	return cases, total, nil
}

// GetTimeline returns the ordered timeline for a case
func (r *PostgresRepository) GetTimeline(ctx context.Context, caseID types.ID, limit, offset int) ([]domain.TimelineEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, case_id, event_type, from_status, to_status, note, actor_user_id, created_at
		FROM case_timeline_events
		WHERE case_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, caseID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query timeline")
	}
	defer rows.Close()

	var events []domain.TimelineEvent
	for rows.Next() {
		var e domain.TimelineEvent
		var from, to *string
		if err := rows.Scan(&e.ID, &e.CaseID, &e.EventType, &from, &to, &e.Note, &e.ActorUserID, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan timeline event")
		}
		if from != nil {
			e.FromStatus = domain.Status(*from)
		}
		if to != nil {
			e.ToStatus = domain.Status(*to)
		}
		events = append(events, e)
	}

	return events, nil
}

func saveEvent(ctx context.Context, tx pgx.Tx, e *domain.TimelineEvent) error {
	query := `
		INSERT INTO case_timeline_events (id, case_id, event_type, from_status, to_status, note, actor_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var from, to *string
	if e.FromStatus != "" {
		s := string(e.FromStatus)
		from = &s
	}
	if e.ToStatus != "" {
		s := string(e.ToStatus)
		to = &s
	}

	if _, err := tx.Exec(ctx, query, e.ID, e.CaseID, e.EventType, from, to, e.Note, e.ActorUserID, e.CreatedAt); err != nil {
		return errors.Wrap(err, "failed to save timeline event")
	}
	return nil
}
