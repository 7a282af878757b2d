package task

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// Repository defines the interface for task persistence. Update persists the
// task row together with any pending events in one transaction.
type Repository interface {
	Save(ctx context.Context, t *Task) error
	FindByID(ctx context.Context, id types.ID) (*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id types.ID) error

	List(ctx context.Context, filter ListFilter) ([]Task, int, error)
	FindByBeneficiary(ctx context.Context, beneficiaryID types.ID, filter ListFilter) ([]Task, int, error)
	FindByLawyer(ctx context.Context, lawyerID types.ID, filter ListFilter) ([]Task, int, error)

	GetEvents(ctx context.Context, taskID types.ID, limit, offset int) ([]Event, error)
}

// ListFilter defines filters for listing tasks
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

const taskColumns = `id, status, title, description, beneficiary_id,
	assigned_user_id, lawyer_id, due_at, completed_at, created_at, updated_at`

// Save inserts a new task with its creation event
func (r *PostgresRepository) Save(ctx context.Context, t *Task) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = tx.Exec(ctx, query,
		t.ID, t.Status, t.Title, t.Description, t.BeneficiaryID,
		t.AssignedUserID, t.LawyerID, t.DueAt, t.CompletedAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save task")
	}

	for _, e := range t.PendingEvents() {
		if err := saveEvent(ctx, tx, &e); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	t.ClearPendingEvents()
	return nil
}

// FindByID finds a task by ID
func (r *PostgresRepository) FindByID(ctx context.Context, id types.ID) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	t := &Task{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Status, &t.Title, &t.Description, &t.BeneficiaryID,
		&t.AssignedUserID, &t.LawyerID, &t.DueAt, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("task", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find task")
	}
	return t, nil
}

// Update persists the task row and any pending events in one transaction
func (r *PostgresRepository) Update(ctx context.Context, t *Task) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE tasks SET
			status = $2, title = $3, description = $4,
			assigned_user_id = $5, lawyer_id = $6,
			due_at = $7, completed_at = $8, updated_at = $9
		WHERE id = $1`

	tag, err := tx.Exec(ctx, query,
		t.ID, t.Status, t.Title, t.Description,
		t.AssignedUserID, t.LawyerID,
		t.DueAt, t.CompletedAt, t.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update task")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("task", t.ID.String())
	}

	for _, e := range t.PendingEvents() {
		if err := saveEvent(ctx, tx, &e); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	t.ClearPendingEvents()
	return nil
}

// Delete hard-deletes a task. Events cascade.
func (r *PostgresRepository) Delete(ctx context.Context, id types.ID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete task")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("task", id.String())
	}
	return nil
}

// List lists all tasks matching the filter
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Task, int, error) {
	return r.query(ctx, filter, "", nil)
}

// FindByBeneficiary lists tasks for the beneficiary
func (r *PostgresRepository) FindByBeneficiary(ctx context.Context, beneficiaryID types.ID, filter ListFilter) ([]Task, int, error) {
	return r.query(ctx, filter, "beneficiary_id", beneficiaryID)
}

// FindByLawyer lists tasks linked to the lawyer
func (r *PostgresRepository) FindByLawyer(ctx context.Context, lawyerID types.ID, filter ListFilter) ([]Task, int, error) {
	return r.query(ctx, filter, "lawyer_id", lawyerID)
}

func (r *PostgresRepository) query(ctx context.Context, filter ListFilter, scopeColumn string, scopeValue any) ([]Task, int, error) {
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
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM tasks"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count tasks")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	clause := fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, filter.Offset)
	clause += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, "SELECT "+taskColumns+" FROM tasks"+where+clause, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to list tasks")
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(
			&t.ID, &t.Status, &t.Title, &t.Description, &t.BeneficiaryID,
			&t.AssignedUserID, &t.LawyerID, &t.DueAt, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, 0, errors.Wrap(err, "failed to scan task")
		}
		tasks = append(tasks, t)
	}

	return tasks, total, nil
}

// GetEvents returns the ordered event trail for a task
func (r *PostgresRepository) GetEvents(ctx context.Context, taskID types.ID, limit, offset int) ([]Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, task_id, from_status, to_status, note, actor_user_id, created_at
		FROM task_events
		WHERE task_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, taskID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query task events")
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var from, to *string
		if err := rows.Scan(&e.ID, &e.TaskID, &from, &to, &e.Note, &e.ActorUserID, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan task event")
		}
		if from != nil {
			e.FromStatus = Status(*from)
		}
		if to != nil {
			e.ToStatus = Status(*to)
		}
		events = append(events, e)
	}

	return events, nil
}

func saveEvent(ctx context.Context, tx pgx.Tx, e *Event) error {
	query := `
		INSERT INTO task_events (id, task_id, from_status, to_status, note, actor_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	var from, to *string
	if e.FromStatus != "" {
		s := string(e.FromStatus)
		from = &s
	}
	if e.ToStatus != "" {
		s := string(e.ToStatus)
		to = &s
	}

	if _, err := tx.Exec(ctx, query, e.ID, e.TaskID, from, to, e.Note, e.ActorUserID, e.CreatedAt); err != nil {
		return errors.Wrap(err, "failed to save task event")
	}
	return nil
}
