package notification

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// Repository defines the interface for notification persistence
type Repository interface {
	Save(ctx context.Context, n *Notification) error
	ListByRecipient(ctx context.Context, userID types.ID, unreadOnly bool, limit, offset int) ([]Notification, error)
	CountUnread(ctx context.Context, userID types.ID) (int, error)
	MarkRead(ctx context.Context, id, userID types.ID) error
	MarkAllRead(ctx context.Context, userID types.ID) error
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save inserts a new notification record
func (r *PostgresRepository) Save(ctx context.Context, n *Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, title, message, related_entity_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.RelatedEntityID, n.IsRead, n.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save notification")
	}
	return nil
}

// ListByRecipient lists the recipient's notifications, newest first
func (r *PostgresRepository) ListByRecipient(ctx context.Context, userID types.ID, unreadOnly bool, limit, offset int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, user_id, type, title, message, related_entity_id, is_read, created_at
		FROM notifications
		WHERE user_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.RelatedEntityID, &n.IsRead, &n.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan notification")
		}
		notifications = append(notifications, n)
	}

	return notifications, nil
}

// CountUnread counts the recipient's unread notifications
func (r *PostgresRepository) CountUnread(ctx context.Context, userID types.ID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID,
	).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count notifications")
	}
	return count, nil
}

// MarkRead marks a single notification as read. Scoped to the recipient so
// one user cannot touch another's inbox.
func (r *PostgresRepository) MarkRead(ctx context.Context, id, userID types.ID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to mark notification read")
	}
	if tag.RowsAffected() == 0 {
		return errors.NotFound("notification", id.String())
	}
	return nil
}

// MarkAllRead marks all of the recipient's notifications as read
func (r *PostgresRepository) MarkAllRead(ctx context.Context, userID types.ID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to mark notifications read")
	}
	return nil
}
