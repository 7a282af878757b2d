package document

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/legalaid-center/platform/internal/shared/errors"
	"github.com/legalaid-center/platform/internal/shared/types"
)

// Repository defines the interface for document-metadata persistence
type Repository interface {
	Save(ctx context.Context, d *Document) error
	FindByID(ctx context.Context, id types.ID) (*Document, error)
	ListByParent(ctx context.Context, parentKind ParentKind, parentID types.ID) ([]Document, error)

	// ListPublicByParent pre-filters internal documents in the query so a
	// beneficiary-scoped read never loads them at all.
	ListPublicByParent(ctx context.Context, parentKind ParentKind, parentID types.ID) ([]Document, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const documentColumns = `id, parent_kind, parent_id, storage_key, file_name,
	mime_type, size_bytes, is_public, uploaded_by, created_at`

// Save inserts a new document record
func (r *PostgresRepository) Save(ctx context.Context, d *Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		d.ID, d.ParentKind, d.ParentID, d.StorageKey, d.FileName,
		d.MimeType, d.SizeBytes, d.IsPublic, d.UploadedBy, d.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save document")
	}
	return nil
}

// FindByID finds a document by ID
func (r *PostgresRepository) FindByID(ctx context.Context, id types.ID) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	d := &Document{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.ParentKind, &d.ParentID, &d.StorageKey, &d.FileName,
		&d.MimeType, &d.SizeBytes, &d.IsPublic, &d.UploadedBy, &d.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("document", id.String())
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find document")
	}
	return d, nil
}

// ListByParent lists all documents attached to a parent
func (r *PostgresRepository) ListByParent(ctx context.Context, parentKind ParentKind, parentID types.ID) ([]Document, error) {
	return r.list(ctx, parentKind, parentID, false)
}

// ListPublicByParent lists only public documents attached to a parent
func (r *PostgresRepository) ListPublicByParent(ctx context.Context, parentKind ParentKind, parentID types.ID) ([]Document, error) {
	return r.list(ctx, parentKind, parentID, true)
}

func (r *PostgresRepository) list(ctx context.Context, parentKind ParentKind, parentID types.ID, publicOnly bool) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE parent_kind = $1 AND parent_id = $2`
	if publicOnly {
		query += ` AND is_public = TRUE`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, parentKind, parentID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(
			&d.ID, &d.ParentKind, &d.ParentID, &d.StorageKey, &d.FileName,
			&d.MimeType, &d.SizeBytes, &d.IsPublic, &d.UploadedBy, &d.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		docs = append(docs, d)
	}

	return docs, nil
}
