package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chunksync/chunksync/internal/common"
	"github.com/chunksync/chunksync/internal/dbx"
	"github.com/chunksync/chunksync/internal/server/models"
)

// PostgresRepository implements file storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new file record.
func (r *PostgresRepository) Create(ctx context.Context, file *models.File) error {
	query := `
		INSERT INTO files (id, name, content_type, size, status)
		VALUES ($1, $2, $3, $4, $5);
	`
	_, err := r.db.ExecContext(ctx, query,
		file.ID, file.Name, file.ContentType, file.Size, file.Status)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

// GetByID returns the file with the given id, or common.ErrNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `
		SELECT id, name, content_type, size, status, current_version_id, created_at, updated_at
		FROM files WHERE id=$1
	`

	result := &models.File{}
	var currentVersion sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&result.ID, &result.Name, &result.ContentType, &result.Size,
		&result.Status, &currentVersion, &result.CreatedAt, &result.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("file %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	if currentVersion.Valid {
		result.CurrentVersionID = &currentVersion.String
	}
	return result, nil
}

// Update rewrites the client-controlled fields and the lifecycle status of
// an existing file. Exactly one row must be affected.
func (r *PostgresRepository) Update(ctx context.Context, file *models.File) error {
	query := `
		UPDATE files
		SET name=$2, content_type=$3, size=$4, status=$5, updated_at=now()
		WHERE id=$1
	`
	result, err := r.db.ExecContext(ctx, query,
		file.ID, file.Name, file.ContentType, file.Size, file.Status)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("file %s: %w", file.ID, common.ErrNotFound)
	}
	return nil
}

// SetAvailable marks the file AVAILABLE and repoints current_version_id.
// The statement is a plain idempotent UPDATE so concurrent finalize attempts
// converge on the same row state.
func (r *PostgresRepository) SetAvailable(ctx context.Context, id string, versionID string) error {
	query := `
		UPDATE files
		SET status='AVAILABLE', current_version_id=$2, updated_at=now()
		WHERE id=$1
	`
	result, err := r.db.ExecContext(ctx, query, id, versionID)
	if err != nil {
		return fmt.Errorf("failed to mark file available: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("file %s: %w", id, common.ErrNotFound)
	}
	return nil
}
