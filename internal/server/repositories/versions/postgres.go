package versions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chunksync/chunksync/internal/common"
	"github.com/chunksync/chunksync/internal/dbx"
	"github.com/chunksync/chunksync/internal/server/models"
)

// PostgresRepository implements version storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the version row and its ordered chunk references. The
// chunk list is immutable afterwards; there is deliberately no update path
// for version_chunks.
func (r *PostgresRepository) Create(ctx context.Context, version *models.Version) error {
	query := `
		INSERT INTO versions (id, file_id, status, strategy, normalized_newlines, trailing_newline, reassembled_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.db.ExecContext(ctx, query,
		version.ID, version.FileID, version.Status,
		version.Chunking.Strategy, version.Chunking.NormalizedNewlines, version.Chunking.TrailingNewline,
		version.ReassembledSize)
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}

	chunkQuery := `
		INSERT INTO version_chunks (version_id, idx, hash, length)
		VALUES ($1, $2, $3, $4);
	`
	for _, c := range version.Chunks {
		if _, err := r.db.ExecContext(ctx, chunkQuery, version.ID, c.Index, c.Hash, c.Length); err != nil {
			return fmt.Errorf("failed to insert version chunk %d: %w", c.Index, err)
		}
	}
	return nil
}

// GetByID returns the version with its chunk list in index order, or
// common.ErrNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Version, error) {
	query := `
		SELECT id, file_id, status, strategy, normalized_newlines, trailing_newline, reassembled_size, created_at
		FROM versions WHERE id=$1
	`

	result := &models.Version{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&result.ID, &result.FileID, &result.Status,
		&result.Chunking.Strategy, &result.Chunking.NormalizedNewlines, &result.Chunking.TrailingNewline,
		&result.ReassembledSize, &result.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("version %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select version: %w", err)
	}

	chunkQuery := `
		SELECT idx, hash, length FROM version_chunks
		WHERE version_id=$1 ORDER BY idx
	`
	rows, err := r.db.QueryContext(ctx, chunkQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to select version chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.ChunkRef
		if err := rows.Scan(&c.Index, &c.Hash, &c.Length); err != nil {
			return nil, err
		}
		result.Chunks = append(result.Chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SetAvailable marks the version AVAILABLE. Idempotent by construction.
func (r *PostgresRepository) SetAvailable(ctx context.Context, id string) error {
	query := `UPDATE versions SET status='AVAILABLE' WHERE id=$1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark version available: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("version %s: %w", id, common.ErrNotFound)
	}
	return nil
}
