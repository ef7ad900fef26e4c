package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chunksync/chunksync/internal/common"
	"github.com/chunksync/chunksync/internal/dbx"
	"github.com/chunksync/chunksync/internal/server/models"
)

// PostgresRepository implements upload-session storage over a dbx.DBTX
// (*sql.DB or *sql.Tx). The received-hash set lives in session_chunks with
// a (session_id, hash) primary key, which gives set semantics directly in
// the schema.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new session record.
func (r *PostgresRepository) Create(ctx context.Context, session *models.UploadSession) error {
	query := `
		INSERT INTO upload_sessions (id, file_id, version_id, expected_count, client_complete, status)
		VALUES ($1, $2, $3, $4, $5, $6);
	`
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.FileID, session.VersionID,
		session.ExpectedCount, session.ClientComplete, session.Status)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetByVersionID returns the session owning the given version, or
// common.ErrNotFound. Sessions are 1:1 with versions.
func (r *PostgresRepository) GetByVersionID(ctx context.Context, versionID string) (*models.UploadSession, error) {
	query := `
		SELECT id, file_id, version_id, expected_count, client_complete, status, created_at
		FROM upload_sessions WHERE version_id=$1
	`

	result := &models.UploadSession{}
	err := r.db.QueryRowContext(ctx, query, versionID).Scan(
		&result.ID, &result.FileID, &result.VersionID,
		&result.ExpectedCount, &result.ClientComplete, &result.Status, &result.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session for version %s: %w", versionID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to select session: %w", err)
	}
	return result, nil
}

// MarkReceived adds a hash to the session's received set. Re-adding a
// member is a no-op, so duplicated notifications cannot double count.
func (r *PostgresRepository) MarkReceived(ctx context.Context, sessionID string, hash string) error {
	query := `
		INSERT INTO session_chunks (session_id, hash)
		VALUES ($1, $2)
		ON CONFLICT (session_id, hash) DO NOTHING;
	`
	if _, err := r.db.ExecContext(ctx, query, sessionID, hash); err != nil {
		return fmt.Errorf("failed to mark chunk received: %w", err)
	}
	return nil
}

// ReceivedHashes returns the session's received set.
func (r *PostgresRepository) ReceivedHashes(ctx context.Context, sessionID string) (map[string]struct{}, error) {
	query := `SELECT hash FROM session_chunks WHERE session_id=$1`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to select received hashes: %w", err)
	}
	defer rows.Close()

	result := make(map[string]struct{})
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, err
		}
		result[hash] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ReceivedCount returns the size of the session's received set.
func (r *PostgresRepository) ReceivedCount(ctx context.Context, sessionID string) (int, error) {
	query := `SELECT count(*) FROM session_chunks WHERE session_id=$1`

	var count int
	if err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count received hashes: %w", err)
	}
	return count, nil
}

// SetClientComplete records the client's explicit "done" signal. Idempotent.
func (r *PostgresRepository) SetClientComplete(ctx context.Context, sessionID string) error {
	query := `UPDATE upload_sessions SET client_complete=true WHERE id=$1`
	result, err := r.db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to set client complete: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("session %s: %w", sessionID, common.ErrNotFound)
	}
	return nil
}

// SetAvailable marks the session AVAILABLE. Idempotent by construction.
func (r *PostgresRepository) SetAvailable(ctx context.Context, sessionID string) error {
	query := `UPDATE upload_sessions SET status='AVAILABLE' WHERE id=$1`
	result, err := r.db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to mark session available: %w", err)
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("session %s: %w", sessionID, common.ErrNotFound)
	}
	return nil
}

// FindAwaitingHash returns every active session whose version references the
// given chunk hash and whose file is still active. This is the notification
// fan-out lookup; a hash shared by several in-flight uploads matches all of
// them.
func (r *PostgresRepository) FindAwaitingHash(ctx context.Context, hash string) ([]*models.UploadSession, error) {
	query := `
		SELECT DISTINCT s.id, s.file_id, s.version_id, s.expected_count, s.client_complete, s.status, s.created_at
		FROM upload_sessions s
		JOIN version_chunks vc ON vc.version_id = s.version_id
		JOIN files f ON f.id = s.file_id
		WHERE vc.hash = $1 AND s.status <> 'AVAILABLE' AND f.status <> 'AVAILABLE'
	`
	rows, err := r.db.QueryContext(ctx, query, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to select sessions awaiting hash: %w", err)
	}
	defer rows.Close()

	var result []*models.UploadSession
	for rows.Next() {
		var item models.UploadSession
		if err := rows.Scan(&item.ID, &item.FileID, &item.VersionID,
			&item.ExpectedCount, &item.ClientComplete, &item.Status, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
