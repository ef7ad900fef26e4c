package sessions

import (
	"context"

	"github.com/chunksync/chunksync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, session *models.UploadSession) error
	GetByVersionID(ctx context.Context, versionID string) (*models.UploadSession, error)
	MarkReceived(ctx context.Context, sessionID string, hash string) error
	ReceivedHashes(ctx context.Context, sessionID string) (map[string]struct{}, error)
	ReceivedCount(ctx context.Context, sessionID string) (int, error)
	SetClientComplete(ctx context.Context, sessionID string) error
	SetAvailable(ctx context.Context, sessionID string) error
	FindAwaitingHash(ctx context.Context, hash string) ([]*models.UploadSession, error)
}
