package files

import (
	"context"

	"github.com/chunksync/chunksync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id string) (*models.File, error)
	Update(ctx context.Context, file *models.File) error
	SetAvailable(ctx context.Context, id string, versionID string) error
}
