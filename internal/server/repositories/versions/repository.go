package versions

import (
	"context"

	"github.com/chunksync/chunksync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, version *models.Version) error
	GetByID(ctx context.Context, id string) (*models.Version, error)
	SetAvailable(ctx context.Context, id string) error
}
