package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chunksync/chunksync/internal/common"
	"github.com/chunksync/chunksync/internal/server/blobstore"
	sc "github.com/chunksync/chunksync/internal/server/config"
	"github.com/chunksync/chunksync/internal/server/models"
	"github.com/chunksync/chunksync/internal/server/repositories/repomanager"
)

// ManifestService produces the ordered, downloadable representation of a
// file's current version. Read-only.
type ManifestService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	store  blobstore.Store
	config *sc.Config
}

func NewManifestService(db *sql.DB, repos repomanager.RepositoryManager, store blobstore.Store, config *sc.Config) *ManifestService {
	return &ManifestService{
		db:     db,
		repos:  repos,
		store:  store,
		config: config,
	}
}

// ManifestPart describes one chunk to download, in version order.
type ManifestPart struct {
	Index       int
	Hash        string
	Length      int64
	DownloadURL string
}

// Manifest is everything a client needs to fetch and reassemble a file.
type Manifest struct {
	FileID          string
	VersionID       string
	FileName        string
	ContentType     string
	Chunking        models.ChunkingMeta
	ReassembledSize int64
	Parts           []ManifestPart
}

// Manifest returns the manifest for the file's current version. The file
// and its current version must both be AVAILABLE; an upload still in flight
// fails with common.ErrNotAvailable rather than waiting.
func (s *ManifestService) Manifest(ctx context.Context, fileID string) (*Manifest, error) {
	file, err := s.repos.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.Status != models.StatusAvailable || file.CurrentVersionID == nil {
		return nil, fmt.Errorf("file %s: %w", fileID, common.ErrNotAvailable)
	}

	version, err := s.repos.Versions(s.db).GetByID(ctx, *file.CurrentVersionID)
	if err != nil {
		return nil, err
	}
	if version.Status != models.StatusAvailable {
		return nil, fmt.Errorf("version %s: %w", version.ID, common.ErrNotAvailable)
	}

	parts := make([]ManifestPart, 0, len(version.Chunks))
	for _, c := range version.Chunks {
		key := blobstore.ChunkKey(s.config.ObjectPrefix, c.Hash)
		url, err := s.store.PresignGet(ctx, key, s.config.PresignTTL)
		if err != nil {
			return nil, fmt.Errorf("presign download: %w", err)
		}
		parts = append(parts, ManifestPart{Index: c.Index, Hash: c.Hash, Length: c.Length, DownloadURL: url})
	}

	return &Manifest{
		FileID:          file.ID,
		VersionID:       version.ID,
		FileName:        file.Name,
		ContentType:     file.ContentType,
		Chunking:        version.Chunking,
		ReassembledSize: version.ReassembledSize,
		Parts:           parts,
	}, nil
}
