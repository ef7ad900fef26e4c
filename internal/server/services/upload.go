// Package services contains the upload orchestrator and the manifest
// builder: the server-side core of chunk-level deduplicating sync.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chunksync/chunksync/internal/common"
	"github.com/chunksync/chunksync/internal/dbx"
	"github.com/chunksync/chunksync/internal/logging"
	"github.com/chunksync/chunksync/internal/server/blobstore"
	sc "github.com/chunksync/chunksync/internal/server/config"
	"github.com/chunksync/chunksync/internal/server/models"
	"github.com/chunksync/chunksync/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// UploadService orchestrates chunk uploads: it computes which chunks the
// content store is missing, hands out presigned upload targets, tracks
// receipt, and finalizes versions once the store holds everything.
type UploadService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	store  blobstore.Store
	config *sc.Config
	logger logging.Logger
}

func NewUploadService(db *sql.DB, repos repomanager.RepositoryManager, store blobstore.Store, config *sc.Config, logger logging.Logger) *UploadService {
	return &UploadService{
		db:     db,
		repos:  repos,
		store:  store,
		config: config,
		logger: logger.With("module", "upload_service"),
	}
}

// InitUploadRequest declares a new version of a file: its full ordered chunk
// list plus the metadata a client needs later to reassemble the content.
type InitUploadRequest struct {
	// FileID is empty for a brand-new file, or an existing file id to
	// declare a new version of it.
	FileID          string
	FileName        string
	ContentType     string
	Chunking        models.ChunkingMeta
	ReassembledSize int64
	Chunks          []models.ChunkRef
}

// MissingPart instructs the client to upload one chunk. Index is the first
// submission index that referenced the hash.
type MissingPart struct {
	Index     int
	Hash      string
	Length    int64
	UploadURL string
}

// InitUploadResult tells the client exactly what remains to upload and
// where, and which records track the attempt.
type InitUploadResult struct {
	FileID        string
	VersionID     string
	SessionID     string
	Status        models.Status
	MissingParts  []MissingPart
	ReceivedCount int
	ExpectedCount int
}

func (r *InitUploadRequest) validate() error {
	if r.FileName == "" {
		return fmt.Errorf("%w: file name is required", common.ErrValidation)
	}
	if r.ContentType == "" {
		return fmt.Errorf("%w: content type is required", common.ErrValidation)
	}
	if r.Chunking.Strategy == "" {
		return fmt.Errorf("%w: chunking strategy is required", common.ErrValidation)
	}
	if len(r.Chunks) == 0 {
		return fmt.Errorf("%w: at least one chunk reference is required", common.ErrValidation)
	}
	for _, c := range r.Chunks {
		if c.Index < 0 {
			return fmt.Errorf("%w: chunk index must not be negative", common.ErrValidation)
		}
		if c.Length < 0 {
			return fmt.Errorf("%w: chunk length must not be negative", common.ErrValidation)
		}
		if c.Hash == "" {
			return fmt.Errorf("%w: chunk hash is required", common.ErrValidation)
		}
	}
	return nil
}

// InitUpload resolves or creates the file, records a new immutable version
// with its upload session, and splits the submitted chunk list into hashes
// the store already holds (pre-marked received) and hashes the client must
// upload (returned with presigned PUT URLs). Duplicate hashes within one
// submission collapse to a single upload.
func (s *UploadService) InitUpload(ctx context.Context, req *InitUploadRequest) (*InitUploadResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var file *models.File
	if req.FileID == "" {
		file = &models.File{
			ID:          uuid.NewString(),
			Name:        req.FileName,
			ContentType: req.ContentType,
			Size:        req.ReassembledSize,
			Status:      models.StatusPending,
		}
	} else {
		existing, err := s.repos.Files(s.db).GetByID(ctx, req.FileID)
		if err != nil {
			return nil, err
		}
		existing.Name = req.FileName
		existing.ContentType = req.ContentType
		existing.Size = req.ReassembledSize
		existing.Status = models.StatusUpdating
		file = existing
	}

	version := &models.Version{
		ID:              uuid.NewString(),
		FileID:          file.ID,
		Status:          file.Status,
		Chunking:        req.Chunking,
		ReassembledSize: req.ReassembledSize,
		Chunks:          req.Chunks,
	}
	session := &models.UploadSession{
		ID:        uuid.NewString(),
		FileID:    file.ID,
		VersionID: version.ID,
		Status:    file.Status,
	}

	// Split unique hashes (first-occurrence order) into already-stored and
	// missing. Only misses produce upload work.
	var missing []MissingPart
	var received []string
	seen := make(map[string]struct{}, len(req.Chunks))
	for _, c := range req.Chunks {
		if _, ok := seen[c.Hash]; ok {
			continue
		}
		seen[c.Hash] = struct{}{}

		key := blobstore.ChunkKey(s.config.ObjectPrefix, c.Hash)
		exists, err := s.store.Exists(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("content store check: %w", err)
		}
		if exists {
			received = append(received, c.Hash)
			continue
		}

		url, err := s.store.PresignPut(ctx, key, s.config.PresignTTL)
		if err != nil {
			return nil, fmt.Errorf("presign upload: %w", err)
		}
		missing = append(missing, MissingPart{Index: c.Index, Hash: c.Hash, Length: c.Length, UploadURL: url})
	}
	session.ExpectedCount = len(missing)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		fileRepo := s.repos.Files(tx)
		if req.FileID == "" {
			if err := fileRepo.Create(ctx, file); err != nil {
				return err
			}
		} else if err := fileRepo.Update(ctx, file); err != nil {
			return err
		}

		if err := s.repos.Versions(tx).Create(ctx, version); err != nil {
			return err
		}

		sessionRepo := s.repos.Sessions(tx)
		if err := sessionRepo.Create(ctx, session); err != nil {
			return err
		}
		for _, hash := range received {
			if err := sessionRepo.MarkReceived(ctx, session.ID, hash); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("persisting upload state: %w", err)
	}

	s.logger.Info(ctx, "upload session created",
		"file_id", file.ID, "version_id", version.ID, "session_id", session.ID,
		"expected", session.ExpectedCount, "deduplicated", len(received))

	return &InitUploadResult{
		FileID:        file.ID,
		VersionID:     version.ID,
		SessionID:     session.ID,
		Status:        file.Status,
		MissingParts:  missing,
		ReceivedCount: len(received),
		ExpectedCount: session.ExpectedCount,
	}, nil
}

// CompleteUpload records the client's "done" signal and reconciles the
// session against the content store. Store existence is the source of truth:
// hashes whose notifications never arrived are re-checked directly, and the
// version finalizes as soon as every unique hash is confirmed present. Any
// hash still absent fails the call with fresh upload targets.
func (s *UploadService) CompleteUpload(ctx context.Context, fileID, versionID string) error {
	file, err := s.repos.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return err
	}

	version, err := s.repos.Versions(s.db).GetByID(ctx, versionID)
	if err != nil {
		return err
	}
	if version.FileID != file.ID {
		return fmt.Errorf("version %s of file %s: %w", versionID, fileID, common.ErrNotFound)
	}

	sessionRepo := s.repos.Sessions(s.db)
	session, err := sessionRepo.GetByVersionID(ctx, versionID)
	if err != nil {
		return err
	}

	if err := sessionRepo.SetClientComplete(ctx, session.ID); err != nil {
		return err
	}

	received, err := sessionRepo.ReceivedHashes(ctx, session.ID)
	if err != nil {
		return err
	}

	// Notifications may be lost, duplicated or reordered; anything not yet
	// marked received is re-checked against the store directly.
	var missing []common.MissingChunk
	for _, hash := range version.UniqueHashes() {
		if _, ok := received[hash]; ok {
			continue
		}

		key := blobstore.ChunkKey(s.config.ObjectPrefix, hash)
		exists, err := s.store.Exists(ctx, key)
		if err != nil {
			return fmt.Errorf("content store check: %w", err)
		}
		if exists {
			if err := sessionRepo.MarkReceived(ctx, session.ID, hash); err != nil {
				return err
			}
			continue
		}

		url, err := s.store.PresignPut(ctx, key, s.config.PresignTTL)
		if err != nil {
			return fmt.Errorf("presign upload: %w", err)
		}
		missing = append(missing, common.MissingChunk{Hash: hash, UploadURL: url})
	}

	if len(missing) > 0 {
		s.logger.Info(ctx, "complete rejected, chunks still missing",
			"session_id", session.ID, "missing", len(missing))
		return &common.MissingChunksError{Missing: missing}
	}

	return s.finalize(ctx, file.ID, version.ID, session.ID)
}

// ChunkStored fans a stored-chunk event out to every active session whose
// version references the hash. Sessions whose client already declared
// completion finalize once their received set covers every unique hash the
// version references. A failure on one session must not abort the others.
func (s *UploadService) ChunkStored(ctx context.Context, hash string) error {
	sessionRepo := s.repos.Sessions(s.db)

	awaiting, err := sessionRepo.FindAwaitingHash(ctx, hash)
	if err != nil {
		return fmt.Errorf("session lookup: %w", err)
	}

	for _, session := range awaiting {
		if err := sessionRepo.MarkReceived(ctx, session.ID, hash); err != nil {
			s.logger.Error(ctx, "marking chunk received",
				"session_id", session.ID, "hash", hash, "error", err)
			continue
		}
		if !session.ClientComplete {
			continue
		}

		count, err := sessionRepo.ReceivedCount(ctx, session.ID)
		if err != nil {
			s.logger.Error(ctx, "counting received chunks",
				"session_id", session.ID, "error", err)
			continue
		}
		if !session.AllReceived(count) {
			continue
		}

		// The count gate is a cheap precheck; the received set includes hashes
		// pre-marked at init, so it can reach ExpectedCount while a missing
		// chunk is still outstanding. Only full coverage of the version's
		// unique hashes finalizes.
		received, err := sessionRepo.ReceivedHashes(ctx, session.ID)
		if err != nil {
			s.logger.Error(ctx, "loading received chunks",
				"session_id", session.ID, "error", err)
			continue
		}
		version, err := s.repos.Versions(s.db).GetByID(ctx, session.VersionID)
		if err != nil {
			s.logger.Error(ctx, "session references missing version",
				"session_id", session.ID, "version_id", session.VersionID, "error", err)
			continue
		}
		covered := true
		for _, h := range version.UniqueHashes() {
			if _, ok := received[h]; !ok {
				covered = false
				break
			}
		}
		if !covered {
			continue
		}

		// A session pointing at a vanished file is a consistency bug; log it
		// and keep processing the remaining sessions.
		if _, err := s.repos.Files(s.db).GetByID(ctx, session.FileID); err != nil {
			s.logger.Error(ctx, "session references missing file",
				"session_id", session.ID, "file_id", session.FileID, "error", err)
			continue
		}

		if err := s.finalize(ctx, session.FileID, session.VersionID, session.ID); err != nil {
			s.logger.Error(ctx, "finalizing session",
				"session_id", session.ID, "error", err)
		}
	}
	return nil
}

// finalize flips session, version and file to AVAILABLE and repoints the
// file at the version. Every statement is an idempotent UPDATE, so racing
// calls from CompleteUpload and the notification path converge on the same
// state.
func (s *UploadService) finalize(ctx context.Context, fileID, versionID, sessionID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Sessions(tx).SetAvailable(ctx, sessionID); err != nil {
			return err
		}
		if err := s.repos.Versions(tx).SetAvailable(ctx, versionID); err != nil {
			return err
		}
		return s.repos.Files(tx).SetAvailable(ctx, fileID, versionID)
	})
	if err != nil {
		return fmt.Errorf("finalizing version: %w", err)
	}

	s.logger.Info(ctx, "version available",
		"file_id", fileID, "version_id", versionID, "session_id", sessionID)
	return nil
}
