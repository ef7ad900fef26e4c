package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/chunksync/chunksync/internal/common"
	"github.com/chunksync/chunksync/internal/server/models"
	"github.com/chunksync/chunksync/internal/server/services"
)

type chunkRefDTO struct {
	Index  int    `json:"index"`
	Hash   string `json:"hash"`
	Length int64  `json:"length"`
}

type chunkingDTO struct {
	Strategy           string `json:"strategy"`
	NormalizedNewlines bool   `json:"normalizedNewlines"`
	TrailingNewline    bool   `json:"trailingNewline"`
}

type initUploadRequestDTO struct {
	FileID          string        `json:"fileId,omitempty"`
	FileName        string        `json:"fileName"`
	ContentType     string        `json:"contentType"`
	Chunking        chunkingDTO   `json:"chunking"`
	ReassembledSize int64         `json:"reassembledSize"`
	Chunks          []chunkRefDTO `json:"chunks"`
}

type missingPartDTO struct {
	Index     int    `json:"index"`
	Hash      string `json:"hash"`
	Length    int64  `json:"length"`
	UploadURL string `json:"uploadUrl"`
}

type initUploadResponseDTO struct {
	FileID        string           `json:"fileId"`
	VersionID     string           `json:"versionId"`
	SessionID     string           `json:"sessionId"`
	Status        string           `json:"status"`
	MissingParts  []missingPartDTO `json:"missingParts"`
	ReceivedCount int              `json:"receivedCount"`
	ExpectedCount int              `json:"expectedCount"`
}

type missingChunkDTO struct {
	Hash      string `json:"hash"`
	UploadURL string `json:"uploadUrl"`
}

type manifestPartDTO struct {
	Index       int    `json:"index"`
	Hash        string `json:"hash"`
	Length      int64  `json:"length"`
	DownloadURL string `json:"downloadUrl"`
}

type manifestResponseDTO struct {
	FileID          string            `json:"fileId"`
	VersionID       string            `json:"versionId"`
	FileName        string            `json:"fileName"`
	ContentType     string            `json:"contentType"`
	Chunking        chunkingDTO       `json:"chunking"`
	ReassembledSize int64             `json:"reassembledSize"`
	Parts           []manifestPartDTO `json:"parts"`
}

type errorResponseDTO struct {
	Error   string            `json:"error"`
	Missing []missingChunkDTO `json:"missing,omitempty"`
}

func (s *Server) initUpload(w http.ResponseWriter, r *http.Request) {
	var dto initUploadRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponseDTO{Error: "invalid request body"})
		return
	}

	req := &services.InitUploadRequest{
		FileID:      dto.FileID,
		FileName:    dto.FileName,
		ContentType: dto.ContentType,
		Chunking: models.ChunkingMeta{
			Strategy:           dto.Chunking.Strategy,
			NormalizedNewlines: dto.Chunking.NormalizedNewlines,
			TrailingNewline:    dto.Chunking.TrailingNewline,
		},
		ReassembledSize: dto.ReassembledSize,
	}
	for _, c := range dto.Chunks {
		req.Chunks = append(req.Chunks, models.ChunkRef{Index: c.Index, Hash: c.Hash, Length: c.Length})
	}

	res, err := s.uploads.InitUpload(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := initUploadResponseDTO{
		FileID:        res.FileID,
		VersionID:     res.VersionID,
		SessionID:     res.SessionID,
		Status:        string(res.Status),
		MissingParts:  make([]missingPartDTO, 0, len(res.MissingParts)),
		ReceivedCount: res.ReceivedCount,
		ExpectedCount: res.ExpectedCount,
	}
	for _, p := range res.MissingParts {
		resp.MissingParts = append(resp.MissingParts, missingPartDTO{
			Index: p.Index, Hash: p.Hash, Length: p.Length, UploadURL: p.UploadURL,
		})
	}
	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) completeUpload(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.uploads.CompleteUpload(r.Context(), vars["fileID"], vars["versionID"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) manifest(w http.ResponseWriter, r *http.Request) {
	m, err := s.manifests.Manifest(r.Context(), mux.Vars(r)["fileID"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := manifestResponseDTO{
		FileID:      m.FileID,
		VersionID:   m.VersionID,
		FileName:    m.FileName,
		ContentType: m.ContentType,
		Chunking: chunkingDTO{
			Strategy:           m.Chunking.Strategy,
			NormalizedNewlines: m.Chunking.NormalizedNewlines,
			TrailingNewline:    m.Chunking.TrailingNewline,
		},
		ReassembledSize: m.ReassembledSize,
		Parts:           make([]manifestPartDTO, 0, len(m.Parts)),
	}
	for _, p := range m.Parts {
		resp.Parts = append(resp.Parts, manifestPartDTO{
			Index: p.Index, Hash: p.Hash, Length: p.Length, DownloadURL: p.DownloadURL,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var missing *common.MissingChunksError
	switch {
	case errors.As(err, &missing):
		resp := errorResponseDTO{Error: "chunks missing from content store"}
		for _, m := range missing.Missing {
			resp.Missing = append(resp.Missing, missingChunkDTO{Hash: m.Hash, UploadURL: m.UploadURL})
		}
		s.writeJSON(w, http.StatusConflict, resp)
	case errors.Is(err, common.ErrValidation):
		s.writeJSON(w, http.StatusBadRequest, errorResponseDTO{Error: err.Error()})
	case errors.Is(err, common.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, errorResponseDTO{Error: err.Error()})
	case errors.Is(err, common.ErrNotAvailable):
		s.writeJSON(w, http.StatusConflict, errorResponseDTO{Error: err.Error()})
	default:
		s.logger.Error(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponseDTO{Error: "internal error"})
	}
}
