// Package httpapi exposes the upload orchestrator and manifest builder over
// a JSON HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/chunksync/chunksync/internal/logging"
	"github.com/chunksync/chunksync/internal/server/services"
)

// UploadOrchestrator is the write side of the API.
type UploadOrchestrator interface {
	InitUpload(ctx context.Context, req *services.InitUploadRequest) (*services.InitUploadResult, error)
	CompleteUpload(ctx context.Context, fileID, versionID string) error
}

// ManifestBuilder is the read side.
type ManifestBuilder interface {
	Manifest(ctx context.Context, fileID string) (*services.Manifest, error)
}

type Server struct {
	addr      string
	uploads   UploadOrchestrator
	manifests ManifestBuilder
	logger    logging.Logger
	secretKey []byte
}

// NewServer builds the API server. An empty secretKey disables
// authentication; with a key set, /api/v1 requires a bearer token.
func NewServer(addr string, uploads UploadOrchestrator, manifests ManifestBuilder, secretKey []byte, logger logging.Logger) *Server {
	return &Server{
		addr:      addr,
		uploads:   uploads,
		manifests: manifests,
		logger:    logger.With("module", "httpapi"),
		secretKey: secretKey,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	if len(s.secretKey) > 0 {
		api.Use(s.authMiddleware)
	}
	api.HandleFunc("/uploads", s.initUpload).Methods(http.MethodPost)
	api.HandleFunc("/files/{fileID}/versions/{versionID}/complete", s.completeUpload).Methods(http.MethodPost)
	api.HandleFunc("/files/{fileID}/manifest", s.manifest).Methods(http.MethodGet)
	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server started", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info(ctx, "http server stopping")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
