// Package notify turns content-store object-created events into
// stored-chunk signals for the upload orchestrator.
package notify

import (
	"context"
	"net/url"

	"github.com/chunksync/chunksync/internal/logging"
	"github.com/chunksync/chunksync/internal/server/blobstore"
)

// ChunkSink receives the hash of every chunk object confirmed stored.
type ChunkSink interface {
	ChunkStored(ctx context.Context, hash string) error
}

// Handler decodes object keys from store events and forwards chunk hashes
// to the sink. Keys outside the chunk prefix are ignored; the store may
// hold unrelated objects.
type Handler struct {
	sink   ChunkSink
	prefix string
	logger logging.Logger
}

func NewHandler(sink ChunkSink, prefix string, logger logging.Logger) *Handler {
	return &Handler{
		sink:   sink,
		prefix: prefix,
		logger: logger.With("module", "notify"),
	}
}

// OnObjectCreated processes one object-created event. Event keys arrive
// percent-encoded. Undecodable or foreign keys are logged and dropped, never
// errored: reconciliation on complete covers anything skipped here.
func (h *Handler) OnObjectCreated(ctx context.Context, rawKey string) error {
	key, err := url.QueryUnescape(rawKey)
	if err != nil {
		h.logger.Error(ctx, "undecodable object key", "key", rawKey, "error", err)
		return nil
	}

	hash, ok := blobstore.HashFromKey(h.prefix, key)
	if !ok {
		h.logger.Debug(ctx, "ignoring object outside chunk prefix", "key", key)
		return nil
	}

	return h.sink.ChunkStored(ctx, hash)
}
