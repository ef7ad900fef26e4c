// Package common holds the error taxonomy shared by services, repositories
// and the HTTP layer.
package common

import (
	"errors"
	"fmt"
)

var (

	// repository specific errors
	ErrNotFound = errors.New("not found")

	// orchestrator specific errors
	ErrValidation   = errors.New("validation error")
	ErrNotAvailable = errors.New("not available yet")

	// auth-specific errors
	ErrInvalidToken = errors.New("invalid token")
)

// MissingChunk names a chunk the content store does not hold yet, together
// with a fresh presigned URL the client can upload it to.
type MissingChunk struct {
	Hash      string
	UploadURL string
}

// MissingChunksError is returned when an upload is declared complete while
// one or more of its chunks are still absent from the content store. The
// caller is expected to upload the listed chunks and retry.
type MissingChunksError struct {
	Missing []MissingChunk
}

func (e *MissingChunksError) Error() string {
	return fmt.Sprintf("%d chunk(s) missing from content store", len(e.Missing))
}
