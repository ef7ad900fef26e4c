// Package models defines server-side data models persisted in the database.
package models

import "time"

// File is the identity of a logical file. Its content lives in the object
// store as chunks; the file row only carries naming and lifecycle state.
type File struct {
	// ID is the server-assigned file identifier.
	ID string
	// Name is the client-supplied display name.
	Name string
	// ContentType is the declared MIME type.
	ContentType string
	// Size is the reassembled size in bytes of the latest declared version.
	Size int64
	// Status is the lifecycle state; see Status.
	Status Status
	// CurrentVersionID points at the latest AVAILABLE version, nil until the
	// first version finalizes.
	CurrentVersionID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
