package models

import "time"

// UploadSession tracks progress of uploading the chunks a version newly
// requires. It is created 1:1 with its version at init time. The set of
// received hashes is persisted separately (session_chunks); adding a hash
// twice is a no-op there, so notification replays cannot double count.
type UploadSession struct {
	ID        string
	FileID    string
	VersionID string
	// ExpectedCount is the number of distinct chunk hashes that were absent
	// from the content store when the session was created. It is a hint, not
	// a hard gate: completion always re-verifies against the store.
	ExpectedCount int
	// ClientComplete is set once the client has declared the upload done.
	ClientComplete bool
	Status         Status

	CreatedAt time.Time
}

// AllReceived reports whether the given received-set size covers every
// upload the session expected.
func (s *UploadSession) AllReceived(received int) bool {
	return received >= s.ExpectedCount
}
