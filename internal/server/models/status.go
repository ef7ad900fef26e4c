package models

// Status is the lifecycle state shared by files, versions and upload
// sessions. Transitions only move forward: PENDING or UPDATING while an
// upload is in flight, AVAILABLE once the version is fully backed by the
// content store. AVAILABLE is terminal for a version and a session; a file
// leaves it again only when a later upload moves it back through UPDATING.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusUpdating  Status = "UPDATING"
	StatusAvailable Status = "AVAILABLE"
)

// Active reports whether the status still expects upload progress.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusUpdating
}

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUpdating, StatusAvailable:
		return true
	}
	return false
}
