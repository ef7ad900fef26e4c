package models

import "time"

// ChunkRef points at one content chunk of a version. Hashes are produced by
// the client's chunker and treated as opaque here.
type ChunkRef struct {
	// Index is the position of the chunk in the reassembled file.
	Index int
	// Hash is the content hash identifying the chunk in the store.
	Hash string
	// Length is the declared chunk length in bytes.
	Length int64
}

// ChunkingMeta carries what the client needs to reassemble the file from its
// chunks. The server never interprets it beyond requiring a strategy name.
type ChunkingMeta struct {
	// Strategy names the chunking algorithm the client used.
	Strategy string
	// NormalizedNewlines is true when line endings were normalized before
	// chunking.
	NormalizedNewlines bool
	// TrailingNewline is true when the original content ends with a newline.
	TrailingNewline bool
}

// Version is an immutable declaration of a file's content at one upload
// attempt. The chunk list never changes after creation; only Status moves.
type Version struct {
	ID              string
	FileID          string
	Status          Status
	Chunking        ChunkingMeta
	ReassembledSize int64
	// Chunks is the ordered chunk list, index order as submitted.
	Chunks []ChunkRef

	CreatedAt time.Time
}

// UniqueHashes returns the distinct chunk hashes in first-occurrence order.
// Duplicate references within one version (repeated content) collapse to a
// single hash.
func (v *Version) UniqueHashes() []string {
	seen := make(map[string]struct{}, len(v.Chunks))
	result := make([]string, 0, len(v.Chunks))
	for _, c := range v.Chunks {
		if _, ok := seen[c.Hash]; ok {
			continue
		}
		seen[c.Hash] = struct{}{}
		result = append(result, c.Hash)
	}
	return result
}
