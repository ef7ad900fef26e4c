package blobstore

import "strings"

// ChunkKey derives the object key for a chunk hash. The mapping is
// deterministic and collision-free per hash, which is what lets two versions
// of two different files share one stored chunk.
func ChunkKey(prefix, hash string) string {
	return prefix + hash
}

// HashFromKey inverts ChunkKey. It returns false for keys that do not name
// chunk objects: wrong prefix, empty remainder, or a remainder that still
// looks like a path. The store may hold unrelated objects; those are not
// ours to process.
func HashFromKey(prefix, key string) (string, bool) {
	hash, ok := strings.CutPrefix(key, prefix)
	if !ok || hash == "" || strings.Contains(hash, "/") {
		return "", false
	}
	return hash, true
}
