package blobstore

import "testing"

func TestChunkKey(t *testing.T) {
	if got := ChunkKey("chunks/", "abc"); got != "chunks/abc" {
		t.Fatalf("ChunkKey = %q, want chunks/abc", got)
	}
}

func TestHashFromKey(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		want   string
		wantOK bool
	}{
		{"chunk key", "chunks/abc", "abc", true},
		{"wrong prefix", "uploads/abc", "", false},
		{"bare prefix", "chunks/", "", false},
		{"nested path", "chunks/a/b", "", false},
		{"unrelated object", "backups/2026/dump.sql", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := HashFromKey("chunks/", tc.key)
			if ok != tc.wantOK || got != tc.want {
				t.Fatalf("HashFromKey(%q) = (%q, %v), want (%q, %v)", tc.key, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}
