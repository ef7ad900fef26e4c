package models

import (
	"reflect"
	"testing"
)

func TestStatus_Active(t *testing.T) {
	if !StatusPending.Active() || !StatusUpdating.Active() {
		t.Fatal("PENDING and UPDATING must be active")
	}
	if StatusAvailable.Active() {
		t.Fatal("AVAILABLE must not be active")
	}
}

func TestStatus_Valid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusUpdating, StatusAvailable} {
		if !s.Valid() {
			t.Fatalf("%s should be valid", s)
		}
	}
	if Status("FAILED").Valid() {
		t.Fatal("unknown status should not be valid")
	}
}

func TestVersion_UniqueHashes_FirstOccurrenceOrder(t *testing.T) {
	v := &Version{
		Chunks: []ChunkRef{
			{Index: 0, Hash: "a", Length: 10},
			{Index: 1, Hash: "b", Length: 20},
			{Index: 2, Hash: "a", Length: 10},
			{Index: 3, Hash: "c", Length: 5},
			{Index: 4, Hash: "b", Length: 20},
		},
	}

	got := v.UniqueHashes()
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("UniqueHashes() = %v, want %v", got, want)
	}
}

func TestUploadSession_AllReceived(t *testing.T) {
	s := &UploadSession{ExpectedCount: 2}
	if s.AllReceived(1) {
		t.Fatal("1 of 2 should not be all received")
	}
	if !s.AllReceived(2) {
		t.Fatal("2 of 2 should be all received")
	}

	empty := &UploadSession{ExpectedCount: 0}
	if !empty.AllReceived(0) {
		t.Fatal("nothing expected means all received")
	}
}
