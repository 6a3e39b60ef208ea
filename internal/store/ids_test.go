package store

import (
	"strings"
	"testing"
)

func TestNewDraftIDShapeAndPrefix(t *testing.T) {
	id, err := NewDraftID()
	if err != nil {
		t.Fatalf("NewDraftID: %v", err)
	}
	if !strings.HasPrefix(id, "draft-") {
		t.Fatalf("expected draft prefix, got %q", id)
	}
	suffix := strings.TrimPrefix(id, "draft-")
	if got, want := len(suffix), 8; got != want {
		t.Fatalf("expected suffix len %d, got %d (%q)", want, got, suffix)
	}
	if suffix != strings.ToLower(suffix) {
		t.Fatalf("expected lowercase suffix, got %q", suffix)
	}
}

func TestIsDraftID(t *testing.T) {
	id, err := NewDraftID()
	if err != nil {
		t.Fatalf("NewDraftID: %v", err)
	}
	if !IsDraftID(id) {
		t.Fatalf("expected %q to be a draft id", id)
	}
	if IsDraftID("lsn-abc123") {
		t.Fatalf("server id misread as draft")
	}
	if IsDraftID("") {
		t.Fatalf("empty id misread as draft")
	}
}
