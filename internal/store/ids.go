package store

import (
	"crypto/rand"
	"encoding/base32"
	"strings"
)

const draftPrefix = "draft-"

// newRandomID returns prefix-<suffix> where suffix is 8 chars of base32
// (lowercase, no padding). 8 chars base32 ~= 40 bits of space.
func newRandomID(prefix string) (string, error) {
	var b [5]byte // 40 bits -> 8 base32 chars
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return prefix + "-" + strings.ToLower(enc.EncodeToString(b[:])), nil
}

// NewDraftID mints an id for a locally created entity that does not have its
// server id yet. The prefix keeps drafts from colliding with server-issued
// ids.
func NewDraftID() (string, error) {
	return newRandomID("draft")
}

// NewStepID mints an id for a step. Steps live inside the lesson's content
// blob and are never re-identified by the server, so the client-minted id is
// the permanent one.
func NewStepID() (string, error) {
	return newRandomID("step")
}

// IsDraftID reports whether id was minted by NewDraftID.
func IsDraftID(id string) bool {
	return strings.HasPrefix(strings.TrimSpace(id), draftPrefix)
}
