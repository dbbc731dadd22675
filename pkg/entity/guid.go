package entity

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// NewGUID returns a fresh random identifier.
func NewGUID() uuid.UUID {
	return uuid.New()
}

// GUIDString encodes a GUID in the 32 hex digit form used by every backend.
// The nil GUID encodes as an empty string.
func GUIDString(g uuid.UUID) string {
	if g == uuid.Nil {
		return ""
	}
	return hex.EncodeToString(g[:])
}

// ParseGUID decodes a GUID written by GUIDString.
// The canonical dashed form is accepted as well. An empty string yields uuid.Nil.
func ParseGUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	g, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid guid %q: %w", s, err)
	}
	return g, nil
}
