package store

import (
	"strings"

	"github.com/google/uuid"
)

// NewAgentID returns a fresh 8 hex character opaque token, matching spec
// §3/§4.2's "8 hex chars from a UUID source" — the first 8 hex digits of a
// freshly generated UUID with separators stripped.
func NewAgentID() string {
	u := uuid.New().String()
	return strings.ReplaceAll(u, "-", "")[:8]
}
