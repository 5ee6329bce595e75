package session

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// Scope derives the storage scope for an API base URL. Sessions issued by
// different backends are kept apart the way browsers keep storage apart
// per origin.
func Scope(baseURL string) string {
	normalized := strings.ToLower(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	sum := blake3.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:8])
}
