package api

import (
	"strings"
)

// routeLabel turns a request path into a low-cardinality metric label by
// replacing identifier segments with ":id".
func routeLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if isIdentifier(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func isIdentifier(seg string) bool {
	if seg == "" {
		return false
	}
	digits := 0
	for _, r := range seg {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '-' || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F'):
		default:
			return false
		}
	}
	// Plain numbers, and UUIDs (36 chars with dashes).
	return digits == len(seg) || (len(seg) == 36 && strings.Count(seg, "-") == 4)
}
