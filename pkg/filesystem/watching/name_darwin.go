package watching

import (
	"golang.org/x/text/unicode/norm"
)

// normalizeName converts names reported by the backend to NFC, since the host
// may report decomposed names.
func normalizeName(name string) string {
	return norm.NFC.String(name)
}
