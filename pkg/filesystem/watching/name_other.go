//go:build !darwin

package watching

// normalizeName returns names reported by the backend unmodified.
func normalizeName(name string) string {
	return name
}
