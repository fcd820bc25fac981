//go:build !linux

package filesystem

import (
	"os"
)

// descriptorPath returns the path used to open a descriptor, since there's no
// portable path that refers to an open descriptor on this platform.
func descriptorPath(_ *os.File, path string) string {
	return path
}
