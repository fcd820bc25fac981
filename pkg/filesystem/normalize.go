package filesystem

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// tildeExpand attempts tilde expansion of paths beginning with ~ or ~/ (or ~\
// on Windows). Expansion of other users' home directories isn't supported.
func tildeExpand(path string) (string, error) {
	// Only process relevant paths.
	if path == "" || path[0] != '~' {
		return path, nil
	}

	// If the second character isn't a path separator, then someone is trying
	// to perform a ~username expansion.
	if len(path) > 1 && !os.IsPathSeparator(path[1]) {
		return "", errors.New("user-relative tilde expansion unsupported")
	}

	// Compute the home directory.
	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "unable to compute path to home directory")
	}

	// Compute the full path.
	if len(path) < 2 {
		return homeDirectory, nil
	}
	return filepath.Join(homeDirectory, path[2:]), nil
}

// Normalize normalizes a path, expanding home directory tildes, converting it
// to an absolute path, and cleaning the result.
func Normalize(path string) (string, error) {
	// Expand any leading tilde.
	path, err := tildeExpand(path)
	if err != nil {
		return "", errors.Wrap(err, "unable to perform tilde expansion")
	}

	// Convert to an absolute path. This will also invoke filepath.Clean.
	path, err = filepath.Abs(path)
	if err != nil {
		return "", errors.Wrap(err, "unable to compute absolute path")
	}

	// Success.
	return path, nil
}
