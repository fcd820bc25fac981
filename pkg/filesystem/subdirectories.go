package filesystem

import (
	"os"
)

// ReadSubdirectories returns the base names of the directories that are
// immediate children of the directory at the specified path. Symbolic links are
// not followed and are never reported.
func ReadSubdirectories(path string) ([]string, error) {
	// Read the directory contents.
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	// Filter out anything that isn't a directory.
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}

	// Success.
	return names, nil
}
