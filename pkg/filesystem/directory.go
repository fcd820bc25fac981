package filesystem

import (
	"os"

	"github.com/pkg/errors"
)

// Directory represents an open directory that can be the target of change
// notification requests.
type Directory struct {
	// file is the underlying directory file.
	file *os.File
	// path is the normalized path used to open the directory.
	path string
	// descriptorPath is a path that refers to the open descriptor itself, if
	// the platform supports one, otherwise it's equal to path.
	descriptorPath string
}

// OpenDirectory opens the directory at the specified path. The path is
// normalized before opening and the leaf must resolve to a directory.
func OpenDirectory(path string) (*Directory, error) {
	// Normalize the path.
	path, err := Normalize(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to normalize path")
	}

	// Open the path.
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	// Ensure that the target is a directory.
	if metadata, err := file.Stat(); err != nil {
		file.Close()
		return nil, errors.Wrap(err, "unable to query directory metadata")
	} else if !metadata.IsDir() {
		file.Close()
		return nil, errors.New("path is not a directory")
	}

	// Success.
	return &Directory{
		file:           file,
		path:           path,
		descriptorPath: descriptorPath(file, path),
	}, nil
}

// Close closes the directory.
func (d *Directory) Close() error {
	return d.file.Close()
}

// Descriptor provides access to the raw descriptor underlying the directory. It
// should not be used or retained beyond the point in time where the Close
// method is called, and it should not be closed externally.
func (d *Directory) Descriptor() uintptr {
	return d.file.Fd()
}

// Name returns the normalized path used to open the directory.
func (d *Directory) Name() string {
	return d.path
}

// Path returns a path that can be used to register host watches on the open
// directory. On Linux this refers to the descriptor itself, so it remains valid
// if the directory is renamed.
func (d *Directory) Path() string {
	return d.descriptorPath
}

// Identity returns the device and inode identity of the directory.
func (d *Directory) Identity() (Identity, error) {
	return identify(int(d.file.Fd()))
}
