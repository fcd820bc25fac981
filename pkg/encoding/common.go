package encoding

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	// maximumFileSize is the largest configuration file that will be loaded.
	maximumFileSize = 1 << 20
)

// LoadAndUnmarshal reads the configuration file at the specified path and
// passes its contents to the specified unmarshaling callback (usually a
// closure). The path must refer to a regular file no larger than
// maximumFileSize. Non-existence errors are returned unwrapped so that callers
// can fall back to defaults by checking them with os.IsNotExist.
func LoadAndUnmarshal(path string, unmarshal func([]byte) error) error {
	// Open the file.
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return errors.Wrap(err, "unable to open file")
	}
	defer file.Close()

	// Ensure that it's a regular file of acceptable size.
	if metadata, err := file.Stat(); err != nil {
		return errors.Wrap(err, "unable to query file metadata")
	} else if !metadata.Mode().IsRegular() {
		return errors.New("not a regular file")
	} else if metadata.Size() > maximumFileSize {
		return errors.Errorf("file exceeds maximum size (%d bytes)", maximumFileSize)
	}

	// Read the contents. The file may have grown since it was inspected, so
	// the read is bounded as well.
	data, err := io.ReadAll(io.LimitReader(file, maximumFileSize+1))
	if err != nil {
		return errors.Wrap(err, "unable to read file")
	} else if len(data) > maximumFileSize {
		return errors.Errorf("file exceeds maximum size (%d bytes)", maximumFileSize)
	}

	// Perform the unmarshaling.
	if err := unmarshal(data); err != nil {
		return errors.Wrap(err, "unable to unmarshal data")
	}

	// Success.
	return nil
}
