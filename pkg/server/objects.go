package server

import (
	"github.com/mutagen-io/dirnotify/pkg/filesystem"
	"github.com/mutagen-io/dirnotify/pkg/filesystem/watching"
)

// directory is the handle table object for an open directory. Its watch is
// created the first time the directory is armed.
type directory struct {
	// directory is the underlying open directory.
	directory *filesystem.Directory
	// watch is the directory watch, if any.
	watch *watching.Watch
}

// Close implements io.Closer.Close. The watch is closed before the directory
// since it may still reference the directory descriptor.
func (d *directory) Close() error {
	if d.watch != nil {
		d.watch.Close()
	}
	return d.directory.Close()
}
