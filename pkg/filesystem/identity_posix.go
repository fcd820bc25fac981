//go:build !windows

package filesystem

import (
	"golang.org/x/sys/unix"
)

// fstatRetryingOnEINTR is a wrapper around the fstat system call that retries
// on EINTR errors and returns on the first successful call or non-EINTR error.
func fstatRetryingOnEINTR(descriptor int, metadata *unix.Stat_t) error {
	for {
		err := unix.Fstat(descriptor, metadata)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// statRetryingOnEINTR is a wrapper around the stat system call that retries on
// EINTR errors and returns on the first successful call or non-EINTR error.
func statRetryingOnEINTR(path string, metadata *unix.Stat_t) error {
	for {
		err := unix.Stat(path, metadata)
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

// Stat queries the identity of the object at the specified path, following
// symbolic links, and reports whether or not it's a directory.
func Stat(path string) (Identity, bool, error) {
	var metadata unix.Stat_t
	if err := statRetryingOnEINTR(path, &metadata); err != nil {
		return Identity{}, false, err
	}
	return Identity{
		Device: uint64(metadata.Dev),
		Inode:  uint64(metadata.Ino),
	}, metadata.Mode&unix.S_IFMT == unix.S_IFDIR, nil
}

// identify queries the identity of the object referenced by a descriptor.
func identify(descriptor int) (Identity, error) {
	var metadata unix.Stat_t
	if err := fstatRetryingOnEINTR(descriptor, &metadata); err != nil {
		return Identity{}, err
	}
	return Identity{
		Device: uint64(metadata.Dev),
		Inode:  uint64(metadata.Ino),
	}, nil
}
