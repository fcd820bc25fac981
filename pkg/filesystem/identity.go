package filesystem

import (
	"fmt"
)

// Identity identifies a filesystem object by its device and inode numbers. It
// is comparable and suitable for use as a map key.
type Identity struct {
	// Device is the identifier of the device containing the object.
	Device uint64
	// Inode is the serial number of the object on its device.
	Inode uint64
}

// String provides a human-readable representation of an identity.
func (i Identity) String() string {
	return fmt.Sprintf("%d:%d", i.Device, i.Inode)
}
