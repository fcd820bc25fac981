package filesystem

import (
	"github.com/pkg/errors"
)

// errIdentityUnsupported indicates that device and inode identities aren't
// available on this platform.
var errIdentityUnsupported = errors.New("filesystem identities unsupported on Windows")

// Stat queries the identity of the object at the specified path. It isn't
// supported on Windows.
func Stat(_ string) (Identity, bool, error) {
	return Identity{}, false, errIdentityUnsupported
}

// identify queries the identity of the object referenced by a descriptor. It
// isn't supported on Windows.
func identify(_ int) (Identity, error) {
	return Identity{}, errIdentityUnsupported
}
