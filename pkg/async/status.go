package async

import (
	"fmt"

	"github.com/pkg/errors"
)

// Status is a Windows-style completion status code, as reported to clients by
// the protocol layer.
type Status uint32

const (
	// StatusSuccess indicates success.
	StatusSuccess Status = 0x00000000
	// StatusAlerted indicates that an asynchronous request was satisfied by a
	// change notification.
	StatusAlerted Status = 0x00000101
	// StatusPending indicates that a request was accepted and will complete
	// asynchronously.
	StatusPending Status = 0x00000103
	// StatusNoDataDetected indicates that no change data was available.
	StatusNoDataDetected Status = 0x80000022
	// StatusInvalidHandle indicates that a handle did not resolve to an object.
	StatusInvalidHandle Status = 0xC0000008
	// StatusInvalidParameter indicates that a request parameter was invalid.
	StatusInvalidParameter Status = 0xC000000D
	// StatusAccessDenied indicates that a handle lacked the required access.
	StatusAccessDenied Status = 0xC0000022
	// StatusObjectTypeMismatch indicates that a handle referred to an object of
	// the wrong type.
	StatusObjectTypeMismatch Status = 0xC0000024
	// StatusCancelled indicates that an asynchronous request was cancelled.
	StatusCancelled Status = 0xC0000120
	// StatusUnsuccessful indicates an unclassified failure.
	StatusUnsuccessful Status = 0xC0000001
)

// String provides a human-readable representation of a status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAlerted:
		return "alerted"
	case StatusPending:
		return "pending"
	case StatusNoDataDetected:
		return "no data detected"
	case StatusInvalidHandle:
		return "invalid handle"
	case StatusInvalidParameter:
		return "invalid parameter"
	case StatusAccessDenied:
		return "access denied"
	case StatusObjectTypeMismatch:
		return "object type mismatch"
	case StatusCancelled:
		return "cancelled"
	case StatusUnsuccessful:
		return "unsuccessful"
	default:
		return fmt.Sprintf("status 0x%08x", uint32(s))
	}
}

// Error is an error that carries a status code.
type Error struct {
	// Status is the status code.
	Status Status
}

// Error implements error.Error.
func (e *Error) Error() string {
	return e.Status.String()
}

// Is supports comparison against other status errors with errors.Is.
func (e *Error) Is(target error) bool {
	if other, ok := target.(*Error); ok {
		return other.Status == e.Status
	}
	return false
}

// NewError creates a new status error.
func NewError(status Status) error {
	return &Error{Status: status}
}

// StatusOf maps an error onto the status reported to clients. A nil error maps
// to StatusSuccess and errors that don't carry a status (at any level of
// wrapping) map to StatusUnsuccessful.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var statusError *Error
	if errors.As(err, &statusError) {
		return statusError.Status
	}
	return StatusUnsuccessful
}
