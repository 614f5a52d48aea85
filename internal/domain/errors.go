package domain

import "errors"

// Domain errors
var (
	ErrNotBound            = errors.New("profile not bound")
	ErrUnrecognizedProfile = errors.New("could not recognize profile")
	ErrNoStats             = errors.New("no stats available")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInternalError       = errors.New("internal server error")
)

// IsUserFacing reports whether err maps to a message the user can act on,
// as opposed to an internal failure.
func IsUserFacing(err error) bool {
	return errors.Is(err, ErrNotBound) ||
		errors.Is(err, ErrUnrecognizedProfile) ||
		errors.Is(err, ErrNoStats) ||
		errors.Is(err, ErrStorageUnavailable)
}
