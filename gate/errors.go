package gate

import "errors"

var (
	// ErrUnauthenticated is returned for the zero user.
	ErrUnauthenticated = errors.New("unauthorized")
	// ErrForbidden is returned when the user's profile lacks the permission.
	ErrForbidden = errors.New("forbidden")
)
