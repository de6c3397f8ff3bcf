package services

import "errors"

var (
	// ErrOrderLocked is returned when changing a validated order.
	ErrOrderLocked = errors.New("order_locked")
	// ErrOrderNotValidated is returned when generating documents for an unvalidated order.
	ErrOrderNotValidated = errors.New("order_not_validated")
	// ErrInvalidOrder is returned for malformed order input, e.g. a negative quantity.
	ErrInvalidOrder = errors.New("invalid_order")
)
