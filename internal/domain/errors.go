package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrCapacityExceeded     = errors.New("capacity exceeded")
)
