package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID         = errors.New("invalid id")
	ErrExpertNotFound    = errors.New("expert not found")
	ErrSlotNotOfferable  = errors.New("slot not offered by expert")
	ErrSlotAlreadyBooked = errors.New("slot already booked")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrValidationFailed  = errors.New("validation failed")

	// ErrDuplicateReservation is returned by ledgers when the
	// (expert, date, time slot) uniqueness constraint rejects an insert.
	ErrDuplicateReservation = errors.New("duplicate reservation")
)

// ValidationError names the first field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}
