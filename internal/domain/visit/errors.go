package visit

import "errors"

var (
	// ErrNotFound is returned when no visit matches the lookup.
	ErrNotFound = errors.New("visit not found")

	// ErrQueueConflict is returned when a queue number was taken by a
	// concurrent registration for the same day.
	ErrQueueConflict = errors.New("queue number already taken")

	// ErrPatientNotFound is returned when a registration names a patient
	// that does not exist.
	ErrPatientNotFound = errors.New("patient not found")
)
