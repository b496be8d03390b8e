package model

import (
	"errors"
	"fmt"
)

// ErrStorageUnavailable wraps transient infrastructure failures. Callers may
// retry with backoff; everything else in this file is a terminal answer.
var ErrStorageUnavailable = errors.New("storage unavailable")

// ConflictError reports that a candidate interval collides with an existing
// occupying reservation. It names the colliding interval so callers can offer
// an alternate time instead of a generic failure.
type ConflictError struct {
	StaffID         string
	Date            string
	StartMinute     int
	DurationMinutes int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("staff %s already reserved on %s from %s to %s",
		e.StaffID, e.Date, clock(e.StartMinute), clock(e.StartMinute+e.DurationMinutes))
}

// BatchConflictError aborts an all-or-nothing batch. Index is the position of
// the offending candidate in the submitted order.
type BatchConflictError struct {
	Index    int
	Date     string
	Minute   int
	Conflict *ConflictError
}

func (e *BatchConflictError) Error() string {
	return fmt.Sprintf("batch candidate %d (%s %s) conflicts: %v",
		e.Index, e.Date, clock(e.Minute), e.Conflict)
}

func (e *BatchConflictError) Unwrap() error {
	if e.Conflict == nil {
		return nil
	}
	return e.Conflict
}

// NotFoundError reports an unknown staff, customer, service, or reservation
// reference. Not retryable without correcting the input.
type NotFoundError struct {
	Resource string
	Ref      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Ref)
}

// ValidationError reports malformed caller input (bad recurrence pattern,
// non-positive duration, misaligned time).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func clock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
