package booking

import (
	"context"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
)

// Store is the authoritative record of working windows and reservations. All
// calendar mutation funnels through PutReservation / UpdateReservation /
// CancelReservation, each of which performs its conflict check and write as
// one atomic step with respect to other writers on the same (staffID, date)
// partition. Reads return last-committed state and may be served with bounded
// staleness; correctness is enforced at write time.
type Store interface {
	// Window returns the working window for (staffID, date). ok is false when
	// no window exists, which means the staff member is unavailable that day.
	Window(ctx context.Context, staffID, date string) (w model.WorkingWindow, ok bool, err error)
	PutWindow(ctx context.Context, w model.WorkingWindow) error

	// Reservations returns all reservations (every kind and status) for one
	// partition, ordered by start time.
	Reservations(ctx context.Context, staffID, date string) ([]model.Reservation, error)
	Reservation(ctx context.Context, id string) (model.Reservation, error)

	// PutReservation commits a new reservation. It fails with
	// *model.ConflictError when an occupying reservation already covers any
	// part of the interval.
	PutReservation(ctx context.Context, r model.Reservation) (model.Reservation, error)

	// UpdateReservation applies patch and re-validates overlap under the new
	// staff/time, excluding the reservation itself.
	UpdateReservation(ctx context.Context, id string, patch Patch) (model.Reservation, error)

	// CancelReservation sets status to cancelled. Cancelling an already
	// cancelled reservation is a no-op, not an error.
	CancelReservation(ctx context.Context, id string) error
}

// Patch is a partial reservation update used by reschedule operations. Nil
// fields are left unchanged.
type Patch struct {
	StaffID         *string
	Date            *string
	StartMinute     *int
	DurationMinutes *int
	Notes           *string
}

// Candidate is a reservation request before validation and id assignment.
type Candidate struct {
	StaffID         string
	Date            string
	StartMinute     int
	DurationMinutes int
	Kind            model.ReservationKind
	CustomerRef     string
	ServiceRef      string
	Notes           string
}
