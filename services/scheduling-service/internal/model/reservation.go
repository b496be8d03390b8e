package model

import "time"

// DateFormat is the wire and storage format for calendar dates. Reservations
// are partitioned by (StaffID, Date); all conflict checks happen inside one
// partition.
const DateFormat = "2006-01-02"

type ReservationKind string

const (
	KindClientAppointment ReservationKind = "CLIENT_APPOINTMENT"
	KindPersonalTask      ReservationKind = "PERSONAL_TASK"
	KindWaitlistHold      ReservationKind = "WAITLIST_HOLD"
)

func (k ReservationKind) Valid() bool {
	switch k {
	case KindClientAppointment, KindPersonalTask, KindWaitlistHold:
		return true
	}
	return false
}

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusRejected  ReservationStatus = "rejected"
	StatusCancelled ReservationStatus = "cancelled"
)

// Reservation is one entry on a staff member's calendar: a client appointment,
// an internal/personal task, or an advisory waitlist hold. Times are minutes
// from midnight in the business's local day.
type Reservation struct {
	ID              string
	StaffID         string
	Date            string
	StartMinute     int
	DurationMinutes int
	Kind            ReservationKind
	Status          ReservationStatus
	CustomerRef     string
	ServiceRef      string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r Reservation) EndMinute() int {
	return r.StartMinute + r.DurationMinutes
}

// Occupies reports whether this reservation blocks the [StartMinute, EndMinute)
// interval for other bookings. Waitlist holds are advisory and never occupy;
// cancelled and rejected reservations are kept for audit but free the slot.
func (r Reservation) Occupies() bool {
	if r.Kind == KindWaitlistHold {
		return false
	}
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// WorkingWindow is a staff member's bookable envelope for one date. An absent
// window means the staff member is unavailable that day.
type WorkingWindow struct {
	StaffID     string
	Date        string
	StartMinute int
	EndMinute   int
	Available   bool
}

func (w WorkingWindow) Contains(startMinute, durationMinutes int) bool {
	return w.Available && startMinute >= w.StartMinute && startMinute+durationMinutes <= w.EndMinute
}

// StaffMember is owned by the directory collaborator; the scheduling engine
// only reads it.
type StaffMember struct {
	ID        string
	Name      string
	Specialty string
	Role      string
}
