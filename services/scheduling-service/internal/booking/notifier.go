package booking

import (
	"context"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
)

// Reservation lifecycle event types. The Kafka topic name equals the event
// type (one topic per event).
const (
	EventReservationConfirmed   = "scheduling.reservation.confirmed.v1"
	EventReservationCancelled   = "scheduling.reservation.cancelled.v1"
	EventReservationRescheduled = "scheduling.reservation.rescheduled.v1"
)

// Notifier informs external collaborators of reservation transitions.
// Delivery is fire-and-forget: a notify failure must never roll back the
// reservation itself.
type Notifier interface {
	Notify(ctx context.Context, eventType string, r model.Reservation) error
}

// NopNotifier drops all events. Used in tests and when no broker is
// configured.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, model.Reservation) error { return nil }
