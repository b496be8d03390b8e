package outbox

import (
	"encoding/json"

	"github.com/bookwell/bookwell/services/scheduling-service/internal/model"
)

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (one topic per event).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// reservationPayload is the wire shape of a reservation lifecycle event.
// Consumers key on reservation_id and staff_id/date for their own projections.
type reservationPayload struct {
	ReservationID   string `json:"reservation_id"`
	StaffID         string `json:"staff_id"`
	Date            string `json:"date"`
	StartMinute     int    `json:"start_minute"`
	DurationMinutes int    `json:"duration_minutes"`
	Kind            string `json:"kind"`
	Status          string `json:"status"`
	CustomerRef     string `json:"customer_ref,omitempty"`
	ServiceRef      string `json:"service_ref,omitempty"`
}

// ReservationEvent wraps a reservation transition as an outbox event.
func ReservationEvent(eventType string, r model.Reservation) (Event, error) {
	payload, err := json.Marshal(reservationPayload{
		ReservationID:   r.ID,
		StaffID:         r.StaffID,
		Date:            r.Date,
		StartMinute:     r.StartMinute,
		DurationMinutes: r.DurationMinutes,
		Kind:            string(r.Kind),
		Status:          string(r.Status),
		CustomerRef:     r.CustomerRef,
		ServiceRef:      r.ServiceRef,
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "reservation",
		AggregateID:   r.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
