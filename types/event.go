package types

import "time"

// EventType names a reservation lifecycle transition.
type EventType string

const (
	EventReservationCreated EventType = "reservation.created"
	EventReservationDeleted EventType = "reservation.deleted"
)

// ReservationEvent is the message published to the broker after a
// reservation is created or deleted.
type ReservationEvent struct {
	Type        EventType   `json:"type"`
	Reservation Reservation `json:"reservation"`
	OccurredAt  time.Time   `json:"occurredAt"`
}
