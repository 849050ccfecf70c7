// Package queue defines message payloads exchanged over the message broker.
package queue

// Event kinds carried in the envelope.
const (
	KindReservationConfirmed = "reservation.confirmed"
	KindReservationCancelled = "reservation.cancelled"
)

// TableShare describes one table of a reservation and the guests seated
// there, mirroring the allocation recorded on the reservation itself.
type TableShare struct {
	TableID string `json:"table_id"`
	Pax     int    `json:"pax"`
}

// ReservationEvent is published when a reservation is confirmed, moved or
// cancelled.  It contains enough information for downstream consumers to
// log, notify guests, or feed analytics without querying the primary store.
type ReservationEvent struct {
	Kind          string       `json:"kind"`
	ReservationID string       `json:"reservation_id"`
	UserID        string       `json:"user_id"`
	Name          string       `json:"name"`
	Date          string       `json:"date"`
	Time          string       `json:"time"`
	Pax           int          `json:"pax"`
	Tables        []TableShare `json:"tables"`
	OccurredAt    string       `json:"occurred_at"`
}
