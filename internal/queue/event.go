// Package queue defines the change events published to the message broker
// and the background consumer that turns them into an audit trail.  The
// event stream is the system's notification channel: reservation and
// credit changes are announced here after commit so downstream consumers
// never see a change that was rolled back.
package queue

import "encoding/json"

// Queue and event type names.
const (
	EventsQueue = "reservation.events"

	TypeReservationBooked    = "reservation.booked"
	TypeReservationCancelled = "reservation.cancelled"
	TypeCreditsReset         = "credits.reset"
)

// Envelope wraps every published message with its type so a single durable
// queue can carry all three event kinds.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ReservationBookedEvent is published when a reservation is created and
// paid for.  It carries enough for logging and notifications without a
// database round trip.
type ReservationBookedEvent struct {
	ReservationID    string `json:"reservation_id"`
	UserID           string `json:"user_id"`
	FacilityID       string `json:"facility_id"`
	FacilityName     string `json:"facility_name"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	CreditsUsed      int    `json:"credits_used"`
	RemainingCredits int    `json:"remaining_credits"`
	BookedAt         string `json:"booked_at"`
}

// ReservationCancelledEvent is published when a reservation transitions to
// cancelled.  RefundedToBonus is the portion returned to the durable pool;
// the rest of RefundedCredits reappears implicitly in the weekly allowance.
type ReservationCancelledEvent struct {
	ReservationID   string `json:"reservation_id"`
	UserID          string `json:"user_id"`
	FacilityID      string `json:"facility_id"`
	CancelledBy     string `json:"cancelled_by"`
	RefundedCredits int    `json:"refunded_credits"`
	RefundedToBonus int    `json:"refunded_to_bonus"`
	CancelledAt     string `json:"cancelled_at"`
}

// CreditsResetEvent is published after a run of the weekly reset job.
type CreditsResetEvent struct {
	ResetCount int    `json:"reset_count"`
	ErrorCount int    `json:"error_count"`
	TotalUsers int    `json:"total_users"`
	RanAt      string `json:"ran_at"`
}
