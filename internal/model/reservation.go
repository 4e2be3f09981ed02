package model

import "time"

// Reservation statuses.  Only confirmed and cancelled are ever stored;
// "completed" is derived at read time for confirmed reservations whose
// end time has elapsed and never written back.
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Who cancelled a reservation.
const (
	CancelledByUser  = "user"
	CancelledByAdmin = "admin"
)

// Reservation records a user's booking of a facility for a half-open
// interval [StartTime, EndTime).  CreditsUsed equals the duration-derived
// cost at creation time and never changes afterwards; refunds are applied
// to the user's bonus pool, not by mutating this row.  For any facility the
// confirmed rows have pairwise non-overlapping intervals, enforced by the
// repository's guarded insert.
type Reservation struct {
	ID          string    `json:"id"`           // reservations.id (UUID)
	UserID      string    `json:"user_id"`      // reservations.user_id
	FacilityID  string    `json:"facility_id"`  // reservations.facility_id
	StartTime   time.Time `json:"start_time"`   // reservations.start_time (UTC)
	EndTime     time.Time `json:"end_time"`     // reservations.end_time (UTC)
	CreditsUsed int       `json:"credits_used"` // reservations.credits_used
	Status      string    `json:"status"`       // reservations.status
	CancelledBy *string   `json:"cancelled_by"` // reservations.cancelled_by (nullable)
	CreatedAt   time.Time `json:"created_at"`   // reservations.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // reservations.updated_at
}

// DisplayStatus returns the status shown to clients: a confirmed
// reservation whose end time has passed reads as completed.
func (r Reservation) DisplayStatus(now time.Time) string {
	if r.Status == StatusConfirmed && !r.EndTime.After(now) {
		return StatusCompleted
	}
	return r.Status
}

// ReservationDetail is a reservation joined with the summaries list
// endpoints embed: who booked it and where.
type ReservationDetail struct {
	Reservation
	DisplayStatusValue string `json:"display_status"`
	UserEmail          string `json:"user_email,omitempty"`
	FacilityName       string `json:"facility_name,omitempty"`
	FacilityType       string `json:"facility_type,omitempty"`
	SportName          string `json:"sport_name,omitempty"`
}
