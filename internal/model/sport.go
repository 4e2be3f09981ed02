package model

import "time"

// Sport is static reference data describing a bookable activity and its
// booking policy: the per-reservation ceiling in hours and the slot
// granularity in minutes.  Facilities reference a sport and inherit these
// settings.
type Sport struct {
	ID                  string    `json:"id"`                    // sports.id (UUID)
	Name                string    `json:"name"`                  // sports.name
	IsActive            bool      `json:"is_active"`             // sports.is_active
	MaxBookingHours     float64   `json:"max_booking_hours"`     // sports.max_booking_hours
	SlotDurationMinutes int       `json:"slot_duration_minutes"` // sports.slot_duration_minutes
	CreatedAt           time.Time `json:"created_at"`            // sports.created_at
}
