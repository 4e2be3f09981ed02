package model

import "time"

// Facility types.  Courts are shared playing surfaces (tennis, squash),
// bays are individual practice stations (golf, batting).
const (
	FacilityTypeCourt = "court"
	FacilityTypeBay   = "bay"
)

// ValidFacilityType reports whether t is one of the known facility types.
func ValidFacilityType(t string) bool {
	return t == FacilityTypeCourt || t == FacilityTypeBay
}

// Facility is a bookable unit (one court, one bay) belonging to a sport.
type Facility struct {
	ID        string    `json:"id"`         // facilities.id (UUID)
	Name      string    `json:"name"`       // facilities.name
	SportID   string    `json:"sport_id"`   // facilities.sport_id
	Type      string    `json:"type"`       // facilities.type ('court' | 'bay')
	IsActive  bool      `json:"is_active"`  // facilities.is_active
	CreatedAt time.Time `json:"created_at"` // facilities.created_at
}

// FacilityWithSport embeds the sport's booking settings alongside the
// facility so a single catalog query answers both "what is this" and
// "how long may it be booked".
type FacilityWithSport struct {
	Facility
	Sport Sport `json:"sport"`
}
