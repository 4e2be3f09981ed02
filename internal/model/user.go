package model

import "time"

// User represents an application user record as stored in the `users`
// table.  Users are identified by email only; there are no passwords or
// sessions in this system.  BonusCredits is the standing, non-expiring
// credit pool consumed once the weekly allowance is exhausted, and the
// schema guarantees it never goes negative (deductions are conditional
// UPDATEs).  CreditsResetDate marks when the weekly reset job is next due
// for this user; the allowance itself is implicit in the calendar week.
//
// Fields:
//
//	ID               – CHAR(36) primary key (UUID).
//	Email            – unique, stored lower-cased and trimmed.
//	BonusCredits     – users.bonus_credits, always >= 0.
//	IsAdmin          – users.is_admin.
//	CreditsResetDate – users.credits_reset_date (UTC).
//	CreatedAt        – users.created_at.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	BonusCredits     int       `json:"bonus_credits"`
	IsAdmin          bool      `json:"is_admin"`
	CreditsResetDate time.Time `json:"credits_reset_date"`
	CreatedAt        time.Time `json:"created_at"`
}
