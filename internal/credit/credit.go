// Package credit holds the booking arithmetic: duration-to-credit
// conversion, booking validation, the weekly allowance breakdown, and the
// bonus-pool apportionment used on booking and refund.  Everything here is
// pure and safe to call concurrently; persistence and locking live in the
// repository layer.
package credit

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MinutesPerCredit is the slot granularity: 1 credit buys 30 minutes.
	MinutesPerCredit = 30
	// WeeklyAllowance is the fixed quota granted per user per calendar week.
	WeeklyAllowance = 10
	// DefaultMaxBookingHours applies when a sport has no ceiling of its own.
	DefaultMaxBookingHours = 4.0
)

// Validation errors surfaced verbatim to callers.  ErrPastStart and
// ErrEndBeforeStart are sentinels so handlers and tests can match them;
// the increment and maximum errors carry values and are compared by string.
var (
	ErrPastStart      = errors.New("Cannot book time slots in the past")
	ErrEndBeforeStart = errors.New("End time must be after start time")
)

// DurationMinutes returns the whole minutes between start and end.
func DurationMinutes(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}

// Credits returns the credit cost of the interval [start, end).  The result
// is exact only for slot-aligned intervals; ValidateBooking must pass first.
func Credits(start, end time.Time) int {
	return DurationMinutes(start, end) / MinutesPerCredit
}

// ValidateBooking checks a proposed interval against the booking policy:
// the start must be strictly in the future, the duration must be a positive
// multiple of the slot granularity, and the duration must not exceed the
// sport's ceiling.  The first violated rule is returned as the error; a nil
// return means the interval is bookable and Credits(start, end) is an
// integer cost.
func ValidateBooking(start, end, now time.Time, maxBookingHours float64) error {
	if !start.After(now) {
		return ErrPastStart
	}
	if !end.After(start) {
		return ErrEndBeforeStart
	}
	d := DurationMinutes(start, end)
	if d%MinutesPerCredit != 0 {
		return fmt.Errorf("Booking must be in %d-minute increments", MinutesPerCredit)
	}
	if maxBookingHours <= 0 {
		maxBookingHours = DefaultMaxBookingHours
	}
	if float64(d) > maxBookingHours*60 {
		return fmt.Errorf("Maximum booking duration is %g hours", maxBookingHours)
	}
	return nil
}

// Breakdown is the allowance picture for one user in one calendar week.
type Breakdown struct {
	WeekStart       time.Time `json:"week_start"`
	WeeklyAllowance int       `json:"weekly_allowance"`
	UsedThisWeek    int       `json:"used_this_week"`
	WeeklyRemaining int       `json:"weekly_remaining"`
	BonusCredits    int       `json:"bonus_credits"`
	TotalAvailable  int       `json:"total_available"`
}

// NewBreakdown combines the week's confirmed usage with the standing bonus
// pool.  usedThisWeek must already exclude cancelled reservations (the
// aggregate query filters on status).
func NewBreakdown(weekStart time.Time, usedThisWeek, bonusCredits int) Breakdown {
	remaining := WeeklyAllowance - usedThisWeek
	if remaining < 0 {
		remaining = 0
	}
	return Breakdown{
		WeekStart:       weekStart,
		WeeklyAllowance: WeeklyAllowance,
		UsedThisWeek:    usedThisWeek,
		WeeklyRemaining: remaining,
		BonusCredits:    bonusCredits,
		TotalAvailable:  remaining + bonusCredits,
	}
}

// BonusDraw returns how much of a booking's cost must come out of the bonus
// pool: only the portion exceeding what is left of the weekly allowance.
func BonusDraw(creditsNeeded, weeklyRemaining int) int {
	draw := creditsNeeded - weeklyRemaining
	if draw < 0 {
		return 0
	}
	return draw
}

// BonusRefund returns how much of a cancelled booking's cost goes back to
// the bonus pool.  otherUsedSameWeek is the confirmed usage in the
// booking's week excluding the booking itself; whatever pushed the combined
// total past the weekly allowance came from bonus, capped at this booking's
// own cost so a cancellation never refunds another booking's draw.  The
// weekly-allowance portion needs no explicit refund: the cancelled row
// simply stops counting toward the week's aggregate.
func BonusRefund(creditsUsed, otherUsedSameWeek int) int {
	bonusUsed := otherUsedSameWeek + creditsUsed - WeeklyAllowance
	if bonusUsed < 0 {
		bonusUsed = 0
	}
	if bonusUsed > creditsUsed {
		bonusUsed = creditsUsed
	}
	return bonusUsed
}
