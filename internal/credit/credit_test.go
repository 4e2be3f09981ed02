package credit

import (
	"testing"
	"time"
)

// fixed reference instant: Wednesday 2025-06-11 12:00 UTC
var now = time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(2025, 6, 12, h, m, 0, 0, time.UTC) // Thursday, future-dated
}

func TestValidateBookingAcceptsAlignedDurations(t *testing.T) {
	// every positive multiple of 30 minutes up to the 4h default must pass,
	// and the credit cost must be duration/30
	for credits := 1; credits <= 8; credits++ {
		start := at(9, 0)
		end := start.Add(time.Duration(credits) * MinutesPerCredit * time.Minute)
		if err := ValidateBooking(start, end, now, DefaultMaxBookingHours); err != nil {
			t.Fatalf("duration %d min: unexpected error %v", credits*30, err)
		}
		if got := Credits(start, end); got != credits {
			t.Fatalf("duration %d min: got %d credits, want %d", credits*30, got, credits)
		}
	}
}

func TestValidateBookingRejections(t *testing.T) {
	cases := []struct {
		name     string
		start    time.Time
		end      time.Time
		maxHours float64
		wantErr  string
	}{
		{"start in the past", now.Add(-time.Hour), now.Add(-30 * time.Minute), 4, "Cannot book time slots in the past"},
		{"start exactly now", now, now.Add(time.Hour), 4, "Cannot book time slots in the past"},
		{"end equals start", at(9, 0), at(9, 0), 4, "End time must be after start time"},
		{"end before start", at(10, 0), at(9, 0), 4, "End time must be after start time"},
		{"misaligned 45 min", at(9, 0), at(9, 45), 4, "Booking must be in 30-minute increments"},
		{"misaligned 20 min", at(9, 0), at(9, 20), 4, "Booking must be in 30-minute increments"},
		{"over default max", at(9, 0), at(13, 30), 4, "Maximum booking duration is 4 hours"},
		{"over sport max", at(9, 0), at(11, 0), 1.5, "Maximum booking duration is 1.5 hours"},
	}
	for _, tc := range cases {
		err := ValidateBooking(tc.start, tc.end, now, tc.maxHours)
		if err == nil {
			t.Fatalf("%s: expected rejection", tc.name)
		}
		if err.Error() != tc.wantErr {
			t.Fatalf("%s: got %q, want %q", tc.name, err.Error(), tc.wantErr)
		}
	}
}

func TestValidateBookingDefaultsZeroMax(t *testing.T) {
	// a sport with no ceiling configured falls back to 4 hours
	if err := ValidateBooking(at(9, 0), at(13, 0), now, 0); err != nil {
		t.Fatalf("4h under default ceiling should pass, got %v", err)
	}
	if err := ValidateBooking(at(9, 0), at(13, 30), now, 0); err == nil {
		t.Fatal("4.5h over default ceiling should fail")
	}
}

func TestBreakdownArithmetic(t *testing.T) {
	ws := WeekStart(now)
	cases := []struct {
		used, bonus              int
		wantRemaining, wantTotal int
	}{
		{0, 0, 10, 10},
		{4, 0, 6, 6},
		{10, 0, 0, 0},
		{10, 5, 0, 5},
		{12, 5, 0, 5}, // over-allowance usage never goes negative
		{3, 2, 7, 9},
	}
	for _, tc := range cases {
		b := NewBreakdown(ws, tc.used, tc.bonus)
		if b.WeeklyRemaining != tc.wantRemaining || b.TotalAvailable != tc.wantTotal {
			t.Fatalf("used=%d bonus=%d: got remaining=%d total=%d, want %d/%d",
				tc.used, tc.bonus, b.WeeklyRemaining, b.TotalAvailable, tc.wantRemaining, tc.wantTotal)
		}
	}
}

func TestBreakdownMonotonicity(t *testing.T) {
	ws := WeekStart(now)
	// total is non-increasing in usedThisWeek ...
	prev := NewBreakdown(ws, 0, 3).TotalAvailable
	for used := 1; used <= 15; used++ {
		cur := NewBreakdown(ws, used, 3).TotalAvailable
		if cur > prev {
			t.Fatalf("total increased when usage grew: used=%d %d -> %d", used, prev, cur)
		}
		prev = cur
	}
	// ... and non-decreasing in bonus credits
	prev = NewBreakdown(ws, 7, 0).TotalAvailable
	for bonus := 1; bonus <= 10; bonus++ {
		cur := NewBreakdown(ws, 7, bonus).TotalAvailable
		if cur < prev {
			t.Fatalf("total decreased when bonus grew: bonus=%d %d -> %d", bonus, prev, cur)
		}
		prev = cur
	}
}

// Scenario: 10 weekly, 0 bonus.  2h booking costs 4, then 3h costs 6, then a
// 1h attempt needs 2 with nothing left.
func TestWeeklyAllowanceScenario(t *testing.T) {
	ws := WeekStart(now)

	b := NewBreakdown(ws, 0, 0)
	if b.TotalAvailable-4 != 6 {
		t.Fatalf("after 2h booking want 6 remaining, got %d", b.TotalAvailable-4)
	}
	b = NewBreakdown(ws, 4, 0)
	if b.TotalAvailable-6 != 0 {
		t.Fatalf("after 3h booking want 0 remaining, got %d", b.TotalAvailable-6)
	}
	b = NewBreakdown(ws, 10, 0)
	if 2 <= b.TotalAvailable {
		t.Fatalf("1h booking should be unaffordable with total %d", b.TotalAvailable)
	}
}

// Scenario: 10 weekly exhausted, 5 bonus.  A 1h (2-credit) booking succeeds
// and draws 2 from the pool, leaving 3.
func TestBonusDrawScenario(t *testing.T) {
	b := NewBreakdown(WeekStart(now), 10, 5)
	needed := 2
	if needed > b.TotalAvailable {
		t.Fatal("booking should be affordable")
	}
	draw := BonusDraw(needed, b.WeeklyRemaining)
	if draw != 2 {
		t.Fatalf("want bonus draw 2, got %d", draw)
	}
	if b.BonusCredits-draw != 3 {
		t.Fatalf("want bonus pool 3 after draw, got %d", b.BonusCredits-draw)
	}
}

func TestBonusDrawSplit(t *testing.T) {
	// 8 of 10 used, booking 4 credits: 2 from allowance, 2 from bonus
	b := NewBreakdown(WeekStart(now), 8, 5)
	if draw := BonusDraw(4, b.WeeklyRemaining); draw != 2 {
		t.Fatalf("want split draw 2, got %d", draw)
	}
	// fully covered by allowance: no draw
	b = NewBreakdown(WeekStart(now), 0, 5)
	if draw := BonusDraw(4, b.WeeklyRemaining); draw != 0 {
		t.Fatalf("want no draw, got %d", draw)
	}
}

func TestBonusRefund(t *testing.T) {
	cases := []struct {
		name                         string
		creditsUsed, otherUsed, want int
	}{
		{"allowance-only booking", 4, 0, 0},
		{"fully bonus-funded", 2, 10, 2},
		{"partial split", 4, 8, 2},
		{"week already over allowance", 2, 12, 2}, // capped at own cost
		{"exactly at allowance", 4, 6, 0},
	}
	for _, tc := range cases {
		if got := BonusRefund(tc.creditsUsed, tc.otherUsed); got != tc.want {
			t.Fatalf("%s: got refund %d, want %d", tc.name, got, tc.want)
		}
	}
}

// Round-trip law: booking then cancelling restores the available total,
// with the bonus draw going back to the pool and the allowance portion
// reappearing because the cancelled row leaves the weekly aggregate.
func TestBookCancelRoundTrip(t *testing.T) {
	ws := WeekStart(now)
	for _, used := range []int{0, 6, 8, 10} {
		for _, bonus := range []int{0, 3, 5} {
			before := NewBreakdown(ws, used, bonus)
			needed := 4
			if needed > before.TotalAvailable {
				continue
			}
			draw := BonusDraw(needed, before.WeeklyRemaining)
			// state while booked
			during := NewBreakdown(ws, used+needed, bonus-draw)
			if during.TotalAvailable != before.TotalAvailable-needed {
				t.Fatalf("used=%d bonus=%d: booked total %d, want %d",
					used, bonus, during.TotalAvailable, before.TotalAvailable-needed)
			}
			// cancel: row leaves the aggregate, bonus portion refunded
			refund := BonusRefund(needed, used)
			if refund != draw {
				t.Fatalf("used=%d bonus=%d: refund %d != draw %d", used, bonus, refund, draw)
			}
			after := NewBreakdown(ws, used, bonus-draw+refund)
			if after.TotalAvailable != before.TotalAvailable {
				t.Fatalf("used=%d bonus=%d: round trip total %d, want %d",
					used, bonus, after.TotalAvailable, before.TotalAvailable)
			}
		}
	}
}

func TestWeekStart(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC), time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)},  // Wednesday
		{time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)},    // Monday midnight is its own week
		{time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC), time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)}, // Sunday belongs to the preceding Monday
		{time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)},  // next Monday opens a new week
	}
	for _, tc := range cases {
		if got := WeekStart(tc.in); !got.Equal(tc.want) {
			t.Fatalf("WeekStart(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestWeekEnd(t *testing.T) {
	ws := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	if got := WeekEnd(ws); !got.Equal(time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("WeekEnd = %v", got)
	}
}

func TestNextMonday(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC), time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)}, // Wednesday
		{time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC), time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)},  // Sunday -> tomorrow
		{time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC)},  // Monday -> a week out
	}
	for _, tc := range cases {
		if got := NextMonday(tc.in); !got.Equal(tc.want) {
			t.Fatalf("NextMonday(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
