package credit

import "time"

// Calendar weeks run Monday 00:00:00 UTC through the following Monday,
// exclusive.  All stored timestamps are UTC, so week arithmetic is done in
// UTC as well.

// WeekStart returns the Monday 00:00:00 UTC that opens the week containing t.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	// Monday=0 ... Sunday=6
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
}

// WeekEnd returns the exclusive end of the week opened by weekStart.
func WeekEnd(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, 7)
}

// NextMonday returns the first Monday 00:00:00 UTC strictly after the day
// containing from.  A Monday input therefore yields the Monday a week
// later, which is what the reset job wants when advancing a due marker.
func NextMonday(from time.Time) time.Time {
	from = from.UTC()
	y, m, d := from.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	days := 8 - int(midnight.Weekday())
	if midnight.Weekday() == time.Sunday {
		days = 1
	}
	return midnight.AddDate(0, 0, days)
}
