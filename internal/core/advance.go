package core

import "time"

// Advance returns the next due date one frequency step after d.
//
// Monthly and yearly steps clamp to the last valid day of the target month,
// so a template anchored on Jan 31 fires on Feb 28 (or Feb 29 in a leap
// year) and a Feb 29 yearly template fires on Feb 28 in non-leap years.
// The day-of-month anchor is not remembered across steps: once clamped, the
// clamped day becomes the new anchor.
func Advance(d time.Time, f Frequency) time.Time {
	switch f {
	case Daily:
		return d.AddDate(0, 0, 1)
	case Weekly:
		return d.AddDate(0, 0, 7)
	case Yearly:
		return addMonthsClamped(d, 12)
	default:
		// Monthly, and anything ParseFrequency did not recognize.
		return addMonthsClamped(d, 1)
	}
}

// addMonthsClamped adds months to d, clamping the day to the last valid day
// of the target month. time.AddDate alone normalizes overflow (Jan 31 + 1
// month = Mar 2/3), which is never what a billing cadence wants.
func addMonthsClamped(d time.Time, months int) time.Time {
	year, month, day := d.Date()
	hour, min, sec := d.Clock()

	target := time.Date(year, month+time.Month(months), 1, hour, min, sec, d.Nanosecond(), d.Location())
	if last := lastDayOfMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, hour, min, sec, d.Nanosecond(), d.Location())
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DayWindow is the half-open interval [From, To) covering the calendar day
// that contains t. Templates whose next due date falls inside it are
// materialized by that day's sweep.
type DayWindow struct {
	From time.Time
	To   time.Time
}

func DayWindowOf(t time.Time) DayWindow {
	from := StartOfDay(t)
	return DayWindow{From: from, To: from.AddDate(0, 0, 1)}
}

// Contains reports whether t falls inside the window.
func (w DayWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}
