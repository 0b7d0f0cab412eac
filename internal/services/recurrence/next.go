// Package recurrence computes due dates for rent schedules and maintenance
// templates and materializes the obligations they imply. Next is a pure
// function; Generator does the idempotent writes.
package recurrence

import (
	"time"

	"domus/internal/models"
)

// Next returns the due date following base for the given frequency. ok is
// false when the recurrence has terminated (candidate past the end date).
// The occurrence cap is the generator's business: it counts emissions.
func Next(base time.Time, f models.Frequency) (time.Time, bool) {
	interval := f.Interval
	if interval < 1 {
		interval = 1
	}

	var candidate time.Time
	switch f.Type {
	case models.FreqDaily:
		candidate = base.AddDate(0, 0, interval)
	case models.FreqWeekly:
		candidate = nextWeekly(base, interval, f.DaysOfWeek)
	case models.FreqBiWeekly:
		candidate = base.AddDate(0, 0, interval*14)
	case models.FreqMonthly:
		candidate = addMonthsClamped(base, interval, firstOrZero(f.DaysOfMonth))
	case models.FreqQuarterly:
		candidate = addMonthsClamped(base, interval*3, firstOrZero(f.DaysOfMonth))
	case models.FreqYearly:
		candidate = nextYearly(base, interval, f.MonthOfYear, firstOrZero(f.DaysOfMonth))
	case models.FreqCustomDays:
		if len(f.CustomDays) == 0 {
			return time.Time{}, false
		}
		candidate = base.AddDate(0, 0, f.CustomDays[0])
	default:
		return time.Time{}, false
	}

	if f.EndDate != nil && candidate.After(*f.EndDate) {
		return time.Time{}, false
	}
	return candidate, true
}

// nextWeekly advances by interval weeks, then snaps forward to the nearest
// weekday in the set. Any non-empty set matches within seven days; the extra
// advance covers a theoretically empty scan.
func nextWeekly(base time.Time, interval int, days models.IntList) time.Time {
	candidate := base.AddDate(0, 0, interval*7)
	if len(days) == 0 {
		return candidate
	}
	for hop := 0; hop < 2; hop++ {
		for d := 0; d < 7; d++ {
			day := candidate.AddDate(0, 0, d)
			if days.Contains(int(day.Weekday())) {
				return day
			}
		}
		candidate = candidate.AddDate(0, 0, interval*7)
	}
	return candidate
}

// addMonthsClamped adds months keeping the day of month, clamped to the
// target month's last day (Jan 31 + 1 month = Feb 28/29). A non-zero day
// overrides the base's day before clamping.
func addMonthsClamped(base time.Time, months int, day int) time.Time {
	if day == 0 {
		day = base.Day()
	}
	anchor := time.Date(base.Year(), base.Month(), 1,
		base.Hour(), base.Minute(), base.Second(), base.Nanosecond(), base.Location())
	anchor = anchor.AddDate(0, months, 0)
	return time.Date(anchor.Year(), anchor.Month(), clampDay(day, anchor.Year(), anchor.Month()),
		base.Hour(), base.Minute(), base.Second(), base.Nanosecond(), base.Location())
}

// nextYearly adds years, then applies monthOfYear and dayOfMonth with
// month-end clamping (Feb 29 in a non-leap year lands on Feb 28).
func nextYearly(base time.Time, years int, month int, day int) time.Time {
	y := base.Year() + years
	m := base.Month()
	if month >= 1 && month <= 12 {
		m = time.Month(month)
	}
	if day == 0 {
		day = base.Day()
	}
	return time.Date(y, m, clampDay(day, y, m),
		base.Hour(), base.Minute(), base.Second(), base.Nanosecond(), base.Location())
}

// clampDay limits day to the number of days in (year, month).
func clampDay(day, year int, month time.Month) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	if day < 1 {
		return 1
	}
	return day
}

func firstOrZero(l models.IntList) int {
	if len(l) == 0 {
		return 0
	}
	return l[0]
}
