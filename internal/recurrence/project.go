package recurrence

import (
	"time"

	"raincheck/internal/domain"
)

// Project computes the ascending run dates for one canonical pattern inside
// the window. endDate is an inclusive hard stop; pass the zero time for an
// open-ended schedule.
//
// The first interval occurrence is positioned analytically from the anchor
// with a non-negative modulo, so cost is O(len(result)) no matter how far in
// the past the anchor lies. Unsupported patterns project to nothing; an
// empty result is the defined signal, not an error.
func Project(p domain.RecurrencePattern, w Window, endDate time.Time) []time.Time {
	end := w.To()
	if !endDate.IsZero() {
		e := domain.DateOnly(endDate)
		// Schedule already over before the window opens: answer is empty,
		// decided before any recurrence math runs.
		if e.Before(w.From()) {
			return nil
		}
		if e.Before(end) {
			end = e
		}
	}

	switch p.Kind {
	case domain.KindInterval:
		return projectInterval(p.Anchor, p.Days, w.From(), end)
	case domain.KindDayOfWeek:
		return projectWeekday(p.Weekday, w.From(), end)
	default:
		return nil
	}
}

func projectInterval(anchor time.Time, days int, from, end time.Time) []time.Time {
	if days <= 0 {
		// Normalize never emits this; reaching here is a caller bug.
		panic("recurrence: interval pattern with non-positive days")
	}
	anchor = domain.DateOnly(anchor)

	// first = smallest date >= from with (first - anchor) ≡ 0 (mod days).
	offset := modFloor(daysBetween(anchor, from), days)
	first := from.AddDate(0, 0, modFloor(days-offset, days))

	var out []time.Time
	for d := first; !d.After(end); d = d.AddDate(0, 0, days) {
		out = append(out, d)
	}
	return out
}

func projectWeekday(weekday int, from, end time.Time) []time.Time {
	until := modFloor(weekday-int(from.Weekday()), 7)
	first := from.AddDate(0, 0, until)

	var out []time.Time
	for d := first; !d.After(end); d = d.AddDate(0, 0, 7) {
		out = append(out, d)
	}
	return out
}
