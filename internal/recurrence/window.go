package recurrence

import (
	"fmt"
	"time"

	"raincheck/internal/domain"
)

// Window is an inclusive [From, To] date range. It can only be built through
// NewWindow, so a Window in hand always satisfies From <= To.
type Window struct {
	from time.Time
	to   time.Time
}

// NewWindow builds a window from two dates, normalizing both to date-only.
// A from after to is a programmer error and is rejected here, before any
// recurrence math can see it.
func NewWindow(from, to time.Time) (Window, error) {
	f := domain.DateOnly(from)
	t := domain.DateOnly(to)
	if f.After(t) {
		return Window{}, fmt.Errorf("recurrence: invalid window: from %s is after to %s",
			f.Format(domain.DateKeyLayout), t.Format(domain.DateKeyLayout))
	}
	return Window{from: f, to: t}, nil
}

// WindowDays builds the [from, from+days-1] window most callers want.
func WindowDays(from time.Time, days int) (Window, error) {
	if days <= 0 {
		return Window{}, fmt.Errorf("recurrence: invalid window length %d", days)
	}
	f := domain.DateOnly(from)
	return NewWindow(f, f.AddDate(0, 0, days-1))
}

func (w Window) From() time.Time { return w.from }
func (w Window) To() time.Time   { return w.to }

// daysBetween returns b-a in whole days. Both inputs must be midnight-UTC
// values, which makes the division exact (no DST offsets in UTC).
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}

// modFloor is a non-negative modulo: the result is in [0, m) for any a.
func modFloor(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}
