package recurrence

import (
	"sort"
	"time"

	"raincheck/internal/domain"
)

// Aggregate projects every supplied schedule over the window and groups the
// resulting occurrences by YYYY-MM-DD date key. Per schedule, the earliest
// projected date is flagged IsNextOccurrence; schedules that project to
// nothing (unsupported encoding, already ended) contribute no records and
// raise no error.
//
// Callers must pass only enabled schedules; the filter lives upstream and is
// not re-checked here. Within one date, records keep schedule input order.
func Aggregate(schedules []domain.ScheduleDescriptor, w Window, now time.Time, rec Recorder) map[string][]domain.ScheduleOccurrence {
	if rec == nil {
		rec = NopRecorder{}
	}

	out := make(map[string][]domain.ScheduleOccurrence)
	for _, s := range schedules {
		dates := ProjectSchedule(s, w, now, rec)
		for i, d := range dates {
			key := domain.DateKey(d)
			out[key] = append(out[key], domain.ScheduleOccurrence{
				Date:             d,
				DateKey:          key,
				ScheduleID:       s.ID,
				ScheduleName:     s.Name,
				DeviceName:       s.DeviceName,
				IsNextOccurrence: i == 0,
			})
		}
	}
	return out
}

// ProjectSchedule normalizes one descriptor and projects all of its patterns
// into a deduplicated ascending date list. A multi-weekday schedule expands
// into several weekly series, merged here into one sequence.
func ProjectSchedule(s domain.ScheduleDescriptor, w Window, now time.Time, rec Recorder) []time.Time {
	patterns, tier := Normalize(s, now)
	if tier == TierNone {
		rec.Unsupported(s.ID, "no recurrence encoding matched")
		return nil
	}
	rec.PatternResolved(s.ID, tier, patterns)

	seen := make(map[string]bool)
	var dates []time.Time
	for _, p := range patterns {
		for _, d := range Project(p, w, s.EndDate) {
			key := domain.DateKey(d)
			if seen[key] {
				continue
			}
			seen[key] = true
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
