package recurrence

import (
	"reflect"
	"testing"

	"raincheck/internal/domain"
)

type recordedEvent struct {
	scheduleID string
	tier       Tier
	reason     string
}

type captureRecorder struct {
	events []recordedEvent
}

func (c *captureRecorder) PatternResolved(id string, tier Tier, _ []domain.RecurrencePattern) {
	c.events = append(c.events, recordedEvent{scheduleID: id, tier: tier})
}

func (c *captureRecorder) Unsupported(id, reason string) {
	c.events = append(c.events, recordedEvent{scheduleID: id, reason: reason})
}

func TestAggregateNextOccurrenceUnique(t *testing.T) {
	t.Parallel()
	w := mustWindow(t, date(2024, 6, 15), date(2024, 7, 15))
	now := date(2024, 6, 15)

	schedules := []domain.ScheduleDescriptor{
		{ID: "s1", Name: "Front lawn", JobTypes: []string{"INTERVAL_14"}, AnchorDate: date(2024, 1, 1)},
		{ID: "s2", Name: "Drip line", JobTypes: []string{"DAY_OF_WEEK_3"}},
		{ID: "s3", Name: "Mystery", FreeTextSummary: "Waters when needed"},
	}

	got := Aggregate(schedules, w, now, nil)

	nextBySchedule := map[string][]string{}
	total := map[string]int{}
	for key, occs := range got {
		for _, o := range occs {
			total[o.ScheduleID]++
			if o.DateKey != key {
				t.Fatalf("occurrence key %s filed under %s", o.DateKey, key)
			}
			if o.IsNextOccurrence {
				nextBySchedule[o.ScheduleID] = append(nextBySchedule[o.ScheduleID], key)
			}
		}
	}

	if total["s3"] != 0 {
		t.Fatalf("unsupported schedule produced %d occurrences", total["s3"])
	}
	for _, id := range []string{"s1", "s2"} {
		if len(nextBySchedule[id]) != 1 {
			t.Fatalf("%s has %d next-occurrence flags, want 1", id, len(nextBySchedule[id]))
		}
	}
	// s1: anchor 2024-01-01, 14 days -> first in-window date is 2024-06-17.
	if nextBySchedule["s1"][0] != "2024-06-17" {
		t.Fatalf("s1 next = %s, want 2024-06-17", nextBySchedule["s1"][0])
	}
	// s2: first Wednesday on or after Saturday 2024-06-15 is 2024-06-19.
	if nextBySchedule["s2"][0] != "2024-06-19" {
		t.Fatalf("s2 next = %s, want 2024-06-19", nextBySchedule["s2"][0])
	}
}

// A Mon/Wed/Fri weekday set must merge into one distinct ascending series
// with a single next-occurrence flag.
func TestAggregateMultiWeekdayMerge(t *testing.T) {
	t.Parallel()
	w := mustWindow(t, date(2024, 6, 17), date(2024, 6, 30)) // Monday start
	now := date(2024, 6, 17)

	schedules := []domain.ScheduleDescriptor{{
		ID:           "s1",
		Name:         "Beds",
		RepeatConfig: &domain.RepeatConfig{DaysOfWeek: []int{1, 3, 5}},
	}}

	got := Aggregate(schedules, w, now, nil)

	want := []string{"2024-06-17", "2024-06-19", "2024-06-21", "2024-06-24", "2024-06-26", "2024-06-28"}
	next := 0
	for _, key := range want {
		occs := got[key]
		if len(occs) != 1 {
			t.Fatalf("date %s has %d records, want 1", key, len(occs))
		}
		if occs[0].IsNextOccurrence {
			next++
			if key != want[0] {
				t.Fatalf("next occurrence on %s, want %s", key, want[0])
			}
		}
	}
	if len(got) != len(want) {
		t.Fatalf("got %d dates, want %d", len(got), len(want))
	}
	if next != 1 {
		t.Fatalf("%d next-occurrence flags, want 1", next)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	t.Parallel()
	w := mustWindow(t, date(2024, 6, 15), date(2024, 9, 15))
	now := date(2024, 6, 15)
	schedules := []domain.ScheduleDescriptor{
		{ID: "a", Name: "A", JobTypes: []string{"INTERVAL_3"}, AnchorDate: date(2023, 11, 2)},
		{ID: "b", Name: "B", RepeatConfig: &domain.RepeatConfig{DaysOfWeek: []int{0, 6}}},
	}

	first := Aggregate(schedules, w, now, nil)
	second := Aggregate(schedules, w, now, nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("aggregate is not deterministic for identical inputs")
	}
}

func TestAggregateInsertionOrderWithinDate(t *testing.T) {
	t.Parallel()
	w := mustWindow(t, date(2024, 6, 17), date(2024, 6, 17))
	now := date(2024, 6, 17)

	// Both fire on the single window day (a Monday).
	schedules := []domain.ScheduleDescriptor{
		{ID: "s1", Name: "First", JobTypes: []string{"DAY_OF_WEEK_1"}},
		{ID: "s2", Name: "Second", RepeatConfig: &domain.RepeatConfig{DaysOfWeek: []int{1}}},
	}

	got := Aggregate(schedules, w, now, nil)
	occs := got["2024-06-17"]
	if len(occs) != 2 {
		t.Fatalf("got %d records, want 2", len(occs))
	}
	if occs[0].ScheduleID != "s1" || occs[1].ScheduleID != "s2" {
		t.Fatalf("order = %s,%s; want s1,s2", occs[0].ScheduleID, occs[1].ScheduleID)
	}
}

func TestAggregateRecorderEvents(t *testing.T) {
	t.Parallel()
	w := mustWindow(t, date(2024, 6, 15), date(2024, 7, 15))
	rec := &captureRecorder{}

	schedules := []domain.ScheduleDescriptor{
		{ID: "ok", JobTypes: []string{"INTERVAL_7"}},
		{ID: "bad", FreeTextSummary: "Waters when needed"},
	}
	Aggregate(schedules, w, date(2024, 6, 15), rec)

	if len(rec.events) != 2 {
		t.Fatalf("got %d events, want 2", len(rec.events))
	}
	if rec.events[0].scheduleID != "ok" || rec.events[0].tier != TierJobType {
		t.Fatalf("unexpected first event: %+v", rec.events[0])
	}
	if rec.events[1].scheduleID != "bad" || rec.events[1].reason == "" {
		t.Fatalf("unexpected second event: %+v", rec.events[1])
	}
}
