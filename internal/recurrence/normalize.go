package recurrence

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"raincheck/internal/domain"
)

// Tier identifies which encoding the normalizer trusted for a schedule.
// The order of these constants is the precedence order: the first tier that
// yields a usable pattern wins, regardless of what the later fields say.
type Tier int

const (
	TierNone Tier = iota
	TierJobType
	TierRepeatConfig
	TierRawInterval
	TierFreeText
)

func (t Tier) String() string {
	switch t {
	case TierJobType:
		return "job_type"
	case TierRepeatConfig:
		return "repeat_config"
	case TierRawInterval:
		return "raw_interval"
	case TierFreeText:
		return "free_text"
	default:
		return "none"
	}
}

// Recorder receives structured diagnostic events from the engine. The engine
// never logs directly; callers inject a Recorder (a zerolog-backed one in
// production, NopRecorder in tests).
type Recorder interface {
	PatternResolved(scheduleID string, tier Tier, patterns []domain.RecurrencePattern)
	Unsupported(scheduleID string, reason string)
}

// NopRecorder discards all events.
type NopRecorder struct{}

func (NopRecorder) PatternResolved(string, Tier, []domain.RecurrencePattern) {}
func (NopRecorder) Unsupported(string, string)                               {}

const (
	jobTypeIntervalPrefix = "INTERVAL_"
	jobTypeWeekdayPrefix  = "DAY_OF_WEEK_"
)

// "Every 30 days", "every 1 day" — anything else is unsupported.
var freeTextEvery = regexp.MustCompile(`(?i)\bevery\s+(\d+)\s+days?\b`)

// Normalize resolves a descriptor's competing recurrence encodings into
// canonical patterns, applying the fixed precedence order:
//
//  1. JobTypes[0] (interval or weekday tag)
//  2. RepeatConfig, when non-trivial (interval beats weekday set; a multi-day
//     weekday set expands into one pattern per day)
//  3. RawIntervalDays, when positive
//  4. FreeTextSummary matching "every N day(s)"
//
// When nothing matches, the result is a single Unsupported pattern. Absent
// anchors default to now (date-only). Normalize never mutates the descriptor
// and never fails: unusable vendor data is an expected outcome, not an error.
func Normalize(d domain.ScheduleDescriptor, now time.Time) ([]domain.RecurrencePattern, Tier) {
	anchor := domain.DateOnly(now)
	if !d.AnchorDate.IsZero() {
		anchor = domain.DateOnly(d.AnchorDate)
	}

	// Tier 1: the first jobTypes tag, and only the first.
	if len(d.JobTypes) > 0 {
		if p, ok := patternFromTag(d.JobTypes[0], anchor); ok {
			return []domain.RecurrencePattern{p}, TierJobType
		}
	}

	// Tier 2: structured repeat block. Interval wins over the weekday set
	// within this encoding.
	if rc := d.RepeatConfig; rc != nil {
		if rc.IntervalDays > 0 {
			return []domain.RecurrencePattern{{
				Kind:   domain.KindInterval,
				Days:   rc.IntervalDays,
				Anchor: anchor,
			}}, TierRepeatConfig
		}
		if ps := patternsFromWeekdays(rc.DaysOfWeek); len(ps) > 0 {
			return ps, TierRepeatConfig
		}
	}

	// Tier 3: bare interval field.
	if d.RawIntervalDays > 0 {
		return []domain.RecurrencePattern{{
			Kind:   domain.KindInterval,
			Days:   d.RawIntervalDays,
			Anchor: anchor,
		}}, TierRawInterval
	}

	// Tier 4: free-text last resort.
	if m := freeTextEvery.FindStringSubmatch(d.FreeTextSummary); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return []domain.RecurrencePattern{{
				Kind:   domain.KindInterval,
				Days:   n,
				Anchor: anchor,
			}}, TierFreeText
		}
	}

	return []domain.RecurrencePattern{{Kind: domain.KindUnsupported}}, TierNone
}

// patternFromTag parses an "INTERVAL_<n>" or "DAY_OF_WEEK_<d>" tag. Any
// other tag (the vendor also emits markers like "ANY" or "FIXED") does not
// match, and evaluation falls through to the next tier.
func patternFromTag(tag string, anchor time.Time) (domain.RecurrencePattern, bool) {
	if rest, ok := strings.CutPrefix(tag, jobTypeIntervalPrefix); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n <= 0 {
			return domain.RecurrencePattern{}, false
		}
		return domain.RecurrencePattern{Kind: domain.KindInterval, Days: n, Anchor: anchor}, true
	}
	if rest, ok := strings.CutPrefix(tag, jobTypeWeekdayPrefix); ok {
		wd, err := strconv.Atoi(rest)
		if err != nil || wd < 0 || wd > 6 {
			return domain.RecurrencePattern{}, false
		}
		return domain.RecurrencePattern{Kind: domain.KindDayOfWeek, Weekday: wd}, true
	}
	return domain.RecurrencePattern{}, false
}

// patternsFromWeekdays expands a weekday set into one DayOfWeek pattern per
// valid day, sorted for deterministic output. Out-of-range days are dropped.
func patternsFromWeekdays(days []int) []domain.RecurrencePattern {
	seen := make(map[int]bool, len(days))
	var valid []int
	for _, d := range days {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		valid = append(valid, d)
	}
	sort.Ints(valid)

	ps := make([]domain.RecurrencePattern, 0, len(valid))
	for _, d := range valid {
		ps = append(ps, domain.RecurrencePattern{Kind: domain.KindDayOfWeek, Weekday: d})
	}
	return ps
}
