package domain

import "time"

// DateKeyLayout is the canonical date key shared by occurrence maps and the
// forecast source, so consumers can zip the two by key.
const DateKeyLayout = "2006-01-02"

// DateOnly strips the time-of-day and normalizes to midnight UTC. All
// recurrence arithmetic happens on these normalized values to avoid
// timezone-boundary drift.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey renders a date in the canonical YYYY-MM-DD form.
func DateKey(t time.Time) string {
	return DateOnly(t).Format(DateKeyLayout)
}

// RepeatConfig is the structured repeat block some vendor schedules carry.
// IntervalDays takes precedence over DaysOfWeek when both are set.
type RepeatConfig struct {
	IntervalDays int
	DaysOfWeek   []int // 0=Sunday .. 6=Saturday
}

// ScheduleDescriptor is the read-only vendor view of one watering schedule.
// The recurrence may be encoded in several fields at once; at most one of
// them is trusted, resolved by the normalizer's fixed precedence order.
type ScheduleDescriptor struct {
	ID         string
	Name       string
	Enabled    bool
	DeviceName string

	// JobTypes is an ordered tag list; only the first tag is authoritative
	// (e.g. "INTERVAL_14", "DAY_OF_WEEK_3").
	JobTypes []string

	RepeatConfig    *RepeatConfig
	RawIntervalDays int

	// FreeTextSummary is a human sentence like "Every 30 days"; last-resort
	// recurrence source.
	FreeTextSummary string

	// AnchorDate is the schedule's own start date, the recurrence origin.
	// Zero means unknown; the normalizer substitutes the caller's "now".
	AnchorDate time.Time

	// EndDate is an inclusive hard stop. Zero means open-ended.
	EndDate time.Time
}

// PatternKind discriminates the canonical recurrence variants.
type PatternKind int

const (
	KindUnsupported PatternKind = iota
	KindInterval
	KindDayOfWeek
)

func (k PatternKind) String() string {
	switch k {
	case KindInterval:
		return "interval"
	case KindDayOfWeek:
		return "day_of_week"
	default:
		return "unsupported"
	}
}

// RecurrencePattern is the canonical recurrence derived from a descriptor's
// raw encoding fields. Only the fields for its Kind are meaningful.
type RecurrencePattern struct {
	Kind PatternKind

	// Interval fields. Days is always > 0 for a KindInterval pattern.
	Days   int
	Anchor time.Time // date-only, midnight UTC

	// DayOfWeek field. 0=Sunday .. 6=Saturday.
	Weekday int
}

// ScheduleOccurrence is one projected run date for one schedule. Computed
// fresh per projection call, never persisted.
type ScheduleOccurrence struct {
	Date             time.Time `json:"-"`
	DateKey          string    `json:"date"`
	ScheduleID       string    `json:"scheduleId"`
	ScheduleName     string    `json:"scheduleName"`
	DeviceName       string    `json:"deviceName,omitempty"`
	IsNextOccurrence bool      `json:"isNextOccurrence"`
}

// DayForecast is the per-date weather summary keyed by the same YYYY-MM-DD
// key as occurrences.
type DayForecast struct {
	DateKey       string  `json:"date"`
	TempMaxC      float64 `json:"tempMaxC"`
	TempMinC      float64 `json:"tempMinC"`
	PrecipProbPct int     `json:"precipProbPct"`
	PrecipMM      float64 `json:"precipMm"`
}

// UsageReading is the latest daily water-usage figure scraped from the
// utility portal.
type UsageReading struct {
	Source       string  `json:"source"`
	LatestUsageG float64 `json:"latest_usage_gallons"`
	Rows         int     `json:"rows"`
	Timestamp    int64   `json:"timestamp"`
}
