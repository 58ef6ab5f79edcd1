package dashboard

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"raincheck/internal/domain"
	"raincheck/internal/recurrence"
)

// logRecorder adapts the engine's diagnostic events onto zerolog. The engine
// itself stays log-free; this is the injected observability boundary.
type logRecorder struct {
	log zerolog.Logger
}

func NewRecorder(log zerolog.Logger) recurrence.Recorder {
	return &logRecorder{log: log}
}

func (r *logRecorder) PatternResolved(scheduleID string, tier recurrence.Tier, patterns []domain.RecurrencePattern) {
	r.log.Debug().
		Str("schedule_id", scheduleID).
		Str("tier", tier.String()).
		Str("pattern", summarizePatterns(patterns)).
		Msg("recurrence resolved")
}

func (r *logRecorder) Unsupported(scheduleID, reason string) {
	r.log.Warn().
		Str("schedule_id", scheduleID).
		Str("reason", reason).
		Msg("schedule recurrence unsupported")
}

func summarizePatterns(patterns []domain.RecurrencePattern) string {
	parts := make([]string, 0, len(patterns))
	for _, p := range patterns {
		switch p.Kind {
		case domain.KindInterval:
			parts = append(parts, fmt.Sprintf("interval:%d@%s", p.Days, domain.DateKey(p.Anchor)))
		case domain.KindDayOfWeek:
			parts = append(parts, fmt.Sprintf("day_of_week:%d", p.Weekday))
		default:
			parts = append(parts, "unsupported")
		}
	}
	return strings.Join(parts, ",")
}
