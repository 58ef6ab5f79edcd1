// Package dashboard composes the vendor schedule feed, the recurrence
// engine, and the forecast source into the calendar the UI renders.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"raincheck/internal/domain"
	"raincheck/internal/recurrence"
)

var (
	// ErrUnknownSchedule means the vendor feed has no schedule with that id.
	ErrUnknownSchedule = errors.New("dashboard: unknown schedule")
	// ErrNotNextOccurrence guards the skip actuator: only a schedule's
	// flagged next occurrence may be skipped.
	ErrNotNextOccurrence = errors.New("dashboard: date is not the schedule's next occurrence")
)

// ScheduleSource supplies vendor schedule descriptors.
type ScheduleSource interface {
	Schedules(ctx context.Context) ([]domain.ScheduleDescriptor, error)
}

// Actuator relays skip/start actions to the vendor.
type Actuator interface {
	SkipSchedule(ctx context.Context, scheduleID string) error
	StartSchedule(ctx context.Context, scheduleID string) error
}

// ForecastSource supplies per-date weather summaries keyed YYYY-MM-DD.
type ForecastSource interface {
	Daily(ctx context.Context, now time.Time) (map[string]domain.DayForecast, error)
}

// CalendarDay is one rendered calendar cell: the schedules firing that date
// zipped with the day's forecast (nil past the forecast horizon).
type CalendarDay struct {
	Occurrences []domain.ScheduleOccurrence `json:"occurrences"`
	Forecast    *domain.DayForecast         `json:"forecast,omitempty"`
}

// CalendarView is the date-indexed occurrence map for the UI.
type CalendarView struct {
	From string                 `json:"from"`
	To   string                 `json:"to"`
	Days map[string]CalendarDay `json:"days"`
}

// ScheduleSummary is the list view: the descriptor essentials plus how the
// normalizer read its recurrence and when it runs next.
type ScheduleSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DeviceName     string `json:"deviceName,omitempty"`
	Enabled        bool   `json:"enabled"`
	Tier           string `json:"matchedTier"`
	NextOccurrence string `json:"nextOccurrence,omitempty"`
}

// lookaheadDays bounds the window used when resolving a schedule's next
// occurrence for skip eligibility.
const lookaheadDays = 90

type Service struct {
	source   ScheduleSource
	actuator Actuator
	forecast ForecastSource
	rec      recurrence.Recorder
	log      zerolog.Logger

	// Now is the clock boundary; the engine itself never reads a clock.
	Now func() time.Time
}

func NewService(source ScheduleSource, actuator Actuator, forecast ForecastSource, log zerolog.Logger) *Service {
	return &Service{
		source:   source,
		actuator: actuator,
		forecast: forecast,
		rec:      NewRecorder(log),
		log:      log,
		Now:      time.Now,
	}
}

// Calendar projects every enabled schedule over the next `days` days and
// zips each date with its forecast. A forecast outage degrades to a
// weatherless calendar rather than failing the request.
func (s *Service) Calendar(ctx context.Context, days int) (CalendarView, error) {
	now := s.Now()
	w, err := recurrence.WindowDays(now, days)
	if err != nil {
		return CalendarView{}, err
	}

	schedules, err := s.source.Schedules(ctx)
	if err != nil {
		return CalendarView{}, fmt.Errorf("dashboard: fetch schedules: %w", err)
	}
	enabled := make([]domain.ScheduleDescriptor, 0, len(schedules))
	for _, d := range schedules {
		if d.Enabled {
			enabled = append(enabled, d)
		}
	}

	occurrences := recurrence.Aggregate(enabled, w, now, s.rec)

	weather, err := s.forecast.Daily(ctx, now)
	if err != nil {
		s.log.Warn().Err(err).Msg("forecast unavailable, serving calendar without weather")
		weather = nil
	}

	byDate := make(map[string]CalendarDay, len(occurrences))
	for key, occs := range occurrences {
		day := CalendarDay{Occurrences: occs}
		if f, ok := weather[key]; ok {
			fc := f
			day.Forecast = &fc
		}
		byDate[key] = day
	}
	// Forecast-only days matter to the UI too (rain on a no-watering day).
	from, to := domain.DateKey(w.From()), domain.DateKey(w.To())
	for key, f := range weather {
		if _, ok := byDate[key]; ok {
			continue
		}
		if key < from || key > to {
			continue
		}
		fc := f
		byDate[key] = CalendarDay{Forecast: &fc}
	}

	return CalendarView{From: from, To: to, Days: byDate}, nil
}

// Schedules lists every schedule with its resolved tier and next run date.
func (s *Service) Schedules(ctx context.Context) ([]ScheduleSummary, error) {
	now := s.Now()
	schedules, err := s.source.Schedules(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: fetch schedules: %w", err)
	}
	w, err := recurrence.WindowDays(now, lookaheadDays)
	if err != nil {
		return nil, err
	}

	out := make([]ScheduleSummary, 0, len(schedules))
	for _, d := range schedules {
		_, tier := recurrence.Normalize(d, now)
		sum := ScheduleSummary{
			ID:         d.ID,
			Name:       d.Name,
			DeviceName: d.DeviceName,
			Enabled:    d.Enabled,
			Tier:       tier.String(),
		}
		if d.Enabled {
			if dates := recurrence.ProjectSchedule(d, w, now, s.rec); len(dates) > 0 {
				sum.NextOccurrence = domain.DateKey(dates[0])
			}
		}
		out = append(out, sum)
	}
	return out, nil
}

// Skip relays a skip to the vendor after verifying the target really is the
// schedule's next occurrence. dateKey may be empty to mean "whatever the
// next occurrence is"; a non-empty key must match it exactly.
func (s *Service) Skip(ctx context.Context, scheduleID, dateKey string) error {
	next, err := s.nextOccurrence(ctx, scheduleID)
	if err != nil {
		return err
	}
	if next == "" {
		return ErrNotNextOccurrence
	}
	if dateKey != "" && dateKey != next {
		return ErrNotNextOccurrence
	}
	if err := s.actuator.SkipSchedule(ctx, scheduleID); err != nil {
		return fmt.Errorf("dashboard: skip schedule %s: %w", scheduleID, err)
	}
	s.log.Info().Str("schedule_id", scheduleID).Str("date", next).Msg("schedule skipped")
	return nil
}

// Start relays an immediate manual run to the vendor.
func (s *Service) Start(ctx context.Context, scheduleID string) error {
	if _, err := s.findSchedule(ctx, scheduleID); err != nil {
		return err
	}
	if err := s.actuator.StartSchedule(ctx, scheduleID); err != nil {
		return fmt.Errorf("dashboard: start schedule %s: %w", scheduleID, err)
	}
	s.log.Info().Str("schedule_id", scheduleID).Msg("schedule started")
	return nil
}

func (s *Service) nextOccurrence(ctx context.Context, scheduleID string) (string, error) {
	d, err := s.findSchedule(ctx, scheduleID)
	if err != nil {
		return "", err
	}
	now := s.Now()
	w, err := recurrence.WindowDays(now, lookaheadDays)
	if err != nil {
		return "", err
	}
	dates := recurrence.ProjectSchedule(d, w, now, s.rec)
	if len(dates) == 0 {
		return "", nil
	}
	return domain.DateKey(dates[0]), nil
}

func (s *Service) findSchedule(ctx context.Context, scheduleID string) (domain.ScheduleDescriptor, error) {
	schedules, err := s.source.Schedules(ctx)
	if err != nil {
		return domain.ScheduleDescriptor{}, fmt.Errorf("dashboard: fetch schedules: %w", err)
	}
	for _, d := range schedules {
		if d.ID == scheduleID {
			return d, nil
		}
	}
	return domain.ScheduleDescriptor{}, ErrUnknownSchedule
}
