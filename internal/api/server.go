package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"raincheck/internal/dashboard"
	"raincheck/internal/domain"
)

// maxWindowDays bounds the projection window a client may request.
const maxWindowDays = 90

// Dashboard is the calendar/skip surface the server fronts.
type Dashboard interface {
	Calendar(ctx context.Context, days int) (dashboard.CalendarView, error)
	Schedules(ctx context.Context) ([]dashboard.ScheduleSummary, error)
	Skip(ctx context.Context, scheduleID, dateKey string) error
	Start(ctx context.Context, scheduleID string) error
}

// Usage is the water-usage surface.
type Usage interface {
	Configured() bool
	Latest(ctx context.Context, now time.Time) (domain.UsageReading, bool, error)
}

type Server struct {
	r    *chi.Mux
	dash Dashboard
	use  Usage
	log  zerolog.Logger
}

func NewServer(dash Dashboard, use Usage, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(log), middleware.Recoverer)

	s := &Server{r: r, dash: dash, use: use, log: log}

	r.Get("/health", s.health)
	r.Get("/api/calendar", s.calendar)
	r.Get("/api/schedules", s.schedules)
	r.Post("/api/schedules/{id}/skip", s.skipSchedule)
	r.Post("/api/schedules/{id}/start", s.startSchedule)
	r.Get("/water/daily", s.waterDaily)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) calendar(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxWindowDays {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 90")
			return
		}
		days = n
	}

	view, err := s.dash.Calendar(r.Context(), days)
	if err != nil {
		s.log.Error().Err(err).Msg("calendar request failed")
		writeError(w, http.StatusBadGateway, "calendar unavailable")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) schedules(w http.ResponseWriter, r *http.Request) {
	out, err := s.dash.Schedules(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("schedule list failed")
		writeError(w, http.StatusBadGateway, "schedules unavailable")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type skipReq struct {
	Date string `json:"date"`
}

func (s *Server) skipSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req skipReq
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
	}

	err := s.dash.Skip(r.Context(), id, req.Date)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
	case errors.Is(err, dashboard.ErrUnknownSchedule):
		writeError(w, http.StatusNotFound, "unknown schedule")
	case errors.Is(err, dashboard.ErrNotNextOccurrence):
		writeError(w, http.StatusConflict, "only the next occurrence can be skipped")
	default:
		s.log.Error().Err(err).Str("schedule_id", id).Msg("skip failed")
		writeError(w, http.StatusBadGateway, "skip failed")
	}
}

func (s *Server) startSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.dash.Start(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
	case errors.Is(err, dashboard.ErrUnknownSchedule):
		writeError(w, http.StatusNotFound, "unknown schedule")
	default:
		s.log.Error().Err(err).Str("schedule_id", id).Msg("start failed")
		writeError(w, http.StatusBadGateway, "start failed")
	}
}

type usageResp struct {
	domain.UsageReading
	Cached bool `json:"cached"`
}

func (s *Server) waterDaily(w http.ResponseWriter, r *http.Request) {
	if !s.use.Configured() {
		writeError(w, http.StatusNotFound, "water usage not configured")
		return
	}
	reading, cached, err := s.use.Latest(r.Context(), time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("usage fetch failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, usageResp{UsageReading: reading, Cached: cached})
}

// requestLogger emits one structured line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
