// Package refresh keeps the forecast and water-usage caches warm so the
// dashboard rarely pays an upstream round-trip on a user request.
package refresh

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	maxAttempts = 3
	jobTimeout  = 2 * time.Minute
)

// Service runs registered refresh jobs on cron schedules. Failures are
// retried with exponential backoff and logged; they never take the process
// down, since every consumer also falls back to fetch-on-demand.
type Service struct {
	cron *cron.Cron
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewService(log zerolog.Logger) *Service {
	return &Service{cron: cron.New(), log: log}
}

// Add registers a job under a standard 5-field cron spec.
func (s *Service) Add(name, spec string, run func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() { s.execute(name, run) })
	if err != nil {
		return err
	}
	s.log.Info().Str("job", name).Str("spec", spec).Msg("refresh job registered")
	return nil
}

// Start launches the cron loop; jobs inherit ctx for cancellation.
func (s *Service) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
}

// Stop halts scheduling and cancels any in-flight job contexts.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
}

func (s *Service) execute(name string, run func(ctx context.Context) error) {
	jobID := "rfr_" + uuid.NewString()
	log := s.log.With().Str("job", name).Str("job_id", jobID).Logger()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
		err := run(ctx)
		cancel()
		if err == nil {
			log.Info().Int("attempt", attempt).Msg("refresh job succeeded")
			return
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("refresh job attempt failed")

		if attempt == maxAttempts {
			break
		}
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(backoffExp(attempt)):
		}
	}
	log.Error().Msg("refresh job exhausted retries")
}

func backoffExp(attempts int) time.Duration {
	if attempts <= 0 {
		return time.Second
	}
	d := 1 << (attempts - 1) // 1,2,4,8...
	if d > 60 {
		d = 60
	}
	return time.Duration(d) * time.Second
}
