// Package usage exposes the household's latest daily water-usage reading,
// scraped from the utility portal and cached aggressively: the portal only
// updates once a day and does not appreciate frequent logins.
package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"raincheck/internal/domain"
	"raincheck/internal/store"
)

// ErrNotConfigured is returned when no portal credentials were supplied.
var ErrNotConfigured = errors.New("usage: portal credentials not configured")

const (
	cacheKey = "usage:daily"
	// Once per day, politely. 23h leaves slack so a fixed daily refresh
	// job never finds yesterday's entry still fresh.
	cacheTTL = 23 * time.Hour
)

// Fetcher produces a fresh reading from the portal.
type Fetcher interface {
	Fetch(ctx context.Context) (domain.UsageReading, error)
}

// Service serves the latest reading, preferring the cache.
type Service struct {
	fetcher Fetcher
	cache   store.Cache
}

// NewService returns a usage service; fetcher may be nil when the feature is
// not configured, in which case every call yields ErrNotConfigured.
func NewService(fetcher Fetcher, cache store.Cache) *Service {
	return &Service{fetcher: fetcher, cache: cache}
}

func (s *Service) Configured() bool { return s.fetcher != nil }

// Latest returns the current reading and whether it came from cache.
func (s *Service) Latest(ctx context.Context, now time.Time) (domain.UsageReading, bool, error) {
	if s.fetcher == nil {
		return domain.UsageReading{}, false, ErrNotConfigured
	}

	if payload, err := s.cache.Get(ctx, cacheKey, cacheTTL, now); err == nil {
		var r domain.UsageReading
		if err := json.Unmarshal(payload, &r); err == nil {
			return r, true, nil
		}
	} else if !errors.Is(err, store.ErrMiss) {
		return domain.UsageReading{}, false, err
	}

	r, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return domain.UsageReading{}, false, err
	}
	if payload, err := json.Marshal(r); err == nil {
		if perr := s.cache.Put(ctx, cacheKey, payload, now); perr != nil {
			return r, false, fmt.Errorf("usage: cache fresh reading: %w", perr)
		}
	}
	return r, false, nil
}

// Refresh forces a portal fetch and re-primes the cache, for the daily
// background job.
func (s *Service) Refresh(ctx context.Context, now time.Time) error {
	if s.fetcher == nil {
		return ErrNotConfigured
	}
	r, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.cache.Put(ctx, cacheKey, payload, now)
}
