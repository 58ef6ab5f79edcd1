package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"raincheck/internal/domain"
	"raincheck/internal/store"
)

const (
	// DefaultBaseURL is the Open-Meteo forecast endpoint (no API key).
	DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

	// Open-Meteo serves at most 16 days ahead; occurrence dates past that
	// simply have no forecast attached.
	forecastDays = 16

	cacheKey = "forecast:daily"
	cacheTTL = time.Hour
)

// Source fetches per-date weather summaries keyed YYYY-MM-DD, the same key
// the occurrence aggregator emits, so the dashboard can zip the two maps.
// Responses are cached for an hour.
type Source struct {
	BaseURL string

	lat, lon float64
	cache    store.Cache
	hc       *http.Client
}

func NewSource(lat, lon float64, cache store.Cache) *Source {
	return &Source{
		BaseURL: DefaultBaseURL,
		lat:     lat,
		lon:     lon,
		cache:   cache,
		hc:      &http.Client{Timeout: 10 * time.Second},
	}
}

type apiResponse struct {
	Daily struct {
		Time          []string  `json:"time"`
		TempMax       []float64 `json:"temperature_2m_max"`
		TempMin       []float64 `json:"temperature_2m_min"`
		PrecipProbMax []int     `json:"precipitation_probability_max"`
		PrecipSum     []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// Daily returns the upcoming per-date summaries, from cache when fresh.
func (s *Source) Daily(ctx context.Context, now time.Time) (map[string]domain.DayForecast, error) {
	if payload, err := s.cache.Get(ctx, cacheKey, cacheTTL, now); err == nil {
		var out map[string]domain.DayForecast
		if err := json.Unmarshal(payload, &out); err == nil {
			return out, nil
		}
		// Corrupt cache entry: fall through to a fresh fetch.
	} else if !errors.Is(err, store.ErrMiss) {
		return nil, err
	}

	out, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(out); err == nil {
		_ = s.cache.Put(ctx, cacheKey, payload, now)
	}
	return out, nil
}

// Refresh forces a fetch and re-primes the cache, for the background warm job.
func (s *Source) Refresh(ctx context.Context, now time.Time) error {
	out, err := s.fetch(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return s.cache.Put(ctx, cacheKey, payload, now)
}

func (s *Source) fetch(ctx context.Context) (map[string]domain.DayForecast, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(s.lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(s.lon, 'f', 4, 64))
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_probability_max,precipitation_sum")
	q.Set("forecast_days", strconv.Itoa(forecastDays))
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("forecast: build request: %w", err)
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast: status %d", resp.StatusCode)
	}

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return nil, fmt.Errorf("forecast: decode: %w", err)
	}

	out := make(map[string]domain.DayForecast, len(api.Daily.Time))
	for i, day := range api.Daily.Time {
		f := domain.DayForecast{DateKey: day}
		if i < len(api.Daily.TempMax) {
			f.TempMaxC = api.Daily.TempMax[i]
		}
		if i < len(api.Daily.TempMin) {
			f.TempMinC = api.Daily.TempMin[i]
		}
		if i < len(api.Daily.PrecipProbMax) {
			f.PrecipProbPct = api.Daily.PrecipProbMax[i]
		}
		if i < len(api.Daily.PrecipSum) {
			f.PrecipMM = api.Daily.PrecipSum[i]
		}
		out[day] = f
	}
	return out, nil
}
