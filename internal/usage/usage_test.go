package usage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"raincheck/internal/domain"
	"raincheck/internal/store"
)

func TestParseLatestUsage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		csv         string
		wantGallons float64
		wantRows    int
		wantErr     bool
	}{
		{
			name:        "plain usage column",
			csv:         "Date,Usage\n2024-06-13,110\n2024-06-14,95.5\n",
			wantGallons: 95.5,
			wantRows:    2,
		},
		{
			name:        "gallons suffix variant",
			csv:         "Date,Usage (Gallons)\n2024-06-14,120\n",
			wantGallons: 120,
			wantRows:    1,
		},
		{
			name:        "bare gallons variant",
			csv:         "Date,Gallons,Cost\n2024-06-14,87,1.20\n",
			wantGallons: 87,
			wantRows:    1,
		},
		{
			name:    "header only",
			csv:     "Date,Usage\n",
			wantErr: true,
		},
		{
			name:    "empty file",
			csv:     "",
			wantErr: true,
		},
		{
			name:    "unknown schema",
			csv:     "Date,CCF\n2024-06-14,12\n",
			wantErr: true,
		},
		{
			name:    "non-numeric usage",
			csv:     "Date,Usage\n2024-06-14,n/a\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			gallons, rows, err := parseLatestUsage(strings.NewReader(tt.csv))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLatestUsage: %v", err)
			}
			if gallons != tt.wantGallons || rows != tt.wantRows {
				t.Fatalf("got (%v, %d), want (%v, %d)", gallons, rows, tt.wantGallons, tt.wantRows)
			}
		})
	}
}

type stubFetcher struct {
	reading domain.UsageReading
	err     error
	calls   int
}

func (s *stubFetcher) Fetch(context.Context) (domain.UsageReading, error) {
	s.calls++
	return s.reading, s.err
}

type memCache struct {
	payload   []byte
	fetchedAt time.Time
}

func (m *memCache) Get(_ context.Context, _ string, ttl time.Duration, now time.Time) ([]byte, error) {
	if m.payload == nil || now.Sub(m.fetchedAt) > ttl {
		return nil, store.ErrMiss
	}
	return m.payload, nil
}

func (m *memCache) Put(_ context.Context, _ string, payload []byte, now time.Time) error {
	m.payload = payload
	m.fetchedAt = now
	return nil
}

func TestLatestUsesCacheWithinTTL(t *testing.T) {
	t.Parallel()
	f := &stubFetcher{reading: domain.UsageReading{Source: "test", LatestUsageG: 42, Rows: 10}}
	s := NewService(f, &memCache{})
	now := time.Unix(1_718_400_000, 0)

	got, cached, err := s.Latest(context.Background(), now)
	if err != nil || cached {
		t.Fatalf("first call: cached=%v err=%v", cached, err)
	}
	if got.LatestUsageG != 42 {
		t.Fatalf("gallons = %v", got.LatestUsageG)
	}

	_, cached, err = s.Latest(context.Background(), now.Add(12*time.Hour))
	if err != nil || !cached {
		t.Fatalf("second call: cached=%v err=%v", cached, err)
	}
	if f.calls != 1 {
		t.Fatalf("fetcher called %d times, want 1", f.calls)
	}

	_, cached, err = s.Latest(context.Background(), now.Add(24*time.Hour))
	if err != nil || cached {
		t.Fatalf("stale call: cached=%v err=%v", cached, err)
	}
	if f.calls != 2 {
		t.Fatalf("fetcher called %d times, want 2", f.calls)
	}
}

func TestLatestNotConfigured(t *testing.T) {
	t.Parallel()
	s := NewService(nil, &memCache{})
	_, _, err := s.Latest(context.Background(), time.Now())
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestLatestFetchErrorPropagates(t *testing.T) {
	t.Parallel()
	f := &stubFetcher{err: errors.New("portal down")}
	s := NewService(f, &memCache{})
	if _, _, err := s.Latest(context.Background(), time.Now()); err == nil {
		t.Fatal("expected fetch error")
	}
}
