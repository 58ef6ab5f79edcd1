package rachio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"raincheck/internal/domain"
)

const personJSON = `{
  "id": "p-1",
  "devices": [
    {
      "id": "d-1",
      "name": "Backyard controller",
      "scheduleRules": [
        {
          "id": "r-1",
          "name": "Lawn",
          "enabled": true,
          "scheduleJobTypes": ["INTERVAL_14"],
          "interval": 14,
          "summary": "Every 14 days",
          "startDate": 1704067200000,
          "endDate": 0
        },
        {
          "id": "r-2",
          "name": "Beds",
          "enabled": false,
          "scheduleJobTypes": ["ANY"],
          "repeat": {"intervalDays": 0, "daysOfWeek": [1,3,5]},
          "summary": "Mon, Wed, Fri"
        }
      ]
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New("test-key")
	c.BaseURL = srv.URL
	return c
}

func TestSchedulesMapping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		switch r.URL.Path {
		case "/person/info":
			w.Write([]byte(`{"id":"p-1"}`))
		case "/person/p-1":
			w.Write([]byte(personJSON))
		default:
			http.NotFound(w, r)
		}
	})

	got, err := c.Schedules(context.Background())
	if err != nil {
		t.Fatalf("Schedules: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d descriptors, want 2", len(got))
	}

	lawn := got[0]
	if lawn.ID != "r-1" || !lawn.Enabled || lawn.DeviceName != "Backyard controller" {
		t.Fatalf("unexpected descriptor: %+v", lawn)
	}
	if len(lawn.JobTypes) != 1 || lawn.JobTypes[0] != "INTERVAL_14" {
		t.Fatalf("job types = %v", lawn.JobTypes)
	}
	if lawn.RawIntervalDays != 14 {
		t.Fatalf("raw interval = %d", lawn.RawIntervalDays)
	}
	// 1704067200000 ms = 2024-01-01T00:00:00Z.
	if key := domain.DateKey(lawn.AnchorDate); key != "2024-01-01" {
		t.Fatalf("anchor = %s, want 2024-01-01", key)
	}
	if !lawn.EndDate.IsZero() {
		t.Fatalf("end date = %v, want zero (open-ended)", lawn.EndDate)
	}

	beds := got[1]
	if beds.Enabled {
		t.Fatal("beds should be disabled")
	}
	if beds.RepeatConfig == nil || len(beds.RepeatConfig.DaysOfWeek) != 3 {
		t.Fatalf("repeat config = %+v", beds.RepeatConfig)
	}
	if !beds.AnchorDate.IsZero() {
		t.Fatal("missing startDate should map to zero anchor")
	}
}

func TestSkipSchedule(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.SkipSchedule(context.Background(), "r-1"); err != nil {
		t.Fatalf("SkipSchedule: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/schedulerule/skip" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
	if gotBody["id"] != "r-1" {
		t.Fatalf("body id = %q", gotBody["id"])
	}
}

func TestErrorStatusSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	err := c.SkipSchedule(context.Background(), "r-1")
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
}
