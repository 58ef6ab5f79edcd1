package rachio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"raincheck/internal/domain"
)

// DefaultBaseURL is the public Rachio API root.
const DefaultBaseURL = "https://api.rach.io/1/public"

// Client talks to the Rachio cloud API. All schedule data is read-only to
// this service; the only writes are the skip/start actuator calls.
type Client struct {
	// BaseURL may be overridden (tests point it at a local server).
	BaseURL string

	apiKey string
	hc     *http.Client
}

func New(apiKey string) *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: 15 * time.Second},
	}
}

type personInfo struct {
	ID string `json:"id"`
}

type person struct {
	ID      string   `json:"id"`
	Devices []device `json:"devices"`
}

type device struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	ScheduleRules []scheduleRule `json:"scheduleRules"`
}

// scheduleRule mirrors the vendor wire shape. The recurrence is smeared
// across several fields; mapping to the canonical pattern happens in
// internal/recurrence, not here.
type scheduleRule struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Enabled          bool         `json:"enabled"`
	ScheduleJobTypes []string     `json:"scheduleJobTypes"`
	Repeat           *repeatBlock `json:"repeat"`
	Interval         int          `json:"interval"`
	Summary          string       `json:"summary"`
	StartDate        int64        `json:"startDate"` // ms epoch, 0 = absent
	EndDate          int64        `json:"endDate"`   // ms epoch, 0 = open-ended
}

type repeatBlock struct {
	IntervalDays int   `json:"intervalDays"`
	DaysOfWeek   []int `json:"daysOfWeek"`
}

// Schedules fetches every schedule rule across the account's devices,
// mapped into descriptors with the owning device's name attached.
func (c *Client) Schedules(ctx context.Context) ([]domain.ScheduleDescriptor, error) {
	id, err := c.personID(ctx)
	if err != nil {
		return nil, err
	}

	var p person
	if err := c.get(ctx, "/person/"+id, &p); err != nil {
		return nil, err
	}

	var out []domain.ScheduleDescriptor
	for _, dev := range p.Devices {
		for _, r := range dev.ScheduleRules {
			out = append(out, descriptorFromRule(r, dev.Name))
		}
	}
	return out, nil
}

// SkipSchedule tells the vendor to skip the schedule's next run. Callers are
// responsible for only invoking this against a flagged next occurrence.
func (c *Client) SkipSchedule(ctx context.Context, scheduleID string) error {
	return c.put(ctx, "/schedulerule/skip", map[string]string{"id": scheduleID})
}

// StartSchedule triggers an immediate manual run of the schedule.
func (c *Client) StartSchedule(ctx context.Context, scheduleID string) error {
	return c.put(ctx, "/schedulerule/start", map[string]string{"id": scheduleID})
}

func descriptorFromRule(r scheduleRule, deviceName string) domain.ScheduleDescriptor {
	d := domain.ScheduleDescriptor{
		ID:              r.ID,
		Name:            r.Name,
		Enabled:         r.Enabled,
		DeviceName:      deviceName,
		JobTypes:        r.ScheduleJobTypes,
		RawIntervalDays: r.Interval,
		FreeTextSummary: r.Summary,
	}
	if r.Repeat != nil {
		d.RepeatConfig = &domain.RepeatConfig{
			IntervalDays: r.Repeat.IntervalDays,
			DaysOfWeek:   r.Repeat.DaysOfWeek,
		}
	}
	if r.StartDate > 0 {
		d.AnchorDate = domain.DateOnly(time.UnixMilli(r.StartDate).UTC())
	}
	if r.EndDate > 0 {
		d.EndDate = domain.DateOnly(time.UnixMilli(r.EndDate).UTC())
	}
	return d
}

func (c *Client) personID(ctx context.Context) (string, error) {
	var info personInfo
	if err := c.get(ctx, "/person/info", &info); err != nil {
		return "", err
	}
	if info.ID == "" {
		return "", fmt.Errorf("rachio: person info returned no id")
	}
	return info.ID, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("rachio: build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) put(ctx context.Context, path string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("rachio: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("rachio: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("rachio: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("rachio: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("rachio: decode %s: %w", req.URL.Path, err)
	}
	return nil
}
