package shopfloorsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Shopfloor HTTP API client.
type Client struct {
	BaseURL    string
	ActorID    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// DowntimeEvent represents the API downtime model (partial).
type DowntimeEvent struct {
	ID              string   `json:"id"`
	MachineID       string   `json:"machine_id"`
	LineID          string   `json:"line_id"`
	ReasonID        string   `json:"reason_id"`
	StartTime       string   `json:"start_time"`
	EndTime         *string  `json:"end_time,omitempty"`
	DurationMinutes *float64 `json:"duration_minutes,omitempty"`
	State           string   `json:"state"`
}

// Scorecard represents one line's SQDC card.
type Scorecard struct {
	LineID     string   `json:"line_id"`
	LineName   string   `json:"line_name"`
	PeriodDays int      `json:"period_days"`
	Safety     Metric   `json:"safety"`
	Quality    Metric   `json:"quality"`
	Delivery   Metric   `json:"delivery"`
	Cost       Metric   `json:"cost"`
	Alerts     []string `json:"alerts,omitempty"`
}

type Metric struct {
	Value    float64 `json:"value"`
	Target   float64 `json:"target"`
	OnTarget bool    `json:"on_target"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// StartDowntime reports a machine stoppage.
func (c *Client) StartDowntime(ctx context.Context, machineID, reasonID string) (DowntimeEvent, error) {
	body := map[string]any{
		"machine_id": machineID,
		"reason_id":  reasonID,
	}
	var resp DowntimeEvent
	err := c.do(ctx, http.MethodPost, "v1/downtime", body, &resp)
	return resp, err
}

// AcknowledgeDowntime claims a stoppage for a technician.
func (c *Client) AcknowledgeDowntime(ctx context.Context, id, technicianID string) (DowntimeEvent, error) {
	body := map[string]any{"technician_id": technicianID}
	var resp DowntimeEvent
	endpoint := fmt.Sprintf("v1/downtime/%s/acknowledge", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// CloseDowntime ends a stoppage.
func (c *Client) CloseDowntime(ctx context.Context, id string) (DowntimeEvent, error) {
	var resp DowntimeEvent
	endpoint := fmt.Sprintf("v1/downtime/%s/close", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{}, &resp)
	return resp, err
}

// ResolveDowntime ends a stoppage with resolution notes.
func (c *Client) ResolveDowntime(ctx context.Context, id, notes string) (DowntimeEvent, error) {
	body := map[string]any{"resolution_notes": notes}
	var resp DowntimeEvent
	endpoint := fmt.Sprintf("v1/downtime/%s/resolve", url.PathEscape(id))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// ActiveDowntime lists open stoppages, optionally for one line.
func (c *Client) ActiveDowntime(ctx context.Context, lineID string) ([]DowntimeEvent, error) {
	endpoint := "v1/downtime/active"
	if lineID != "" {
		endpoint += "?line_id=" + url.QueryEscape(lineID)
	}
	var resp []DowntimeEvent
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// LogProductionCount logs an output fact.
func (c *Client) LogProductionCount(ctx context.Context, machineID string, good, scrap int64) error {
	body := map[string]any{
		"machine_id":     machineID,
		"good_quantity":  good,
		"scrap_quantity": scrap,
	}
	return c.do(ctx, http.MethodPost, "v1/production-counts", body, nil)
}

// Scorecards fetches SQDC cards for all lines over a day or shift.
func (c *Client) Scorecards(ctx context.Context, date, shift string) ([]Scorecard, error) {
	endpoint := "v1/reports/scorecards"
	var params []string
	if date != "" {
		params = append(params, "date="+url.QueryEscape(date))
	}
	if shift != "" {
		params = append(params, "shift="+url.QueryEscape(shift))
	}
	if len(params) > 0 {
		endpoint += "?" + strings.Join(params, "&")
	}
	var resp []Scorecard
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Events returns recent audit-log entries.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v1/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.ActorID != "" {
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
