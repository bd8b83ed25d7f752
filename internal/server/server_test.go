package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"shopfloor/internal/config"
	"shopfloor/internal/db"
	"shopfloor/internal/engine"
	"shopfloor/internal/migrate"
)

type testServer struct {
	BaseURL string
	Engine  engine.Engine
	Client  *http.Client
	Clock   *time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	clock := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return clock }

	handler, err := New(Config{Engine: eng, BasePath: "/v1"})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	return &testServer{
		BaseURL: "http://" + ln.Addr().String(),
		Engine:  eng,
		Client:  &http.Client{Timeout: 5 * time.Second},
		Clock:   &clock,
	}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Id", "test-actor")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("decode %s %s: %v\nbody: %s", method, url, err, raw)
		}
	}
	return resp
}

type errEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	var out map[string]string
	resp := doJSON(t, ts.Client, http.MethodGet, ts.BaseURL+"/v1/health", nil, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out["status"] != "ok" {
		t.Fatalf("body = %v", out)
	}
}

func TestDowntimeLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	var line struct {
		ID string `json:"id"`
	}
	resp := doJSON(t, ts.Client, http.MethodPost, ts.BaseURL+"/v1/lines",
		map[string]any{"name": "Line_A"}, &line)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create line status = %d", resp.StatusCode)
	}

	var machine struct {
		ID string `json:"id"`
	}
	resp = doJSON(t, ts.Client, http.MethodPost, ts.BaseURL+"/v1/lines/"+line.ID+"/machines",
		map[string]any{"name": "Conveyor_1"}, &machine)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create machine status = %d", resp.StatusCode)
	}

	var reason struct {
		ID string `json:"id"`
	}
	resp = doJSON(t, ts.Client, http.MethodPost, ts.BaseURL+"/v1/reasons",
		map[string]any{"kind": "downtime", "code": "JAM", "description": "Machine jam"}, &reason)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create reason status = %d", resp.StatusCode)
	}

	var operator struct {
		ID string `json:"id"`
	}
	resp = doJSON(t, ts.Client, http.MethodPost, ts.BaseURL+"/v1/operators",
		map[string]any{"name": "Jane_Smith", "badge_id": "OP-002"}, &operator)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create operator status = %d", resp.StatusCode)
	}

	var dt struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	resp = doJSON(t, ts.Client, http.MethodPost, ts.BaseURL+"/v1/downtime",
		map[string]any{"machine_id": machine.ID, "reason_id": reason.ID}, &dt)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start downtime status = %d", resp.StatusCode)
	}
	if dt.State != "open" {
		t.Fatalf("state = %s, want open", dt.State)
	}

	// A second start on the same machine conflicts.
	var envelope errEnvelope
	resp = doJSON(t, ts.Client, http.MethodPost, ts.BaseURL+"/v1/downtime",
		map[string]any{"machine_id": machine.ID, "reason_id": reason.ID}, &envelope)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second start status = %d, want 409", resp.StatusCode)
	}
	if envelope.Error.Code != "conflict" {
		t.Fatalf("error code = %s, want conflict", envelope.Error.Code)
	}

	var machineActive struct {
		ID string `json:"id"`
	}
	resp = doJSON(t, ts.Client, http.MethodGet, ts.BaseURL+"/v1/machines/"+machine.ID+"/downtime/active", nil, &machineActive)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("machine active status = %d", resp.StatusCode)
	}
	if machineActive.ID != dt.ID {
		t.Fatalf("machine active = %s, want %s", machineActive.ID, dt.ID)
	}

	*ts.Clock = ts.Clock.Add(15 * time.Minute)
	resp = doJSON(t, ts.Client, http.MethodPost, ts.BaseURL+"/v1/downtime/"+dt.ID+"/acknowledge",
		map[string]any{"technician_id": operator.ID}, &dt)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("acknowledge status = %d", resp.StatusCode)
	}
	if dt.State != "acknowledged" {
		t.Fatalf("state = %s, want acknowledged", dt.State)
	}

	*ts.Clock = ts.Clock.Add(30 * time.Minute)
	var closed struct {
		State           string   `json:"state"`
		DurationMinutes *float64 `json:"duration_minutes"`
	}
	resp = doJSON(t, ts.Client, http.MethodPost, ts.BaseURL+"/v1/downtime/"+dt.ID+"/close",
		map[string]any{}, &closed)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("close status = %d", resp.StatusCode)
	}
	if closed.State != "closed" {
		t.Fatalf("state = %s, want closed", closed.State)
	}
	if closed.DurationMinutes == nil || *closed.DurationMinutes != 45 {
		t.Fatalf("duration = %v, want 45", closed.DurationMinutes)
	}

	resp = doJSON(t, ts.Client, http.MethodPost, ts.BaseURL+"/v1/downtime/"+dt.ID+"/close",
		map[string]any{}, &envelope)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double close status = %d, want 409", resp.StatusCode)
	}

	var active []any
	doJSON(t, ts.Client, http.MethodGet, ts.BaseURL+"/v1/downtime/active", nil, &active)
	if len(active) != 0 {
		t.Fatalf("active = %d, want 0", len(active))
	}

	resp = doJSON(t, ts.Client, http.MethodGet, ts.BaseURL+"/v1/machines/"+machine.ID+"/downtime/active", nil, &envelope)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("machine active after close status = %d, want 404", resp.StatusCode)
	}
}

func TestErrorEnvelopeCodes(t *testing.T) {
	ts := newTestServer(t)

	var envelope errEnvelope
	resp := doJSON(t, ts.Client, http.MethodGet, ts.BaseURL+"/v1/lines/nope", nil, &envelope)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if envelope.Error.Code != "not_found" {
		t.Fatalf("code = %s, want not_found", envelope.Error.Code)
	}

	envelope = errEnvelope{}
	resp = doJSON(t, ts.Client, http.MethodPost, ts.BaseURL+"/v1/lines",
		map[string]any{"name": ""}, &envelope)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if envelope.Error.Code != "bad_request" {
		t.Fatalf("code = %s, want bad_request", envelope.Error.Code)
	}
}

func TestWindowQueryIsHonored(t *testing.T) {
	ts := newTestServer(t)

	// An inverted explicit window is rejected, not silently replaced by
	// today's all-day window.
	var envelope errEnvelope
	url := ts.BaseURL + "/v1/reports/metrics?start=2024-03-05T00:00:00Z&end=2024-03-04T00:00:00Z"
	resp := doJSON(t, ts.Client, http.MethodGet, url, nil, &envelope)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("inverted window status = %d, want 400", resp.StatusCode)
	}
	if envelope.Error.Code != "bad_request" {
		t.Fatalf("code = %s, want bad_request", envelope.Error.Code)
	}

	var m struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	url = ts.BaseURL + "/v1/reports/metrics?start=2024-03-04T06:00:00Z&end=2024-03-04T14:00:00Z"
	resp = doJSON(t, ts.Client, http.MethodGet, url, nil, &m)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("explicit window status = %d", resp.StatusCode)
	}
	if m.Start != "2024-03-04T06:00:00Z" || m.End != "2024-03-04T14:00:00Z" {
		t.Fatalf("window = %s..%s, query params were ignored", m.Start, m.End)
	}
}

func TestScorecardOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	var line struct {
		ID string `json:"id"`
	}
	doJSON(t, ts.Client, http.MethodPost, ts.BaseURL+"/v1/lines",
		map[string]any{"name": "Line_A"}, &line)
	var machine struct {
		ID string `json:"id"`
	}
	doJSON(t, ts.Client, http.MethodPost, ts.BaseURL+"/v1/lines/"+line.ID+"/machines",
		map[string]any{"name": "Conveyor_1"}, &machine)

	resp := doJSON(t, ts.Client, http.MethodPut, ts.BaseURL+"/v1/lines/"+line.ID+"/targets",
		map[string]any{"metric": "delivery", "value": 50}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set target status = %d", resp.StatusCode)
	}

	resp = doJSON(t, ts.Client, http.MethodPost, ts.BaseURL+"/v1/production-counts",
		map[string]any{"machine_id": machine.ID, "good_quantity": 60, "scrap_quantity": 2}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("log production status = %d", resp.StatusCode)
	}

	var sc struct {
		LineName string `json:"line_name"`
		Delivery struct {
			Value    float64 `json:"value"`
			Target   float64 `json:"target"`
			OnTarget bool    `json:"on_target"`
		} `json:"delivery"`
		Quality struct {
			Value float64 `json:"value"`
		} `json:"quality"`
	}
	url := fmt.Sprintf("%s/v1/lines/%s/scorecard?date=2024-03-04&shift=all-day", ts.BaseURL, line.ID)
	resp = doJSON(t, ts.Client, http.MethodGet, url, nil, &sc)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scorecard status = %d", resp.StatusCode)
	}
	if sc.Delivery.Target != 50 || sc.Delivery.Value != 60 || !sc.Delivery.OnTarget {
		t.Fatalf("delivery = %+v", sc.Delivery)
	}
	wantFPY := float64(60) / 62 * 100
	if sc.Quality.Value != wantFPY {
		t.Fatalf("fpy = %v, want %v", sc.Quality.Value, wantFPY)
	}

	// Unknown shift names are rejected.
	var envelope errEnvelope
	resp = doJSON(t, ts.Client, http.MethodGet,
		ts.BaseURL+"/v1/reports/scorecards?shift=shift-9", nil, &envelope)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad shift status = %d, want 400", resp.StatusCode)
	}

	var rows []struct {
		LineID string `json:"line_id"`
		Cells  []struct {
			Metric   string `json:"metric"`
			OnTarget bool   `json:"on_target"`
		} `json:"cells"`
	}
	resp = doJSON(t, ts.Client, http.MethodGet,
		ts.BaseURL+"/v1/reports/matrix?date=2024-03-04", nil, &rows)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("matrix status = %d", resp.StatusCode)
	}
	if len(rows) != 1 || len(rows[0].Cells) != 4 {
		t.Fatalf("matrix = %+v", rows)
	}
}

func TestAuditLogOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	var line struct {
		ID string `json:"id"`
	}
	doJSON(t, ts.Client, http.MethodPost, ts.BaseURL+"/v1/lines",
		map[string]any{"name": "Line_A"}, &line)

	var evts []struct {
		Type     string `json:"type"`
		EntityID string `json:"entity_id"`
		ActorID  string `json:"actor_id"`
	}
	resp := doJSON(t, ts.Client, http.MethodGet, ts.BaseURL+"/v1/events?type=line.created", nil, &evts)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events status = %d", resp.StatusCode)
	}
	if len(evts) != 1 {
		t.Fatalf("events = %d, want 1", len(evts))
	}
	if evts[0].EntityID != line.ID || evts[0].ActorID != "test-actor" {
		t.Fatalf("event = %+v", evts[0])
	}
}
