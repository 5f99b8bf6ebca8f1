package app

import (
	"encoding/json"
	"log"
	"net/http/httptest"
	"testing"

	"github.com/ciaryc/melvin/internal/config"
	"github.com/ciaryc/melvin/internal/task"
)

func testApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Melvin.SimulatorURL = "http://127.0.0.1:0"
	return New(Options{
		Logger: log.New(testWriter{t}, "", 0),
		Cfg:    cfg,
	})
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestHandleHealthz(t *testing.T) {
	a := testApp(t)
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()

	a.handleHealthz(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok\n" {
		t.Fatalf("body = %q, want \"ok\\n\"", rec.Body.String())
	}
}

func TestHandleVersion(t *testing.T) {
	a := testApp(t)
	req := httptest.NewRequest("GET", "/api/version", nil)
	rec := httptest.NewRecorder()

	a.handleVersion(rec, req)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["version"] != Version {
		t.Fatalf("version = %q, want %q", body["version"], Version)
	}
}

func TestHandleConfigRoundTripsCfg(t *testing.T) {
	a := testApp(t)
	req := httptest.NewRequest("GET", "/api/config", nil)
	rec := httptest.NewRecorder()

	a.handleConfig(rec, req)

	var got config.Config
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Melvin.SimulatorURL != a.cfg.Melvin.SimulatorURL {
		t.Fatalf("SimulatorURL = %q, want %q", got.Melvin.SimulatorURL, a.cfg.Melvin.SimulatorURL)
	}
}

func TestHandleStatusReportsZeroValueObservation(t *testing.T) {
	a := testApp(t)
	req := httptest.NewRequest("GET", "/api/status", nil)
	rec := httptest.NewRecorder()

	a.handleStatus(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["name"] != "melvind" {
		t.Fatalf("name = %v, want melvind", body["name"])
	}
	if _, ok := body["flight_state"]; !ok {
		t.Fatal("expected a flight_state field")
	}
}

func TestHandleBeaconsReportsEmptyState(t *testing.T) {
	a := testApp(t)
	req := httptest.NewRequest("GET", "/api/beacons", nil)
	rec := httptest.NewRecorder()

	a.handleBeacons(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["active"].(float64) != 0 {
		t.Fatalf("active = %v, want 0", body["active"])
	}
}

func TestTaskKindName(t *testing.T) {
	cases := []struct {
		k    task.Kind
		want string
	}{
		{task.KindSwitchState, "SwitchState"},
		{task.KindTakeImage, "TakeImage"},
		{task.KindChangeVelocity, "ChangeVelocity"},
	}
	for _, c := range cases {
		if got := taskKindName(c.k); got != c.want {
			t.Fatalf("taskKindName(%v) = %q, want %q", c.k, got, c.want)
		}
	}
}
