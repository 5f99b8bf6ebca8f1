package simclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ciaryc/melvin/internal/beacon"
	"github.com/ciaryc/melvin/internal/flightcomputer"
)

func TestGetObservationDecodesWire(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/observation" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"state": "charge",
			"angle": 1.5,
			"simulation_speed": 1,
			"width_x": 100,
			"height_y": 200,
			"vx": 1,
			"vy": -1,
			"battery": 80,
			"max_battery": 100,
			"fuel": 50,
			"timestamp": 42
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	obs, err := c.GetObservation(context.Background())
	if err != nil {
		t.Fatalf("GetObservation() error = %v", err)
	}
	if obs.State != flightcomputer.StateCharge {
		t.Fatalf("State = %v, want StateCharge", obs.State)
	}
	if obs.Pos.Xf() != 100 || obs.Pos.Yf() != 200 {
		t.Fatalf("Pos = (%v, %v), want (100, 200)", obs.Pos.Xf(), obs.Pos.Yf())
	}
	if obs.Battery != 80 || obs.Fuel != 50 || obs.Timestamp != 42 {
		t.Fatalf("Battery/Fuel/Timestamp = %v/%v/%v, want 80/50/42", obs.Battery, obs.Fuel, obs.Timestamp)
	}
}

func TestGetObservationRetriesOn5xxThenSucceeds(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"state":"acquisition"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	obs, err := c.GetObservation(context.Background())
	if err != nil {
		t.Fatalf("GetObservation() error = %v", err)
	}
	if obs.State != flightcomputer.StateAcquisition {
		t.Fatalf("State = %v, want StateAcquisition", obs.State)
	}
	if calls < 2 {
		t.Fatalf("calls = %d, want at least 2 (one retry)", calls)
	}
}

func TestGetObservationSurfacesContractViolationOn400(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetObservation(context.Background())
	if err == nil {
		t.Fatal("expected an error on 400 response")
	}
}

func TestSubmitBeaconGuessDecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("beacon_id") != "7" {
			t.Fatalf("beacon_id header = %q, want 7", r.Header.Get("beacon_id"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":"success"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.SubmitBeaconGuess(context.Background(), 7, [2]int{1, 2})
	if err != nil {
		t.Fatalf("SubmitBeaconGuess() error = %v", err)
	}
	if res != beacon.SubmitSuccess {
		t.Fatalf("result = %v, want SubmitSuccess", res)
	}
}

func TestGetObjectivesDecodesZonedAndBeaconLists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"zoned_objectives": [{"id":1,"name":"z1","start":0,"end":100,"lens":"normal","coverage_required":0.9}],
			"beacon_objectives": [{"id":2,"name":"b1","start":0,"end":50}]
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	out, err := c.GetObjectives(context.Background())
	if err != nil {
		t.Fatalf("GetObjectives() error = %v", err)
	}
	if len(out.ZonedObjectives) != 1 || out.ZonedObjectives[0].ID != 1 {
		t.Fatalf("ZonedObjectives = %+v", out.ZonedObjectives)
	}
	if len(out.BeaconObjectives) != 1 || out.BeaconObjectives[0].ID != 2 {
		t.Fatalf("BeaconObjectives = %+v", out.BeaconObjectives)
	}
}
