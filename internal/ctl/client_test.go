package ctl

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetJSONDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			t.Fatalf("path = %s, want /api/status", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"name": "melvin"})
	}))
	defer srv.Close()

	var dst map[string]string
	if err := getJSON(srv.URL, "/api/status", &dst); err != nil {
		t.Fatalf("getJSON() error = %v", err)
	}
	if dst["name"] != "melvin" {
		t.Fatalf("dst = %v, want name=melvin", dst)
	}
}

func TestGetJSONReturnsErrorOnNonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	var dst map[string]string
	if err := getJSON(srv.URL, "/missing", &dst); err == nil {
		t.Fatal("expected an error on a 404 response")
	}
}

func TestGetRawReturnsStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	status, body, err := getRaw(srv.URL, "/healthz")
	if err != nil {
		t.Fatalf("getRaw() error = %v", err)
	}
	if status != http.StatusOK || string(body) != "ok" {
		t.Fatalf("getRaw() = %d, %q, want 200, \"ok\"", status, body)
	}
}

func TestPostJSONSendsBodyAndDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]int
		json.NewDecoder(r.Body).Decode(&req)
		if req["x"] != 1 {
			t.Fatalf("request body = %v, want x=1", req)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	var dst map[string]string
	if err := postJSON(srv.URL, "/submit", map[string]int{"x": 1}, &dst); err != nil {
		t.Fatalf("postJSON() error = %v", err)
	}
	if dst["status"] != "ok" {
		t.Fatalf("dst = %v, want status=ok", dst)
	}
}
