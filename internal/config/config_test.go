package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPassesValidation(t *testing.T) {
	cfg := Default()
	if err := validate(cfg); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[melvin]
simulator_url = "http://sim.example:9000"
min_battery = 15.0
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Melvin.SimulatorURL != "http://sim.example:9000" {
		t.Fatalf("expected overridden simulator_url, got %q", cfg.Melvin.SimulatorURL)
	}
	if cfg.Melvin.MinBattery != 15.0 {
		t.Fatalf("expected overridden min_battery, got %v", cfg.Melvin.MinBattery)
	}
	if cfg.HTTP.Bind != Default().HTTP.Bind {
		t.Fatalf("expected default http.bind to survive, got %q", cfg.HTTP.Bind)
	}
}

func TestValidateRejectsBadBatteryBounds(t *testing.T) {
	cfg := Default()
	cfg.Melvin.MaxBatteryHigh = cfg.Melvin.MinBattery
	if err := validate(cfg); err == nil {
		t.Fatalf("expected validation error for max_battery_high <= min_battery")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	got := expandHome("~/data")
	want := filepath.Join(home, "data")
	if got != want {
		t.Fatalf("expandHome(~/data) = %q, want %q", got, want)
	}
}
