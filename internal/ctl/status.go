package ctl

import (
	"fmt"
	"strings"
	"time"
)

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name          string             `json:"name"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	ModeSwitches  int64              `json:"mode_switches"`
	FlightState   string             `json:"flight_state"`
	Battery       float64            `json:"battery"`
	Fuel          float64            `json:"fuel"`
	Pos           map[string]float64 `json:"pos"`
	DataRoot      string             `json:"data_root"`
}

// Status fetches the daemon status and prints a formatted summary.
func Status(baseURL string) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)
	stateStr := colorize(modeColor(s.FlightState), s.FlightState)

	fmt.Println()
	fmt.Println(header("  MELVIN STATUS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	fmt.Printf("  %-14s %s\n", colorize(dim, "Daemon:"), s.Name)
	fmt.Printf("  %-14s %s\n", colorize(dim, "Flight state:"), stateStr)
	fmt.Printf("  %-14s %d\n", colorize(dim, "Mode switches:"), s.ModeSwitches)
	fmt.Printf("  %-14s %.1f%%\n", colorize(dim, "Battery:"), s.Battery)
	fmt.Printf("  %-14s %.1f%%\n", colorize(dim, "Fuel:"), s.Fuel)
	fmt.Printf("  %-14s (%.2f, %.2f)\n", colorize(dim, "Position:"), s.Pos["x"], s.Pos["y"])
	fmt.Printf("  %-14s %s\n", colorize(dim, "Uptime:"), uptime)
	fmt.Printf("  %-14s %s\n", colorize(dim, "Data:"), s.DataRoot)
	fmt.Printf("  %-14s %s\n", colorize(dim, "Host:"), baseURL)
	fmt.Println()

	return nil
}
