package ctl

import (
	"fmt"
	"strings"
)

// BeaconsResponse mirrors the JSON returned by GET /api/beacons.
type BeaconsResponse struct {
	Active int            `json:"active"`
	Done   map[string]any `json:"done"`
}

// Beacons fetches and prints the beacon controller's current state.
func Beacons(baseURL string) error {
	var b BeaconsResponse
	if err := getJSON(baseURL, "/api/beacons", &b); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(header("  BEACON STATUS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	fmt.Printf("  %-10s %d\n", colorize(dim, "Active:"), b.Active)
	fmt.Printf("  %-10s %d\n", colorize(dim, "Done:"), len(b.Done))
	fmt.Println()
	return nil
}
