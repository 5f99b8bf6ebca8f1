package ctl

import (
	"fmt"
	"strings"
)

// Health pings /healthz and reports whether melvind is reachable.
func Health(baseURL string) error {
	baseURL = strings.TrimRight(baseURL, "/")
	status, body, err := getRaw(baseURL, "/healthz")
	if err != nil {
		return fmt.Errorf("melvind unreachable at %s: %w", baseURL, err)
	}
	if status != 200 {
		return fmt.Errorf("melvind reported unhealthy status %d: %s", status, strings.TrimSpace(string(body)))
	}
	fmt.Println(colorize(green, "ok"))
	return nil
}
