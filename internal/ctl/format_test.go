package ctl

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{2*time.Minute + 5*time.Second, "2m 5s"},
		{2*time.Hour + 14*time.Minute + 8*time.Second, "2h 14m 8s"},
	}
	for _, c := range cases {
		if got := formatDuration(c.d); got != c.want {
			t.Fatalf("formatDuration(%v) = %q, want %q", c.d, got, c.want)
		}
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("abc", 6); got != "abc   " {
		t.Fatalf("padRight() = %q, want %q", got, "abc   ")
	}
	if got := padRight("abcdef", 3); got != "abcdef" {
		t.Fatalf("padRight() with width < len = %q, want unchanged", got)
	}
}

func TestColorizeNoColorWhenDisabled(t *testing.T) {
	// Tests run with stdout redirected to a pipe, so colorEnabled() is false
	// and colorize/header must pass text through unchanged.
	if got := colorize(red, "x"); got != "x" {
		t.Fatalf("colorize() = %q, want %q (color disabled under go test)", got, "x")
	}
	if got := header("title"); got != "title" {
		t.Fatalf("header() = %q, want %q", got, "title")
	}
}

func TestModeColorEmptyWhenColorDisabled(t *testing.T) {
	// With color disabled (non-tty stdout under go test), modeColor always
	// returns the empty string regardless of the mode name.
	for _, m := range []string{"InOrbitMapping", "ZOPrep", "ZORetrieval", "OrbitReturn", "Unknown"} {
		if got := modeColor(m); got != "" {
			t.Fatalf("modeColor(%q) = %q, want empty string with color disabled", m, got)
		}
	}
}
