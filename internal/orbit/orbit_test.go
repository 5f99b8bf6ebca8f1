package orbit

import (
	"testing"
	"time"

	"github.com/ciaryc/melvin/internal/vec2d"
)

func TestClosedOrbitClosesAndVisitsOrigin(t *testing.T) {
	fp := vec2d.New(0, 0)
	vel := vec2d.New(6.40, 7.40)

	o, err := New(fp, vel, LensNormal, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("expected closed orbit, got error: %v", err)
	}
	if o.T <= 0 {
		t.Fatalf("expected finite positive period, got %d", o.T)
	}
	if !o.WillVisit(vec2d.New(0, 0)) {
		t.Fatalf("expected origin to be visited")
	}
	idx, ok := o.GetI(vec2d.New(0, 0))
	if !ok {
		t.Fatalf("expected GetI to find origin")
	}
	if idx != 0 {
		t.Fatalf("expected index 0 for origin, got %d", idx)
	}
}

func TestMarkDoneAndCoverage(t *testing.T) {
	o, err := New(vec2d.New(0, 0), vec2d.New(6.40, 7.40), LensNormal, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	full := o.GetCoverage()
	if full != 1.0 {
		t.Fatalf("expected every second uncovered (1.0) before marking, got %v", full)
	}
	o.MarkDone(0, o.T/2)
	partial := o.GetCoverage()
	if partial >= full {
		t.Fatalf("expected the uncovered fraction to drop after marking, got %v", partial)
	}
}

func TestGetPTReorderedLength(t *testing.T) {
	o, err := New(vec2d.New(0, 0), vec2d.New(6.40, 7.40), LensNormal, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := o.GetPTReordered(0, 180)
	if len(got) != o.T-180 {
		t.Fatalf("expected length %d, got %d", o.T-180, len(got))
	}
}
