package beacon

import (
	"testing"

	"github.com/ciaryc/melvin/internal/vec2d"
)

func TestUpdateSetShrinksAndStaysSubset(t *testing.T) {
	b := NewBayesianSet()
	b.Update(Meas{ID: 1, Pos: vec2d.New(0, 0), RSSI: 500})
	before := len(b.Points)

	minD, maxD := DistRange(500)
	for p := range b.Points {
		pos := vec2d.New(float64(p[0]), float64(p[1]))
		d := pos.UnwrappedTo(vec2d.New(0, 0)).AbsF()
		if d < minD-1 || d > maxD+1 {
			t.Fatalf("point %v outside annulus [%v,%v]: d=%v", p, minD, maxD, d)
		}
	}

	b.Update(Meas{ID: 1, Pos: vec2d.New(1000, 0), RSSI: 500})
	after := len(b.Points)
	if after > before {
		t.Fatalf("expected set to shrink or stay same size, got %d -> %d", before, after)
	}
}

func TestGuessEstimateMatchesSetSize(t *testing.T) {
	b := NewBayesianSet()
	if b.GuessEstimate() != 0 {
		t.Fatalf("expected zero estimate for empty set")
	}
}

// TestDistRangeWidensAroundRawDistance checks the annulus bounds against an
// independently-computed formula (not DistRange's own output), so a sign
// error that narrows the band instead of widening it is actually caught.
func TestDistRangeWidensAroundRawDistance(t *testing.T) {
	d := 500.0
	wantMin := (d-KAdd)/KFacMin - StdDistSafety
	wantMax := (d+KAdd)/KFacMax + StdDistSafety

	gotMin, gotMax := DistRange(d)
	if gotMin != wantMin {
		t.Fatalf("DistRange(%v) min = %v, want %v", d, gotMin, wantMin)
	}
	if gotMax != wantMax {
		t.Fatalf("DistRange(%v) max = %v, want %v", d, gotMax, wantMax)
	}

	// The safety margin must widen the annulus, not narrow it: the naive
	// (d±KAdd)/KFac bounds alone must sit strictly inside [min, max].
	naiveMin := (d - KAdd) / KFacMin
	naiveMax := (d + KAdd) / KFacMax
	if gotMin > naiveMin {
		t.Fatalf("DistRange min %v is narrower than the unpadded bound %v; STD_DIST_SAFETY must widen, not narrow", gotMin, naiveMin)
	}
	if gotMax < naiveMax {
		t.Fatalf("DistRange max %v is narrower than the unpadded bound %v; STD_DIST_SAFETY must widen, not narrow", gotMax, naiveMax)
	}
}
