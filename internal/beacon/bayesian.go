// Package beacon implements the Bayesian beacon localizer: intersecting
// annular distance sets from noisy RSSI pings and packing the resulting
// candidate region into guess points for submission.
package beacon

import (
	"math"
	"time"

	"github.com/ciaryc/melvin/internal/vec2d"
)

// Distance-model constants, grounded directly on spec.md §4.4.
const (
	KFacMin         = 1.1
	KFacMax         = 0.9
	KAdd            = 225.1
	StdDistSafety   = 5.0
	MaxDist         = 2000.0
	HexPackSpacing  = 75.0
	HexSpacingFactor = 0.93
)

// StaticOrbitVel is the canonical mapping velocity used to correct a
// measurement's position for its propagation delay.
var StaticOrbitVel = vec2d.New(6.40, 7.40)

// Meas is one RSSI ping against a beacon.
type Meas struct {
	ID    int
	Pos   vec2d.Vec2D
	RSSI  float64
	Delay time.Duration
}

// CorrectedPos returns the measurement position corrected for propagation
// delay: pos - StaticOrbitVel * delay_seconds, wrapped onto the map.
func (m Meas) CorrectedPos() vec2d.Vec2D {
	secs := m.Delay.Seconds()
	return m.Pos.Sub(StaticOrbitVel.Scale(secs)).WrapAroundMap()
}

// DistRange returns the [min, max] true-distance annulus bounds for a
// noisy RSSI reading d, clamped to [0, MaxDist].
func DistRange(d float64) (min, max float64) {
	min = (d-KAdd)/KFacMin - StdDistSafety
	max = (d+KAdd)/KFacMax + StdDistSafety
	if min < 0 {
		min = 0
	}
	if max > MaxDist {
		max = MaxDist
	}
	if min > max {
		min, max = max, min
	}
	return
}

// SquareSlice bounds the current set of candidate points to a square
// region, limiting the lattice-enumeration work each update does.
type SquareSlice struct {
	Offset     vec2d.Vec2D
	SideLength float64
}

// MapRightTop returns the top-right corner of the slice.
func (s SquareSlice) MapRightTop() vec2d.Vec2D {
	return vec2d.New(s.Offset.Xf()+s.SideLength, s.Offset.Yf()+s.SideLength)
}

// Intersect returns the overlapping square of s and o, or ok=false if they
// don't overlap.
func (s SquareSlice) Intersect(o SquareSlice) (SquareSlice, bool) {
	sRT := s.MapRightTop()
	oRT := o.MapRightTop()

	left := math.Max(s.Offset.Xf(), o.Offset.Xf())
	bottom := math.Max(s.Offset.Yf(), o.Offset.Yf())
	right := math.Min(sRT.Xf(), oRT.Xf())
	top := math.Min(sRT.Yf(), oRT.Yf())

	if right <= left || top <= bottom {
		return SquareSlice{}, false
	}
	return SquareSlice{
		Offset:     vec2d.New(left, bottom),
		SideLength: math.Min(right-left, top-bottom),
	}, true
}

// Set is a candidate integer lattice position.
type Set map[[2]int]struct{}

// GetCoordSet enumerates every integer lattice point within slice whose
// distance from center falls in [minD, maxD].
func GetCoordSet(center vec2d.Vec2D, minD, maxD float64, slice SquareSlice) Set {
	out := make(Set)
	x0 := int(math.Floor(slice.Offset.Xf()))
	y0 := int(math.Floor(slice.Offset.Yf()))
	x1 := int(math.Ceil(slice.Offset.Xf() + slice.SideLength))
	y1 := int(math.Ceil(slice.Offset.Yf() + slice.SideLength))

	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			p := vec2d.New(float64(x), float64(y))
			d := center.UnwrappedTo(p).AbsF()
			if d >= minD && d <= maxD {
				out[[2]int{x, y}] = struct{}{}
			}
		}
	}
	return out
}

// BayesianSet is the running candidate-position estimate for one beacon.
type BayesianSet struct {
	Measurements []Meas
	CurrSlice    SquareSlice
	Points       Set
}

// NewBayesianSet creates an empty estimator.
func NewBayesianSet() *BayesianSet {
	return &BayesianSet{Points: make(Set)}
}

// Update folds a new measurement into the running set: it computes the
// annulus for the measurement, intersects the bounding slice with the
// current one (or adopts it outright for the first measurement), and
// filters the point set down to the intersection.
func (b *BayesianSet) Update(m Meas) {
	b.Measurements = append(b.Measurements, m)
	minD, maxD := DistRange(m.RSSI)
	corr := m.CorrectedPos()

	newSlice := SquareSlice{
		Offset:     vec2d.New(corr.Xf()-maxD, corr.Yf()-maxD),
		SideLength: 2 * maxD,
	}

	if len(b.Measurements) == 1 {
		b.CurrSlice = newSlice
		b.Points = GetCoordSet(corr, minD, maxD, newSlice)
		return
	}

	merged, ok := b.CurrSlice.Intersect(newSlice)
	if !ok {
		// Disjoint annuli: keep the previous set, since spec.md's invariant
		// that |set| is non-increasing across updates forbids growing it
		// back from an empty intersection.
		return
	}
	b.CurrSlice = merged

	filtered := make(Set, len(b.Points))
	for p := range b.Points {
		pos := vec2d.New(float64(p[0]), float64(p[1]))
		d := corr.UnwrappedTo(pos).AbsF()
		if d >= minD && d <= maxD {
			filtered[p] = struct{}{}
		}
	}
	b.Points = filtered
}

// GuessEstimate returns ceil(|set| / (pi*75^2)), the estimated number of
// distinct beacons needed to cover the remaining candidate set.
func (b *BayesianSet) GuessEstimate() int {
	area := math.Pi * HexPackSpacing * HexPackSpacing
	return int(math.Ceil(float64(len(b.Points)) / area))
}
