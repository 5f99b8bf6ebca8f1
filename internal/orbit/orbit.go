// Package orbit models MELVIN's closed orbit: periodicity detection, the
// per-second coverage bitmap, segment projection for deviation queries, and
// the time-reversed feed the task scheduler walks.
package orbit

import (
	"errors"
	"math"
	"time"

	"github.com/bits-and-blooms/bitset"

	"github.com/ciaryc/melvin/internal/vec2d"
)

// Lens identifies the camera footprint used while planning orbit coverage.
type Lens int

const (
	LensNarrow Lens = iota
	LensNormal
	LensWide
)

// FootprintSide returns the square footprint side length, in map units, for
// the lens.
func (l Lens) FootprintSide() float64 {
	switch l {
	case LensNarrow:
		return 400
	case LensWide:
		return 2000
	default:
		return 900
	}
}

// TDelta bounds how close a full period must re-approach the start point to
// be considered closed, expressed as a multiplier of |vel|.
const TDelta = 5.0

var (
	// ErrOrbitNotClosed is returned when the candidate (fp, vel) never
	// re-approaches its start within TDelta * |vel|.
	ErrOrbitNotClosed = errors.New("orbit: candidate trajectory does not close")
	// ErrOrbitNotEnoughOverlap is returned when consecutive orbit passes
	// don't overlap enough, given the lens footprint, to ever cover the map.
	ErrOrbitNotEnoughOverlap = errors.New("orbit: insufficient overlap to cover map at this lens")
)

// Segment is one leg of the precomputed orbit path, spanning [Start, End)
// in whole seconds of the base orbit, wrapped onto the map.
type Segment struct {
	Start, End vec2d.Vec2D
	Delta      vec2d.Vec2D // per-second velocity across this leg
	StartIdx   int
}

// ClosedOrbit is a periodic trajectory over the toroidal map, with a
// precomputed segment tiling of one full period and a coverage bitmap
// recording which integer seconds have been imaged.
type ClosedOrbit struct {
	FP, Vel Vec2D

	T, Tx, Ty int // period (seconds), and its per-axis components

	MaxImageDT int // max gap, in seconds, between images that still covers the map

	Segments []Segment
	Done     *bitset.BitSet

	InitialTime time.Time
}

type Vec2D = vec2d.Vec2D

func gcd(a, b int) int {
	a, b = int(math.Abs(float64(a))), int(math.Abs(float64(b)))
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func lcm(a, b int) int {
	return a / gcd(a, b) * b
}

// New builds a ClosedOrbit from a fixed point, velocity, and camera lens.
// It rejects the candidate if the trajectory does not close, or if the
// lens footprint leaves gaps between consecutive passes.
func New(fp, vel Vec2D, lens Lens, initialTime time.Time) (*ClosedOrbit, error) {
	velXFrac := fracPerSecond(vel.Xf())
	velYFrac := fracPerSecond(vel.Yf())

	tx := periodFor(vec2d.MapWidth, velXFrac)
	ty := periodFor(vec2d.MapHeight, velYFrac)
	t := lcm(tx, ty)

	o := &ClosedOrbit{
		FP:          fp,
		Vel:         vel,
		T:           t,
		Tx:          tx,
		Ty:          ty,
		MaxImageDT:  maxImageDT(vel, lens),
		Done:        bitset.New(uint(t)),
		InitialTime: initialTime,
	}

	if err := o.verifyClosed(); err != nil {
		return nil, err
	}
	if !o.verifyOverlap(lens) {
		return nil, ErrOrbitNotEnoughOverlap
	}

	o.computeSegments()
	return o, nil
}

// fracPerSecond returns |v| in hundredths of a map unit per second (at
// least 1): the period derivation's gcd/lcm needs integers, so periodFor
// scales the map dimension by the same factor of 100.
func fracPerSecond(v float64) int {
	iv := int(math.Round(math.Abs(v) * 100))
	if iv == 0 {
		return 1
	}
	return iv
}

func periodFor(mapDim float64, velFrac int) int {
	mapUnits := int(math.Round(mapDim * 100))
	g := gcd(mapUnits, velFrac)
	return mapUnits / g
}

// verifyClosed checks that projecting forward by T seconds re-approaches
// FP within TDelta * |vel|.
func (o *ClosedOrbit) verifyClosed() error {
	projected := o.projectAt(o.T)
	residual := o.FP.UnwrappedTo(projected).AbsF()
	if residual > TDelta*o.Vel.AbsF() {
		return ErrOrbitNotClosed
	}
	return nil
}

// verifyOverlap checks that consecutive orbit passes, spaced maxImageDT
// seconds apart, leave no gap wider than the lens footprint.
func (o *ClosedOrbit) verifyOverlap(lens Lens) bool {
	stepDist := o.Vel.AbsF() * float64(o.MaxImageDT)
	return stepDist <= lens.FootprintSide()
}

// maxImageDT is the largest gap, in seconds, between images that still
// covers the map given the lens's footprint and the orbit's ground speed.
func maxImageDT(vel Vec2D, lens Lens) int {
	speed := vel.AbsF()
	if speed == 0 {
		return 1
	}
	dt := int(lens.FootprintSide() / speed)
	if dt < 1 {
		dt = 1
	}
	return dt
}

// projectAt returns the map position after t seconds of travel from FP,
// wrapped onto the map.
func (o *ClosedOrbit) projectAt(t int) Vec2D {
	return o.FP.Add(o.Vel.Scale(float64(t))).WrapAroundMap()
}

// ProjectFrom returns the map position dt seconds after orbit-time startIdx,
// for exit-burn target selection and schedule prediction. Pair with GetI to
// convert a live position into a starting index.
func (o *ClosedOrbit) ProjectFrom(startIdx, dt int) Vec2D {
	return o.projectAt(startIdx + dt)
}

// computeSegments walks the orbit forward one second at a time over the
// whole period T, closing the current segment where a wrap boundary is
// crossed, where the walk reaches T, or where the current point lies within
// 2*|vel| of an earlier visited point once the segment spans more than one
// second.
func (o *ClosedOrbit) computeSegments() {
	o.Segments = o.Segments[:0]
	prev := o.FP
	segStart := 0
	stepDelta := o.Vel

	visited := make([]Vec2D, 0, 64)
	visited = append(visited, prev)

	for i := 1; i <= o.T; i++ {
		cur := o.projectAt(i)

		wrapped := crossedBoundary(prev, cur)
		revisit := i == o.T
		if !revisit {
			for _, v := range visited {
				if cur.UnwrappedTo(v).AbsF() < 2*o.Vel.AbsF() && i > segStart+1 {
					revisit = true
					break
				}
			}
		}

		if wrapped || revisit {
			o.Segments = append(o.Segments, Segment{
				Start:    o.projectAt(segStart),
				End:      cur,
				Delta:    stepDelta,
				StartIdx: segStart,
			})
			segStart = i
		}
		visited = append(visited, cur)
		prev = cur
	}

	if segStart < o.T {
		o.Segments = append(o.Segments, Segment{
			Start:    o.projectAt(segStart),
			End:      o.projectAt(o.T),
			Delta:    stepDelta,
			StartIdx: segStart,
		})
	}
}

func crossedBoundary(a, b Vec2D) bool {
	dx := math.Abs(a.Xf() - b.Xf())
	dy := math.Abs(a.Yf() - b.Yf())
	return dx > vec2d.MapWidth/2 || dy > vec2d.MapHeight/2
}

// WillVisit reports whether pos lies within one unit of any segment.
func (o *ClosedOrbit) WillVisit(pos Vec2D) bool {
	_, dist := o.closestDeviation(pos)
	return dist <= 1.0
}

// GetI returns the nearest integer time-offset along the orbit
// corresponding to pos, found by forward-walking the segment list.
func (o *ClosedOrbit) GetI(pos Vec2D) (int, bool) {
	best := -1
	bestDist := math.MaxFloat64
	for _, seg := range o.Segments {
		n := segmentSteps(seg, o.Vel)
		for s := 0; s <= n; s++ {
			p := seg.Start.Add(seg.Delta.Scale(float64(s))).WrapAroundMap()
			d := p.UnwrappedTo(pos).AbsF()
			if d < bestDist {
				bestDist = d
				best = seg.StartIdx + s
			}
		}
	}
	if best < 0 {
		return 0, false
	}
	return best % o.T, true
}

func segmentSteps(seg Segment, vel Vec2D) int {
	speed := vel.AbsF()
	if speed == 0 {
		return 0
	}
	return int(seg.Start.UnwrappedTo(seg.End).AbsF() / speed)
}

// Axis identifies which map axis a deviation was measured along.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

// GetClosestDeviation returns the smaller of the projected deviations from
// pos onto any segment, on whichever axis has the smaller absolute
// distance. Used by the orbit-return compensator to decide which axis to
// correct on.
func (o *ClosedOrbit) GetClosestDeviation(pos Vec2D) (Axis, float64) {
	return o.closestDeviationAxis(pos)
}

func (o *ClosedOrbit) closestDeviation(pos Vec2D) (Segment, float64) {
	var bestSeg Segment
	best := math.MaxFloat64
	for _, seg := range o.Segments {
		d := distanceToSegment(seg, pos)
		if d < best {
			best = d
			bestSeg = seg
		}
	}
	return bestSeg, best
}

func (o *ClosedOrbit) closestDeviationAxis(pos Vec2D) (Axis, float64) {
	seg, _ := o.closestDeviation(pos)
	dx := seg.Start.UnwrappedTo(pos).Xf()
	dy := seg.Start.UnwrappedTo(pos).Yf()
	if math.Abs(dx) <= math.Abs(dy) {
		return AxisX, dx
	}
	return AxisY, dy
}

// distanceToSegment returns the perpendicular distance from pos to the
// infinite line through seg, projected to the segment's extent.
func distanceToSegment(seg Segment, pos Vec2D) float64 {
	legVec := seg.Start.UnwrappedTo(seg.End)
	legLen := legVec.AbsF()
	if legLen == 0 {
		return seg.Start.UnwrappedTo(pos).AbsF()
	}
	toPos := seg.Start.UnwrappedTo(pos)
	t := toPos.Dot(legVec) / (legLen * legLen)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	proj := seg.Start.Add(legVec.Scale(t))
	return proj.UnwrappedTo(pos).AbsF()
}

// GetPTReordered returns the coverage bitmap rotated by shift, iterated in
// reverse, with dropTail entries truncated from the head. The callers in
// internal/mode reverse the result again before handing it to the DP
// scheduler, which reads the bitmap by forward second offset.
func (o *ClosedOrbit) GetPTReordered(shift, dropTail int) []bool {
	out := make([]bool, 0, o.T-dropTail)
	for i := o.T - 1; i >= dropTail; i-- {
		idx := (i + shift) % o.T
		out = append(out, o.Done.Test(uint(idx)))
	}
	return out
}

// MarkDone sets the inclusive [first, last] range of the coverage bitmap.
func (o *ClosedOrbit) MarkDone(first, last int) {
	for i := first; i <= last; i++ {
		o.Done.Set(uint(i % o.T))
	}
}

// GetCoverage returns the fraction of seconds in the period still
// uncovered (zero bits remaining).
func (o *ClosedOrbit) GetCoverage() float64 {
	return float64(o.T-int(o.Done.Count())) / float64(o.T)
}
