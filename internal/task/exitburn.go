package task

import (
	"math"
	"time"

	"github.com/ciaryc/melvin/internal/flightcomputer"
	"github.com/ciaryc/melvin/internal/vec2d"
)

// BurnSequence is an ordered velocity-change maneuver: the positions and
// velocities it steps through, its acceleration/detumble durations, the
// residual pointing error at its end, and the charge/fuel it requires.
type BurnSequence struct {
	SequencePos []vec2d.Vec2D
	SequenceVel []vec2d.Vec2D
	AccDt       int // acceleration seconds; == len(SequenceVel)-1
	DetumbleDt  int // coast/return seconds
	RemAngleDev float64

	MinCharge float64 // charge needed to start
	MinFuel   float64 // fuel needed to complete
}

// ExitBurnResult wraps a BurnSequence chosen by the evaluator with its cost,
// the target it was aimed at, an optional second corner target for
// rectangular secret zones, and the unwrapped impact point.
type ExitBurnResult struct {
	Burn        BurnSequence
	Cost        float64
	TargetPos   vec2d.Vec2D
	AddTarget   *vec2d.Vec2D
	ImpactPoint vec2d.Vec2D
}

// ExitBurnWeights are the evaluator's scoring weights, per spec.md §4.5.
const (
	OffOrbitWeight    = 2.0
	AngleDevWeight    = 1.5
	AddAngleDevWeight = 3.0
)

func norm(x, max float64) float64 {
	if max <= 0 {
		return 0
	}
	v := x / max
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

// fuelWeight interpolates the dynamic fuel weight in [1,3] by remaining
// fuel: more fuel left means the evaluator tolerates a costlier burn.
func fuelWeight(fuelLeft, maxFuel float64) float64 {
	frac := norm(fuelLeft, maxFuel)
	return 3.0 - 2.0*frac
}

func angleBetween(a, b vec2d.Vec2D) float64 {
	return math.Abs(a.AngleTo(b))
}

// EvaluateExitBurn enumerates candidate burn-start offsets in reverse from
// lastPossibleDT down to ObjectiveScheduleMinDT, builds a candidate burn for
// each using the precomputed turn tables, scores every feasible candidate,
// and returns the lowest-cost one. orbitPosAt(dt) projects the planner's
// position dt seconds from now along the nominal orbit. targets holds
// either one element (a point target) or four (a rectangular secret zone's
// corners).
func EvaluateExitBurn(
	targets []vec2d.Vec2D,
	currentVel vec2d.Vec2D,
	lastPossibleDT int,
	fuelLeft, maxFuel, maxBattery float64,
	orbitPosAt func(dt int) vec2d.Vec2D,
	clockwise, counterClockwise []flightcomputer.TurnSample,
) (*ExitBurnResult, bool) {
	var best *ExitBurnResult
	bestCost := math.MaxFloat64

	for dt := lastPossibleDT; dt >= ObjectiveScheduleMinDT; dt-- {
		startPos := orbitPosAt(dt)

		target, addTarget := nearestTarget(startPos, targets)

		table := chooseTurnTable(startPos, target, currentVel, clockwise, counterClockwise)
		if len(table) == 0 {
			continue
		}

		seq := buildCandidateSequence(startPos, currentVel, target, table)
		if seq == nil {
			continue
		}

		cost := scoreCandidate(seq, target, addTarget, fuelLeft, maxFuel)

		if seq.MinCharge > maxBattery || seq.MinFuel > fuelLeft {
			continue
		}

		if cost < bestCost {
			bestCost = cost
			impact := seq.SequencePos[len(seq.SequencePos)-1]
			best = &ExitBurnResult{
				Burn:        *seq,
				Cost:        cost,
				TargetPos:   target,
				AddTarget:   addTarget,
				ImpactPoint: impact,
			}
		}
	}

	return best, best != nil
}

// nearestTarget picks the closest candidate to startPos by unwrapped
// distance. When targets holds a rectangle's four corners, the corner
// diagonally opposite the chosen one (index+2) is returned as the additive
// second target used by the 4-corner angle penalty.
func nearestTarget(startPos vec2d.Vec2D, targets []vec2d.Vec2D) (target vec2d.Vec2D, addTarget *vec2d.Vec2D) {
	bestDist := math.MaxFloat64
	bestIdx := 0
	for i, t := range targets {
		d := startPos.UnwrappedTo(t).AbsF()
		if d < bestDist {
			bestDist = d
			bestIdx = i
		}
	}
	target = targets[bestIdx]
	if len(targets) == 4 {
		opposite := targets[(bestIdx+2)%4]
		addTarget = &opposite
	}
	return
}

// chooseTurnTable selects the clockwise or counter-clockwise turn table,
// whichever direction is "shortest" from currentVel to the direction toward
// target.
func chooseTurnTable(startPos, target vec2d.Vec2D, currentVel vec2d.Vec2D, clockwise, counterClockwise []flightcomputer.TurnSample) []flightcomputer.TurnSample {
	toTarget := startPos.UnwrappedTo(target)
	if currentVel.IsClockwiseTo(toTarget) {
		return clockwise
	}
	return counterClockwise
}

// buildCandidateSequence walks table one sample per second, accumulating a
// candidate burn until the direction from the accumulated position to
// target flips sign relative to the starting direction (the satellite has
// turned "past" the target). No fractional correction sample is appended:
// the angle left between the final velocity and the direction to target is
// recorded as RemAngleDev.
func buildCandidateSequence(startPos, startVel, target vec2d.Vec2D, table []flightcomputer.TurnSample) *BurnSequence {
	startDir := startPos.UnwrappedTo(target)
	if startDir.AbsF() == 0 {
		return nil
	}

	var positions []vec2d.Vec2D
	var velocities []vec2d.Vec2D
	positions = append(positions, startPos)
	velocities = append(velocities, startVel)

	var lastDir vec2d.Vec2D
	startSign := true
	for i, s := range table {
		pos := startPos.Add(s.DPos).WrapAroundMap()
		dir := pos.UnwrappedTo(target)
		sign := dir.Dot(startDir) >= 0

		if i == 0 {
			startSign = sign
		} else if sign != startSign {
			break
		}

		positions = append(positions, pos)
		velocities = append(velocities, s.Vel)
		lastDir = dir
	}

	if len(velocities) < 2 {
		return nil
	}

	accDt := len(velocities) - 1
	remAngleDev := velocities[len(velocities)-1].AngleTo(lastDir)

	detumbleDt := int(math.Round(positions[len(positions)-1].UnwrappedTo(target).AbsF() / math.Max(velocities[len(velocities)-1].AbsF(), 0.01)))
	if detumbleDt < 0 {
		detumbleDt = 0
	}

	minCharge := float64(accDt) * (-flightcomputer.ChargeRatePerSecond(flightcomputer.StateAcquisition) + 0.02)
	minFuel := float64(accDt) * flightcomputer.FuelConstAccelerating

	return &BurnSequence{
		SequencePos: positions,
		SequenceVel: velocities,
		AccDt:       accDt,
		DetumbleDt:  detumbleDt,
		RemAngleDev: remAngleDev,
		MinCharge:   minCharge,
		MinFuel:     minFuel,
	}
}

func scoreCandidate(seq *BurnSequence, target vec2d.Vec2D, addTarget *vec2d.Vec2D, fuelLeft, maxFuel float64) float64 {
	offOrbit := OffOrbitWeight * norm(float64(seq.AccDt+seq.DetumbleDt), 2*float64(ObjectiveScheduleMinDT))
	fuel := fuelWeight(fuelLeft, maxFuel) * norm(float64(seq.AccDt)*flightcomputer.FuelConstAccelerating, maxFuel)
	angleDev := AngleDevWeight * norm(math.Abs(seq.RemAngleDev), 180)

	total := offOrbit + fuel + angleDev

	if addTarget != nil && len(seq.SequencePos) >= 2 {
		lastToTarget := seq.SequencePos[len(seq.SequencePos)-1].UnwrappedTo(target)
		addDir := seq.SequencePos[len(seq.SequencePos)-1].UnwrappedTo(*addTarget)
		total += AddAngleDevWeight * norm(angleBetween(addDir, lastToTarget), 180)
	}

	return total
}

// LastPossibleDT returns the latest burn-start offset (seconds from now)
// that still leaves time to execute a burn of at most maxBurnSeconds before
// windowEnd.
func LastPossibleDT(now, windowEnd time.Time, maxBurnSeconds int) int {
	return int(windowEnd.Sub(now).Seconds()) - maxBurnSeconds
}
