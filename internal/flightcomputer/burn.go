package flightcomputer

import (
	"context"
	"math"
	"time"

	"github.com/ciaryc/melvin/internal/vec2d"
)

// TurnSample is one second's worth of a candidate turn: the position delta
// accumulated and the resulting velocity after applying AccConst for one
// more second along a fixed direction perpendicular to the starting velocity.
type TurnSample struct {
	DPos vec2d.Vec2D
	Vel  vec2d.Vec2D
}

// ComputePossibleTurns returns the clockwise and counter-clockwise turn
// tables for the current velocity v: each is a list of one-second samples
// produced by adding AccConst per second along the unit vector perpendicular
// to v (rotated clockwise or counter-clockwise). Both velocity components
// change together; no axis is held at zero.
func ComputePossibleTurns(v vec2d.Vec2D, steps int) (clockwise, counterClockwise []TurnSample) {
	cwDir := v.PerpUnit(true)
	ccwDir := v.PerpUnit(false)

	clockwise = buildTurnTable(v, cwDir, steps)
	counterClockwise = buildTurnTable(v, ccwDir, steps)
	return
}

func buildTurnTable(v, dir vec2d.Vec2D, steps int) []TurnSample {
	out := make([]TurnSample, 0, steps)
	cur := v
	pos := vec2d.Zero()
	for i := 0; i < steps; i++ {
		cur = vec2d.New(cur.Xf()+dir.Xf()*AccConst, cur.Yf()+dir.Yf()*AccConst)
		pos = vec2d.New(pos.Xf()+cur.Xf(), pos.Yf()+cur.Yf())
		out = append(out, TurnSample{DPos: pos, Vel: cur})
	}
	return out
}

// ExecuteBurn steps through a sequence of velocities one second apart,
// committing each in succession via SetVel, and logs the final offset
// against the intended target position.
func (fc *FlightComputer) ExecuteBurn(ctx context.Context, seqVel []vec2d.Vec2D, target vec2d.Vec2D) error {
	start := time.Now()
	for i, v := range seqVel {
		if err := fc.SetVel(ctx, v); err != nil {
			return err
		}
		elapsed := time.Since(start)
		stepDeadline := time.Duration(i+1) * time.Second
		if elapsed < stepDeadline {
			if err := sleepOrCancel(ctx, stepDeadline-elapsed); err != nil {
				return err
			}
		}
	}
	final := fc.Snapshot()
	offset := final.Pos.UnwrappedTo(target).AbsF()
	if fc.log != nil {
		fc.log.Printf("flightcomputer: burn complete, offset from target = %.2f", offset)
	}
	return nil
}

// OrbitVisiter is the subset of orbit.ClosedOrbit that or_maneuver needs;
// kept narrow so flightcomputer has no import-time dependency on the
// orbit package's full surface.
type OrbitVisiter interface {
	WillVisit(pos vec2d.Vec2D) bool
	GetClosestDeviation(pos vec2d.Vec2D) (axis int, signedDistance float64)
}

// OrManeuver nudges the satellite back toward the orbit's ground track:
// while the current position is not on the orbit, it fetches the closest
// axis deviation, changes velocity on that axis by min(|dev|*AccConst,
// MaxORVelChangeAbs) against the deviation, holds it for
// |dev|/MaxORVelChangeAbs seconds (at least one), then restores the prior
// velocity. The change is a single step; no triangular or trapezoidal
// velocity profile is computed.
func (fc *FlightComputer) OrManeuver(ctx context.Context, o OrbitVisiter) error {
	for {
		cur := fc.Snapshot()
		if o.WillVisit(cur.Pos) {
			return nil
		}
		axis, dev := o.GetClosestDeviation(cur.Pos)

		burnVel := correctionVelocity(cur.Vel, axis, dev)
		if err := fc.SetVel(ctx, burnVel); err != nil {
			return err
		}

		holdSeconds := holdDuration(dev)
		if err := sleepOrCancel(ctx, holdSeconds); err != nil {
			return err
		}

		if err := fc.SetVel(ctx, cur.Vel); err != nil {
			return err
		}
	}
}

func correctionVelocity(cur vec2d.Vec2D, axis int, dev float64) vec2d.Vec2D {
	delta := math.Copysign(math.Min(math.Abs(dev)*AccConst, MaxORVelChangeAbs), -dev)
	if axis == 0 {
		return vec2d.New(cur.Xf()+delta, cur.Yf())
	}
	return vec2d.New(cur.Xf(), cur.Yf()+delta)
}

func holdDuration(dev float64) time.Duration {
	secs := math.Abs(dev) / MaxORVelChangeAbs
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs * float64(time.Second))
}

// DetumbleTo drives the satellite toward target with proportional control,
// capping speed at maxSpeed. If the observed position jumps by more than
// twice the previous delta (a wrap discontinuity), target is reinterpreted
// in the nearest toroidal image before continuing.
func (fc *FlightComputer) DetumbleTo(ctx context.Context, target vec2d.Vec2D, maxSpeed float64) error {
	const kP = 0.05
	var prevDelta vec2d.Vec2D
	haveDelta := false

	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()

	for {
		cur := fc.Snapshot()
		delta := cur.Pos.UnwrappedTo(target)

		if haveDelta && delta.AbsF() > 2*prevDelta.AbsF() && prevDelta.AbsF() > 0 {
			target = cur.Pos.Add(prevDelta)
			delta = cur.Pos.UnwrappedTo(target)
		}

		if delta.AbsF() < 1.0 {
			return nil
		}

		desired := delta.Scale(kP)
		if desired.AbsF() > maxSpeed {
			desired = desired.Normalize().Scale(maxSpeed)
		}
		if err := fc.SetVel(ctx, desired); err != nil {
			return err
		}

		prevDelta = delta
		haveDelta = true

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// TurnFor2ndTarget aligns velocity with the direction to target, aborting
// if the satellite overshoots (the "signum flip" the spec describes) or
// if deadline passes.
func (fc *FlightComputer) TurnFor2ndTarget(ctx context.Context, target vec2d.Vec2D, deadline time.Time) error {
	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()

	var prevSign float64
	havePrev := false

	for {
		if time.Now().After(deadline) {
			return nil
		}
		cur := fc.Snapshot()
		dir := cur.Pos.UnwrappedTo(target)
		sign := cur.Vel.Dot(dir)

		if havePrev && math.Signbit(sign) != math.Signbit(prevSign) {
			return nil
		}
		prevSign = sign
		havePrev = true

		aligned := dir.Normalize().Scale(cur.Vel.AbsF())
		if err := fc.SetVel(ctx, aligned); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// EscapeSafe waits past the Transition recovery window, then waits for
// battery to exceed a recovery threshold, then commands Acquisition
// (or Charge, if battery is below a safety tolerance or forceCharge is
// set).
func (fc *FlightComputer) EscapeSafe(ctx context.Context, forceCharge bool) error {
	if err := fc.waitForCondition(ctx, func(o Observation) bool { return o.State != StateTransition }); err != nil {
		// the Safe->other transition can exceed the default poll timeout;
		// fall back to a direct sleep of the known recovery delay.
		if err := sleepOrCancel(ctx, SafeRecoveryDelay); err != nil {
			return err
		}
	}

	const recoveryThreshold = 30.0
	if err := fc.waitUntilBatteryAbove(ctx, recoveryThreshold); err != nil {
		return err
	}

	target := StateAcquisition
	if forceCharge || fc.Snapshot().Battery < MinBattery+5 {
		target = StateCharge
	}
	if err := fc.SetState(ctx, target); err != nil {
		return err
	}
	fc.rearmSafeNotify()
	return nil
}

func (fc *FlightComputer) waitUntilBatteryAbove(ctx context.Context, threshold float64) error {
	t := time.NewTicker(DefCondPollInterval)
	defer t.Stop()
	for {
		if fc.Snapshot().Battery >= threshold {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// GetToComms transitions into Comms, charging first if battery is below
// MinCommsStartCharge.
func (fc *FlightComputer) GetToComms(ctx context.Context) error {
	if fc.Snapshot().Battery < MinCommsStartCharge {
		if err := fc.SetState(ctx, StateCharge); err != nil {
			return err
		}
		if err := fc.waitUntilBatteryAbove(ctx, MinCommsStartCharge); err != nil {
			return err
		}
	}
	return fc.SetState(ctx, StateComms)
}

// EscapeIfComms does nothing unless the satellite is in Comms; otherwise it
// commands Acquisition at once, passing through Charge first when battery
// is below MinBattery+10. It does not wait for a comms window to end and
// computes no charging time.
func (fc *FlightComputer) EscapeIfComms(ctx context.Context) error {
	if fc.Snapshot().State != StateComms {
		return nil
	}
	if fc.Snapshot().Battery < MinBattery+10 {
		if err := fc.SetState(ctx, StateCharge); err != nil {
			return err
		}
	}
	return fc.SetState(ctx, StateAcquisition)
}
