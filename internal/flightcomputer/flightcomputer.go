package flightcomputer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ciaryc/melvin/internal/vec2d"
)

// ErrContractViolation is returned when a command is attempted outside its
// preconditions (e.g. a velocity change while not in Acquisition). Per the
// error-handling design, contract violations are fatal at the call site.
var ErrContractViolation = errors.New("flightcomputer: contract violation")

// FlightComputer holds the local projection of simulator state and
// serializes every observation update and command through a single
// read/write lock, per the spec's ordering guarantee.
type FlightComputer struct {
	sim Simulator
	log *log.Logger

	mu               sync.RWMutex
	obs              Observation
	lastObservedAt   time.Time
	transitionTarget *State

	safeNotify chan struct{}
	safeOnce   sync.Once
}

// New creates a FlightComputer bound to sim.
func New(sim Simulator, logger *log.Logger) *FlightComputer {
	return &FlightComputer{
		sim:        sim,
		log:        logger,
		safeNotify: make(chan struct{}),
	}
}

// Snapshot returns a copy of the current observation under a read lock.
func (fc *FlightComputer) Snapshot() Observation {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.obs
}

// CurrentPos returns the last-observed position. Satisfies the narrow
// PositionSource interfaces that beaconctrl and mode depend on instead of
// the full FlightComputer surface.
func (fc *FlightComputer) CurrentPos() vec2d.Vec2D {
	return fc.Snapshot().Pos
}

// SafeNotify returns a channel that is closed the first time Safe is
// observed, for the supervisor and global-mode FSM to select on. The
// channel is re-armed by rearmSafeNotify once the FSM has handled the
// event, so a single Safe excursion never fires more than once.
func (fc *FlightComputer) SafeNotify() <-chan struct{} {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.safeNotify
}

// rearmSafeNotify replaces the closed notification channel with a fresh
// one, called after a SafeHandler has acted on the previous excursion.
func (fc *FlightComputer) rearmSafeNotify() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.safeNotify = make(chan struct{})
	fc.safeOnce = sync.Once{}
}

// RunObservationLoop polls the simulator every ObservationInterval and
// updates the local snapshot under a write lock held only for the update
// itself, never across the network call.
func (fc *FlightComputer) RunObservationLoop(ctx context.Context) {
	t := time.NewTicker(ObservationInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			obs, err := fc.sim.GetObservation(ctx)
			if err != nil {
				if fc.log != nil {
					fc.log.Printf("flightcomputer: observation fetch failed: %v", err)
				}
				continue
			}
			fc.applyObservation(obs)
		}
	}
}

func (fc *FlightComputer) applyObservation(obs Observation) {
	fc.mu.Lock()
	fc.obs = obs
	fc.lastObservedAt = time.Now()
	wasTransitionUnscheduled := obs.State == StateTransition && fc.transitionTarget == nil
	isSafe := obs.State == StateSafe
	fc.mu.Unlock()

	if isSafe || wasTransitionUnscheduled {
		fc.safeOnce.Do(func() { close(fc.safeNotify) })
	}
}

// waitForCondition polls cond at DefCondPollInterval until it returns true
// or DefCondTimeout elapses.
func (fc *FlightComputer) waitForCondition(ctx context.Context, cond func(Observation) bool) error {
	deadline := time.Now().Add(DefCondTimeout)
	t := time.NewTicker(DefCondPollInterval)
	defer t.Stop()
	for {
		if cond(fc.Snapshot()) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("flightcomputer: condition not met within %s", DefCondTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// SetState issues a fire-and-verify transition to target. Any commanded
// transition takes TransitionDelayFor(current, target) before target
// becomes observable.
func (fc *FlightComputer) SetState(ctx context.Context, target State) error {
	if !target.Commandable() {
		return fmt.Errorf("%w: %s is not a commandable target state", ErrContractViolation, target)
	}
	cur := fc.Snapshot()
	if cur.State == StateTransition {
		return fmt.Errorf("%w: cannot command a new state while Transition is in progress", ErrContractViolation)
	}

	fc.mu.Lock()
	fc.transitionTarget = &target
	fc.mu.Unlock()

	if err := fc.sim.PutControl(ctx, ControlCommand{TargetState: &target}); err != nil {
		return err
	}

	delay := TransitionDelayFor(cur.State, target)
	if err := sleepOrCancel(ctx, delay); err != nil {
		return err
	}

	err := fc.waitForCondition(ctx, func(o Observation) bool { return o.State == target })

	fc.mu.Lock()
	fc.transitionTarget = nil
	fc.mu.Unlock()

	return err
}

// SetVel commands a velocity change. Preconditions: current state must be
// Acquisition. The velocity is quantized to two decimals before being sent.
func (fc *FlightComputer) SetVel(ctx context.Context, v vec2d.Vec2D) error {
	cur := fc.Snapshot()
	if cur.State != StateAcquisition {
		return fmt.Errorf("%w: velocity may only be commanded in Acquisition, current=%s", ErrContractViolation, cur.State)
	}
	quantized, _ := TruncVel(v)
	if err := fc.sim.PutControl(ctx, ControlCommand{Vel: &quantized}); err != nil {
		return err
	}
	return fc.waitForCondition(ctx, func(o Observation) bool {
		return o.Vel.Sub(quantized).AbsF() < 0.05
	})
}

// SetAngle commands a camera-angle change. Preconditions mirror SetVel.
func (fc *FlightComputer) SetAngle(ctx context.Context, deg float64) error {
	cur := fc.Snapshot()
	if cur.State != StateAcquisition {
		return fmt.Errorf("%w: angle may only be commanded in Acquisition, current=%s", ErrContractViolation, cur.State)
	}
	if err := fc.sim.PutControl(ctx, ControlCommand{CameraAngle: &deg}); err != nil {
		return err
	}
	return fc.waitForCondition(ctx, func(o Observation) bool {
		return angleWithin(o.Angle, deg, 1.0)
	})
}

func angleWithin(a, b, tol float64) bool {
	d := a - b
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	if d < 0 {
		d = -d
	}
	return d <= tol
}

// TruncVel quantizes v to two decimal places per axis and returns the
// residual as a separate vector (the spec's 64.64 "dev" tracked
// separately from the quantized commanded velocity).
func TruncVel(v vec2d.Vec2D) (quantized, residual vec2d.Vec2D) {
	qx := trunc2(v.Xf())
	qy := trunc2(v.Yf())
	q := vec2d.New(qx, qy)
	return q, v.Sub(q)
}

func trunc2(f float64) float64 {
	return float64(int(f*100)) / 100
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
