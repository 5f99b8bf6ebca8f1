package flightcomputer

import (
	"context"
	"testing"

	"github.com/ciaryc/melvin/internal/vec2d"
)

type fakeSim struct {
	obs Observation
	err error
}

func (f *fakeSim) GetObservation(ctx context.Context) (Observation, error) { return f.obs, f.err }
func (f *fakeSim) PutControl(ctx context.Context, cmd ControlCommand) error { return nil }

func TestApplyObservationClosesSafeNotifyOnSafe(t *testing.T) {
	fc := New(&fakeSim{}, nil)

	select {
	case <-fc.SafeNotify():
		t.Fatal("SafeNotify() should not be closed before any Safe observation")
	default:
	}

	fc.applyObservation(Observation{State: StateSafe})

	select {
	case <-fc.SafeNotify():
	default:
		t.Fatal("SafeNotify() should be closed after observing StateSafe")
	}
}

func TestApplyObservationClosesSafeNotifyOnUnscheduledTransition(t *testing.T) {
	fc := New(&fakeSim{}, nil)
	fc.applyObservation(Observation{State: StateTransition})

	select {
	case <-fc.SafeNotify():
	default:
		t.Fatal("an observed Transition with no commanded target should trip SafeNotify")
	}
}

func TestRearmSafeNotifyAllowsASecondExcursion(t *testing.T) {
	fc := New(&fakeSim{}, nil)
	fc.applyObservation(Observation{State: StateSafe})
	<-fc.SafeNotify()

	fc.rearmSafeNotify()

	select {
	case <-fc.SafeNotify():
		t.Fatal("rearmed SafeNotify channel should not already be closed")
	default:
	}

	fc.applyObservation(Observation{State: StateSafe})
	select {
	case <-fc.SafeNotify():
	default:
		t.Fatal("rearmed channel should close again on a second Safe observation")
	}
}

func TestRunObservationLoopUpdatesSnapshot(t *testing.T) {
	sim := &fakeSim{obs: Observation{State: StateCharge, Battery: 55}}
	fc := New(sim, nil)

	ctx, cancel := context.WithTimeout(context.Background(), ObservationInterval*3)
	defer cancel()
	fc.RunObservationLoop(ctx)

	got := fc.Snapshot()
	if got.State != StateCharge || got.Battery != 55 {
		t.Fatalf("Snapshot() = %+v, want State=Charge Battery=55", got)
	}
}

func TestTruncVelQuantizesToTwoDecimals(t *testing.T) {
	q, residual := TruncVel(vec2d.New(1.2345, -0.999))
	if q != vec2d.New(1.23, -0.99) {
		t.Fatalf("quantized = (%v, %v), want fixed-point (1.23, -0.99)", q.Xf(), q.Yf())
	}
	wantResidX, wantResidY := 1.2345-1.23, -0.999-(-0.99)
	if diff := residual.Xf() - wantResidX; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("residual.X = %v, want %v", residual.Xf(), wantResidX)
	}
	if diff := residual.Yf() - wantResidY; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("residual.Y = %v, want %v", residual.Yf(), wantResidY)
	}
}

func TestAngleWithinWrapsAround(t *testing.T) {
	if !angleWithin(359, 1, 2) {
		t.Fatal("angleWithin(359, 1, tol=2) should be true across the 0/360 wrap")
	}
	if angleWithin(90, 100, 5) {
		t.Fatal("angleWithin(90, 100, tol=5) should be false (10deg apart)")
	}
}

func TestStateCommandable(t *testing.T) {
	commandable := []State{StateAcquisition, StateCharge, StateComms}
	for _, s := range commandable {
		if !s.Commandable() {
			t.Fatalf("%s.Commandable() = false, want true", s)
		}
	}
	notCommandable := []State{StateDeployment, StateTransition, StateSafe}
	for _, s := range notCommandable {
		if s.Commandable() {
			t.Fatalf("%s.Commandable() = true, want false", s)
		}
	}
}

func TestTransitionDelayForFromSafeIsRecoveryDelay(t *testing.T) {
	if d := TransitionDelayFor(StateSafe, StateAcquisition); d != SafeRecoveryDelay {
		t.Fatalf("TransitionDelayFor(Safe, ...) = %v, want %v", d, SafeRecoveryDelay)
	}
	if d := TransitionDelayFor(StateCharge, StateAcquisition); d != TransitionDelay {
		t.Fatalf("TransitionDelayFor(Charge, ...) = %v, want %v", d, TransitionDelay)
	}
}

func TestSetStateRejectsNonCommandableTarget(t *testing.T) {
	fc := New(&fakeSim{}, nil)
	err := fc.SetState(context.Background(), StateSafe)
	if err == nil {
		t.Fatal("SetState(StateSafe) should fail: Safe is not a commandable target")
	}
}

func TestSetVelRejectsOutsideAcquisition(t *testing.T) {
	fc := New(&fakeSim{obs: Observation{State: StateCharge}}, nil)
	fc.applyObservation(Observation{State: StateCharge})
	err := fc.SetVel(context.Background(), vec2d.New(1, 1))
	if err == nil {
		t.Fatal("SetVel outside Acquisition should return a contract violation")
	}
}

func TestSetAngleRejectsOutsideAcquisition(t *testing.T) {
	fc := New(&fakeSim{}, nil)
	fc.applyObservation(Observation{State: StateCharge})
	err := fc.SetAngle(context.Background(), 45)
	if err == nil {
		t.Fatal("SetAngle outside Acquisition should return a contract violation")
	}
}
