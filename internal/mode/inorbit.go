package mode

import (
	"context"
	"time"

	"github.com/ciaryc/melvin/internal/beaconctrl"
	"github.com/ciaryc/melvin/internal/flightcomputer"
	"github.com/ciaryc/melvin/internal/melvin"
	"github.com/ciaryc/melvin/internal/objective"
	"github.com/ciaryc/melvin/internal/task"
)

// BaseMode distinguishes InOrbitMode's two concurrent activities: opportunistic
// mapping, or scanning for beacon pings while parked in Comms.
type BaseMode int

const (
	BaseMapping BaseMode = iota
	BaseBeaconScanning
)

// MinReplanningDT is the preemption threshold: a higher-priority ZO only
// preempts the running schedule if its burn start is this far out.
const MinReplanningDT = task.MinReplanningDT

// InOrbitMode runs the task-controller DP scheduler over the nominal orbit
// and drives whichever background activity its base calls for while
// waiting between tasks.
type InOrbitMode struct {
	Base BaseMode
}

func (m *InOrbitMode) Name() string {
	if m.Base == BaseBeaconScanning {
		return "InOrbit(BeaconScanning)"
	}
	return "InOrbit(Mapping)"
}

// Init runs the base's scheduling preconditions, then builds one orbit
// period's worth of DP-scheduled tasks.
func (m *InOrbitMode) Init(ctx context.Context, mctx *melvin.Context, q *TaskQueue) (OpExitSignal, Mode, error) {
	fc := mctx.Keychain.FC

	switch m.Base {
	case BaseMapping:
		if fc.Snapshot().State == flightcomputer.StateComms {
			if err := fc.EscapeIfComms(ctx); err != nil {
				return OpContinue, nil, err
			}
		}
	case BaseBeaconScanning:
		if err := fc.GetToComms(ctx); err != nil {
			return OpContinue, nil, err
		}
	}

	o := mctx.Orbit()
	if o == nil {
		return OpContinue, nil, nil
	}

	idx, _ := o.GetI(fc.CurrentPos())
	bitmap := o.GetPTReordered(idx, 0)
	reverse(bitmap)

	obs := fc.Snapshot()
	startLevel := int((obs.Battery - flightcomputer.MinBattery) / task.EnergyStep)
	startState := task.DPCharge
	if obs.State == flightcomputer.StateAcquisition {
		startState = task.DPAcquisition
	}

	switch m.Base {
	case BaseBeaconScanning:
		sched := task.BuildCommsInterleavedSchedule(task.Config{
			MinBattery:     flightcomputer.MinBattery,
			MaxBattery:     obs.MaxBattery,
			TPredict:       o.T,
			CoverageBitmap: bitmap,
		}, startLevel, startState, time.Now(), flightcomputer.MinBattery, obs.MaxBattery, flightcomputer.MinCommsStartCharge)
		for _, seg := range sched.Segments {
			q.Push(seg.Tasks...)
		}

	default:
		cfg := task.Config{
			MinBattery:     flightcomputer.MinBattery,
			MaxBattery:     obs.MaxBattery,
			TPredict:       o.T,
			CoverageBitmap: bitmap,
		}
		cube := task.BuildSchedule(cfg)
		steps := cube.Replay(startLevel, startState)
		q.Push(task.ToTasks(steps, time.Now())...)
	}

	return OpContinue, nil, nil
}

func reverse(b []bool) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}

// ExecTaskWait runs the background activity for Base concurrently with
// waiting for due/safe/new-objective/beacon-watch.
func (m *InOrbitMode) ExecTaskWait(ctx context.Context, mctx *melvin.Context, due time.Time) (WaitExitSignal, any) {
	fc := mctx.Keychain.FC

	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		switch m.Base {
		case BaseMapping:
			runAcquisitionCycle(childCtx, mctx)
		case BaseBeaconScanning:
			runCommsListener(childCtx, mctx)
		}
	}()

	timer := time.NewTimer(time.Until(due))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return WaitContinue, nil
	case <-fc.SafeNotify():
		return WaitSafeEvent, nil
	case obj := <-mctx.ZOChannel():
		return WaitNewObjective, obj
	case st := <-mctx.BeaconWatch():
		return WaitBODoneEvent, st
	case <-timer.C:
		return WaitContinue, nil
	case <-done:
		return WaitContinue, nil
	}
}

// runAcquisitionCycle marks the orbit second under the current position as
// covered every MaxImageDT seconds until cancelled. It requests no camera
// image itself, so cancellation returns at once with nothing in flight.
func runAcquisitionCycle(ctx context.Context, mctx *melvin.Context) {
	fc := mctx.Keychain.FC
	o := mctx.Orbit()
	t := time.NewTicker(time.Duration(o.MaxImageDT) * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			idx, ok := o.GetI(fc.CurrentPos())
			if !ok {
				continue
			}
			o.MarkDone(idx, idx)
		}
	}
}

// runCommsListener idles while parked in Comms; incoming announcements are
// consumed by the beacon controller's own subscriber, not here.
func runCommsListener(ctx context.Context, mctx *melvin.Context) {
	<-ctx.Done()
}

// ExecTask delegates SwitchState tasks to the flight computer. Switching
// into Charge does not trigger a map export.
func (m *InOrbitMode) ExecTask(ctx context.Context, mctx *melvin.Context, t task.Task) ExecExitSignal {
	return execCommonTask(ctx, mctx, t)
}

func execCommonTask(ctx context.Context, mctx *melvin.Context, t task.Task) ExecExitSignal {
	fc := mctx.Keychain.FC
	switch t.Kind {
	case task.KindSwitchState:
		target := flightcomputer.StateCharge
		switch t.Target {
		case task.DPAcquisition:
			target = flightcomputer.StateAcquisition
		case task.DPComms:
			target = flightcomputer.StateComms
		}
		if err := fc.SetState(ctx, target); err != nil {
			return ExecFailed
		}
		return ExecOK

	case task.KindTakeImage:
		// Image capture itself goes through the camera controller, which
		// sits outside this core's scope (spec.md §1 lists image
		// content/capture internals as an external collaborator).
		return ExecOK

	case task.KindChangeVelocity:
		if err := fc.ExecuteBurn(ctx, t.Burn.SequenceVel, t.PlannedPos); err != nil {
			return ExecFailed
		}
		return ExecOK
	}
	return ExecOK
}

// SafeHandler escapes Safe and re-enters InOrbit(Mapping).
func (m *InOrbitMode) SafeHandler(ctx context.Context, mctx *melvin.Context) Mode {
	_ = mctx.Keychain.FC.EscapeSafe(ctx, false)
	return &InOrbitMode{Base: BaseMapping}
}

// ZOHandler hands every new objective to ZOPrepMode; feasibility is
// evaluated in ZOPrepMode.Init, which stashes the objective and returns to
// InOrbitMode(Mapping) when no burn fits.
func (m *InOrbitMode) ZOHandler(ctx context.Context, mctx *melvin.Context, obj objective.KnownImgObjective) Mode {
	return &ZOPrepMode{Objective: obj}
}

// BOEventHandler swaps the base mode on an active/inactive beacon
// transition.
func (m *InOrbitMode) BOEventHandler(ctx context.Context, mctx *melvin.Context, state beaconctrl.WatchState) Mode {
	if state == beaconctrl.ActiveBeacons && m.Base != BaseBeaconScanning {
		return &InOrbitMode{Base: BaseBeaconScanning}
	}
	if state == beaconctrl.NoActiveBeacons && m.Base != BaseMapping {
		return &InOrbitMode{Base: BaseMapping}
	}
	return nil
}

// ExitMode re-enters itself: InOrbitMode's schedule spans a full period, so
// draining it just means planning the next one.
func (m *InOrbitMode) ExitMode(ctx context.Context, mctx *melvin.Context) Mode {
	return m
}
