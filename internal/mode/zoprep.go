package mode

import (
	"context"
	"time"

	"github.com/ciaryc/melvin/internal/beaconctrl"
	"github.com/ciaryc/melvin/internal/flightcomputer"
	"github.com/ciaryc/melvin/internal/melvin"
	"github.com/ciaryc/melvin/internal/objective"
	"github.com/ciaryc/melvin/internal/task"
	"github.com/ciaryc/melvin/internal/vec2d"
)

// MaxBurnWindowSeconds is the time LastPossibleDT keeps clear before an
// objective's end: the latest burn start considered is that end minus this.
const MaxBurnWindowSeconds = 2800

// MaxFuel is the tank's full capacity; Observation.Fuel is reported on this
// same 0-100 scale.
const MaxFuel = 100.0

// ZOPrepMode evaluates and schedules an exit burn for a zoned objective,
// running a DP segment up to the burn start and appending the burn/turn
// tasks needed to reach it.
type ZOPrepMode struct {
	Objective objective.KnownImgObjective

	burn     *task.ExitBurnResult
	burnTask task.Task
}

func (m *ZOPrepMode) Name() string { return "ZOPrep" }

func burnTargets(obj objective.KnownImgObjective) []vec2d.Vec2D {
	c := obj.Zone.Corners()
	return []vec2d.Vec2D{c[0], c[1], c[2], c[3]}
}

// Init evaluates the exit burn against the nominal orbit's projected
// positions; an infeasible objective re-inits back into InOrbitMode with
// the objective stashed for later reconsideration.
func (m *ZOPrepMode) Init(ctx context.Context, mctx *melvin.Context, q *TaskQueue) (OpExitSignal, Mode, error) {
	fc := mctx.Keychain.FC
	o := mctx.Orbit()
	if o == nil {
		mctx.StashZO(m.Objective)
		return OpReInit, &InOrbitMode{Base: BaseMapping}, nil
	}

	obs := fc.Snapshot()
	now := time.Now()
	lastDT := task.LastPossibleDT(now, m.Objective.End, MaxBurnWindowSeconds)
	if lastDT < task.ObjectiveScheduleMinDT {
		mctx.StashZO(m.Objective)
		return OpReInit, &InOrbitMode{Base: BaseMapping}, nil
	}

	idx, _ := o.GetI(fc.CurrentPos())

	cw, ccw := flightcomputer.ComputePossibleTurns(obs.Vel, lastDT)

	result, ok := task.EvaluateExitBurn(
		burnTargets(m.Objective),
		obs.Vel,
		lastDT,
		obs.Fuel,
		MaxFuel,
		obs.MaxBattery,
		func(dt int) vec2d.Vec2D { return o.ProjectFrom(idx, dt) },
		cw, ccw,
	)
	if !ok {
		mctx.StashZO(m.Objective)
		return OpReInit, &InOrbitMode{Base: BaseMapping}, nil
	}
	m.burn = result

	burnDT := len(result.Burn.SequenceVel) - 1
	burnAt := now.Add(time.Duration(lastDT-burnDT) * time.Second)

	end := &task.EndCondition{RequiredState: task.DPAcquisition, MinCharge: result.Burn.MinCharge}
	bitmap := o.GetPTReordered(idx, 0)
	reverse(bitmap)
	cfg := task.Config{
		MinBattery:     flightcomputer.MinBattery,
		MaxBattery:     obs.MaxBattery,
		TPredict:       lastDT - burnDT,
		CoverageBitmap: bitmap[:min(len(bitmap), lastDT-burnDT)],
		End:            end,
	}
	startState := task.DPCharge
	if obs.State == flightcomputer.StateAcquisition {
		startState = task.DPAcquisition
	}
	startLevel := int((obs.Battery - flightcomputer.MinBattery) / task.EnergyStep)

	if cfg.TPredict > 0 {
		cube := task.BuildSchedule(cfg)
		steps := cube.Replay(startLevel, startState)
		q.Push(task.ToTasks(steps, now)...)
	}

	m.burnTask = task.Task{
		Kind: task.KindChangeVelocity,
		At:   burnAt,
		Burn: result.Burn,
	}
	q.Push(m.burnTask)

	return OpContinue, nil, nil
}

// ExecTaskWait waits for the next queued task, a safe event, or a
// higher-priority preemption; this mode runs no background activity of its
// own.
func (m *ZOPrepMode) ExecTaskWait(ctx context.Context, mctx *melvin.Context, due time.Time) (WaitExitSignal, any) {
	fc := mctx.Keychain.FC
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
	}
}

func (m *ZOPrepMode) ExecTask(ctx context.Context, mctx *melvin.Context, t task.Task) ExecExitSignal {
	return execCommonTask(ctx, mctx, t)
}

func (m *ZOPrepMode) SafeHandler(ctx context.Context, mctx *melvin.Context) Mode {
	_ = mctx.Keychain.FC.EscapeSafe(ctx, false)
	mctx.StashZO(m.Objective)
	return &InOrbitMode{Base: BaseMapping}
}

// ZOHandler only preempts the current burn plan if the new objective's
// deadline leaves less runway than ours and we're still more than
// MinReplanningDT seconds from burn start; otherwise the new objective is
// stashed for later.
func (m *ZOPrepMode) ZOHandler(ctx context.Context, mctx *melvin.Context, obj objective.KnownImgObjective) Mode {
	if time.Until(m.burnTask.At) > MinReplanningDT*time.Second && obj.End.Before(m.Objective.End) {
		mctx.StashZO(m.Objective)
		return &ZOPrepMode{Objective: obj}
	}
	mctx.StashZO(obj)
	return nil
}

func (m *ZOPrepMode) BOEventHandler(ctx context.Context, mctx *melvin.Context, state beaconctrl.WatchState) Mode {
	return nil
}

// ExitMode hands off to ZORetrievalMode once the burn has executed.
func (m *ZOPrepMode) ExitMode(ctx context.Context, mctx *melvin.Context) Mode {
	return &ZORetrievalMode{Objective: m.Objective, Burn: m.burn}
}
