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

// OrbitReturnMode passes through Charge when battery is below MinBattery+10
// (returning to Acquisition without waiting for a battery level), then runs
// the flight computer's
// correction-burn maneuver loop until the satellite is back on the nominal
// orbit's ground track, re-indexing into it before handing back to
// InOrbitMode(Mapping).
type OrbitReturnMode struct{}

func (m *OrbitReturnMode) Name() string { return "OrbitReturn" }

func (m *OrbitReturnMode) Init(ctx context.Context, mctx *melvin.Context, q *TaskQueue) (OpExitSignal, Mode, error) {
	fc := mctx.Keychain.FC
	o := mctx.Orbit()
	if o == nil {
		return OpReInit, &InOrbitMode{Base: BaseMapping}, nil
	}

	if fc.Snapshot().Battery < flightcomputer.MinBattery+10 {
		if err := fc.SetState(ctx, flightcomputer.StateCharge); err != nil {
			return OpContinue, nil, err
		}
		if err := fc.SetState(ctx, flightcomputer.StateAcquisition); err != nil {
			return OpContinue, nil, err
		}
	}

	if err := fc.OrManeuver(ctx, o); err != nil {
		return OpContinue, nil, err
	}

	if _, ok := o.GetI(fc.CurrentPos()); !ok {
		return OpContinue, nil, nil
	}

	return OpReInit, &InOrbitMode{Base: BaseMapping}, nil
}

func (m *OrbitReturnMode) ExecTaskWait(ctx context.Context, mctx *melvin.Context, due time.Time) (WaitExitSignal, any) {
	fc := mctx.Keychain.FC
	select {
	case <-ctx.Done():
		return WaitContinue, nil
	case <-fc.SafeNotify():
		return WaitSafeEvent, nil
	default:
		return WaitContinue, nil
	}
}

func (m *OrbitReturnMode) ExecTask(ctx context.Context, mctx *melvin.Context, t task.Task) ExecExitSignal {
	return execCommonTask(ctx, mctx, t)
}

func (m *OrbitReturnMode) SafeHandler(ctx context.Context, mctx *melvin.Context) Mode {
	_ = mctx.Keychain.FC.EscapeSafe(ctx, false)
	return &InOrbitMode{Base: BaseMapping}
}

func (m *OrbitReturnMode) ZOHandler(ctx context.Context, mctx *melvin.Context, obj objective.KnownImgObjective) Mode {
	mctx.StashZO(obj)
	return nil
}

func (m *OrbitReturnMode) BOEventHandler(ctx context.Context, mctx *melvin.Context, state beaconctrl.WatchState) Mode {
	return nil
}

// ExitMode is reached only when Init could not re-index the position into
// the orbit after the maneuver; it falls back to InOrbitMode(Mapping).
func (m *OrbitReturnMode) ExitMode(ctx context.Context, mctx *melvin.Context) Mode {
	return &InOrbitMode{Base: BaseMapping}
}
