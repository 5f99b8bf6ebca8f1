package mode

import (
	"context"
	"time"

	"github.com/ciaryc/melvin/internal/beaconctrl"
	"github.com/ciaryc/melvin/internal/melvin"
	"github.com/ciaryc/melvin/internal/objective"
	"github.com/ciaryc/melvin/internal/task"
)

// ZORetrievalMode detumbles onto the burn's impact point, optionally turns
// for a rectangle's second corner, and schedules the image capture itself.
type ZORetrievalMode struct {
	Objective objective.KnownImgObjective
	Burn      *task.ExitBurnResult
}

func (m *ZORetrievalMode) Name() string { return "ZORetrieval" }

func (m *ZORetrievalMode) Init(ctx context.Context, mctx *melvin.Context, q *TaskQueue) (OpExitSignal, Mode, error) {
	fc := mctx.Keychain.FC

	if err := fc.DetumbleTo(ctx, m.Burn.TargetPos, 0); err != nil {
		return OpContinue, nil, err
	}

	now := time.Now()
	if m.Burn.AddTarget != nil {
		if err := fc.TurnFor2ndTarget(ctx, *m.Burn.AddTarget, m.Objective.End); err != nil {
			return OpContinue, nil, err
		}
	}

	q.Push(task.ScheduleRetrievalPhase(now, m.Objective.End, m.Burn.TargetPos, task.Lens(m.Objective.Lens))...)
	return OpContinue, nil, nil
}

func (m *ZORetrievalMode) ExecTaskWait(ctx context.Context, mctx *melvin.Context, due time.Time) (WaitExitSignal, any) {
	fc := mctx.Keychain.FC
	timer := time.NewTimer(time.Until(due))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return WaitContinue, nil
	case <-fc.SafeNotify():
		return WaitSafeEvent, nil
	case <-timer.C:
		return WaitContinue, nil
	}
}

func (m *ZORetrievalMode) ExecTask(ctx context.Context, mctx *melvin.Context, t task.Task) ExecExitSignal {
	return execCommonTask(ctx, mctx, t)
}

// SafeHandler drops the retrieval and returns to the nominal orbit; a
// mid-retrieval Safe excursion means the burn's timing can no longer be
// trusted, so the objective is not stashed for retry.
func (m *ZORetrievalMode) SafeHandler(ctx context.Context, mctx *melvin.Context) Mode {
	_ = mctx.Keychain.FC.EscapeSafe(ctx, false)
	return &OrbitReturnMode{}
}

// ZOHandler stashes any newly-arrived objective; retrieval in progress is
// never preempted.
func (m *ZORetrievalMode) ZOHandler(ctx context.Context, mctx *melvin.Context, obj objective.KnownImgObjective) Mode {
	mctx.StashZO(obj)
	return nil
}

func (m *ZORetrievalMode) BOEventHandler(ctx context.Context, mctx *melvin.Context, state beaconctrl.WatchState) Mode {
	return nil
}

// ExitMode hands off to OrbitReturnMode once the image has been taken.
func (m *ZORetrievalMode) ExitMode(ctx context.Context, mctx *melvin.Context) Mode {
	return &OrbitReturnMode{}
}
