package mode

import (
	"context"
	"log"
	"time"

	"github.com/ciaryc/melvin/internal/beaconctrl"
	"github.com/ciaryc/melvin/internal/melvin"
	"github.com/ciaryc/melvin/internal/objective"
	"github.com/ciaryc/melvin/internal/task"
)

// OpExitSignal is init_mode's result: either the mode is ready to run its
// task queue, or it immediately hands off to a different mode.
type OpExitSignal int

const (
	OpContinue OpExitSignal = iota
	OpReInit
)

// WaitExitSignal is exec_task_wait's result.
type WaitExitSignal int

const (
	WaitContinue WaitExitSignal = iota
	WaitSafeEvent
	WaitNewObjective
	WaitBODoneEvent
)

// ExecExitSignal is exec_task's result.
type ExecExitSignal int

const (
	ExecOK ExecExitSignal = iota
	ExecFailed
)

// Mode is the common interface every global mode implements, matching
// spec.md §4.8's state-machine contract.
type Mode interface {
	// Name identifies the mode for logging/telemetry.
	Name() string

	// Init runs the mode's entry preconditions and (re)builds its task
	// queue. A non-nil returned Mode means "ReInit(new mode)": the FSM
	// driver switches to it immediately without running ExecTaskQueue.
	Init(ctx context.Context, mctx *melvin.Context, q *TaskQueue) (OpExitSignal, Mode, error)

	// ExecTaskWait blocks until due, a safe event, a new objective, or a
	// beacon-objective-done event — whichever comes first — running any
	// background activity (acquisition cycle, comms listener) the mode
	// needs concurrently. The event itself (new objective / beacon watch
	// state) is consumed here, inside the select, and returned as payload
	// so the driver never has to race a second receive against it.
	ExecTaskWait(ctx context.Context, mctx *melvin.Context, due time.Time) (WaitExitSignal, any)

	// ExecTask executes one task.
	ExecTask(ctx context.Context, mctx *melvin.Context, t task.Task) ExecExitSignal

	// SafeHandler runs escape_safe and decides which mode to re-init into.
	SafeHandler(ctx context.Context, mctx *melvin.Context) Mode

	// ZOHandler is invoked when ExecTaskWait returns WaitNewObjective; it
	// may ReInit into a different mode (e.g. ZOPrepMode) or return nil to
	// keep running the current mode's queue.
	ZOHandler(ctx context.Context, mctx *melvin.Context, obj objective.KnownImgObjective) Mode

	// BOEventHandler is invoked on a beacon-state watch transition.
	BOEventHandler(ctx context.Context, mctx *melvin.Context, state beaconctrl.WatchState) Mode

	// ExitMode returns the next mode once the task queue has drained
	// normally.
	ExitMode(ctx context.Context, mctx *melvin.Context) Mode
}

// Listener receives mode-driver lifecycle events for telemetry/console
// consumers; either field may be left nil.
type Listener struct {
	OnModeChange    func(from, to string)
	OnQueueSnapshot func(tasks []task.Task)
}

func (l *Listener) modeChange(from, to string) {
	if l != nil && l.OnModeChange != nil {
		l.OnModeChange(from, to)
	}
}

func (l *Listener) queueSnapshot(q *TaskQueue) {
	if l != nil && l.OnQueueSnapshot != nil {
		l.OnQueueSnapshot(q.Snapshot())
	}
}

// Run drives the global-mode FSM forever (until ctx is cancelled),
// starting from start.
func Run(ctx context.Context, mctx *melvin.Context, start Mode, logger *log.Logger, listener *Listener) {
	current := start
	q := NewTaskQueue()

	for {
		if ctx.Err() != nil {
			return
		}

		if logger != nil {
			logger.Printf("mode: entering %s", current.Name())
		}

		signal, next, err := current.Init(ctx, mctx, q)
		if err != nil {
			if logger != nil {
				logger.Printf("mode: %s init failed: %v", current.Name(), err)
			}
			return
		}
		listener.queueSnapshot(q)
		if signal == OpReInit && next != nil {
			listener.modeChange(current.Name(), next.Name())
			mctx.IncModeSwitch()
			current = next
			continue
		}

		reinit := execTaskQueue(ctx, mctx, current, q, logger)
		listener.queueSnapshot(q)
		if reinit != nil {
			listener.modeChange(current.Name(), reinit.Name())
			mctx.IncModeSwitch()
			current = reinit
			continue
		}

		next = current.ExitMode(ctx, mctx)
		if next == nil {
			return
		}
		listener.modeChange(current.Name(), next.Name())
		mctx.IncModeSwitch()
		current = next
	}
}

// execTaskQueue drains q, calling ExecTaskWait/ExecTask between entries
// and dispatching to the appropriate handler on any non-timeout wait
// result. Returns a non-nil Mode if a handler asked for a ReInit.
func execTaskQueue(ctx context.Context, mctx *melvin.Context, m Mode, q *TaskQueue, logger *log.Logger) Mode {
	for {
		if ctx.Err() != nil {
			return nil
		}

		t, ok := q.Peek()
		due := time.Now()
		if ok {
			due = t.At
		}

		signal, payload := m.ExecTaskWait(ctx, mctx, due)
		switch signal {
		case WaitSafeEvent:
			return m.SafeHandler(ctx, mctx)

		case WaitNewObjective:
			if obj, ok := payload.(objective.KnownImgObjective); ok {
				if next := m.ZOHandler(ctx, mctx, obj); next != nil {
					return next
				}
			}
			continue

		case WaitBODoneEvent:
			if st, ok := payload.(beaconctrl.WatchState); ok {
				if next := m.BOEventHandler(ctx, mctx, st); next != nil {
					return next
				}
			}
			continue

		case WaitContinue:
			if !ok {
				return nil
			}
			tt, popped := q.Pop()
			if !popped {
				continue
			}
			if m.ExecTask(ctx, mctx, tt) == ExecFailed {
				if logger != nil {
					logger.Printf("mode: %s task execution failed", m.Name())
				}
			}
		}
	}
}
