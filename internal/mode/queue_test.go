package mode

import (
	"testing"
	"time"

	"github.com/ciaryc/melvin/internal/task"
)

func TestTaskQueuePushPopOrder(t *testing.T) {
	q := NewTaskQueue()
	now := time.Now()
	q.Push(
		task.Task{Kind: task.KindSwitchState, At: now},
		task.Task{Kind: task.KindTakeImage, At: now.Add(time.Second)},
	)

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}

	first, ok := q.Peek()
	if !ok || first.Kind != task.KindSwitchState {
		t.Fatalf("Peek() = %+v, %v, want KindSwitchState head", first, ok)
	}

	popped, ok := q.Pop()
	if !ok || popped.Kind != task.KindSwitchState {
		t.Fatalf("Pop() = %+v, %v, want KindSwitchState", popped, ok)
	}
	if q.Len() != 1 {
		t.Fatalf("Len() after pop = %d, want 1", q.Len())
	}

	second, ok := q.Pop()
	if !ok || second.Kind != task.KindTakeImage {
		t.Fatalf("Pop() = %+v, %v, want KindTakeImage", second, ok)
	}

	if _, ok := q.Pop(); ok {
		t.Fatalf("Pop() on empty queue returned ok=true")
	}
}

func TestTaskQueueClear(t *testing.T) {
	q := NewTaskQueue()
	q.Push(task.Task{Kind: task.KindChangeVelocity})
	q.Clear()
	if q.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", q.Len())
	}
}

func TestTaskQueueSnapshotIsIndependentCopy(t *testing.T) {
	q := NewTaskQueue()
	q.Push(task.Task{Kind: task.KindTakeImage})

	snap := q.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Snapshot() len = %d, want 1", len(snap))
	}

	q.Push(task.Task{Kind: task.KindChangeVelocity})
	if len(snap) != 1 {
		t.Fatalf("mutating queue after Snapshot changed the snapshot slice, len = %d", len(snap))
	}
}

func TestListenerNilSafe(t *testing.T) {
	var l *Listener
	l.modeChange("A", "B")
	l.queueSnapshot(NewTaskQueue())
}

func TestListenerInvokesCallbacks(t *testing.T) {
	var gotFrom, gotTo string
	var gotTasks []task.Task

	l := &Listener{
		OnModeChange: func(from, to string) { gotFrom, gotTo = from, to },
		OnQueueSnapshot: func(tasks []task.Task) {
			gotTasks = tasks
		},
	}

	l.modeChange("InOrbit", "ZOPrep")
	if gotFrom != "InOrbit" || gotTo != "ZOPrep" {
		t.Fatalf("modeChange callback got (%q, %q)", gotFrom, gotTo)
	}

	q := NewTaskQueue()
	q.Push(task.Task{Kind: task.KindTakeImage})
	l.queueSnapshot(q)
	if len(gotTasks) != 1 {
		t.Fatalf("queueSnapshot callback got %d tasks, want 1", len(gotTasks))
	}
}
