// Package mode implements the global-mode FSM: InOrbitMode (mapping or
// beacon-scanning), ZOPrepMode, ZORetrievalMode, and OrbitReturnMode, with
// the init/exec_task_queue/exec_task_wait/exec_task/safe_handler/
// zo_handler/bo_event_handler/exit_mode interface spec.md §4.8 describes.
package mode

import (
	"sync"

	"github.com/ciaryc/melvin/internal/task"
)

// TaskQueue is the global mode's owned FIFO task queue, a VecDeque under a
// write lock per spec.md §5. Only one task is ever in flight at a time.
type TaskQueue struct {
	mu    sync.Mutex
	tasks []task.Task
}

// NewTaskQueue builds an empty queue.
func NewTaskQueue() *TaskQueue { return &TaskQueue{} }

// Push appends tasks, keeping the queue's times non-decreasing by
// insertion order (callers are expected to enqueue whole schedules in
// time order, per spec.md §8's "times are non-decreasing" invariant).
func (q *TaskQueue) Push(tasks ...task.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, tasks...)
}

// Pop removes and returns the head task, if any.
func (q *TaskQueue) Pop() (task.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return task.Task{}, false
	}
	t := q.tasks[0]
	q.tasks = q.tasks[1:]
	return t, true
}

// Peek returns the head task without removing it.
func (q *TaskQueue) Peek() (task.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return task.Task{}, false
	}
	return q.tasks[0], true
}

// Len reports the number of queued tasks.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Clear empties the queue, used when a mode re-inits mid-schedule.
func (q *TaskQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = nil
}

// Snapshot returns a copy of the queue's current contents, for telemetry
// consumers that must not hold the queue's lock.
func (q *TaskQueue) Snapshot() []task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]task.Task(nil), q.tasks...)
}
