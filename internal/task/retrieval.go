package task

import (
	"time"

	"github.com/ciaryc/melvin/internal/vec2d"
)

// ScheduleRetrievalPhase builds the task triplet the retrieval mode needs
// around an image capture at t: charge now, switch back to Acquisition
// early enough to clear the Transition delay before the shot, then the
// TakeImage itself at t-ZOImageFirstDelay.
func ScheduleRetrievalPhase(now time.Time, t time.Time, pos vec2d.Vec2D, lens Lens) []Task {
	imageAt := t.Add(-ZOImageFirstDelay)
	acqAt := imageAt.Add(-SwitchLookahead * time.Second)

	tasks := []Task{
		{Kind: KindSwitchState, At: now, Target: DPCharge},
	}
	if acqAt.After(now) {
		tasks = append(tasks, Task{Kind: KindSwitchState, At: acqAt, Target: DPAcquisition})
	}
	tasks = append(tasks, Task{
		Kind:       KindTakeImage,
		At:         imageAt,
		PlannedPos: pos,
		ImageLens:  lens,
		Status:     ImagePlanned,
	})
	return tasks
}
