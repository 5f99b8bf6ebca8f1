// Package task implements the energy x state dynamic-program scheduler
// that produces MELVIN's task timeline, its comms-interleaved variant, and
// the exit-burn evaluator used to leave the nominal orbit for a zoned
// objective.
package task

import (
	"time"

	"github.com/ciaryc/melvin/internal/vec2d"
)

// Lens identifies a camera footprint, mirrored from internal/orbit so this
// package doesn't need to import it just for the enum.
type Lens int

const (
	LensNarrow Lens = iota
	LensNormal
	LensWide
)

// Kind discriminates the three task shapes the scheduler can emit.
type Kind int

const (
	KindSwitchState Kind = iota
	KindTakeImage
	KindChangeVelocity
)

// ImageStatus tracks whether a planned image has actually been taken.
type ImageStatus int

const (
	ImagePlanned ImageStatus = iota
	ImageDone
)

// DPState is the task controller's coarse flight state: only Charge and
// Acquisition are schedulable states in the DP (spec.md §9: "the DP does
// not consider Safe as a schedulable state"). DPComms is not a DP axis
// value — it never appears in a Replay() step — it is a SwitchState
// target used only by the comms-interleaved scheduler (see comms.go) to
// mark the boundary where a segment hands control back to Comms.
type DPState int

const (
	DPCharge DPState = iota
	DPAcquisition
	DPComms
)

// Task is one atomic scheduled action.
type Task struct {
	Kind Kind
	At   time.Time

	// SwitchState
	Target DPState

	// TakeImage
	PlannedPos vec2d.Vec2D
	ImageLens  Lens
	Status     ImageStatus
	ActualPos  vec2d.Vec2D
	PxDevRel   float64

	// ChangeVelocity
	Burn BurnSequence
}

// EnergyStep is the discretization step for the DP's energy axis.
const EnergyStep = 0.1

// EnergyLevels returns the number of discrete energy buckets between min
// and max battery, inclusive.
func EnergyLevels(minBattery, maxBattery float64) int {
	return int((maxBattery-minBattery)/EnergyStep) + 1
}

// MinScore marks an unreachable DP cell.
const MinScore = -1 << 30

// SwitchLookahead is the rolling-window size (seconds) the DP needs to
// evaluate a "switch" decision, matching the 180s Transition delay.
const SwitchLookahead = 180

// Comms-interleaved scheduling constants. IN_COMMS_SCHED_SECS and
// COMMS_CHARGE_USAGE follow spec.md's explicitly stated values rather than
// the lower constants found in one build of the original Rust source (see
// DESIGN.md Open Question #1).
const (
	InCommsSchedSecs      = 1100
	CommsSchedPeriod      = 800
	CommsSchedUsableTime  = CommsSchedPeriod - 2*SwitchLookahead
	CommsChargeUsage      = 9.0
	ObjectiveScheduleMinDT = 1000
	MinReplanningDT        = 500
	ZOImageFirstDelay      = 5 * time.Second
)
