package task

import "time"

// DecisionAction is the choice the DP recorded for one (dt, e, s) cell.
type DecisionAction int8

const (
	// ActionUnreachable marks a cell that cannot reach a valid boundary.
	ActionUnreachable DecisionAction = iota
	ActionStay
	ActionSwitch
)

// EndCondition constrains the DP's terminal boundary: the state and
// minimum charge level required at the end of the prediction horizon.
// A nil *EndCondition means any state/charge is acceptable at the end.
type EndCondition struct {
	RequiredState DPState
	MinCharge     float64 // battery units, converted to a level internally
}

// Config parameterizes one DP run.
type Config struct {
	MinBattery, MaxBattery float64
	TPredict               int    // horizon length in seconds
	CoverageBitmap         []bool // length TPredict; true where already imaged
	End                    *EndCondition
}

// scoreWindow is the "LinkedBox": a ring buffer holding the last
// SwitchLookahead+1 computed score rows, indexed by dt modulo its length.
// This is all the DP's "switch" decision ever needs to look back at, so the
// DP's score memory is O(levels * window) rather than O(levels * horizon).
type scoreWindow struct {
	rows [][]int32
}

func newScoreWindow(levels int) *scoreWindow {
	w := &scoreWindow{rows: make([][]int32, SwitchLookahead+1)}
	for i := range w.rows {
		w.rows[i] = make([]int32, levels*2)
	}
	return w
}

func (w *scoreWindow) row(dt int) []int32 { return w.rows[((dt%len(w.rows))+len(w.rows))%len(w.rows)] }

// AtomicDecisionCube is the DP's full output: the chosen action at every
// (dt, e, s) cell, kept in full so a forward replay can walk it. Scores
// themselves are not retained past the rolling window used to compute them.
type AtomicDecisionCube struct {
	TPredict int
	Levels   int
	Action   [][]DecisionAction // [dt][e*2+s]
}

func newCube(tPredict, levels int) *AtomicDecisionCube {
	c := &AtomicDecisionCube{TPredict: tPredict, Levels: levels, Action: make([][]DecisionAction, tPredict)}
	for i := range c.Action {
		c.Action[i] = make([]DecisionAction, levels*2)
	}
	return c
}

func energyLevel(battery, minBattery float64) int {
	l := int((battery - minBattery) / EnergyStep)
	if l < 0 {
		return 0
	}
	return l
}

func clampLevel(e, levels int) int {
	if e < 0 {
		return 0
	}
	if e >= levels {
		return levels - 1
	}
	return e
}

// BuildSchedule runs the energy x state DP in reverse over cfg's horizon,
// producing an AtomicDecisionCube. Ties between "stay" and "switch" favor
// stay, matching spec.md's tie-break rule.
func BuildSchedule(cfg Config) *AtomicDecisionCube {
	levels := EnergyLevels(cfg.MinBattery, cfg.MaxBattery)
	n := cfg.TPredict
	cube := newCube(n, levels)
	window := newScoreWindow(levels)

	// Boundary: the row "one past the end" (dt == n) encodes the terminal
	// condition. It lives in the window at index n (mod window length).
	boundary := make([]int32, levels*2)
	for e := 0; e < levels; e++ {
		for s := 0; s < 2; s++ {
			idx := e*2 + s
			if cfg.End != nil {
				minLevel := energyLevel(cfg.MinBattery+cfg.End.MinCharge, cfg.MinBattery)
				if DPState(s) == cfg.End.RequiredState && e >= minLevel {
					boundary[idx] = 0
				} else {
					boundary[idx] = MinScore
				}
			} else {
				boundary[idx] = 0
			}
		}
	}
	copy(window.row(n), boundary)

	for dt := n - 1; dt >= 0; dt-- {
		row := window.row(dt)
		nextRow := window.row(dt + 1)
		covered := false
		if dt < len(cfg.CoverageBitmap) {
			covered = cfg.CoverageBitmap[dt]
		}
		allowSwitch := dt < n-SwitchLookahead
		var switchRow []int32
		if allowSwitch {
			switchRow = window.row(dt + SwitchLookahead)
		}

		for e := 0; e < levels; e++ {
			for s := 0; s < 2; s++ {
				idx := e*2 + s
				stayScore, stayOK := stayTransition(nextRow, e, s, levels, covered)

				best := int32(MinScore)
				action := ActionUnreachable
				if stayOK {
					best = stayScore
					action = ActionStay
				}

				if allowSwitch {
					switchScore, switchOK := switchTransition(switchRow, e, s, levels)
					if switchOK && switchScore > best {
						best = switchScore
						action = ActionSwitch
					}
				}

				row[idx] = best
				cube.Action[dt][idx] = action
			}
		}
	}

	return cube
}

// stayTransition computes the score of holding state s for one more second
// at energy level e, reading the already-computed next-second row.
func stayTransition(nextRow []int32, e, s, levels int, covered bool) (int32, bool) {
	var eNext int
	var tick int32
	if DPState(s) == DPCharge {
		eNext = clampLevel(e+1, levels)
	} else {
		eNext = clampLevel(e-1, levels)
		if !covered {
			tick = 1
		}
	}
	base := nextRow[eNext*2+s]
	if base <= MinScore {
		return MinScore, false
	}
	return base + tick, true
}

// switchTransition computes the score of switching to the opposite state,
// reading the row 180 seconds ahead (the Transition phase leaves energy
// unchanged per its 0 charge rate).
func switchTransition(farRow []int32, e, s, levels int) (int32, bool) {
	other := 1 - s
	base := farRow[e*2+other]
	if base <= MinScore {
		return MinScore, false
	}
	return base, true
}

// ReplayStep is one emitted task from walking the decision cube forward.
type ReplayStep struct {
	Dt     int
	Target DPState // valid when this is a switch
}

// Replay walks the cube forward from (dt=0, startLevel, startState),
// emitting a SwitchState step at every recorded switch and skipping
// SwitchLookahead seconds afterward to account for the Transition phase.
func (c *AtomicDecisionCube) Replay(startLevel int, startState DPState) []ReplayStep {
	var steps []ReplayStep
	dt := 0
	level := clampLevel(startLevel, c.Levels)
	state := startState

	for dt < c.TPredict {
		idx := level*2 + int(state)
		action := c.Action[dt][idx]
		switch action {
		case ActionSwitch:
			other := DPState(1 - int(state))
			steps = append(steps, ReplayStep{Dt: dt, Target: other})
			state = other
			dt += SwitchLookahead
		case ActionStay:
			if state == DPCharge {
				level = clampLevel(level+1, c.Levels)
			} else {
				level = clampLevel(level-1, c.Levels)
			}
			dt++
		default:
			// Unreachable cell: nothing more we can plan from here.
			return steps
		}
	}
	return steps
}

// ToTasks converts replay steps into scheduled Task values anchored at
// epoch, skipping SwitchState tasks that would land within SwitchLookahead
// seconds of one another (they can't, by construction of Replay, but this
// keeps the invariant explicit for callers that splice schedules together).
func ToTasks(steps []ReplayStep, epoch time.Time) []Task {
	tasks := make([]Task, 0, len(steps))
	lastAt := time.Time{}
	for _, st := range steps {
		at := epoch.Add(time.Duration(st.Dt) * time.Second)
		if !lastAt.IsZero() && at.Sub(lastAt) < SwitchLookahead*time.Second {
			continue
		}
		tasks = append(tasks, Task{Kind: KindSwitchState, At: at, Target: st.Target})
		lastAt = at
	}
	return tasks
}
