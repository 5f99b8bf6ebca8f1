package task

import "time"

// CommsSchedule is one scheduled comms-interleaved cycle: a DP segment
// ending at a required charge level, followed by a switch into Comms.
type CommsSchedule struct {
	Segments []CommsSegment
}

// CommsSegment pairs a DP-produced segment's tasks with the Comms switch
// that follows it.
type CommsSegment struct {
	Tasks      []Task
	CommsStart time.Time
	CommsEnd   time.Time
}

// BuildCommsInterleavedSchedule alternates DP segments (each targeting
// end_charge=MinCommsStartCharge) with scheduled Comms windows of
// InCommsSchedSecs, deducting CommsChargeUsage from the battery at each
// cycle boundary, continuing while another full cycle fits before horizon.
func BuildCommsInterleavedSchedule(cfg Config, startLevel int, startState DPState, epoch time.Time, minBattery, maxBattery, minCommsStartCharge float64) CommsSchedule {
	var out CommsSchedule
	levels := EnergyLevels(minBattery, maxBattery)
	level := clampLevel(startLevel, levels)
	state := startState
	commsEnd := 0

	for {
		segStart := commsEnd
		segEnd := cfg.TPredict
		remaining := segEnd - segStart
		if remaining <= CommsSchedUsableTime {
			break
		}

		segCfg := Config{
			MinBattery:     minBattery,
			MaxBattery:     maxBattery,
			TPredict:       remaining,
			CoverageBitmap: sliceBitmap(cfg.CoverageBitmap, segStart, segEnd),
			End: &EndCondition{
				RequiredState: DPAcquisition,
				MinCharge:     minCommsStartCharge - minBattery,
			},
		}
		cube := BuildSchedule(segCfg)
		steps := cube.Replay(level, state)
		tasks := ToTasks(steps, epoch.Add(time.Duration(segStart)*time.Second))

		commsStartAt := epoch.Add(time.Duration(segStart+remaining-CommsSchedUsableTime) * time.Second)
		tasks = append(tasks, Task{Kind: KindSwitchState, At: commsStartAt, Target: DPComms})

		out.Segments = append(out.Segments, CommsSegment{
			Tasks:      tasks,
			CommsStart: commsStartAt.Add(SwitchLookahead * time.Second),
			CommsEnd:   commsStartAt.Add(time.Duration(SwitchLookahead+InCommsSchedSecs) * time.Second),
		})

		level = clampLevel(energyLevel(minCommsStartCharge-CommsChargeUsage, minBattery), levels)
		state = DPAcquisition
		commsEnd = segStart + remaining - CommsSchedUsableTime + SwitchLookahead + InCommsSchedSecs
	}

	return out
}

func sliceBitmap(bitmap []bool, start, end int) []bool {
	if start >= len(bitmap) {
		return nil
	}
	if end > len(bitmap) {
		end = len(bitmap)
	}
	return bitmap[start:end]
}
