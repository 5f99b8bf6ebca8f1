package task

import (
	"testing"
	"time"
)

func TestBuildScheduleNoSwitchInFinalLookahead(t *testing.T) {
	cfg := Config{
		MinBattery: 10,
		MaxBattery: 20,
		TPredict:   600,
	}
	cube := BuildSchedule(cfg)

	for dt := cube.TPredict - SwitchLookahead; dt < cube.TPredict; dt++ {
		for _, a := range cube.Action[dt] {
			if a == ActionSwitch {
				t.Fatalf("switch recorded at dt=%d, within final %ds lookahead", dt, SwitchLookahead)
			}
		}
	}
}

func TestBuildScheduleRecordsStayDecisions(t *testing.T) {
	cfg := Config{
		MinBattery: 10,
		MaxBattery: 15,
		TPredict:   400,
	}
	cube := BuildSchedule(cfg)

	found := false
	for dt := 0; dt < cube.TPredict; dt++ {
		for idx, a := range cube.Action[dt] {
			if a == ActionStay {
				found = true
				_ = idx
			}
		}
	}
	if !found {
		t.Fatalf("expected at least one Stay decision across the horizon")
	}
}

func TestReplayStepsAreOrderedAndInHorizon(t *testing.T) {
	cfg := Config{
		MinBattery: 10,
		MaxBattery: 15,
		TPredict:   800,
	}
	cube := BuildSchedule(cfg)
	levels := EnergyLevels(cfg.MinBattery, cfg.MaxBattery)

	steps := cube.Replay(levels/2, DPCharge)

	last := -1
	for _, st := range steps {
		if st.Dt < 0 || st.Dt >= cube.TPredict {
			t.Fatalf("replay step dt=%d outside horizon [0,%d)", st.Dt, cube.TPredict)
		}
		if st.Dt <= last {
			t.Fatalf("replay steps not strictly increasing: dt=%d after %d", st.Dt, last)
		}
		last = st.Dt
	}
}

func TestReplayRespectsEndCondition(t *testing.T) {
	cfg := Config{
		MinBattery: 10,
		MaxBattery: 15,
		TPredict:   1000,
		End: &EndCondition{
			RequiredState: DPAcquisition,
			MinCharge:     2.0,
		},
	}
	cube := BuildSchedule(cfg)
	levels := EnergyLevels(cfg.MinBattery, cfg.MaxBattery)

	steps := cube.Replay(levels-1, DPCharge)
	if len(steps) == 0 {
		t.Fatalf("expected at least one switch to satisfy the end condition")
	}
	last := steps[len(steps)-1]
	if last.Target != DPAcquisition {
		t.Fatalf("expected final switch target Acquisition, got %v", last.Target)
	}
}

func TestToTasksProducesNonDecreasingTimes(t *testing.T) {
	steps := []ReplayStep{
		{Dt: 200, Target: DPAcquisition},
		{Dt: 500, Target: DPCharge},
		{Dt: 900, Target: DPAcquisition},
	}
	epoch := time.Unix(0, 0)
	tasks := ToTasks(steps, epoch)

	if len(tasks) != len(steps) {
		t.Fatalf("expected %d tasks, got %d", len(steps), len(tasks))
	}
	for i := 1; i < len(tasks); i++ {
		if tasks[i].At.Before(tasks[i-1].At) {
			t.Fatalf("task times not non-decreasing: %v before %v", tasks[i].At, tasks[i-1].At)
		}
	}
}

func TestToTasksDropsTooCloseSwitches(t *testing.T) {
	steps := []ReplayStep{
		{Dt: 100, Target: DPAcquisition},
		{Dt: 100 + SwitchLookahead - 1, Target: DPCharge},
	}
	tasks := ToTasks(steps, time.Unix(0, 0))
	if len(tasks) != 1 {
		t.Fatalf("expected the too-close second switch to be dropped, got %d tasks", len(tasks))
	}
}
