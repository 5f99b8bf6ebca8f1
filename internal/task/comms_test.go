package task

import (
	"testing"
	"time"
)

func TestBuildCommsInterleavedScheduleSwitchesIntoComms(t *testing.T) {
	cfg := Config{
		MinBattery: 10,
		MaxBattery: 30,
		TPredict:   5000,
	}
	epoch := time.Unix(0, 0)
	sched := BuildCommsInterleavedSchedule(cfg, EnergyLevels(cfg.MinBattery, cfg.MaxBattery)-1, DPCharge, epoch, cfg.MinBattery, cfg.MaxBattery, 20.0)

	if len(sched.Segments) == 0 {
		t.Fatalf("expected at least one comms-interleaved segment over a %ds horizon", cfg.TPredict)
	}

	for i, seg := range sched.Segments {
		if len(seg.Tasks) == 0 {
			t.Fatalf("segment %d: expected at least the trailing switch task", i)
		}
		last := seg.Tasks[len(seg.Tasks)-1]
		if last.Kind != KindSwitchState || last.Target != DPComms {
			t.Fatalf("segment %d: expected trailing task to switch into Comms, got kind=%v target=%v", i, last.Kind, last.Target)
		}
		if !seg.CommsStart.After(last.At) {
			t.Fatalf("segment %d: CommsStart %v must follow the switch task at %v by at least SwitchLookahead", i, seg.CommsStart, last.At)
		}
		if !seg.CommsEnd.After(seg.CommsStart) {
			t.Fatalf("segment %d: CommsEnd %v must follow CommsStart %v", i, seg.CommsEnd, seg.CommsStart)
		}
	}
}

func TestBuildCommsInterleavedScheduleStopsBeforeHorizon(t *testing.T) {
	cfg := Config{
		MinBattery: 10,
		MaxBattery: 30,
		TPredict:   5000,
	}
	epoch := time.Unix(0, 0)
	sched := BuildCommsInterleavedSchedule(cfg, EnergyLevels(cfg.MinBattery, cfg.MaxBattery)-1, DPCharge, epoch, cfg.MinBattery, cfg.MaxBattery, 20.0)

	horizon := epoch.Add(time.Duration(cfg.TPredict) * time.Second)
	for i, seg := range sched.Segments {
		if seg.CommsEnd.After(horizon) {
			t.Fatalf("segment %d: CommsEnd %v exceeds horizon %v", i, seg.CommsEnd, horizon)
		}
	}
}
