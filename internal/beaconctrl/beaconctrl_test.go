package beaconctrl

import (
	"context"
	"testing"
	"time"

	"github.com/ciaryc/melvin/internal/beacon"
	"github.com/ciaryc/melvin/internal/objective"
	"github.com/ciaryc/melvin/internal/vec2d"
)

type fixedPos struct{ p vec2d.Vec2D }

func (f fixedPos) CurrentPos() vec2d.Vec2D { return f.p }

type fakeSubmitter struct {
	result beacon.SubmitResult
	calls  int
}

func (f *fakeSubmitter) SubmitBeaconGuess(ctx context.Context, beaconID int, guess [2]int) (beacon.SubmitResult, error) {
	f.calls++
	return f.result, nil
}

func TestAddBeaconPublishesActiveOnFirstInsert(t *testing.T) {
	c := New(fixedPos{vec2d.New(0, 0)}, &fakeSubmitter{result: beacon.SubmitSuccess})

	c.AddBeacon(objective.BeaconObjective{ID: 1, End: time.Now().Add(time.Hour)})

	select {
	case st := <-c.Watch():
		if st != ActiveBeacons {
			t.Fatalf("watch state = %v, want ActiveBeacons", st)
		}
	default:
		t.Fatal("expected a watch publish after first AddBeacon")
	}

	if c.ActiveCount() != 1 {
		t.Fatalf("ActiveCount() = %d, want 1", c.ActiveCount())
	}
}

func TestIngestAnnouncementParsesPing(t *testing.T) {
	c := New(fixedPos{vec2d.New(10, 20)}, &fakeSubmitter{})
	c.AddBeacon(objective.BeaconObjective{ID: 7, End: time.Now().Add(time.Hour)})
	<-c.Watch()

	c.IngestAnnouncement(time.Now(), "BEACON ID_7 DISTANCE_532.1")

	c.mu.RLock()
	n := len(c.active[7].set.Points)
	c.mu.RUnlock()
	if n == 0 {
		t.Fatal("expected IngestAnnouncement to add a measurement to beacon 7's set")
	}
}

func TestIngestAnnouncementIgnoresUnmatchedOrUnknownBeacon(t *testing.T) {
	c := New(fixedPos{vec2d.New(0, 0)}, &fakeSubmitter{})

	c.IngestAnnouncement(time.Now(), "not a beacon ping")
	c.IngestAnnouncement(time.Now(), "BEACON ID_99 DISTANCE_10")

	if c.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() = %d, want 0 (no active beacons registered)", c.ActiveCount())
	}
}

func TestSweepFinishesExpiredBeaconAndPublishesInactive(t *testing.T) {
	sub := &fakeSubmitter{result: beacon.SubmitSuccess}
	c := New(fixedPos{vec2d.New(0, 0)}, sub)

	c.AddBeacon(objective.BeaconObjective{ID: 3, End: time.Now()})
	<-c.Watch()

	c.sweep(context.Background())

	if c.ActiveCount() != 0 {
		t.Fatalf("ActiveCount() after sweep = %d, want 0", c.ActiveCount())
	}
	done := c.Done()
	if _, ok := done[3]; !ok {
		t.Fatal("expected beacon 3 to appear in Done() after sweep")
	}

	select {
	case st := <-c.Watch():
		if st != NoActiveBeacons {
			t.Fatalf("watch state = %v, want NoActiveBeacons", st)
		}
	default:
		t.Fatal("expected a watch publish after the active set emptied")
	}
}
