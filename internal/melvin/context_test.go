package melvin

import (
	"testing"
	"time"

	"github.com/ciaryc/melvin/internal/objective"
)

func TestContextModeSwitchCounter(t *testing.T) {
	c := NewContext(Keychain{}, nil, nil)
	if c.ModeSwitches() != 0 {
		t.Fatalf("ModeSwitches() = %d, want 0", c.ModeSwitches())
	}
	c.IncModeSwitch()
	c.IncModeSwitch()
	if c.ModeSwitches() != 2 {
		t.Fatalf("ModeSwitches() = %d, want 2", c.ModeSwitches())
	}
}

func TestContextOrbitNilBeforeSetOrbit(t *testing.T) {
	c := NewContext(Keychain{}, nil, nil)
	if c.Orbit() != nil {
		t.Fatal("Orbit() before SetOrbit should be nil")
	}
}

func TestStashPopsEarliestDeadlineFirst(t *testing.T) {
	c := NewContext(Keychain{}, nil, nil)
	now := time.Now()

	c.StashZO(objective.KnownImgObjective{ID: 1, End: now.Add(3 * time.Hour)})
	c.StashZO(objective.KnownImgObjective{ID: 2, End: now.Add(1 * time.Hour)})
	c.StashZO(objective.KnownImgObjective{ID: 3, End: now.Add(2 * time.Hour)})

	if c.StashLen() != 3 {
		t.Fatalf("StashLen() = %d, want 3", c.StashLen())
	}

	first, ok := c.PopStash()
	if !ok || first.ID != 2 {
		t.Fatalf("PopStash() = %+v, %v, want ID=2", first, ok)
	}
	second, ok := c.PopStash()
	if !ok || second.ID != 3 {
		t.Fatalf("PopStash() = %+v, %v, want ID=3", second, ok)
	}
	third, ok := c.PopStash()
	if !ok || third.ID != 1 {
		t.Fatalf("PopStash() = %+v, %v, want ID=1", third, ok)
	}

	if _, ok := c.PopStash(); ok {
		t.Fatal("PopStash() on empty stash returned ok=true")
	}
}
