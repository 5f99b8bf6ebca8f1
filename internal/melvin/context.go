package melvin

import (
	"container/heap"
	"sync"
	"sync/atomic"

	"github.com/ciaryc/melvin/internal/beaconctrl"
	"github.com/ciaryc/melvin/internal/objective"
	"github.com/ciaryc/melvin/internal/orbit"
)

// stashHeap orders stashed zoned objectives by End ascending (earliest
// deadline first), implementing container/heap.Interface.
type stashHeap []objective.KnownImgObjective

func (h stashHeap) Len() int            { return len(h) }
func (h stashHeap) Less(i, j int) bool  { return h[i].End.Before(h[j].End) }
func (h stashHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *stashHeap) Push(x interface{}) { *h = append(*h, x.(objective.KnownImgObjective)) }
func (h *stashHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Context is the single Arc-shared handle every mode receives by argument:
// the keychain, the current orbit (once closed), derived orbit
// characteristics, the ZO/beacon-state channels, and the stashed-ZO
// priority heap. Mutable fields are guarded by their own locks so a mode
// only ever holds one at a time.
type Context struct {
	Keychain Keychain

	orbitMu sync.RWMutex
	orbit   *orbit.ClosedOrbit

	modeSwitches int64

	zoChan      <-chan objective.KnownImgObjective
	beaconWatch <-chan beaconctrl.WatchState

	stashMu sync.Mutex
	stash   stashHeap
}

// NewContext builds a Context with no orbit yet set (the pre-orbit
// keychain phase); call SetOrbit once the orbit closes.
func NewContext(kc Keychain, zoChan <-chan objective.KnownImgObjective, beaconWatch <-chan beaconctrl.WatchState) *Context {
	return &Context{
		Keychain:    kc,
		zoChan:      zoChan,
		beaconWatch: beaconWatch,
	}
}

// SetOrbit installs the closed orbit, transitioning the context from its
// pre-orbit to its with-orbit flavor.
func (c *Context) SetOrbit(o *orbit.ClosedOrbit) {
	c.orbitMu.Lock()
	defer c.orbitMu.Unlock()
	c.orbit = o
}

// Orbit returns the current closed orbit, or nil if none has been set yet.
func (c *Context) Orbit() *orbit.ClosedOrbit {
	c.orbitMu.RLock()
	defer c.orbitMu.RUnlock()
	return c.orbit
}

// ZOChannel is the channel new zoned objectives arrive on.
func (c *Context) ZOChannel() <-chan objective.KnownImgObjective { return c.zoChan }

// BeaconWatch is the channel beacon active/inactive transitions arrive on.
func (c *Context) BeaconWatch() <-chan beaconctrl.WatchState { return c.beaconWatch }

// IncModeSwitch increments and returns the mode-switch counter, used for
// diagnostics and by the operator console's telemetry.
func (c *Context) IncModeSwitch() int64 {
	return atomic.AddInt64(&c.modeSwitches, 1)
}

// ModeSwitches returns the current mode-switch counter.
func (c *Context) ModeSwitches() int64 {
	return atomic.LoadInt64(&c.modeSwitches)
}

// StashZO parks a new objective for later consideration, per
// ZOPrepMode's preemption rule (spec.md §4.8).
func (c *Context) StashZO(o objective.KnownImgObjective) {
	c.stashMu.Lock()
	defer c.stashMu.Unlock()
	heap.Push(&c.stash, o)
}

// PopStash removes and returns the earliest-deadline stashed objective, if
// any.
func (c *Context) PopStash() (objective.KnownImgObjective, bool) {
	c.stashMu.Lock()
	defer c.stashMu.Unlock()
	if c.stash.Len() == 0 {
		return objective.KnownImgObjective{}, false
	}
	return heap.Pop(&c.stash).(objective.KnownImgObjective), true
}

// StashLen reports how many objectives are currently stashed.
func (c *Context) StashLen() int {
	c.stashMu.Lock()
	defer c.stashMu.Unlock()
	return c.stash.Len()
}
