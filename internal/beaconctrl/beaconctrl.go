// Package beaconctrl runs the independent beacon-localization task: it
// accepts new beacon objectives and RSSI pings, updates each beacon's
// Bayesian candidate set, and submits guesses on deadline, per spec.md
// §4.7.
package beaconctrl

import (
	"context"
	"math/rand"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/ciaryc/melvin/internal/beacon"
	"github.com/ciaryc/melvin/internal/objective"
	"github.com/ciaryc/melvin/internal/vec2d"
)

// WatchState is the beacon controller's published active/inactive signal,
// broadcast on a watch channel the global-mode FSM selects on.
type WatchState int

const (
	NoActiveBeacons WatchState = iota
	ActiveBeacons
)

// SweepInterval and SubmitMargin match spec.md §4.7's 30s sweep and the
// "end < now + 30s - 10s" deadline check.
const (
	SweepInterval = 30 * time.Second
	SubmitMargin  = 30*time.Second - 10*time.Second
)

// pingRegex matches an announcement's beacon ping payload, e.g.
// "BEACON ID_7 DISTANCE_532.1".
var pingRegex = regexp.MustCompile(`(?i)ID[_, ]?(\d+).*?DISTANCE[_, ]?(\d+(\.\d+)?)`)

// PositionSource is the narrow slice of flightcomputer.FlightComputer the
// controller needs to stamp incoming pings with the satellite's current
// position.
type PositionSource interface {
	CurrentPos() vec2d.Vec2D
}

// Submitter posts beacon guesses; implemented by internal/simclient.
type Submitter = beacon.Submitter

// Controller owns the active/done beacon sets and runs the submission
// sweep and announcement-ingest loops.
type Controller struct {
	pos PositionSource
	sub Submitter
	rng *rand.Rand

	mu     sync.RWMutex
	active map[int]*entry
	done   map[int]objective.BeaconObjectiveDone

	watch chan WatchState
}

type entry struct {
	obj objective.BeaconObjective
	set *beacon.BayesianSet
}

// New creates a Controller bound to a position source and submitter.
func New(pos PositionSource, sub Submitter) *Controller {
	return &Controller{
		pos:    pos,
		sub:    sub,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		active: make(map[int]*entry),
		done:   make(map[int]objective.BeaconObjectiveDone),
		watch:  make(chan WatchState, 1),
	}
}

// Watch returns the channel the controller publishes active/inactive
// transitions on.
func (c *Controller) Watch() <-chan WatchState { return c.watch }

func (c *Controller) publish(s WatchState) {
	select {
	case c.watch <- s:
	default:
		// Drain the stale value and replace it; the watch channel only
		// ever needs to carry the latest state.
		select {
		case <-c.watch:
		default:
		}
		c.watch <- s
	}
}

// AddBeacon inserts a newly discovered beacon objective into the active
// set, publishing ActiveBeacons if the set was previously empty.
func (c *Controller) AddBeacon(obj objective.BeaconObjective) {
	c.mu.Lock()
	wasEmpty := len(c.active) == 0
	c.active[obj.ID] = &entry{obj: obj, set: beacon.NewBayesianSet()}
	c.mu.Unlock()

	if wasEmpty {
		c.publish(ActiveBeacons)
	}
}

// IngestAnnouncement parses msg for a beacon ping and, if it matches an
// active beacon, appends a measurement using the satellite's current
// position, the parsed RSSI, and the delay between msgTime and now.
func (c *Controller) IngestAnnouncement(msgTime time.Time, msg string) {
	m := pingRegex.FindStringSubmatch(msg)
	if m == nil {
		return
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}
	rssi, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return
	}

	c.mu.Lock()
	e, ok := c.active[id]
	if ok {
		e.set.Update(beacon.Meas{
			ID:    id,
			Pos:   c.pos.CurrentPos(),
			RSSI:  rssi,
			Delay: time.Since(msgTime),
		})
	}
	c.mu.Unlock()
}

// Run drives the 30s submission sweep until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	t := time.NewTicker(SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.sweep(ctx)
		}
	}
}

func (c *Controller) sweep(ctx context.Context) {
	now := time.Now()

	var toFinish []int
	c.mu.RLock()
	for id, e := range c.active {
		if e.obj.End.Before(now.Add(SubmitMargin)) || e.set.GuessEstimate() <= 5 {
			toFinish = append(toFinish, id)
		}
	}
	c.mu.RUnlock()

	for _, id := range toFinish {
		c.finishBeacon(ctx, id)
	}

	c.mu.RLock()
	empty := len(c.active) == 0
	c.mu.RUnlock()
	if empty {
		c.publish(NoActiveBeacons)
	}
}

func (c *Controller) finishBeacon(ctx context.Context, id int) {
	c.mu.Lock()
	e, ok := c.active[id]
	if ok {
		delete(c.active, id)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	res, err := e.set.SubmitGuesses(ctx, id, c.sub, c.rng)
	submitted := err == nil && res == beacon.SubmitSuccess

	var guesses [][2]int
	if len(e.set.Points) > 0 {
		for _, g := range e.set.PackPerfectCircles() {
			x, y := g.Cast()
			guesses = append(guesses, [2]int{x, y})
		}
	}

	c.mu.Lock()
	c.done[id] = objective.BeaconObjectiveDone{
		Objective: e.obj,
		Guesses:   guesses,
		Submitted: submitted,
	}
	c.mu.Unlock()
}

// Done returns a snapshot of the completed beacon results, retained for
// idempotence per spec.md §3's lifecycle note.
func (c *Controller) Done() map[int]objective.BeaconObjectiveDone {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[int]objective.BeaconObjectiveDone, len(c.done))
	for k, v := range c.done {
		out[k] = v
	}
	return out
}

// ActiveCount reports how many beacons are still being tracked.
func (c *Controller) ActiveCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.active)
}
