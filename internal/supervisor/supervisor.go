// Package supervisor runs the periodic observation loop and the
// objective-discovery pipeline that feeds the global-mode FSM: objective
// polling, secret-zone buffering, and the announcement broadcast hub, per
// spec.md §4.6.
package supervisor

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ciaryc/melvin/internal/flightcomputer"
	"github.com/ciaryc/melvin/internal/objective"
	"github.com/ciaryc/melvin/internal/orbit"
	"github.com/ciaryc/melvin/internal/simclient"
)

// PollInterval is the objective-polling cadence.
const PollInterval = 15 * time.Second

// DailyMapHour/Minute is the UTC time of day the daily map snapshot is
// exported and uploaded.
const (
	DailyMapHour   = 22
	DailyMapMinute = 55
)

// announceBufferSize matches spec.md §5's "bounded buffer of 10" for the
// announcement broadcast channel.
const announceBufferSize = 10

// ObjectiveSource is the subset of simclient.Client the supervisor polls.
type ObjectiveSource interface {
	GetObjectives(ctx context.Context) (simclient.ObjectivesResponse, error)
	ScheduleSecretZone(ctx context.Context, objectiveID int, zone simclient.ZoneWire) error
}

// AnnouncementSource streams announcement lines; implemented by
// simclient.Client.
type AnnouncementSource interface {
	StreamAnnouncements(ctx context.Context, out chan<- simclient.Announcement) error
}

// MapExporter produces and uploads the daily map snapshot.
type MapExporter interface {
	ExportDailySnapshot(ctx context.Context) error
}

// Supervisor owns the observation loop, objective polling, and the
// announcement hub.
type Supervisor struct {
	fc     *flightcomputer.FlightComputer
	objSrc ObjectiveSource
	annSrc AnnouncementSource
	mapExp MapExporter
	log    *log.Logger

	zoCh     chan objective.KnownImgObjective
	beaconCh chan objective.BeaconObjective

	seenMu sync.Mutex
	seen   map[int]bool
	skip   map[int]bool

	secretMu sync.Mutex
	secret   map[int]objective.SecretImgObjective

	subMu sync.Mutex
	subs  map[chan simclient.Announcement]struct{}
}

// New creates a Supervisor. SKIP_OBJ is read from the environment at
// construction time, per spec.md §6.
func New(fc *flightcomputer.FlightComputer, objSrc ObjectiveSource, annSrc AnnouncementSource, mapExp MapExporter, logger *log.Logger) *Supervisor {
	return &Supervisor{
		fc:       fc,
		objSrc:   objSrc,
		annSrc:   annSrc,
		mapExp:   mapExp,
		log:      logger,
		zoCh:     make(chan objective.KnownImgObjective, 16),
		beaconCh: make(chan objective.BeaconObjective, 16),
		seen:     make(map[int]bool),
		skip:     parseSkipList(os.Getenv("SKIP_OBJ")),
		secret:   make(map[int]objective.SecretImgObjective),
		subs:     make(map[chan simclient.Announcement]struct{}),
	}
}

func parseSkipList(env string) map[int]bool {
	out := make(map[int]bool)
	for _, f := range strings.Split(env, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if id, err := strconv.Atoi(f); err == nil {
			out[id] = true
		}
	}
	return out
}

// ZOChannel is where newly discovered known-zone objectives are pushed.
func (s *Supervisor) ZOChannel() <-chan objective.KnownImgObjective { return s.zoCh }

// BeaconChannel is where newly discovered beacon objectives are pushed.
func (s *Supervisor) BeaconChannel() <-chan objective.BeaconObjective { return s.beaconCh }

// Subscribe registers a new announcement listener (the beacon controller
// is the canonical consumer) and returns an unsubscribe function.
func (s *Supervisor) Subscribe() (<-chan simclient.Announcement, func()) {
	ch := make(chan simclient.Announcement, announceBufferSize)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	return ch, func() {
		s.subMu.Lock()
		delete(s.subs, ch)
		s.subMu.Unlock()
		close(ch)
	}
}

func (s *Supervisor) broadcast(a simclient.Announcement) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- a:
		default:
			// Slow subscriber: drop rather than block the hub.
		}
	}
}

// ScheduleSecretObjective converts a buffered secret objective into a known
// one once the operator console supplies a zone, and forwards it on the ZO
// channel. Returns false if id isn't a currently-buffered secret objective.
func (s *Supervisor) ScheduleSecretObjective(id int, zone objective.Zone) bool {
	s.secretMu.Lock()
	secret, ok := s.secret[id]
	if ok {
		delete(s.secret, id)
	}
	s.secretMu.Unlock()
	if !ok {
		return false
	}

	known := secret.Assign(zone)
	select {
	case s.zoCh <- known:
	default:
	}
	return true
}

// Run starts the observation loop, objective polling, announcement hub,
// and the daily-map export task, blocking until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); s.fc.RunObservationLoop(ctx) }()
	go func() { defer wg.Done(); s.pollObjectivesLoop(ctx) }()
	go func() { defer wg.Done(); s.announcementHubLoop(ctx) }()
	go func() { defer wg.Done(); s.dailyMapLoop(ctx) }()
	wg.Wait()
}

func (s *Supervisor) pollObjectivesLoop(ctx context.Context) {
	t := time.NewTicker(PollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Supervisor) pollOnce(ctx context.Context) {
	resp, err := s.objSrc.GetObjectives(ctx)
	if err != nil {
		if s.log != nil {
			s.log.Printf("supervisor: objective poll failed: %v", err)
		}
		return
	}

	now := time.Now()

	for _, ow := range resp.ZonedObjectives {
		if s.skip[ow.ID] || s.markSeen(ow.ID) {
			continue
		}
		end := time.Unix(ow.End, 0)
		if end.Before(now) {
			continue
		}
		lens := parseLens(ow.Lens)
		if ow.Secret || ow.Zone == nil {
			s.secretMu.Lock()
			s.secret[ow.ID] = objective.SecretImgObjective{
				ID:               ow.ID,
				Name:             ow.Name,
				Start:            time.Unix(ow.Start, 0),
				End:              end,
				Lens:             lens,
				CoverageRequired: ow.CoverageRequired,
			}
			s.secretMu.Unlock()
			continue
		}

		known := objective.KnownImgObjective{
			ID:               ow.ID,
			Name:             ow.Name,
			Start:            time.Unix(ow.Start, 0),
			End:              end,
			Zone:             objective.Zone{X1: ow.Zone.X1, Y1: ow.Zone.Y1, X2: ow.Zone.X2, Y2: ow.Zone.Y2},
			Lens:             lens,
			CoverageRequired: ow.CoverageRequired,
		}
		select {
		case s.zoCh <- known:
		default:
		}
	}

	for _, bw := range resp.BeaconObjectives {
		if s.skip[bw.ID] || s.markSeen(1_000_000+bw.ID) {
			continue
		}
		end := time.Unix(bw.End, 0)
		if end.Before(now) {
			continue
		}
		select {
		case s.beaconCh <- objective.BeaconObjective{
			ID:    bw.ID,
			Name:  bw.Name,
			Start: time.Unix(bw.Start, 0),
			End:   end,
		}:
		default:
		}
	}
}

func (s *Supervisor) markSeen(id int) bool {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	if s.seen[id] {
		return true
	}
	s.seen[id] = true
	return false
}

func parseLens(s string) orbit.Lens {
	switch strings.ToLower(s) {
	case "narrow":
		return orbit.LensNarrow
	case "wide":
		return orbit.LensWide
	default:
		return orbit.LensNormal
	}
}

func (s *Supervisor) announcementHubLoop(ctx context.Context) {
	ch := make(chan simclient.Announcement, announceBufferSize)
	go func() {
		if err := s.annSrc.StreamAnnouncements(ctx, ch); err != nil && s.log != nil && ctx.Err() == nil {
			s.log.Printf("supervisor: announcement stream ended: %v", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-ch:
			if !ok {
				return
			}
			s.broadcast(a)
		}
	}
}

func (s *Supervisor) dailyMapLoop(ctx context.Context) {
	for {
		next := nextDailyMapTime(time.Now().UTC())
		t := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
			if s.mapExp != nil {
				if err := s.mapExp.ExportDailySnapshot(ctx); err != nil && s.log != nil {
					s.log.Printf("supervisor: daily map export failed: %v", err)
				}
			}
		}
	}
}

func nextDailyMapTime(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), DailyMapHour, DailyMapMinute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
