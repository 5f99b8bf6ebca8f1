// Package melvin wires together the mode context and keychain the
// global-mode FSM runs against: the shared sub-component handles, channels
// for objectives and beacon state, and the stashed-ZO priority heap, per
// spec.md §4.9.
package melvin

import (
	"github.com/ciaryc/melvin/internal/beaconctrl"
	"github.com/ciaryc/melvin/internal/flightcomputer"
	"github.com/ciaryc/melvin/internal/simclient"
	"github.com/ciaryc/melvin/internal/supervisor"
)

// Keychain aggregates every sub-component the global-mode FSM and its
// child modes dispatch work to. It comes in two flavors: a pre-orbit
// keychain built at startup (before a closed orbit has been established),
// and a with-orbit keychain that additionally carries the orbit lock (see
// Context.Orbit). Both share this same struct — the distinction lives in
// whether Context.Orbit is nil.
type Keychain struct {
	Sim        *simclient.Client
	FC         *flightcomputer.FlightComputer
	Supervisor *supervisor.Supervisor
	BeaconCtrl *beaconctrl.Controller
}
