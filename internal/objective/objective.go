// Package objective defines MELVIN's objective data model: zoned imaging
// objectives (known and secret-zone), beacon localization objectives, and
// their ordering/priority rules, per spec.md §3.
package objective

import (
	"time"

	"github.com/ciaryc/melvin/internal/orbit"
	"github.com/ciaryc/melvin/internal/vec2d"
)

// Zone is an axis-aligned rectangle on the map, given as two corners.
type Zone struct {
	X1, Y1, X2, Y2 float64
}

// Center returns the zone's midpoint.
func (z Zone) Center() vec2d.Vec2D {
	return vec2d.New((z.X1+z.X2)/2, (z.Y1+z.Y2)/2)
}

// Corners returns the zone's four corners; ZOPrepMode passes all four to the
// exit-burn evaluator as candidate targets for every zoned objective.
func (z Zone) Corners() [4]vec2d.Vec2D {
	return [4]vec2d.Vec2D{
		vec2d.New(z.X1, z.Y1),
		vec2d.New(z.X2, z.Y1),
		vec2d.New(z.X2, z.Y2),
		vec2d.New(z.X1, z.Y2),
	}
}

// KnownImgObjective is a zoned imaging objective whose rectangle is known
// up front (a.k.a. Zoned Objective).
type KnownImgObjective struct {
	ID                int
	Name              string
	Start, End        time.Time
	Zone              Zone
	Lens              orbit.Lens
	CoverageRequired  float64
}

// SecretImgObjective mirrors KnownImgObjective but withholds its zone until
// the operator assigns one at runtime via ScheduleSecretObjective.
type SecretImgObjective struct {
	ID               int
	Name             string
	Start, End       time.Time
	Lens             orbit.Lens
	CoverageRequired float64
}

// Assign converts a secret objective into a known one once the operator has
// supplied coordinates.
func (s SecretImgObjective) Assign(zone Zone) KnownImgObjective {
	return KnownImgObjective{
		ID:               s.ID,
		Name:             s.Name,
		Start:            s.Start,
		End:              s.End,
		Zone:             zone,
		Lens:             s.Lens,
		CoverageRequired: s.CoverageRequired,
	}
}

// BeaconObjective is a stationary-beacon localization task in progress.
type BeaconObjective struct {
	ID           int
	Name         string
	Start, End   time.Time
	Measurements *BayesianSetRef
}

// BayesianSetRef is a narrow indirection so this package doesn't need to
// import internal/beacon just to hold a pointer to its BayesianSet; the
// beacon controller sets this field directly since it owns the concrete
// type.
type BayesianSetRef struct {
	Ptr any
}

// BeaconObjectiveDone records the final submission outcome for a beacon
// objective that has left the active set.
type BeaconObjectiveDone struct {
	Objective BeaconObjective
	Guesses   [][2]int
	Submitted bool
}

// ByEndAscending sorts known-image objectives by End, earliest first —
// spec.md's "priority: earlier end wins" ordering.
type ByEndAscending []KnownImgObjective

func (b ByEndAscending) Len() int           { return len(b) }
func (b ByEndAscending) Less(i, j int) bool { return b[i].End.Before(b[j].End) }
func (b ByEndAscending) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

// BeaconsByEndAscending sorts beacon objectives by End, earliest first.
type BeaconsByEndAscending []BeaconObjective

func (b BeaconsByEndAscending) Len() int           { return len(b) }
func (b BeaconsByEndAscending) Less(i, j int) bool { return b[i].End.Before(b[j].End) }
func (b BeaconsByEndAscending) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }
