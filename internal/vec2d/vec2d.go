package vec2d

import "math"

// MapWidth and MapHeight are the toroidal map dimensions in map units.
// The map is a flat wrapped rectangle; MELVIN never does geodesic math.
const (
	MapWidth  = 21600.0
	MapHeight = 10800.0
)

// Vec2D is a fixed-point 2D vector used for every position and velocity
// throughout the core.
type Vec2D struct {
	X, Y Fixed
}

// New builds a Vec2D from float64 components.
func New(x, y float64) Vec2D {
	return Vec2D{X: FromFloat(x), Y: FromFloat(y)}
}

// Zero is the origin vector.
func Zero() Vec2D { return Vec2D{} }

// MapSize returns the map dimensions as a Vec2D.
func MapSize() Vec2D { return New(MapWidth, MapHeight) }

func (v Vec2D) Xf() float64 { return v.X.Float() }
func (v Vec2D) Yf() float64 { return v.Y.Float() }

// Add returns the componentwise sum, without any wrap applied.
func (v Vec2D) Add(o Vec2D) Vec2D { return Vec2D{v.X.Add(o.X), v.Y.Add(o.Y)} }

// Sub returns the raw componentwise difference v-o, without wrap. To is the
// same subtraction with the operands swapped (v.To(o) == o.Sub(v)), kept
// for readability at call sites.
func (v Vec2D) Sub(o Vec2D) Vec2D { return Vec2D{v.X.Sub(o.X), v.Y.Sub(o.Y)} }

// To returns the raw subtract-without-wrap delta to other.
func (v Vec2D) To(other Vec2D) Vec2D { return other.Sub(v) }

// Scale multiplies both components by a scalar.
func (v Vec2D) Scale(s float64) Vec2D {
	return New(v.Xf()*s, v.Yf()*s)
}

func wrapCoordinate(value, max float64) float64 {
	r := math.Mod(value, max)
	if r < 0 {
		r += max
	}
	return r
}

// WrapAroundMap reduces v into [0, MapWidth) x [0, MapHeight).
func (v Vec2D) WrapAroundMap() Vec2D {
	return New(wrapCoordinate(v.Xf(), MapWidth), wrapCoordinate(v.Yf(), MapHeight))
}

// UnwrappedTo returns the minimum-magnitude delta to other across the nine
// toroidal images of other (the point itself, and its shifts by ±MapWidth
// and/or ±MapHeight).
func (v Vec2D) UnwrappedTo(other Vec2D) Vec2D {
	best := other.Sub(v)
	bestMag := best.Abs()
	candidates := []Vec2D{
		New(other.Xf()-MapWidth, other.Yf()),
		New(other.Xf()+MapWidth, other.Yf()),
		New(other.Xf(), other.Yf()-MapHeight),
		New(other.Xf(), other.Yf()+MapHeight),
		New(other.Xf()-MapWidth, other.Yf()-MapHeight),
		New(other.Xf()-MapWidth, other.Yf()+MapHeight),
		New(other.Xf()+MapWidth, other.Yf()-MapHeight),
		New(other.Xf()+MapWidth, other.Yf()+MapHeight),
	}
	for _, c := range candidates {
		d := c.Sub(v)
		if d.Abs() < bestMag {
			best = d
			bestMag = d.Abs()
		}
	}
	return best
}

// Abs returns the Euclidean magnitude as a Fixed.
func (v Vec2D) Abs() Fixed { return FromFloat(math.Hypot(v.Xf(), v.Yf())) }

// AbsF returns the Euclidean magnitude as a float64.
func (v Vec2D) AbsF() float64 { return math.Hypot(v.Xf(), v.Yf()) }

// EuclidDistance returns the raw (unwrapped) Euclidean distance to other.
func (v Vec2D) EuclidDistance(other Vec2D) float64 {
	return v.Sub(other).AbsF()
}

// Dot returns the dot product of v and o.
func (v Vec2D) Dot(o Vec2D) float64 {
	return v.Xf()*o.Xf() + v.Yf()*o.Yf()
}

// Normalize returns a unit vector in the direction of v, or the zero vector
// if v has zero magnitude.
func (v Vec2D) Normalize() Vec2D {
	m := v.AbsF()
	if m == 0 {
		return Zero()
	}
	return New(v.Xf()/m, v.Yf()/m)
}

// RotateBy rotates v by angleDegrees (signed, counter-clockwise positive).
func (v Vec2D) RotateBy(angleDegrees float64) Vec2D {
	rad := angleDegrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	return New(v.Xf()*cos-v.Yf()*sin, v.Xf()*sin+v.Yf()*cos)
}

// PerpUnit returns a unit vector perpendicular to v, rotated clockwise if
// clockwise is true, counter-clockwise otherwise.
func (v Vec2D) PerpUnit(clockwise bool) Vec2D {
	u := v.Normalize()
	if clockwise {
		return New(u.Yf(), -u.Xf())
	}
	return New(-u.Yf(), u.Xf())
}

// AngleTo returns the signed angle in degrees, in [-180, 180], from v to
// other.
func (v Vec2D) AngleTo(other Vec2D) float64 {
	a1 := math.Atan2(v.Yf(), v.Xf())
	a2 := math.Atan2(other.Yf(), other.Xf())
	d := (a2 - a1) * 180 / math.Pi
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	return d
}

// IsClockwiseTo reports whether other lies clockwise of v (i.e. the signed
// angle from v to other is negative).
func (v Vec2D) IsClockwiseTo(other Vec2D) bool {
	return v.AngleTo(other) < 0
}

// InRadiusOf reports whether the unwrapped distance between v and other is
// within rad.
func (v Vec2D) InRadiusOf(other Vec2D, rad float64) bool {
	return v.UnwrappedTo(other).AbsF() <= rad
}

// Cast rounds both components to the nearest integer pair, used when
// building the integer lattice of candidate beacon positions.
func (v Vec2D) Cast() (int, int) {
	return int(math.Round(v.Xf())), int(math.Round(v.Yf()))
}
