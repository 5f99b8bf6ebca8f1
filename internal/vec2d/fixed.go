// Package vec2d implements fixed-point 2D geometry on the toroidal map that
// MELVIN plans and flies over. Every position and velocity in the rest of
// the core passes through here first.
package vec2d

import "math"

// fixedScale is the 32.32 fixed-point scale factor: 2^32 fractional steps
// per integer unit. Using an int64-backed fraction keeps positional math
// free of the float drift that would otherwise creep in between the
// planner and the simulator over a multi-hour mission.
const fixedScale = 1 << 32

// Fixed is a 32.32 fixed-point scalar stored as a scaled int64.
type Fixed int64

// FromFloat converts a float64 to Fixed.
func FromFloat(f float64) Fixed {
	return Fixed(math.Round(f * fixedScale))
}

// Float returns the float64 value of f.
func (f Fixed) Float() float64 {
	return float64(f) / fixedScale
}

// Trunc2 truncates f toward zero to two decimal places, matching the
// velocity-quantization contract with the simulator. It returns only the
// truncated value; TruncVel in the flightcomputer package computes the
// residual.
func (f Fixed) Trunc2() Fixed {
	truncated := math.Trunc(f.Float()*100) / 100
	return FromFloat(truncated)
}

// Add, Sub, Mul and Div operate directly on the scaled representation.
func (f Fixed) Add(g Fixed) Fixed { return f + g }
func (f Fixed) Sub(g Fixed) Fixed { return f - g }

func (f Fixed) Mul(g Fixed) Fixed {
	return Fixed((int64(f) >> 16) * (int64(g) >> 16))
}

func (f Fixed) Div(g Fixed) Fixed {
	if g == 0 {
		return 0
	}
	return FromFloat(f.Float() / g.Float())
}

func (f Fixed) Abs() Fixed {
	if f < 0 {
		return -f
	}
	return f
}
