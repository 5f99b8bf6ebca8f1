package beacon

import (
	"math"
	"math/rand"

	"github.com/ciaryc/melvin/internal/vec2d"
)

// generateHexGrid lays out candidate centers at spacing
// HexPackSpacing*HexSpacingFactor across slice, using the standard
// hexagonal row offset.
func generateHexGrid(slice SquareSlice) []vec2d.Vec2D {
	spacing := HexPackSpacing * HexSpacingFactor
	rowHeight := spacing * math.Sqrt(3) / 2

	var centers []vec2d.Vec2D
	row := 0
	for y := slice.Offset.Yf(); y <= slice.Offset.Yf()+slice.SideLength; y += rowHeight {
		xOffset := 0.0
		if row%2 == 1 {
			xOffset = spacing / 2
		}
		for x := slice.Offset.Xf() + xOffset; x <= slice.Offset.Xf()+slice.SideLength; x += spacing {
			centers = append(centers, vec2d.New(x, y))
		}
		row++
	}
	return centers
}

// PackPerfectCircles generates a hex grid of candidate centers over the
// set's current slice, assigns each point to up to 6 nearest centers
// within HexPackSpacing, then greedily selects centers in decreasing
// coverage order until every point is covered.
func (b *BayesianSet) PackPerfectCircles() []vec2d.Vec2D {
	if len(b.Points) == 0 {
		return nil
	}

	centers := generateHexGrid(b.CurrSlice)
	coverage := make([][]int, len(centers))

	points := make([]vec2d.Vec2D, 0, len(b.Points))
	for p := range b.Points {
		points = append(points, vec2d.New(float64(p[0]), float64(p[1])))
	}

	for pi, p := range points {
		type cand struct {
			idx int
			d   float64
		}
		var nearest []cand
		for ci, c := range centers {
			d := c.UnwrappedTo(p).AbsF()
			if d <= HexPackSpacing {
				nearest = append(nearest, cand{ci, d})
			}
		}
		// keep up to 6 nearest, per the original's hex-packing rule.
		for len(nearest) > 6 {
			worst := 0
			for i, n := range nearest {
				if n.d > nearest[worst].d {
					worst = i
				}
			}
			nearest = append(nearest[:worst], nearest[worst+1:]...)
		}
		for _, n := range nearest {
			coverage[n.idx] = append(coverage[n.idx], pi)
		}
	}

	covered := make(map[int]bool, len(points))
	var selected []vec2d.Vec2D

	for len(covered) < len(points) {
		best := -1
		bestNew := 0
		for ci, pts := range coverage {
			newCount := 0
			for _, pi := range pts {
				if !covered[pi] {
					newCount++
				}
			}
			if newCount > bestNew {
				bestNew = newCount
				best = ci
			}
		}
		if best < 0 || bestNew == 0 {
			break
		}
		selected = append(selected, centers[best])
		for _, pi := range coverage[best] {
			covered[pi] = true
		}
	}

	return selected
}

// RandomSpreadGuesses returns n well-separated random points (at least
// HexPackSpacing apart) across the map, used when a beacon's candidate set
// is empty and MELVIN must still submit something before the deadline.
func RandomSpreadGuesses(n int, rng *rand.Rand) []vec2d.Vec2D {
	var out []vec2d.Vec2D
	for attempts := 0; len(out) < n && attempts < n*200; attempts++ {
		p := vec2d.New(rng.Float64()*vec2d.MapWidth, rng.Float64()*vec2d.MapHeight)
		ok := true
		for _, o := range out {
			if p.UnwrappedTo(o).AbsF() < HexPackSpacing {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, p)
		}
	}
	return out
}
