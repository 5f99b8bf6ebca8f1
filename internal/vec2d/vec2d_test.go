package vec2d

import "testing"

func TestWrapAroundMapStaysInBounds(t *testing.T) {
	cases := []Vec2D{
		New(-5, -5),
		New(MapWidth+10, MapHeight+10),
		New(MapWidth*3+1, 0),
		New(0, 0),
	}
	for _, v := range cases {
		w := v.WrapAroundMap()
		if w.Xf() < 0 || w.Xf() >= MapWidth {
			t.Fatalf("x out of bounds: %v -> %v", v, w)
		}
		if w.Yf() < 0 || w.Yf() >= MapHeight {
			t.Fatalf("y out of bounds: %v -> %v", v, w)
		}
	}
}

func TestUnwrappedToIsShortestAcrossWrap(t *testing.T) {
	p := New(10, 10)
	q := New(MapWidth-10, 10)
	d := p.UnwrappedTo(q)
	// going the other way around is only 20 units, not MapWidth-20.
	if d.AbsF() > 25 {
		t.Fatalf("expected short wrap distance, got %v (mag %v)", d, d.AbsF())
	}
}

func TestAngleToRange(t *testing.T) {
	v := New(1, 0)
	cases := []Vec2D{New(0, 1), New(-1, 0), New(0, -1), New(1, 1)}
	for _, o := range cases {
		a := v.AngleTo(o)
		if a < -180 || a > 180 {
			t.Fatalf("angle out of [-180,180]: %v", a)
		}
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	z := Zero().Normalize()
	if z.Xf() != 0 || z.Yf() != 0 {
		t.Fatalf("expected zero vector to normalize to zero, got %v", z)
	}
}
