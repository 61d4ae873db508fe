package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectContains(t *testing.T) {
	r := R(10, 20, 100, 50)

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"top left corner", Pt(10, 20), true},
		{"inside", Pt(50, 40), true},
		{"right edge is exclusive", Pt(110, 40), false},
		{"bottom edge is exclusive", Pt(50, 70), false},
		{"left of rect", Pt(9, 40), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Contains(tt.p))
		})
	}
}

func TestRectIntersect(t *testing.T) {
	tests := []struct {
		name       string
		a, b       Rect
		want       Rect
		intersects bool
	}{
		{"overlap", R(0, 0, 100, 100), R(50, 25, 100, 100), R(50, 25, 50, 75), true},
		{"contained", R(0, 0, 100, 100), R(10, 10, 20, 20), R(10, 10, 20, 20), true},
		{"touching edges", R(0, 0, 100, 100), R(100, 0, 10, 10), Rect{}, false},
		{"disjoint", R(0, 0, 10, 10), R(50, 50, 10, 10), Rect{}, false},
		{"empty operand", R(0, 0, 100, 100), R(10, 10, 0, 10), Rect{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Intersect(tt.b))
			assert.Equal(t, tt.intersects, tt.a.Intersects(tt.b))
			assert.Equal(t, tt.intersects, tt.b.Intersects(tt.a))
		})
	}
}

func TestSizeHelpers(t *testing.T) {
	a, b := Sz(320, 480), Sz(980, 200)

	assert.Equal(t, Sz(980, 480), a.ExpandedTo(b))
	assert.Equal(t, Sz(320, 200), a.ShrunkTo(b))
	assert.Equal(t, 153600.0, a.Area())
	assert.True(t, Sz(0, 10).IsEmpty())
	assert.True(t, Sz(10, -1).IsEmpty())
	assert.False(t, a.IsEmpty())

	// Area does not overflow int32 ranges on large documents.
	assert.Equal(t, 4e10, Sz(200000, 200000).Area())
}

func TestRectAccessors(t *testing.T) {
	r := R(10, 20, 101, 51)

	assert.Equal(t, Pt(10, 20), r.Location())
	assert.Equal(t, Sz(101, 51), r.Size())
	assert.Equal(t, 111, r.MaxX())
	assert.Equal(t, 71, r.MaxY())
	assert.Equal(t, Pt(60, 45), r.Center())
	assert.Equal(t, "[10,20 101x51]", r.String())
}

func TestFloatConversions(t *testing.T) {
	assert.Equal(t, FloatPoint{X: 3, Y: -4}, Pt(3, -4).Float())
	assert.Equal(t, Pt(2, -3), FloatPoint{X: 1.5, Y: -2.6}.Round())

	fr := R(10, 10, 20, 40).Float().Scale(0.5)
	assert.Equal(t, FloatRect{X: 5, Y: 5, Width: 10, Height: 20}, fr)
	assert.True(t, fr.Contains(FloatPoint{X: 5, Y: 24.9}))
	assert.False(t, fr.Contains(FloatPoint{X: 15, Y: 10}))
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 5.0, Distance(Pt(0, 0), Pt(3, 4)))
	assert.Equal(t, 0.0, Distance(Pt(7, 7), Pt(7, 7)))
	assert.Equal(t, Pt(4, 6), Pt(1, 2).Add(Pt(3, 4)))
}
