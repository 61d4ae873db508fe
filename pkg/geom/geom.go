// Package geom provides the integer and floating-point geometry primitives
// shared by the viewport, surface, and compositor packages.
//
// Integer types describe document and pixel-space layout results. Float types
// carry anchors and scroll targets through scale transforms before they are
// rounded back to the integer grid.
package geom

import (
	"fmt"
	"math"
)

// Point is an integer position.
type Point struct {
	X int `json:"x" yaml:"x" cbor:"x"`
	Y int `json:"y" yaml:"y" cbor:"y"`
}

// Size is an integer extent.
type Size struct {
	Width  int `json:"width" yaml:"width" cbor:"w"`
	Height int `json:"height" yaml:"height" cbor:"h"`
}

// Rect is an integer rectangle anchored at its top-left corner.
type Rect struct {
	X      int `json:"x" yaml:"x" cbor:"x"`
	Y      int `json:"y" yaml:"y" cbor:"y"`
	Width  int `json:"width" yaml:"width" cbor:"w"`
	Height int `json:"height" yaml:"height" cbor:"h"`
}

// FloatPoint is a position that has not been rounded to the integer grid.
type FloatPoint struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// FloatRect is a rectangle that has not been rounded to the integer grid.
type FloatRect struct {
	X, Y, Width, Height float64
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y int) Point { return Point{X: x, Y: y} }

// Sz is shorthand for Size{w, h}.
func Sz(w, h int) Size { return Size{Width: w, Height: h} }

// R is shorthand for Rect{x, y, w, h}.
func R(x, y, w, h int) Rect { return Rect{X: x, Y: y, Width: w, Height: h} }

func (p Point) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }
func (s Size) String() string  { return fmt.Sprintf("%dx%d", s.Width, s.Height) }
func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d %dx%d]", r.X, r.Y, r.Width, r.Height)
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Float converts p to a FloatPoint.
func (p Point) Float() FloatPoint { return FloatPoint{X: float64(p.X), Y: float64(p.Y)} }

// IsEmpty reports whether either dimension is non-positive.
func (s Size) IsEmpty() bool { return s.Width <= 0 || s.Height <= 0 }

// Area returns width*height, computed in float64 to avoid int overflow on
// large documents.
func (s Size) Area() float64 { return float64(s.Width) * float64(s.Height) }

// ExpandedTo returns the component-wise maximum of s and o.
func (s Size) ExpandedTo(o Size) Size {
	return Size{Width: max(s.Width, o.Width), Height: max(s.Height, o.Height)}
}

// ShrunkTo returns the component-wise minimum of s and o.
func (s Size) ShrunkTo(o Size) Size {
	return Size{Width: min(s.Width, o.Width), Height: min(s.Height, o.Height)}
}

// Size returns the extent of r.
func (r Rect) Size() Size { return Size{Width: r.Width, Height: r.Height} }

// Location returns the top-left corner of r.
func (r Rect) Location() Point { return Point{X: r.X, Y: r.Y} }

// MaxX returns the right edge of r.
func (r Rect) MaxX() int { return r.X + r.Width }

// MaxY returns the bottom edge of r.
func (r Rect) MaxY() int { return r.Y + r.Height }

// IsEmpty reports whether r has no area.
func (r Rect) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Area returns the area of r in float64.
func (r Rect) Area() float64 { return r.Size().Area() }

// Center returns the integer center of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.MaxX() && p.Y >= r.Y && p.Y < r.MaxY()
}

// Intersects reports whether r and o overlap. Empty rectangles never intersect.
func (r Rect) Intersects(o Rect) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.X < o.MaxX() && o.X < r.MaxX() && r.Y < o.MaxY() && o.Y < r.MaxY()
}

// Intersect returns the overlap of r and o, or the zero Rect.
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.MaxX(), o.MaxX()), min(r.MaxY(), o.MaxY())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Float converts r to a FloatRect.
func (r Rect) Float() FloatRect {
	return FloatRect{X: float64(r.X), Y: float64(r.Y), Width: float64(r.Width), Height: float64(r.Height)}
}

// Round rounds each coordinate to the nearest integer.
func (p FloatPoint) Round() Point {
	return Point{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
}

// Contains reports whether p lies inside r.
func (r FloatRect) Contains(p FloatPoint) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Scale multiplies every component of r by s.
func (r FloatRect) Scale(s float64) FloatRect {
	return FloatRect{X: r.X * s, Y: r.Y * s, Width: r.Width * s, Height: r.Height * s}
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b Point) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
