package geometry

import (
	"fmt"
	"image"
	"math"
)

// Point represents a 2D point with floating-point pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(other Point) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Add returns the sum of two points.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point) Scale(factor float64) Point {
	return Point{X: p.X * factor, Y: p.Y * factor}
}

// Rect is an axis-aligned rectangle. (X, Y) is the top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewRect creates a Rect, rejecting negative or non-finite dimensions.
func NewRect(x, y, width, height float64) (Rect, error) {
	if width < 0 || height < 0 {
		return Rect{}, fmt.Errorf("invalid rectangle size %.2fx%.2f: width and height must not be negative", width, height)
	}
	for _, v := range []float64{x, y, width, height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Rect{}, fmt.Errorf("invalid rectangle: non-finite component")
		}
	}
	return Rect{X: x, Y: y, Width: width, Height: height}, nil
}

// RectFromImage converts image bounds to a Rect.
func RectFromImage(r image.Rectangle) Rect {
	return Rect{
		X:      float64(r.Min.X),
		Y:      float64(r.Min.Y),
		Width:  float64(r.Dx()),
		Height: float64(r.Dy()),
	}
}

// Contains returns true if the point is inside the rectangle (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Area returns Width × Height.
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Pad grows the rectangle by margin on every side. A negative margin shrinks
// it; the result never has negative dimensions.
func (r Rect) Pad(margin float64) Rect {
	out := Rect{
		X:      r.X - margin,
		Y:      r.Y - margin,
		Width:  r.Width + 2*margin,
		Height: r.Height + 2*margin,
	}
	if out.Width < 0 {
		out.X += out.Width / 2
		out.Width = 0
	}
	if out.Height < 0 {
		out.Y += out.Height / 2
		out.Height = 0
	}
	return out
}

// Image returns the integer pixel rectangle covering r, clipped to bounds.
// The result is empty when r lies entirely outside bounds.
func (r Rect) Image(bounds image.Rectangle) image.Rectangle {
	ir := image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)),
		int(math.Ceil(r.Y+r.Height)),
	)
	return ir.Intersect(bounds)
}

// Quad is a quadrilateral ordered [top-left, top-right, bottom-left, bottom-right].
type Quad [4]Point

// Corner indices into a Quad.
const (
	TopLeft = iota
	TopRight
	BottomLeft
	BottomRight
)

// Bounds returns the axis-aligned bounding box of the quadrilateral.
func (q Quad) Bounds() Rect {
	return BoundingRect(q[:])
}

// Area returns the area of the quadrilateral traversed TL→TR→BR→BL.
func (q Quad) Area() float64 {
	return PolygonArea([]Point{q[TopLeft], q[TopRight], q[BottomRight], q[BottomLeft]})
}
