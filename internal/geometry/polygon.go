package geometry

import (
	"math"
	"sort"
)

// PolygonArea returns the absolute area of a simple polygon using the shoelace formula.
func PolygonArea(points []Point) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return math.Abs(sum) / 2
}

// Perimeter returns the length of the closed polygon through points.
func Perimeter(points []Point) float64 {
	n := len(points)
	if n < 2 {
		return 0
	}
	var total float64
	for i := 0; i < n; i++ {
		total += points[i].Distance(points[(i+1)%n])
	}
	return total
}

// BoundingRect returns the smallest axis-aligned rectangle containing all points.
func BoundingRect(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Centroid returns the arithmetic mean of the points.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return Point{X: sx / n, Y: sy / n}
}

// ConvexHull returns the convex hull of points in counter-clockwise order
// (clockwise on screen, since Y grows downward). Collinear points are dropped.
//
// Uses Andrew's monotone chain; the input slice is not modified.
func ConvexHull(points []Point) []Point {
	if len(points) < 3 {
		out := make([]Point, len(points))
		copy(out, points)
		return out
	}

	pts := make([]Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X == pts[j].X {
			return pts[i].Y < pts[j].Y
		}
		return pts[i].X < pts[j].X
	})

	cross := func(o, a, b Point) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// SimplifyClosed approximates a closed polygon with fewer vertices using the
// Douglas-Peucker algorithm. Vertices closer than epsilon to the simplified
// outline are removed.
//
// The ring is split at a pair of mutually distant vertices, so the result
// does not depend on which vertex the input starts at.
func SimplifyClosed(points []Point, epsilon float64) []Point {
	n := len(points)
	if n <= 3 {
		out := make([]Point, n)
		copy(out, points)
		return out
	}

	start, far := splitPair(points)
	if start == far {
		return []Point{points[start]}
	}
	if start > far {
		start, far = far, start
	}

	first := simplifyOpen(points[start:far+1], epsilon)
	ring := make([]Point, 0, n-(far-start)+1)
	ring = append(ring, points[far:]...)
	ring = append(ring, points[:start+1]...)
	second := simplifyOpen(ring, epsilon)

	// Both chains share their endpoints; drop the duplicates.
	out := make([]Point, 0, len(first)+len(second))
	out = append(out, first[:len(first)-1]...)
	out = append(out, second[:len(second)-1]...)
	return out
}

// splitPair walks from vertex 0 to its farthest vertex and back a few times,
// settling on two vertices that are each the other's farthest.
func splitPair(points []Point) (int, int) {
	a := 0
	b := farthestFrom(points, a)
	for i := 0; i < 3; i++ {
		next := farthestFrom(points, b)
		if next == a {
			break
		}
		a, b = b, next
	}
	return a, b
}

func farthestFrom(points []Point, from int) int {
	best := from
	var bestDist float64
	for i, p := range points {
		if d := points[from].Distance(p); d > bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// SquareCorners replaces short edges cut across a corner with the point where
// their neighbouring edges meet. An edge is treated as a cut corner when it is
// shorter than maxFraction of the polygon perimeter and the neighbouring lines
// intersect within twice its length of both its ends. Polygons never drop
// below three vertices.
func SquareCorners(points []Point, maxFraction float64) []Point {
	out := make([]Point, len(points))
	copy(out, points)

	for len(out) > 3 {
		n := len(out)
		limit := maxFraction * Perimeter(out)
		best := -1
		var bestLen float64
		var bestCorner Point
		for i := 0; i < n; i++ {
			p, q := out[i], out[(i+1)%n]
			length := p.Distance(q)
			if length >= limit || (best >= 0 && length >= bestLen) {
				continue
			}
			corner, ok := lineIntersection(out[(i+n-1)%n], p, q, out[(i+2)%n])
			if !ok || corner.Distance(p) > 2*length || corner.Distance(q) > 2*length {
				continue
			}
			best, bestLen, bestCorner = i, length, corner
		}
		if best < 0 {
			break
		}

		next := (best + 1) % n
		out[best] = bestCorner
		out = append(out[:next], out[next+1:]...)
	}
	return out
}

// lineIntersection returns where the line through a1 and a2 meets the line
// through b1 and b2.
func lineIntersection(a1, a2, b1, b2 Point) (Point, bool) {
	r := a2.Sub(a1)
	s := b2.Sub(b1)
	denom := r.X*s.Y - r.Y*s.X
	if math.Abs(denom) < 1e-9 {
		return Point{}, false
	}
	d := b1.Sub(a1)
	t := (d.X*s.Y - d.Y*s.X) / denom
	return a1.Add(r.Scale(t)), true
}

func simplifyOpen(points []Point, epsilon float64) []Point {
	if len(points) < 3 {
		return points
	}
	a, b := points[0], points[len(points)-1]
	idx := 0
	var maxDist float64
	for i := 1; i < len(points)-1; i++ {
		if d := segmentDistance(points[i], a, b); d > maxDist {
			idx, maxDist = i, d
		}
	}
	if maxDist <= epsilon {
		return []Point{a, b}
	}
	left := simplifyOpen(points[:idx+1], epsilon)
	right := simplifyOpen(points[idx:], epsilon)
	out := make([]Point, 0, len(left)+len(right)-1)
	out = append(out, left[:len(left)-1]...)
	return append(out, right...)
}

// segmentDistance returns the distance from p to the segment ab.
func segmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return p.Distance(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return p.Distance(Point{X: a.X + t*dx, Y: a.Y + t*dy})
}
