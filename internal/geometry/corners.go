package geometry

import "fmt"

// OrderCorners arranges four unordered points into a Quad.
//
// For each point it computes sum = x+y and diff = y-x. The minimum sum is the
// top-left corner, the maximum sum the bottom-right, the minimum diff the
// top-right and the maximum diff the bottom-left. Ties go to the point that
// appears first in the input, which keeps the result deterministic.
//
// An error is returned when the rule assigns one point to two corners, which
// only happens for degenerate input (repeated points, or a square rotated by
// exactly 45°).
func OrderCorners(points [4]Point) (Quad, error) {
	minSum, maxSum, minDiff, maxDiff := 0, 0, 0, 0
	for i := 1; i < 4; i++ {
		p := points[i]
		sum, diff := p.X+p.Y, p.Y-p.X
		if sum < points[minSum].X+points[minSum].Y {
			minSum = i
		}
		if sum > points[maxSum].X+points[maxSum].Y {
			maxSum = i
		}
		if diff < points[minDiff].Y-points[minDiff].X {
			minDiff = i
		}
		if diff > points[maxDiff].Y-points[maxDiff].X {
			maxDiff = i
		}
	}

	seen := map[int]bool{}
	for _, idx := range []int{minSum, minDiff, maxDiff, maxSum} {
		if seen[idx] {
			return Quad{}, fmt.Errorf("degenerate quadrilateral: point %d claims two corners", idx)
		}
		seen[idx] = true
	}

	var q Quad
	q[TopLeft] = points[minSum]
	q[TopRight] = points[minDiff]
	q[BottomLeft] = points[maxDiff]
	q[BottomRight] = points[maxSum]
	return q, nil
}

// RectCorners returns the corners of r as a Quad. The right and bottom edges
// are taken at Width-1 and Height-1 so that the corners address the last
// pixel row and column of an image of that size.
func RectCorners(r Rect) Quad {
	right := r.X + r.Width - 1
	bottom := r.Y + r.Height - 1
	return Quad{
		{X: r.X, Y: r.Y},
		{X: right, Y: r.Y},
		{X: r.X, Y: bottom},
		{X: right, Y: bottom},
	}
}
