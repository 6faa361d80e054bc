package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 projective transform stored row-major with H[8] == 1.
//
//	[h0 h1 h2]
//	[h3 h4 h5]
//	[h6 h7  1]
type Homography [9]float64

// Identity returns the identity transform.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// PerspectiveTransform computes the homography mapping each src corner onto
// the corresponding dst corner.
//
// The eight unknowns are found by solving the linear system built from the
// four correspondences:
//
//	u = (h0 x + h1 y + h2) / (h6 x + h7 y + 1)
//	v = (h3 x + h4 y + h5) / (h6 x + h7 y + 1)
//
// An error is returned when the system is singular, i.e. three or more of the
// source points are collinear.
func PerspectiveTransform(src, dst Quad) (Homography, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y

		a.SetRow(2*i, []float64{x, y, 1, 0, 0, 0, -x * u, -y * u})
		b.SetVec(2*i, u)

		a.SetRow(2*i+1, []float64{0, 0, 0, x, y, 1, -x * v, -y * v})
		b.SetVec(2*i+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return Homography{}, fmt.Errorf("failed to solve perspective transform: %w", err)
	}

	var out Homography
	for i := 0; i < 8; i++ {
		out[i] = h.AtVec(i)
	}
	out[8] = 1
	return out, nil
}

// Apply maps a point through the transform.
func (h Homography) Apply(p Point) Point {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if w == 0 {
		w = 1e-12
	}
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}
