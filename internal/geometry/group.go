package geometry

import "sort"

// DefaultGroupTolerance is the proximity tolerance, in pixels, used when
// grouping marks into rows or columns at native resolution.
const DefaultGroupTolerance = 20.0

// Axis selects the coordinate used for grouping.
type Axis int

const (
	// AxisX groups points into columns.
	AxisX Axis = iota
	// AxisY groups points into rows.
	AxisY
)

func (a Axis) of(p Point) float64 {
	if a == AxisX {
		return p.X
	}
	return p.Y
}

// ScaleTolerance scales a tolerance measured at nativeSize to an image of
// actualSize pixels along the same axis. A non-positive nativeSize returns
// base unchanged.
func ScaleTolerance(base float64, nativeSize, actualSize int) float64 {
	if nativeSize <= 0 || actualSize <= 0 {
		return base
	}
	return base * float64(actualSize) / float64(nativeSize)
}

// GroupByProximity clusters points whose coordinate on axis lies within
// tolerance of the running mean of the current cluster.
//
// Points are visited in ascending order of that coordinate (ties broken by the
// other coordinate, then input order), so the result is deterministic. Groups
// are returned in ascending order and each group keeps the visit order.
func GroupByProximity(points []Point, axis Axis, tolerance float64) [][]Point {
	if len(points) == 0 {
		return nil
	}

	other := AxisY
	if axis == AxisY {
		other = AxisX
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		ai, aj := axis.of(sorted[i]), axis.of(sorted[j])
		if ai != aj {
			return ai < aj
		}
		return other.of(sorted[i]) < other.of(sorted[j])
	})

	var groups [][]Point
	current := []Point{sorted[0]}
	mean := axis.of(sorted[0])

	for _, p := range sorted[1:] {
		v := axis.of(p)
		if v-mean > tolerance {
			groups = append(groups, current)
			current = []Point{p}
			mean = v
			continue
		}
		current = append(current, p)
		mean += (v - mean) / float64(len(current))
	}
	return append(groups, current)
}
