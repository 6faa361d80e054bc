package omr

import (
	"fmt"
	"math"

	"github.com/ironsheep/bubble-sheet-mcp/internal/geometry"
	"github.com/ironsheep/bubble-sheet-mcp/internal/vision"
)

// MarkerKind distinguishes square corner marks from elongated edge marks.
type MarkerKind string

const (
	CornerMarker MarkerKind = "corner"
	EdgeMarker   MarkerKind = "edge"
)

// Marker is a printed reference mark found on the input image.
type Marker struct {
	Center geometry.Point `json:"center"`
	Bounds geometry.Rect  `json:"bounds"`
	Area   float64        `json:"area"`
	Kind   MarkerKind     `json:"kind"`
}

// DetectMarkers finds dark, solid, roughly rectangular marks in gray.
//
// Candidates must fall within the configured area and aspect ranges and
// fill most of their bounding box. Marks split by noise into fragments
// closer than the grouping tolerance are merged back into one.
func DetectMarkers(backend vision.Backend, gray vision.Mat, opts Options) ([]Marker, error) {
	bin, err := backend.ThresholdInverse(gray, opts.DarkLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to binarise image: %w", err)
	}
	defer bin.Close()

	contours, err := backend.FindContours(bin)
	if err != nil {
		return nil, fmt.Errorf("failed to find marker contours: %w", err)
	}

	var candidates []Marker
	for _, c := range contours {
		box := geometry.BoundingRect(c)
		if box.Width <= 0 || box.Height <= 0 {
			continue
		}
		area := c.Area()
		if area < opts.MarkerMinArea || area > opts.MarkerMaxArea {
			continue
		}
		aspect := box.Width / box.Height
		if aspect < opts.MarkerMinAspect || aspect > opts.MarkerMaxAspect {
			continue
		}
		if area/box.Area() < opts.MarkerMinFill {
			continue
		}

		kind := EdgeMarker
		if math.Abs(math.Log(aspect)) <= math.Log(1+opts.CornerAspectTolerance) {
			kind = CornerMarker
		}
		candidates = append(candidates, Marker{
			Center: box.Center(),
			Bounds: box,
			Area:   area,
			Kind:   kind,
		})
	}

	b := gray.Bounds()
	tol := geometry.ScaleTolerance(geometry.DefaultGroupTolerance, opts.CanonicalWidth, b.Dx())
	return mergeMarkers(candidates, tol), nil
}

// mergeMarkers clusters candidates into columns, then rows within each
// column, and collapses every cluster into one area-weighted marker.
func mergeMarkers(candidates []Marker, tolerance float64) []Marker {
	if len(candidates) == 0 {
		return nil
	}

	byCenter := make(map[geometry.Point][]Marker, len(candidates))
	centers := make([]geometry.Point, 0, len(candidates))
	for _, m := range candidates {
		if _, ok := byCenter[m.Center]; !ok {
			centers = append(centers, m.Center)
		}
		byCenter[m.Center] = append(byCenter[m.Center], m)
	}

	var merged []Marker
	for _, column := range geometry.GroupByProximity(centers, geometry.AxisX, tolerance) {
		for _, cell := range geometry.GroupByProximity(column, geometry.AxisY, tolerance) {
			var group []Marker
			for _, p := range cell {
				group = append(group, byCenter[p]...)
			}
			merged = append(merged, combine(group))
		}
	}
	return merged
}

func combine(group []Marker) Marker {
	if len(group) == 1 {
		return group[0]
	}
	var area, cx, cy float64
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	kind := EdgeMarker
	for _, m := range group {
		area += m.Area
		cx += m.Center.X * m.Area
		cy += m.Center.Y * m.Area
		minX = math.Min(minX, m.Bounds.X)
		minY = math.Min(minY, m.Bounds.Y)
		maxX = math.Max(maxX, m.Bounds.X+m.Bounds.Width)
		maxY = math.Max(maxY, m.Bounds.Y+m.Bounds.Height)
		if m.Kind == CornerMarker {
			kind = CornerMarker
		}
	}
	return Marker{
		Center: geometry.Pt(cx/area, cy/area),
		Bounds: geometry.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY},
		Area:   area,
		Kind:   kind,
	}
}

// CornerMarkers picks, for each image corner, the corner marker nearest to
// it within the corner zone. It fails with InsufficientMarkers unless all
// four corners are found and their quadrilateral covers enough of the image.
func CornerMarkers(markers []Marker, width, height int, opts Options) (geometry.Quad, error) {
	w, h := float64(width), float64(height)
	zoneW, zoneH := opts.CornerZone*w, opts.CornerZone*h
	corners := [4]geometry.Point{
		geometry.TopLeft:     geometry.Pt(0, 0),
		geometry.TopRight:    geometry.Pt(w, 0),
		geometry.BottomLeft:  geometry.Pt(0, h),
		geometry.BottomRight: geometry.Pt(w, h),
	}

	var picked [4]geometry.Point
	found := 0
	for i, corner := range corners {
		best := -1
		bestDist := math.Inf(1)
		for j, m := range markers {
			if m.Kind != CornerMarker {
				continue
			}
			if math.Abs(m.Center.X-corner.X) > zoneW || math.Abs(m.Center.Y-corner.Y) > zoneH {
				continue
			}
			if d := m.Center.Distance(corner); d < bestDist {
				best, bestDist = j, d
			}
		}
		if best >= 0 {
			picked[i] = markers[best].Center
			found++
		}
	}
	if found < 4 {
		return geometry.Quad{}, &AlignmentError{
			Reason: InsufficientMarkers,
			Detail: fmt.Sprintf("found %d of 4 corner markers", found),
		}
	}

	quad, err := geometry.OrderCorners(picked)
	if err != nil {
		return geometry.Quad{}, &AlignmentError{Reason: InsufficientMarkers, Err: err}
	}
	if cover := quad.Area() / (w * h); cover < opts.MinMarkerQuadFraction {
		return geometry.Quad{}, &AlignmentError{
			Reason: InsufficientMarkers,
			Detail: fmt.Sprintf("corner markers span %.0f%% of the image", cover*100),
		}
	}
	return quad, nil
}
