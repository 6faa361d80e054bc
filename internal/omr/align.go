package omr

import (
	"fmt"
	"math"

	"github.com/ironsheep/bubble-sheet-mcp/internal/geometry"
	"github.com/ironsheep/bubble-sheet-mcp/internal/logging"
	"github.com/ironsheep/bubble-sheet-mcp/internal/vision"
)

// Alignment is the outcome of locating the sheet in an image.
type Alignment struct {
	Method AlignmentMethod

	// Corners is the source quadrilateral, nil on the degraded path.
	Corners *geometry.Quad

	// Markers are the reference marks that were detected, if any.
	Markers []Marker

	// Rectified is the canonical image, owned by the caller. It is nil on
	// the degraded path, where the input image is used as is.
	Rectified vision.Mat

	// Frame is the sheet frame in the coordinates of the image bubbles are
	// measured on.
	Frame geometry.Rect

	// Errors holds the recovered failure of each strategy tried before the
	// one that succeeded.
	Errors []error
}

// Close releases the rectified image.
func (a *Alignment) Close() error {
	if a == nil || a.Rectified == nil {
		return nil
	}
	err := a.Rectified.Close()
	a.Rectified = nil
	return err
}

// Quality is the factor applied to the overall confidence.
func (m AlignmentMethod) Quality() float64 {
	switch m {
	case AlignedByMarkers:
		return 1.0
	case AlignedByContour:
		return 0.95
	}
	return 0.75
}

// Aligner rectifies answer sheets.
type Aligner struct {
	backend vision.Backend
	opts    Options
	log     *logging.Logger
}

// NewAligner returns an Aligner using backend.
func NewAligner(backend vision.Backend, opts Options, log *logging.Logger) *Aligner {
	if log == nil {
		log = logging.Nop()
	}
	return &Aligner{backend: backend, opts: opts, log: log}
}

// Align locates the sheet in gray and rectifies it.
//
// Corner markers are tried first, then the sheet outline. When both fail
// the result is the degraded alignment: no rectified image and a frame
// covering the whole input. Align never fails; the reasons are kept in
// Alignment.Errors.
func (a *Aligner) Align(gray vision.Mat) *Alignment {
	b := gray.Bounds()
	degraded := &Alignment{
		Method: AlignmentDegraded,
		Frame:  geometry.RectFromImage(b),
	}

	markers, quad, err := a.byMarkers(gray)
	degraded.Markers = markers
	if err == nil {
		al, werr := a.rectify(gray, quad, AlignedByMarkers)
		if werr == nil {
			al.Markers = markers
			return al
		}
		err = &AlignmentError{Reason: InsufficientMarkers, Err: werr}
	}
	degraded.Errors = append(degraded.Errors, err)
	a.log.Debug("marker alignment failed", "error", err)

	quad, err = a.bySheetContour(gray)
	if err == nil {
		al, werr := a.rectify(gray, quad, AlignedByContour)
		if werr == nil {
			al.Markers = markers
			al.Errors = degraded.Errors
			return al
		}
		err = &AlignmentError{Reason: NoSheetBoundaryFound, Err: werr}
	}
	degraded.Errors = append(degraded.Errors, err)
	a.log.Debug("contour alignment failed, using degraded grid", "error", err)
	return degraded
}

func (a *Aligner) byMarkers(gray vision.Mat) ([]Marker, geometry.Quad, error) {
	markers, err := DetectMarkers(a.backend, gray, a.opts)
	if err != nil {
		return nil, geometry.Quad{}, &AlignmentError{Reason: InsufficientMarkers, Err: err}
	}
	b := gray.Bounds()
	quad, err := CornerMarkers(markers, b.Dx(), b.Dy(), a.opts)
	a.log.Debug("markers detected", "candidates", len(markers), "ok", err == nil)
	return markers, quad, err
}

// bySheetContour finds the largest four-sided outline in the edge map.
func (a *Aligner) bySheetContour(gray vision.Mat) (geometry.Quad, error) {
	blurred, err := a.backend.GaussianBlur(gray, a.opts.BlurKernel, a.opts.BlurSigma)
	if err != nil {
		return geometry.Quad{}, &AlignmentError{Reason: NoSheetBoundaryFound, Err: err}
	}
	defer blurred.Close()

	edges, err := a.backend.Canny(blurred, a.opts.CannyLow, a.opts.CannyHigh)
	if err != nil {
		return geometry.Quad{}, &AlignmentError{Reason: NoSheetBoundaryFound, Err: err}
	}
	defer edges.Close()

	closed, err := a.backend.Dilate(edges, a.opts.DilateSize)
	if err != nil {
		return geometry.Quad{}, &AlignmentError{Reason: NoSheetBoundaryFound, Err: err}
	}
	defer closed.Close()

	contours, err := a.backend.FindContours(closed)
	if err != nil {
		return geometry.Quad{}, &AlignmentError{Reason: NoSheetBoundaryFound, Err: err}
	}

	b := gray.Bounds()
	minArea := math.Max(a.opts.MinContourArea, a.opts.MinSheetFraction*float64(b.Dx()*b.Dy()))

	var best vision.Contour
	var bestArea float64
	for _, c := range contours {
		if c.Area() < minArea {
			continue
		}
		approx := a.backend.ApproxPolygon(c, 0.02*c.Perimeter())
		if len(approx) != 4 {
			continue
		}
		if area := approx.Area(); area >= minArea && area > bestArea {
			best, bestArea = approx, area
		}
	}
	if best == nil {
		return geometry.Quad{}, &AlignmentError{
			Reason: NoSheetBoundaryFound,
			Detail: fmt.Sprintf("no quadrilateral of at least %.0f px² among %d contours", minArea, len(contours)),
		}
	}

	quad, err := geometry.OrderCorners([4]geometry.Point{best[0], best[1], best[2], best[3]})
	if err != nil {
		return geometry.Quad{}, &AlignmentError{Reason: NoSheetBoundaryFound, Err: err}
	}
	return quad, nil
}

func (a *Aligner) rectify(gray vision.Mat, quad geometry.Quad, method AlignmentMethod) (*Alignment, error) {
	w, h := a.opts.CanonicalWidth, a.opts.CanonicalHeight
	warped, err := a.backend.WarpPerspective(gray, quad, w, h)
	if err != nil {
		return nil, fmt.Errorf("failed to rectify sheet: %w", err)
	}
	q := quad
	return &Alignment{
		Method:    method,
		Corners:   &q,
		Rectified: warped,
		Frame:     geometry.Rect{Width: float64(w), Height: float64(h)},
	}, nil
}
