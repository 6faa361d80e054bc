package vision

import (
	"errors"
	"image"

	"github.com/ironsheep/bubble-sheet-mcp/internal/geometry"
)

// ErrClosed is returned when a Mat is used after Close.
var ErrClosed = errors.New("vision: mat already closed")

// Mat is an image buffer owned by a Backend.
type Mat interface {
	// Bounds returns the pixel bounds, always with origin (0,0).
	Bounds() image.Rectangle

	// Channels is 1 for grayscale buffers and 3 or 4 for colour ones.
	Channels() int

	// Close releases the buffer. Calling Close twice is a no-op.
	Close() error
}

// Contour is the outer boundary of one connected region.
type Contour []geometry.Point

// Area returns the polygon area enclosed by the contour.
func (c Contour) Area() float64 {
	return geometry.PolygonArea(c)
}

// Perimeter returns the closed length of the contour.
func (c Contour) Perimeter() float64 {
	return geometry.Perimeter(c)
}

// Backend exposes the primitive operations the recognition pipeline uses.
//
// Operations that produce an image return a new Mat; the input is never
// modified. Grayscale-only operations accept colour input by converting it
// first.
type Backend interface {
	// Name identifies the backend in logs and diagnostics.
	Name() string

	// FromImage copies a decoded image into a backend buffer.
	FromImage(img image.Image) (Mat, error)

	// Grayscale converts to a single-channel 8-bit buffer.
	Grayscale(src Mat) (Mat, error)

	// Normalize stretches intensities so the 1st and 99th percentiles map
	// to 0 and 255. Nearly uniform images are returned unchanged.
	Normalize(src Mat) (Mat, error)

	// GaussianBlur smooths with a ksize×ksize kernel of the given sigma.
	GaussianBlur(src Mat, ksize int, sigma float64) (Mat, error)

	// Canny detects edges with the given hysteresis thresholds.
	Canny(src Mat, low, high float64) (Mat, error)

	// Dilate grows foreground regions of a binary buffer.
	Dilate(src Mat, size int) (Mat, error)

	// ThresholdInverse marks pixels darker than level as foreground.
	ThresholdInverse(src Mat, level uint8) (Mat, error)

	// FindContours returns the outer contours of the foreground regions
	// of a binary buffer, in a deterministic order.
	FindContours(bin Mat) ([]Contour, error)

	// ApproxPolygon simplifies a closed contour with tolerance epsilon.
	ApproxPolygon(c Contour, epsilon float64) Contour

	// WarpPerspective maps quad in src onto a width×height rectangle.
	WarpPerspective(src Mat, quad geometry.Quad, width, height int) (Mat, error)

	// Region extracts r (clipped to the buffer) as a new buffer.
	Region(src Mat, r image.Rectangle) (Mat, error)

	// MeanStdDev returns the mean intensity and its standard deviation.
	MeanStdDev(src Mat) (mean, stddev float64, err error)

	// ToGray copies a buffer out as a Go grayscale image.
	ToGray(src Mat) (*image.Gray, error)
}

// CloseAll closes every non-nil Mat and returns the first error.
func CloseAll(mats ...Mat) error {
	var first error
	for _, m := range mats {
		if m == nil {
			continue
		}
		if err := m.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
