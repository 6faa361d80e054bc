package vision

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/ironsheep/bubble-sheet-mcp/internal/geometry"
	"github.com/ironsheep/bubble-sheet-mcp/internal/imaging"
)

// NativeName is the Name of the pure-Go backend.
const NativeName = "native"

// Native implements Backend in pure Go on top of internal/imaging.
type Native struct{}

// NewNative returns the pure-Go backend.
func NewNative() *Native {
	return &Native{}
}

var _ Backend = (*Native)(nil)

// nativeMat wraps either a colour image or a grayscale one.
type nativeMat struct {
	mu     sync.Mutex
	img    image.Image
	gray   *image.Gray
	closed bool
}

func newGrayMat(g *image.Gray) *nativeMat {
	return &nativeMat{gray: g}
}

func (m *nativeMat) Bounds() image.Rectangle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gray != nil {
		return m.gray.Bounds()
	}
	if m.img != nil {
		b := m.img.Bounds()
		return image.Rect(0, 0, b.Dx(), b.Dy())
	}
	return image.Rectangle{}
}

func (m *nativeMat) Channels() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gray != nil {
		return 1
	}
	return 4
}

func (m *nativeMat) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.img = nil
	m.gray = nil
	return nil
}

// asGray returns the grayscale pixels of a Mat produced by the native
// backend, converting colour buffers on the fly.
func asGray(m Mat) (*image.Gray, error) {
	nm, ok := m.(*nativeMat)
	if !ok {
		return nil, fmt.Errorf("native backend cannot use %T", m)
	}
	nm.mu.Lock()
	defer nm.mu.Unlock()
	if nm.closed {
		return nil, ErrClosed
	}
	if nm.gray != nil {
		return nm.gray, nil
	}
	return imaging.ToGray(nm.img), nil
}

func (n *Native) Name() string { return NativeName }

func (n *Native) FromImage(img image.Image) (Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty image bounds %v", b)
	}
	if g, ok := img.(*image.Gray); ok {
		return newGrayMat(imaging.ToGray(g)), nil
	}
	return &nativeMat{img: img}, nil
}

func (n *Native) Grayscale(src Mat) (Mat, error) {
	g, err := asGray(src)
	if err != nil {
		return nil, err
	}
	return newGrayMat(imaging.ToGray(g)), nil
}

func (n *Native) Normalize(src Mat) (Mat, error) {
	g, err := asGray(src)
	if err != nil {
		return nil, err
	}
	return newGrayMat(imaging.ContrastStretch(g, 1, 99, normalizeMinSpread)), nil
}

// normalizeMinSpread is the smallest 1st-to-99th percentile spread that is
// stretched; flatter images are left alone.
const normalizeMinSpread = 32

// GaussianBlur derives sigma from ksize the way OpenCV does when sigma is
// not positive.
func (n *Native) GaussianBlur(src Mat, ksize int, sigma float64) (Mat, error) {
	g, err := asGray(src)
	if err != nil {
		return nil, err
	}
	if sigma <= 0 {
		sigma = KernelSigma(ksize)
	}
	return newGrayMat(imaging.Blur(g, sigma)), nil
}

func (n *Native) Canny(src Mat, low, high float64) (Mat, error) {
	g, err := asGray(src)
	if err != nil {
		return nil, err
	}
	return newGrayMat(imaging.Canny(g, low, high)), nil
}

// Dilate grows foreground by size/2 pixels, matching a size×size kernel.
func (n *Native) Dilate(src Mat, size int) (Mat, error) {
	g, err := asGray(src)
	if err != nil {
		return nil, err
	}
	return newGrayMat(imaging.Dilate(g, float64(size/2))), nil
}

func (n *Native) ThresholdInverse(src Mat, level uint8) (Mat, error) {
	g, err := asGray(src)
	if err != nil {
		return nil, err
	}
	return newGrayMat(imaging.ThresholdInverse(g, level)), nil
}

// FindContours returns the convex hull of every connected foreground
// region. Regions are ordered by their first pixel in raster order.
func (n *Native) FindContours(bin Mat) ([]Contour, error) {
	g, err := asGray(bin)
	if err != nil {
		return nil, err
	}
	comps := imaging.ConnectedComponents(g, 1)
	contours := make([]Contour, 0, len(comps))
	for _, c := range comps {
		hull := geometry.ConvexHull(c.Pixels)
		if len(hull) == 0 {
			continue
		}
		contours = append(contours, Contour(hull))
	}
	return contours, nil
}

// ApproxPolygon simplifies c and then squares off corners that edge
// detection cut short.
func (n *Native) ApproxPolygon(c Contour, epsilon float64) Contour {
	return Contour(geometry.SquareCorners(geometry.SimplifyClosed(c, epsilon), CutCornerFraction))
}

// CutCornerFraction is the largest edge, as a fraction of the perimeter,
// that ApproxPolygon treats as a cut corner.
const CutCornerFraction = 0.06

// WarpPerspective samples outside the source as white paper.
func (n *Native) WarpPerspective(src Mat, quad geometry.Quad, width, height int) (Mat, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid warp size %dx%d", width, height)
	}
	g, err := asGray(src)
	if err != nil {
		return nil, err
	}
	dst := geometry.RectCorners(geometry.Rect{Width: float64(width), Height: float64(height)})
	h, err := geometry.PerspectiveTransform(dst, quad)
	if err != nil {
		return nil, err
	}
	return newGrayMat(imaging.WarpPerspective(g, h, width, height, 255)), nil
}

func (n *Native) Region(src Mat, r image.Rectangle) (Mat, error) {
	g, err := asGray(src)
	if err != nil {
		return nil, err
	}
	crop, err := imaging.CropClamped(g, r)
	if err != nil {
		return nil, err
	}
	return newGrayMat(crop), nil
}

func (n *Native) MeanStdDev(src Mat) (float64, float64, error) {
	g, err := asGray(src)
	if err != nil {
		return 0, 0, err
	}
	return imaging.MeanStdDev(g)
}

func (n *Native) ToGray(src Mat) (*image.Gray, error) {
	g, err := asGray(src)
	if err != nil {
		return nil, err
	}
	return imaging.ToGray(g), nil
}

// KernelSigma returns the sigma OpenCV uses for a ksize×ksize Gaussian
// kernel when none is given.
func KernelSigma(ksize int) float64 {
	if ksize < 1 {
		ksize = 1
	}
	return math.Max(0.3*(float64(ksize-1)*0.5-1)+0.8, 0.1)
}
