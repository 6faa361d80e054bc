//go:build gocv

package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ironsheep/bubble-sheet-mcp/internal/geometry"
	"github.com/ironsheep/bubble-sheet-mcp/internal/imaging"
)

// OpenCVName is the Name of the gocv backend.
const OpenCVName = "opencv"

// OpenCV implements Backend with gocv. Requires OpenCV 4 at build time.
type OpenCV struct{}

// NewOpenCV returns the gocv backend.
func NewOpenCV() *OpenCV {
	return &OpenCV{}
}

var _ Backend = (*OpenCV)(nil)

func init() {
	Register(OpenCVName, func() Backend { return NewOpenCV() })
}

// cvMat owns a gocv.Mat.
type cvMat struct {
	m      gocv.Mat
	closed bool
}

func (c *cvMat) Bounds() image.Rectangle {
	if c.closed {
		return image.Rectangle{}
	}
	return image.Rect(0, 0, c.m.Cols(), c.m.Rows())
}

func (c *cvMat) Channels() int {
	if c.closed {
		return 0
	}
	return c.m.Channels()
}

func (c *cvMat) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.m.Close()
}

func unwrap(m Mat) (gocv.Mat, error) {
	c, ok := m.(*cvMat)
	if !ok {
		return gocv.Mat{}, fmt.Errorf("opencv backend cannot use %T", m)
	}
	if c.closed {
		return gocv.Mat{}, ErrClosed
	}
	return c.m, nil
}

// gray returns a single-channel view of m. The caller closes the result
// only when owned is true.
func gray(m gocv.Mat) (out gocv.Mat, owned bool) {
	if m.Channels() == 1 {
		return m, false
	}
	g := gocv.NewMat()
	gocv.CvtColor(m, &g, gocv.ColorBGRToGray)
	return g, true
}

func (o *OpenCV) Name() string { return OpenCVName }

func (o *OpenCV) FromImage(img image.Image) (Mat, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image bounds %v", bounds)
	}

	if g, ok := img.(*image.Gray); ok {
		flat := imaging.ToGray(g)
		m, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, flat.Pix)
		if err != nil {
			return nil, fmt.Errorf("failed to create gray mat: %w", err)
		}
		defer m.Close()
		// NewMatFromBytes borrows the Go slice; keep an independent copy.
		return &cvMat{m: m.Clone()}, nil
	}

	// OpenCV stores colour pixels as BGR.
	m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			m.SetUCharAt(y, x*3+0, uint8(b>>8))
			m.SetUCharAt(y, x*3+1, uint8(g>>8))
			m.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}
	return &cvMat{m: m}, nil
}

func (o *OpenCV) Grayscale(src Mat) (Mat, error) {
	m, err := unwrap(src)
	if err != nil {
		return nil, err
	}
	g, owned := gray(m)
	if !owned {
		g = m.Clone()
	}
	return &cvMat{m: g}, nil
}

// Normalize shares the percentile stretch with the native backend so both
// produce the same intensities.
func (o *OpenCV) Normalize(src Mat) (Mat, error) {
	g, err := o.ToGray(src)
	if err != nil {
		return nil, err
	}
	return o.FromImage(imaging.ContrastStretch(g, 1, 99, normalizeMinSpread))
}

func (o *OpenCV) GaussianBlur(src Mat, ksize int, sigma float64) (Mat, error) {
	m, err := unwrap(src)
	if err != nil {
		return nil, err
	}
	if ksize%2 == 0 {
		ksize++
	}
	dst := gocv.NewMat()
	gocv.GaussianBlur(m, &dst, image.Point{ksize, ksize}, sigma, sigma, gocv.BorderDefault)
	return &cvMat{m: dst}, nil
}

func (o *OpenCV) Canny(src Mat, low, high float64) (Mat, error) {
	m, err := unwrap(src)
	if err != nil {
		return nil, err
	}
	g, owned := gray(m)
	if owned {
		defer g.Close()
	}
	edges := gocv.NewMat()
	gocv.Canny(g, &edges, float32(low), float32(high))
	return &cvMat{m: edges}, nil
}

func (o *OpenCV) Dilate(src Mat, size int) (Mat, error) {
	m, err := unwrap(src)
	if err != nil {
		return nil, err
	}
	if size < 1 {
		size = 1
	}
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{size, size})
	defer kernel.Close()

	dst := gocv.NewMat()
	gocv.Dilate(m, &dst, kernel)
	return &cvMat{m: dst}, nil
}

func (o *OpenCV) ThresholdInverse(src Mat, level uint8) (Mat, error) {
	m, err := unwrap(src)
	if err != nil {
		return nil, err
	}
	g, owned := gray(m)
	if owned {
		defer g.Close()
	}
	// THRESH_BINARY_INV keeps src <= thresh, so shift by one for "darker than".
	thresh := float32(level) - 1
	dst := gocv.NewMat()
	gocv.Threshold(g, &dst, thresh, 255, gocv.ThresholdBinaryInv)
	return &cvMat{m: dst}, nil
}

func (o *OpenCV) FindContours(bin Mat) ([]Contour, error) {
	m, err := unwrap(bin)
	if err != nil {
		return nil, err
	}
	contours := gocv.FindContours(m, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	out := make([]Contour, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		out = append(out, fromPoints(contours.At(i).ToPoints()))
	}
	return out, nil
}

func (o *OpenCV) ApproxPolygon(c Contour, epsilon float64) Contour {
	if len(c) < 3 {
		return c
	}
	pts := make([]image.Point, len(c))
	for i, p := range c {
		pts[i] = image.Pt(int(p.X+0.5), int(p.Y+0.5))
	}
	pv := gocv.NewPointVectorFromPoints(pts)
	defer pv.Close()

	approx := gocv.ApproxPolyDP(pv, epsilon, true)
	defer approx.Close()
	return Contour(geometry.SquareCorners(fromPoints(approx.ToPoints()), CutCornerFraction))
}

func (o *OpenCV) WarpPerspective(src Mat, quad geometry.Quad, width, height int) (Mat, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid warp size %dx%d", width, height)
	}
	m, err := unwrap(src)
	if err != nil {
		return nil, err
	}
	dstQuad := geometry.RectCorners(geometry.Rect{Width: float64(width), Height: float64(height)})
	h, err := geometry.PerspectiveTransform(quad, dstQuad)
	if err != nil {
		return nil, err
	}

	hm := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer hm.Close()
	for i, v := range h {
		hm.SetDoubleAt(i/3, i%3, v)
	}

	dst := gocv.NewMat()
	gocv.WarpPerspectiveWithParams(m, &dst, hm, image.Point{width, height},
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{255, 255, 255, 255})
	return &cvMat{m: dst}, nil
}

func (o *OpenCV) Region(src Mat, r image.Rectangle) (Mat, error) {
	m, err := unwrap(src)
	if err != nil {
		return nil, err
	}
	clipped := r.Intersect(image.Rect(0, 0, m.Cols(), m.Rows()))
	if clipped.Empty() {
		return nil, fmt.Errorf("crop region %v outside image bounds", r)
	}
	roi := m.Region(clipped)
	defer roi.Close()
	return &cvMat{m: roi.Clone()}, nil
}

func (o *OpenCV) MeanStdDev(src Mat) (float64, float64, error) {
	m, err := unwrap(src)
	if err != nil {
		return 0, 0, err
	}
	if m.Empty() {
		return 0, 0, fmt.Errorf("empty image")
	}
	g, owned := gray(m)
	if owned {
		defer g.Close()
	}
	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()

	gocv.MeanStdDev(g, &mean, &stddev)
	return mean.GetDoubleAt(0, 0), stddev.GetDoubleAt(0, 0), nil
}

func (o *OpenCV) ToGray(src Mat) (*image.Gray, error) {
	m, err := unwrap(src)
	if err != nil {
		return nil, err
	}
	g, owned := gray(m)
	if owned {
		defer g.Close()
	}
	out := image.NewGray(image.Rect(0, 0, g.Cols(), g.Rows()))
	for y := 0; y < g.Rows(); y++ {
		for x := 0; x < g.Cols(); x++ {
			out.Pix[y*out.Stride+x] = g.GetUCharAt(y, x)
		}
	}
	return out, nil
}

func fromPoints(pts []image.Point) Contour {
	c := make(Contour, len(pts))
	for i, p := range pts {
		c[i] = geometry.Pt(float64(p.X), float64(p.Y))
	}
	return c
}
