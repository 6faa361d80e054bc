package omr

import (
	"errors"
	"image"
	"sync"

	"github.com/ironsheep/bubble-sheet-mcp/internal/geometry"
	"github.com/ironsheep/bubble-sheet-mcp/internal/vision"
)

func whitePage(w, h int) *image.Gray {
	return filledPage(w, h, 255)
}

func filledPage(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func fillRect(g *image.Gray, r image.Rectangle, v uint8) {
	r = r.Intersect(g.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g.Pix[y*g.Stride+x] = v
		}
	}
}

// mark darkens the pixels of every region selected by want, grown by grow
// pixels on each side.
func mark(g *image.Gray, regions []BubbleRegion, grow float64, want func(BubbleRegion) bool) {
	for _, r := range regions {
		if want(r) {
			fillRect(g, r.Rect.Pad(grow).Image(g.Bounds()), 0)
		}
	}
}

// markerSheet draws an 820x820 page with 20x20 corner markers whose
// centres are 700 px apart, and returns the sheet frame they define.
func markerSheet() (*image.Gray, geometry.Rect) {
	g := whitePage(820, 820)
	for _, c := range []image.Point{{50, 50}, {750, 50}, {50, 750}, {750, 750}} {
		fillRect(g, image.Rect(c.X, c.Y, c.X+20, c.Y+20), 0)
	}
	// Hull vertices sit on pixel centres, so each marker centre is at +9.5.
	return g, geometry.Rect{X: 59.5, Y: 59.5, Width: 700, Height: 700}
}

// contourSheet draws a white 700x700 sheet on a dark 800x800 background.
func contourSheet() (*image.Gray, geometry.Rect) {
	g := filledPage(800, 800, 60)
	fillRect(g, image.Rect(50, 50, 750, 750), 255)
	return g, geometry.Rect{X: 50, Y: 50, Width: 700, Height: 700}
}

func option(q int, opt string) func(BubbleRegion) bool {
	return func(r BubbleRegion) bool {
		return r.Section == Section1 && r.Question == q && r.Option == opt
	}
}

var errInjected = errors.New("injected backend failure")

// trackingBackend wraps the native backend, counts live buffers and can be
// told to fail one operation.
type trackingBackend struct {
	inner  *vision.Native
	failOn string

	mu    sync.Mutex
	open  int
	calls map[string]int
}

func newTrackingBackend(failOn string) *trackingBackend {
	return &trackingBackend{inner: vision.NewNative(), failOn: failOn, calls: map[string]int{}}
}

type trackedMat struct {
	vision.Mat
	owner  *trackingBackend
	closed bool
}

func (m *trackedMat) Close() error {
	m.owner.mu.Lock()
	if !m.closed {
		m.closed = true
		m.owner.open--
	}
	m.owner.mu.Unlock()
	return m.Mat.Close()
}

func (b *trackingBackend) enter(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[op]++
	if op == b.failOn {
		return errInjected
	}
	return nil
}

func (b *trackingBackend) wrap(m vision.Mat, err error) (vision.Mat, error) {
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.open++
	b.mu.Unlock()
	return &trackedMat{Mat: m, owner: b}, nil
}

func (b *trackingBackend) live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

func (b *trackingBackend) totalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

func raw(m vision.Mat) vision.Mat {
	if t, ok := m.(*trackedMat); ok {
		return t.Mat
	}
	return m
}

func (b *trackingBackend) Name() string { return "tracking" }

func (b *trackingBackend) FromImage(img image.Image) (vision.Mat, error) {
	if err := b.enter("FromImage"); err != nil {
		return nil, err
	}
	return b.wrap(b.inner.FromImage(img))
}

func (b *trackingBackend) Grayscale(src vision.Mat) (vision.Mat, error) {
	if err := b.enter("Grayscale"); err != nil {
		return nil, err
	}
	return b.wrap(b.inner.Grayscale(raw(src)))
}

func (b *trackingBackend) Normalize(src vision.Mat) (vision.Mat, error) {
	if err := b.enter("Normalize"); err != nil {
		return nil, err
	}
	return b.wrap(b.inner.Normalize(raw(src)))
}

func (b *trackingBackend) GaussianBlur(src vision.Mat, ksize int, sigma float64) (vision.Mat, error) {
	if err := b.enter("GaussianBlur"); err != nil {
		return nil, err
	}
	return b.wrap(b.inner.GaussianBlur(raw(src), ksize, sigma))
}

func (b *trackingBackend) Canny(src vision.Mat, low, high float64) (vision.Mat, error) {
	if err := b.enter("Canny"); err != nil {
		return nil, err
	}
	return b.wrap(b.inner.Canny(raw(src), low, high))
}

func (b *trackingBackend) Dilate(src vision.Mat, size int) (vision.Mat, error) {
	if err := b.enter("Dilate"); err != nil {
		return nil, err
	}
	return b.wrap(b.inner.Dilate(raw(src), size))
}

func (b *trackingBackend) ThresholdInverse(src vision.Mat, level uint8) (vision.Mat, error) {
	if err := b.enter("ThresholdInverse"); err != nil {
		return nil, err
	}
	return b.wrap(b.inner.ThresholdInverse(raw(src), level))
}

func (b *trackingBackend) FindContours(bin vision.Mat) ([]vision.Contour, error) {
	if err := b.enter("FindContours"); err != nil {
		return nil, err
	}
	return b.inner.FindContours(raw(bin))
}

func (b *trackingBackend) ApproxPolygon(c vision.Contour, epsilon float64) vision.Contour {
	return b.inner.ApproxPolygon(c, epsilon)
}

func (b *trackingBackend) WarpPerspective(src vision.Mat, quad geometry.Quad, w, h int) (vision.Mat, error) {
	if err := b.enter("WarpPerspective"); err != nil {
		return nil, err
	}
	return b.wrap(b.inner.WarpPerspective(raw(src), quad, w, h))
}

func (b *trackingBackend) Region(src vision.Mat, r image.Rectangle) (vision.Mat, error) {
	if err := b.enter("Region"); err != nil {
		return nil, err
	}
	return b.wrap(b.inner.Region(raw(src), r))
}

func (b *trackingBackend) MeanStdDev(src vision.Mat) (float64, float64, error) {
	if err := b.enter("MeanStdDev"); err != nil {
		return 0, 0, err
	}
	return b.inner.MeanStdDev(raw(src))
}

func (b *trackingBackend) ToGray(src vision.Mat) (*image.Gray, error) {
	if err := b.enter("ToGray"); err != nil {
		return nil, err
	}
	return b.inner.ToGray(raw(src))
}

var _ vision.Backend = (*trackingBackend)(nil)
