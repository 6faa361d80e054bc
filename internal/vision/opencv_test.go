//go:build gocv

package vision

import (
	"image"
	"math"
	"sort"
	"testing"

	"github.com/ironsheep/bubble-sheet-mcp/internal/geometry"
)

func TestOpenCV_Registered(t *testing.T) {
	b, err := New(OpenCVName)
	if err != nil {
		t.Fatalf("New(%q) failed: %v", OpenCVName, err)
	}
	if b.Name() != OpenCVName {
		t.Errorf("Name = %q, want %q", b.Name(), OpenCVName)
	}
}

func TestOpenCV_FromImage(t *testing.T) {
	b := NewOpenCV()

	rgba := image.NewRGBA(image.Rect(5, 5, 25, 15))
	m := mustMat(t, b, rgba)
	if m.Bounds() != image.Rect(0, 0, 20, 10) {
		t.Errorf("bounds = %v, want origin-based 20x10", m.Bounds())
	}
	if m.Channels() != 3 {
		t.Errorf("channels = %d, want 3", m.Channels())
	}

	g := mustMat(t, b, newPage(8, 8, 100))
	if g.Channels() != 1 {
		t.Errorf("gray channels = %d, want 1", g.Channels())
	}
	out, err := b.ToGray(g)
	if err != nil {
		t.Fatal(err)
	}
	if out.Pix[0] != 100 {
		t.Errorf("round-tripped pixel = %d, want 100", out.Pix[0])
	}

	if _, err := b.FromImage(nil); err == nil {
		t.Error("expected error for nil image")
	}
}

func TestOpenCV_ThresholdAndContours(t *testing.T) {
	b := NewOpenCV()
	img := newPage(60, 60, 230)
	fill(img, image.Rect(10, 10, 20, 20), 10)
	fill(img, image.Rect(40, 30, 50, 45), 10)

	bin, err := b.ThresholdInverse(mustMat(t, b, img), 100)
	if err != nil {
		t.Fatal(err)
	}
	defer bin.Close()

	contours, err := b.FindContours(bin)
	if err != nil {
		t.Fatal(err)
	}
	if len(contours) != 2 {
		t.Fatalf("got %d contours, want 2", len(contours))
	}

	areas := []float64{contours[0].Area(), contours[1].Area()}
	sort.Float64s(areas)
	// Same pixel-centre outlines the native backend produces.
	if math.Abs(areas[0]-81) > 0.5 || math.Abs(areas[1]-126) > 0.5 {
		t.Errorf("contour areas = %v, want [81 126]", areas)
	}
}

func TestOpenCV_CannyDilate(t *testing.T) {
	b := NewOpenCV()
	img := newPage(80, 80, 40)
	fill(img, image.Rect(20, 20, 60, 60), 240)

	blurred, err := b.GaussianBlur(mustMat(t, b, img), 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer blurred.Close()
	edges, err := b.Canny(blurred, 10, 70)
	if err != nil {
		t.Fatal(err)
	}
	defer edges.Close()
	dilated, err := b.Dilate(edges, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer dilated.Close()

	contours, err := b.FindContours(dilated)
	if err != nil {
		t.Fatal(err)
	}
	if len(contours) != 1 {
		t.Fatalf("got %d contours, want the square outline", len(contours))
	}
	approx := b.ApproxPolygon(contours[0], 0.02*contours[0].Perimeter())
	if len(approx) != 4 {
		t.Errorf("outline simplified to %d vertices, want 4", len(approx))
	}
}

func TestOpenCV_WarpPerspective(t *testing.T) {
	b := NewOpenCV()
	img := newPage(200, 200, 255)
	fill(img, image.Rect(50, 50, 150, 150), 0)

	quad := geometry.Quad{
		geometry.Pt(50, 50), geometry.Pt(149, 50),
		geometry.Pt(50, 149), geometry.Pt(149, 149),
	}
	w, err := b.WarpPerspective(mustMat(t, b, img), quad, 100, 100)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if w.Bounds() != image.Rect(0, 0, 100, 100) {
		t.Fatalf("bounds = %v", w.Bounds())
	}
	mean, _, err := b.MeanStdDev(w)
	if err != nil {
		t.Fatal(err)
	}
	if mean > 5 {
		t.Errorf("warped dark square has mean %.1f", mean)
	}
}

func TestOpenCV_MatchesNativeStatistics(t *testing.T) {
	cv, native := NewOpenCV(), NewNative()
	img := newPage(40, 40, 255)
	fill(img, image.Rect(0, 0, 20, 40), 0)

	for _, rect := range []image.Rectangle{
		image.Rect(0, 0, 20, 40),
		image.Rect(10, 0, 30, 10),
		image.Rect(30, 30, 60, 60),
	} {
		var got [2][2]float64
		for i, b := range []Backend{cv, native} {
			r, err := b.Region(mustMat(t, b, img), rect)
			if err != nil {
				t.Fatalf("%s Region(%v): %v", b.Name(), rect, err)
			}
			mean, sd, err := b.MeanStdDev(r)
			r.Close()
			if err != nil {
				t.Fatal(err)
			}
			got[i] = [2]float64{mean, sd}
		}
		if math.Abs(got[0][0]-got[1][0]) > 0.01 || math.Abs(got[0][1]-got[1][1]) > 0.01 {
			t.Errorf("region %v: opencv %v, native %v", rect, got[0], got[1])
		}
	}
}
