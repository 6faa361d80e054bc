package omr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"reflect"
	"testing"

	"github.com/ironsheep/bubble-sheet-mcp/internal/geometry"
	"github.com/ironsheep/bubble-sheet-mcp/internal/vision"
)

func newProcessor(opts Options) *Processor {
	return NewProcessor(vision.NewNative(), opts, nil)
}

// rectifiedSheet is a 700x700 page with option C marked for questions 1-5.
func rectifiedSheet(t *testing.T) *image.Gray {
	t.Helper()
	page := whitePage(700, 700)
	regions, err := BuildGrid(canonical, Config{Section1Count: 5})
	if err != nil {
		t.Fatal(err)
	}
	mark(page, regions, 0, func(r BubbleRegion) bool {
		return r.Section == Section1 && r.Option == "C"
	})
	return page
}

func TestProcessSheet_RectifiedSection1(t *testing.T) {
	p := newProcessor(DefaultOptions())
	res, err := p.ProcessSheet(rectifiedSheet(t), Config{Section1Count: 5})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"C", "C", "C", "C", "C"}
	if !reflect.DeepEqual(res.Recognition.Section1, want) {
		t.Errorf("section1 = %v, want %v", res.Recognition.Section1, want)
	}
	if res.Diagnostics != nil {
		t.Error("diagnostics should be omitted unless requested")
	}
}

func TestProcessSheet_PerQuestionConfidence(t *testing.T) {
	opts := DefaultOptions()
	opts.KeepArtifacts = true
	res, err := newProcessor(opts).ProcessSheet(rectifiedSheet(t), Config{Section1Count: 5})
	if err != nil {
		t.Fatal(err)
	}

	for _, b := range res.Diagnostics.Bubbles {
		if b.Section != Section1 {
			continue
		}
		if b.Option == "C" && b.Confidence <= opts.Threshold {
			t.Errorf("question %d C confidence %.3f not above threshold", b.Question, b.Confidence)
		}
		if b.Option != "C" && b.Confidence > opts.Threshold {
			t.Errorf("question %d %s confidence %.3f above threshold", b.Question, b.Option, b.Confidence)
		}
	}
}

func TestProcessSheet_BlankPage(t *testing.T) {
	res, err := newProcessor(DefaultOptions()).ProcessSheet(whitePage(700, 700), Config{Section1Count: 5})
	if err != nil {
		t.Fatal(err)
	}
	rec := res.Recognition
	if !reflect.DeepEqual(rec.Section1, []string{"", "", "", "", ""}) {
		t.Errorf("section1 = %q, want five empty answers", rec.Section1)
	}
	if rec.StudentID != UnknownStudentID {
		t.Errorf("student ID = %q", rec.StudentID)
	}
	if rec.Confidence >= 0.3 {
		t.Errorf("confidence = %.3f, want below 0.3", rec.Confidence)
	}
}

func TestProcessSheet_Deterministic(t *testing.T) {
	page, frame := markerSheet()
	regions, _ := BuildGrid(frame, Config{Section1Count: 12, Section2Count: 2})
	mark(page, regions, 2, func(r BubbleRegion) bool {
		return (r.Section == Section1 && r.Option == Options1[r.Question%4]) ||
			(r.Section == Section2 && *r.Value == (r.SubOption != "b"))
	})

	p := newProcessor(DefaultOptions())
	cfg := Config{Section1Count: 12, Section2Count: 2}
	first, err := p.ProcessSheet(page, cfg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.ProcessSheet(page, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\n%+v\n%+v", first.Recognition, second.Recognition)
	}
}

func TestProcessSheet_ShapeInvariants(t *testing.T) {
	p := newProcessor(DefaultOptions())
	inputs := map[string]image.Image{
		"blank":    whitePage(300, 400),
		"black":    filledPage(300, 400, 0),
		"tiny":     whitePage(3, 3),
		"markers":  func() image.Image { g, _ := markerSheet(); return g }(),
		"contour":  func() image.Image { g, _ := contourSheet(); return g }(),
		"colorful": image.NewRGBA(image.Rect(0, 0, 120, 80)),
	}
	configs := []Config{
		{Section1Count: 1},
		{Section2Count: 8},
		{Section1Count: 40, Section2Count: 8, Section3Count: 6},
	}

	for name, img := range inputs {
		for _, cfg := range configs {
			res, err := p.ProcessSheet(img, cfg)
			if err != nil {
				t.Fatalf("%s %+v: %v", name, cfg, err)
			}
			rec := res.Recognition
			if len(rec.Section1) != cfg.Section1Count || len(rec.Section2) != cfg.Section2Count || len(rec.Section3) != cfg.Section3Count {
				t.Errorf("%s %+v: lengths %d/%d/%d", name, cfg, len(rec.Section1), len(rec.Section2), len(rec.Section3))
			}
			if rec.Confidence < 0 || rec.Confidence > 1 {
				t.Errorf("%s: confidence %v out of range", name, rec.Confidence)
			}
		}
	}
}

func TestProcessSheet_MarkerSheetAllSections(t *testing.T) {
	cfg := Config{Section1Count: 20, Section2Count: 4, Section3Count: 2}
	page, frame := markerSheet()
	regions, err := BuildGrid(frame, cfg)
	if err != nil {
		t.Fatal(err)
	}

	id := []int{1, 2, 0, 4, 5, 9}
	section3 := map[int][]string{1: {"3", ",", "5"}, 2: {"-", "2"}}
	mark(page, regions, 2, func(r BubbleRegion) bool {
		switch r.Section {
		case SectionStudentID:
			return *r.Digit == id[r.Column]
		case Section1:
			return r.Option == Options1[(r.Question-1)%4]
		case Section2:
			return *r.Value == (r.SubOption == "a" || r.SubOption == "d")
		case Section3:
			syms := section3[r.Question]
			return r.Column < len(syms) && syms[r.Column] == r.Symbol
		}
		return false
	})

	opts := DefaultOptions()
	opts.KeepArtifacts = true
	res, err := newProcessor(opts).ProcessSheet(page, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Diagnostics.Method != AlignedByMarkers {
		t.Fatalf("method = %s, errors = %v", res.Diagnostics.Method, res.Diagnostics.AlignmentErr)
	}

	rec := res.Recognition
	if rec.StudentID != "120459" {
		t.Errorf("student ID = %q, want 120459", rec.StudentID)
	}
	for q, got := range rec.Section1 {
		if want := Options1[q%4]; got != want {
			t.Errorf("section1[%d] = %q, want %q", q, got, want)
		}
	}
	for q, got := range rec.Section2 {
		if want := (TrueFalseAnswer{A: true, D: true}); got != want {
			t.Errorf("section2[%d] = %+v, want %+v", q, got, want)
		}
	}
	if !reflect.DeepEqual(rec.Section3, []string{"3,5", "-2"}) {
		t.Errorf("section3 = %q", rec.Section3)
	}
	if rec.Confidence < 0.9 {
		t.Errorf("confidence = %.3f, want a confident read", rec.Confidence)
	}
	if b := res.Diagnostics.Rectified.Bounds(); b != image.Rect(0, 0, 700, 700) {
		t.Errorf("rectified bounds = %v", b)
	}
}

func TestProcessSheet_ContourSheet(t *testing.T) {
	cfg := Config{Section1Count: 8}
	page, frame := contourSheet()
	regions, _ := BuildGrid(frame, cfg)
	mark(page, regions, 3, func(r BubbleRegion) bool {
		return r.Section == Section1 && r.Option == "B"
	})

	opts := DefaultOptions()
	opts.KeepArtifacts = true
	res, err := newProcessor(opts).ProcessSheet(page, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.Diagnostics.Method != AlignedByContour {
		t.Fatalf("method = %s, errors = %v", res.Diagnostics.Method, res.Diagnostics.AlignmentErr)
	}
	for q, got := range res.Recognition.Section1 {
		if got != "B" {
			t.Errorf("section1[%d] = %q, want B", q, got)
		}
	}
}

func TestProcessSheet_ColorInput(t *testing.T) {
	gray := rectifiedSheet(t)
	rgba := image.NewRGBA(gray.Bounds())
	for y := 0; y < 700; y++ {
		for x := 0; x < 700; x++ {
			v := gray.GrayAt(x, y).Y
			rgba.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	res, err := newProcessor(DefaultOptions()).ProcessSheet(rgba, Config{Section1Count: 5})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Recognition.Section1, []string{"C", "C", "C", "C", "C"}) {
		t.Errorf("section1 = %v", res.Recognition.Section1)
	}
}

func TestProcessSheet_DownscalesLargeInput(t *testing.T) {
	big := whitePage(1400, 1400)
	regions, _ := BuildGrid(geometry.Rect{Width: 1400, Height: 1400}, Config{Section1Count: 3})
	mark(big, regions, 0, func(r BubbleRegion) bool {
		return r.Section == Section1 && r.Option == "A"
	})

	opts := DefaultOptions()
	opts.MaxInputDimension = 700
	opts.KeepArtifacts = true
	res, err := newProcessor(opts).ProcessSheet(big, Config{Section1Count: 3})
	if err != nil {
		t.Fatal(err)
	}
	if b := res.Diagnostics.Rectified.Bounds(); b.Dx() != 700 {
		t.Errorf("working image width = %d, want 700", b.Dx())
	}
	if !reflect.DeepEqual(res.Recognition.Section1, []string{"A", "A", "A"}) {
		t.Errorf("section1 = %v", res.Recognition.Section1)
	}
}

func TestProcessSheet_ConfigErrorBeforePixelWork(t *testing.T) {
	backend := newTrackingBackend("")
	p := NewProcessor(backend, DefaultOptions(), nil)

	_, err := p.ProcessSheet(whitePage(10, 10), Config{})
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigurationError, got %v", err)
	}
	if n := backend.totalCalls(); n != 0 {
		t.Errorf("backend called %d times before configuration was rejected", n)
	}
}

func TestProcessSheet_DecodeError(t *testing.T) {
	p := newProcessor(DefaultOptions())
	for name, img := range map[string]image.Image{
		"nil":   nil,
		"empty": image.NewGray(image.Rectangle{}),
	} {
		_, err := p.ProcessSheet(img, Config{Section1Count: 1})
		if CodeOf(err) != CodeDecode {
			t.Errorf("%s: expected decode error, got %v", name, err)
		}
	}
}

func TestProcessSheet_ReleasesBuffers(t *testing.T) {
	page, frame := markerSheet()
	regions, _ := BuildGrid(frame, Config{Section1Count: 4})
	mark(page, regions, 2, option(2, "D"))

	ops := []string{"", "FromImage", "Grayscale", "Normalize", "ThresholdInverse", "WarpPerspective", "Region", "ToGray"}
	for _, op := range ops {
		t.Run("fail "+op, func(t *testing.T) {
			backend := newTrackingBackend(op)
			opts := DefaultOptions()
			opts.KeepArtifacts = true
			res, err := NewProcessor(backend, opts, nil).ProcessSheet(page, Config{Section1Count: 4})

			switch op {
			case "FromImage":
				if CodeOf(err) != CodeDecode {
					t.Errorf("expected decode error, got %v", err)
				}
			case "Grayscale", "Normalize", "ToGray":
				if !errors.Is(err, errInjected) {
					t.Errorf("expected injected error, got %v", err)
				}
			default:
				// Alignment and bubble failures are recovered.
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(res.Recognition.Section1) != 4 {
					t.Errorf("section1 length = %d", len(res.Recognition.Section1))
				}
			}
			if n := backend.live(); n != 0 {
				t.Errorf("%d buffers leaked", n)
			}
		})
	}
}

func TestProcessBatch(t *testing.T) {
	p := newProcessor(DefaultOptions())
	images := []image.Image{rectifiedSheet(t), whitePage(700, 700), nil, rectifiedSheet(t)}

	items, err := p.ProcessBatch(context.Background(), images, Config{Section1Count: 5}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != len(images) {
		t.Fatalf("got %d items", len(items))
	}
	for i, item := range items {
		if item.Index != i {
			t.Errorf("item %d has index %d", i, item.Index)
		}
	}
	if items[0].Err != nil || items[0].Result.Recognition.Section1[0] != "C" {
		t.Errorf("item 0 = %+v", items[0])
	}
	if items[1].Err != nil || items[1].Result.Recognition.Section1[0] != "" {
		t.Errorf("item 1 = %+v", items[1])
	}
	if CodeOf(items[2].Err) != CodeDecode {
		t.Errorf("item 2 error = %v, want decode error", items[2].Err)
	}
	if !reflect.DeepEqual(items[0].Result, items[3].Result) {
		t.Error("identical sheets produced different results")
	}
}

func TestProcessBatch_InvalidConfig(t *testing.T) {
	_, err := newProcessor(DefaultOptions()).ProcessBatch(context.Background(), []image.Image{whitePage(5, 5)}, Config{Section1Count: -1}, 2)
	if CodeOf(err) != CodeConfiguration {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestProcessBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, err := newProcessor(DefaultOptions()).ProcessBatch(ctx, []image.Image{whitePage(50, 50), whitePage(50, 50)}, Config{Section1Count: 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i, item := range items {
		if !errors.Is(item.Err, context.Canceled) {
			t.Errorf("item %d error = %v, want context.Canceled", i, item.Err)
		}
	}
}

func TestRectify(t *testing.T) {
	page, _ := markerSheet()
	backend := newTrackingBackend("")
	p := NewProcessor(backend, DefaultOptions(), nil)

	r, err := p.Rectify(page)
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}
	if r.Method != AlignedByMarkers {
		t.Errorf("method = %s, want markers", r.Method)
	}
	if r.Image.Bounds() != image.Rect(0, 0, 700, 700) {
		t.Errorf("rectified bounds = %v", r.Image.Bounds())
	}
	if r.Frame != canonical {
		t.Errorf("frame = %+v, want %+v", r.Frame, canonical)
	}
	if n := backend.live(); n != 0 {
		t.Errorf("%d buffers leaked", n)
	}

	blank, err := p.Rectify(whitePage(300, 200))
	if err != nil {
		t.Fatal(err)
	}
	if blank.Method != AlignmentDegraded || len(blank.Errors) != 2 {
		t.Errorf("blank page: method %s with %d errors", blank.Method, len(blank.Errors))
	}
	if blank.Image.Bounds() != image.Rect(0, 0, 300, 200) {
		t.Errorf("degraded image bounds = %v", blank.Image.Bounds())
	}

	if _, err := p.Rectify(nil); CodeOf(err) != CodeDecode {
		t.Errorf("nil image: expected decode error, got %v", err)
	}
}
