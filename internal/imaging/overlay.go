package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/bubble-sheet-mcp/internal/geometry"
)

// OverlayBox is one bubble outline to draw on a diagnostic overlay.
type OverlayBox struct {
	Rect       geometry.Rect
	Confidence float64
	Selected   bool
}

// OverlayResult contains the rendered overlay as base64 PNG.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Boxes       int    `json:"boxes"`
}

// Default overlay colours: empty bubbles shade from lowHex to highHex as their
// confidence rises; selected bubbles are drawn in selectedHex.
const (
	DefaultLowHex      = "#3A7BD5"
	DefaultHighHex     = "#F5A623"
	DefaultSelectedHex = "#D0021B"
)

// DrawOverlay renders bubble outlines on top of base.
//
// Outline colour is blended in HCL space between lowHex (confidence 0) and
// highHex (confidence 1); selected bubbles use selectedHex and a doubled
// stroke. Invalid hex strings fall back to the defaults.
func DrawOverlay(base image.Image, boxes []OverlayBox, lowHex, highHex, selectedHex string) (*OverlayResult, error) {
	low := parseHexColor(lowHex, DefaultLowHex)
	high := parseHexColor(highHex, DefaultHighHex)
	selected := parseHexColor(selectedHex, DefaultSelectedHex)

	b := base.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), base, b.Min, draw.Src)

	for _, box := range boxes {
		c := low.BlendHcl(high, clampUnit(box.Confidence)).Clamped()
		stroke := 1
		if box.Selected {
			c = selected
			stroke = 2
		}
		strokeRect(canvas, box.Rect.Image(canvas.Bounds()), toRGBA(c), stroke)
	}

	encoded, err := EncodePNGBase64(canvas)
	if err != nil {
		return nil, err
	}
	return &OverlayResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
		Boxes:       len(boxes),
	}, nil
}

// parseHexColor parses "#RRGGBB", falling back to def on error.
func parseHexColor(hex, def string) colorful.Color {
	if c, err := colorful.Hex(hex); err == nil {
		return c
	}
	c, _ := colorful.Hex(def)
	return c
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.RGBA, width int) {
	if r.Empty() {
		return
	}
	for i := 0; i < width; i++ {
		inner := r.Inset(i)
		if inner.Empty() {
			return
		}
		for x := inner.Min.X; x < inner.Max.X; x++ {
			img.SetRGBA(x, inner.Min.Y, c)
			img.SetRGBA(x, inner.Max.Y-1, c)
		}
		for y := inner.Min.Y; y < inner.Max.Y; y++ {
			img.SetRGBA(inner.Min.X, y, c)
			img.SetRGBA(inner.Max.X-1, y, c)
		}
	}
}
