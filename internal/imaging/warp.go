package imaging

import (
	"image"
	"math"

	"github.com/ironsheep/bubble-sheet-mcp/internal/geometry"
)

// WarpPerspective resamples src into a width×height image.
//
// dstToSrc maps every output pixel centre back into src; the value there is
// bilinearly interpolated. Samples falling outside src are filled with
// background, which for answer sheets is white paper.
func WarpPerspective(src *image.Gray, dstToSrc geometry.Homography, width, height int, background uint8) *image.Gray {
	g := rebase(src)
	sw, sh := g.Bounds().Dx(), g.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := dstToSrc.Apply(geometry.Pt(float64(x), float64(y)))
			out.Pix[y*out.Stride+x] = bilinear(g, sw, sh, p.X, p.Y, background)
		}
	}
	return out
}

func bilinear(g *image.Gray, w, h int, fx, fy float64, background uint8) uint8 {
	if fx < -0.5 || fy < -0.5 || fx > float64(w)-0.5 || fy > float64(h)-0.5 {
		return background
	}
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	px := func(x, y int) float64 {
		return float64(g.Pix[clamp(y, 0, h-1)*g.Stride+clamp(x, 0, w-1)])
	}

	top := px(x0, y0)*(1-tx) + px(x0+1, y0)*tx
	bottom := px(x0, y0+1)*(1-tx) + px(x0+1, y0+1)*tx
	v := top*(1-ty) + bottom*ty
	return uint8(math.Max(0, math.Min(255, v+0.5)))
}
