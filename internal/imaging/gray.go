package imaging

import (
	"image"
	"image/draw"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// ToGray converts any image to an 8-bit grayscale image with its origin at (0,0).
//
// Grayscale sources are copied as-is; colour sources are converted with
// bild's luminance weights (0.3R + 0.6G + 0.1B).
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return rebase(g)
	}
	return redChannel(effect.Grayscale(img))
}

// rebase returns a copy of g whose bounds start at (0,0).
func rebase(g *image.Gray) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), g, b.Min, draw.Src)
	return out
}

// redChannel copies the red channel of an RGBA/NRGBA image into a Gray image.
// Used on the output of filters that return colour images with all three
// channels equal.
func redChannel(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < b.Dy(); y++ {
			row := src.Pix[y*src.Stride:]
			for x := 0; x < b.Dx(); x++ {
				out.Pix[y*out.Stride+x] = row[x*4]
			}
		}
	case *image.RGBA:
		for y := 0; y < b.Dy(); y++ {
			row := src.Pix[y*src.Stride:]
			for x := 0; x < b.Dx(); x++ {
				out.Pix[y*out.Stride+x] = row[x*4]
			}
		}
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				out.Pix[y*out.Stride+x] = uint8(r >> 8)
			}
		}
	}
	return out
}

// Blur applies a Gaussian blur with the given sigma. A non-positive sigma
// returns an unmodified copy.
func Blur(g *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return rebase(g)
	}
	return redChannel(imaging.Blur(g, sigma))
}

// FitWithin down-scales img so that neither side exceeds maxDim, preserving
// aspect ratio. Images already small enough, or maxDim <= 0, are returned
// unchanged. The second return value is the scale factor applied.
func FitWithin(img image.Image, maxDim int) (image.Image, float64) {
	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return img, 1
	}
	out := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	return out, float64(out.Bounds().Dx()) / float64(b.Dx())
}

// ContrastStretch linearly remaps intensities so that the lowPct and highPct
// percentiles land on 0 and 255.
//
// Images whose percentile spread is below minSpread (for example a blank
// page) are returned as an unmodified copy, so noise on a uniform sheet is
// never amplified into marks.
func ContrastStretch(g *image.Gray, lowPct, highPct float64, minSpread int) *image.Gray {
	out := rebase(g)
	total := len(out.Pix)
	if total == 0 {
		return out
	}

	var hist [256]int
	for _, v := range out.Pix {
		hist[v]++
	}

	lo := percentile(hist, total, lowPct)
	hi := percentile(hist, total, highPct)
	if hi-lo < minSpread {
		return out
	}

	var lut [256]uint8
	span := float64(hi - lo)
	for v := 0; v < 256; v++ {
		switch {
		case v <= lo:
			lut[v] = 0
		case v >= hi:
			lut[v] = 255
		default:
			lut[v] = uint8(float64(v-lo)*255/span + 0.5)
		}
	}
	for i, v := range out.Pix {
		out.Pix[i] = lut[v]
	}
	return out
}

func percentile(hist [256]int, total int, pct float64) int {
	target := int(float64(total) * pct / 100)
	acc := 0
	for v, n := range hist {
		acc += n
		if acc > target {
			return v
		}
	}
	return 255
}
