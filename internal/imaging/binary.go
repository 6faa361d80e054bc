package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
)

// ThresholdInverse marks pixels darker than level as foreground (255) and
// everything else as background (0). Printed markers and filled bubbles are
// dark on light paper, so they become foreground.
func ThresholdInverse(g *image.Gray, level uint8) *image.Gray {
	bin := rebase(segment.Threshold(g, level))
	for i, v := range bin.Pix {
		bin.Pix[i] = 255 - v
	}
	return bin
}

// Dilate grows foreground regions of a binary image by radius pixels, which
// bridges one-pixel gaps in Canny output before contour extraction.
func Dilate(g *image.Gray, radius float64) *image.Gray {
	if radius <= 0 {
		return rebase(g)
	}
	return redChannel(effect.Dilate(g, radius))
}
