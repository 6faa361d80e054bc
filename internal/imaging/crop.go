package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// CropClamped extracts r from img after clipping it to the image bounds.
//
// The returned image has its origin at (0,0). An error is returned only when
// nothing of r remains after clipping.
func CropClamped(img *image.Gray, r image.Rectangle) (*image.Gray, error) {
	clipped := r.Intersect(img.Bounds())
	if clipped.Empty() {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, img.Bounds())
	}
	return redChannel(imaging.Crop(img, clipped)), nil
}

// MeanStdDev returns the mean and population standard deviation of all pixel
// intensities in g.
func MeanStdDev(g *image.Gray) (mean, stddev float64, err error) {
	b := g.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0, 0, fmt.Errorf("empty image")
	}

	var sum, sumSq float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[(y-b.Min.Y)*g.Stride : (y-b.Min.Y)*g.Stride+b.Dx()]
		for _, v := range row {
			f := float64(v)
			sum += f
			sumSq += f * f
		}
	}
	mean = sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance), nil
}
