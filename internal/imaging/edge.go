package imaging

import (
	"image"
	"math"
)

// EdgeDetectResult contains an edge-detected image encoded as base64 PNG.
//
// The result is a grayscale image where white pixels (255) represent detected
// edges and black pixels (0) represent non-edges.
type EdgeDetectResult struct {
	// Width of the output image in pixels (same as input).
	Width int `json:"width"`

	// Height of the output image in pixels (same as input).
	Height int `json:"height"`

	// ImageBase64 is the edge image encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png" for edge detection results.
	MimeType string `json:"mime_type"`
}

// EdgeDetect runs the same preprocessing the sheet aligner uses (grayscale,
// Gaussian blur with sigma 1, Canny) and returns the edge map as a PNG.
func EdgeDetect(img image.Image, thresholdLow, thresholdHigh float64) (*EdgeDetectResult, error) {
	edges := Canny(Blur(ToGray(img), 1.0), thresholdLow, thresholdHigh)
	encoded, err := EncodePNGBase64(edges)
	if err != nil {
		return nil, err
	}
	return &EdgeDetectResult{
		Width:       edges.Bounds().Dx(),
		Height:      edges.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// Canny performs Canny edge detection on an already-smoothed grayscale image.
//
// Thresholds are gradient magnitudes on the 0-255 intensity scale, matching
// the OpenCV convention (the sheet aligner uses 10/70).
//
// # Algorithm
//
//  1. Gradient computation: Sobel operators for X and Y gradients
//     magnitude = sqrt(Gx² + Gy²), direction = atan2(Gy, Gx)
//
//  2. Non-maximum suppression: thin edges to 1-pixel width by keeping only
//     local maxima in the gradient direction
//
//  3. Hysteresis: pixels above thresholdHigh seed edges; pixels above
//     thresholdLow are kept only when 8-connected to a seed, traced with an
//     explicit stack
//
// The input is not smoothed here.
func Canny(src *image.Gray, thresholdLow, thresholdHigh float64) *image.Gray {
	g := rebase(src)
	width := g.Bounds().Dx()
	height := g.Bounds().Dy()
	result := image.NewGray(image.Rect(0, 0, width, height))
	if width < 3 || height < 3 {
		return result
	}

	at := func(x, y int) float64 {
		return float64(g.Pix[clamp(y, 0, height-1)*g.Stride+clamp(x, 0, width-1)])
	}

	magnitude := make([]float64, width*height)
	direction := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) -
				2*at(x-1, y) + 2*at(x+1, y) -
				at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			magnitude[y*width+x] = math.Sqrt(gx*gx + gy*gy)
			direction[y*width+x] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression
	suppressed := make([]float64, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			angle := direction[i]
			mag := magnitude[i]

			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = magnitude[i-1]
				n2 = magnitude[i+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = magnitude[i-width-1]
				n2 = magnitude[i+width+1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = magnitude[i-width]
				n2 = magnitude[i+width]
			} else {
				n1 = magnitude[i-width+1]
				n2 = magnitude[i+width-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	// Hysteresis
	stack := make([]int, 0, 1024)
	for i, v := range suppressed {
		if v >= thresholdHigh && result.Pix[i] == 0 {
			result.Pix[i] = 255
			stack = append(stack, i)
		}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cx, cy := cur%width, cur/width
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := cx+dx, cy+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					j := ny*width + nx
					if result.Pix[j] == 0 && suppressed[j] >= thresholdLow {
						result.Pix[j] = 255
						stack = append(stack, j)
					}
				}
			}
		}
	}

	return result
}

// clamp constrains an integer value to the range [min, max].
// Used for boundary handling in convolution operations.
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
