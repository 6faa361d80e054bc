package imaging

import (
	"image"

	"github.com/ironsheep/bubble-sheet-mcp/internal/geometry"
)

// Component is an 8-connected group of foreground (non-zero) pixels.
type Component struct {
	// Pixels holds every pixel of the component in visit order.
	Pixels []geometry.Point

	// Bounds is the inclusive-exclusive bounding box of the pixels.
	Bounds image.Rectangle
}

// Fill returns the fraction of the bounding box covered by the component.
func (c Component) Fill() float64 {
	area := c.Bounds.Dx() * c.Bounds.Dy()
	if area == 0 {
		return 0
	}
	return float64(len(c.Pixels)) / float64(area)
}

// ConnectedComponents finds 8-connected groups of non-zero pixels in a binary
// image. Components with fewer than minPixels pixels are discarded as noise.
//
// Components are returned in raster order of their first pixel, which keeps
// the output deterministic for a given input.
func ConnectedComponents(bin *image.Gray, minPixels int) []Component {
	g := rebase(bin)
	width, height := g.Bounds().Dx(), g.Bounds().Dy()
	visited := make([]bool, width*height)

	var components []Component
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if g.Pix[i] == 0 || visited[i] {
				continue
			}
			comp := floodFill(g, visited, x, y, width, height)
			if len(comp.Pixels) >= minPixels {
				components = append(components, comp)
			}
		}
	}
	return components
}

// floodFill performs iterative flood-fill from a starting point.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow
// on large regions. Uses 8-connectivity (includes diagonal neighbors).
func floodFill(g *image.Gray, visited []bool, startX, startY, width, height int) Component {
	comp := Component{Bounds: image.Rect(startX, startY, startX+1, startY+1)}
	stack := []image.Point{{X: startX, Y: startY}}
	visited[startY*width+startX] = true

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		comp.Pixels = append(comp.Pixels, geometry.Pt(float64(p.X), float64(p.Y)))
		comp.Bounds = comp.Bounds.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := p.X+dx, p.Y+dy
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				j := ny*width + nx
				if visited[j] || g.Pix[j] == 0 {
					continue
				}
				visited[j] = true
				stack = append(stack, image.Point{X: nx, Y: ny})
			}
		}
	}
	return comp
}
