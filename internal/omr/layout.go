package omr

import (
	"github.com/ironsheep/bubble-sheet-mcp/internal/geometry"
)

// Block is a rectangle given as fractions of the sheet frame, whose corners
// are the centres of the four corner markers.
type Block struct {
	X0, Y0, X1, Y1 float64
}

// in maps the block onto concrete frame bounds.
func (b Block) in(frame geometry.Rect) geometry.Rect {
	return geometry.Rect{
		X:      frame.X + b.X0*frame.Width,
		Y:      frame.Y + b.Y0*frame.Height,
		Width:  (b.X1 - b.X0) * frame.Width,
		Height: (b.Y1 - b.Y0) * frame.Height,
	}
}

// Layout describes where each section sits on the printed template.
type Layout struct {
	StudentID Block
	Section1  Block
	Section2  Block
	Section3  Block

	// BubbleFill is the bubble side as a share of the smaller slot side.
	BubbleFill float64

	// Section1Label and Section2Label are the shares of a question cell
	// taken by the printed question number before the first bubble.
	Section1Label float64
	Section2Label float64
}

// Fixed template geometry.
const (
	idRows            = 10
	section1Columns   = 4
	section1Rows      = 10
	section2Columns   = 4
	section2Rows      = 2
	section2TFColumns = 2
	section3Rows      = 12
)

// DefaultLayout returns the layout of the printed answer sheet. The
// top-left corner of the frame is left to the printed header.
func DefaultLayout() Layout {
	return Layout{
		StudentID:     Block{0.55, 0.05, 0.95, 0.30},
		Section1:      Block{0.06, 0.32, 0.94, 0.56},
		Section2:      Block{0.06, 0.58, 0.94, 0.74},
		Section3:      Block{0.06, 0.76, 0.94, 0.95},
		BubbleFill:    0.7,
		Section1Label: 0.25,
		Section2Label: 0.30,
	}
}

// HeaderBlock is the printed title band, left of the student ID block.
func (l Layout) HeaderBlock() Block {
	return Block{0.05, 0.05, l.StudentID.X0 - 0.03, l.StudentID.Y1}
}

// HeaderRegion maps the header block onto frame.
func (l Layout) HeaderRegion(frame geometry.Rect) geometry.Rect {
	return l.HeaderBlock().in(frame)
}

// bubble returns a square of side fill×min(w,h) centred in the slot.
func (l Layout) bubble(x, y, w, h float64) geometry.Rect {
	side := l.BubbleFill * minf(w, h)
	return geometry.Rect{
		X:      x + (w-side)/2,
		Y:      y + (h-side)/2,
		Width:  side,
		Height: side,
	}
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

// Build generates every bubble region for cfg inside frame.
//
// Regions are emitted section by section (student ID, 1, 2, 3) and in a
// fixed order within each section, so the result depends only on frame
// and cfg.
func (l Layout) Build(frame geometry.Rect, cfg Config) ([]BubbleRegion, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if frame.Empty() {
		return nil, &ConfigurationError{Field: "frame", Reason: "has no area"}
	}
	cfg = cfg.withDefaults()

	var regions []BubbleRegion
	regions = l.studentID(regions, frame, cfg.StudentIDDigits)
	regions = l.section1(regions, frame, cfg.Section1Count)
	regions = l.section2(regions, frame, cfg.Section2Count)
	regions = l.section3(regions, frame, cfg.Section3Count, cfg.Section3Digits)
	return regions, nil
}

// studentID lays digit columns left to right at the pitch of the widest
// supported ID, each with rows 0-9 top to bottom.
func (l Layout) studentID(out []BubbleRegion, frame geometry.Rect, digits int) []BubbleRegion {
	b := l.StudentID.in(frame)
	cw := b.Width / MaxStudentIDDigits
	rh := b.Height / idRows
	for col := 0; col < digits; col++ {
		for row := 0; row < idRows; row++ {
			out = append(out, BubbleRegion{
				Rect:    l.bubble(b.X+float64(col)*cw, b.Y+float64(row)*rh, cw, rh),
				Section: SectionStudentID,
				Column:  col,
				Row:     row,
				Digit:   intPtr(row),
			})
		}
	}
	return out
}

// section1 numbers questions down each column: questions 1-10 fill the
// first column, 11-20 the second.
func (l Layout) section1(out []BubbleRegion, frame geometry.Rect, count int) []BubbleRegion {
	b := l.Section1.in(frame)
	cw := b.Width / section1Columns
	rh := b.Height / section1Rows
	label := cw * l.Section1Label
	ow := (cw - label) / float64(len(Options1))

	for q := 0; q < count; q++ {
		col, row := q/section1Rows, q%section1Rows
		x0 := b.X + float64(col)*cw + label
		y0 := b.Y + float64(row)*rh
		for i, opt := range Options1 {
			out = append(out, BubbleRegion{
				Rect:     l.bubble(x0+float64(i)*ow, y0, ow, rh),
				Section:  Section1,
				Question: q + 1,
				Option:   opt,
				Column:   col,
				Row:      row,
			})
		}
	}
	return out
}

// section2 places questions left to right in two rows of four. Inside a
// question, sub-options a-d run top to bottom with the true bubble left
// of the false bubble.
func (l Layout) section2(out []BubbleRegion, frame geometry.Rect, count int) []BubbleRegion {
	b := l.Section2.in(frame)
	cw := b.Width / section2Columns
	ch := b.Height / section2Rows
	label := cw * l.Section2Label
	bw := (cw - label) / section2TFColumns
	rh := ch / float64(len(SubOptions))

	for q := 0; q < count; q++ {
		col, row := q%section2Columns, q/section2Columns
		x0 := b.X + float64(col)*cw + label
		y0 := b.Y + float64(row)*ch
		for si, sub := range SubOptions {
			for vi, value := range []bool{true, false} {
				out = append(out, BubbleRegion{
					Rect:      l.bubble(x0+float64(vi)*bw, y0+float64(si)*rh, bw, rh),
					Section:   Section2,
					Question:  q + 1,
					SubOption: sub,
					Value:     boolPtr(value),
					Column:    vi,
					Row:       si,
				})
			}
		}
	}
	return out
}

// section3 gives every question a band of character columns, each with
// the sign, decimal separator and digit rows.
func (l Layout) section3(out []BubbleRegion, frame geometry.Rect, count, digits int) []BubbleRegion {
	b := l.Section3.in(frame)
	qw := b.Width / MaxSection3Questions
	cw := qw / float64(digits)
	rh := b.Height / section3Rows

	for q := 0; q < count; q++ {
		for col := 0; col < digits; col++ {
			x := b.X + float64(q)*qw + float64(col)*cw
			for row, sym := range Section3Symbols {
				r := BubbleRegion{
					Rect:     l.bubble(x, b.Y+float64(row)*rh, cw, rh),
					Section:  Section3,
					Question: q + 1,
					Column:   col,
					Row:      row,
					Symbol:   sym,
				}
				if row >= 2 {
					r.Digit = intPtr(row - 2)
				}
				out = append(out, r)
			}
		}
	}
	return out
}

// BuildGrid generates the bubble regions of the default layout.
func BuildGrid(frame geometry.Rect, cfg Config) ([]BubbleRegion, error) {
	return DefaultLayout().Build(frame, cfg)
}
