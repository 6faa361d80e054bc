package omr

import (
	"image"

	"github.com/ironsheep/bubble-sheet-mcp/internal/geometry"
)

// Section identifies the part of the answer sheet a bubble belongs to.
type Section string

const (
	SectionStudentID Section = "studentId"
	Section1         Section = "section1"
	Section2         Section = "section2"
	Section3         Section = "section3"
)

// Section-1 option letters, left to right.
var Options1 = []string{"A", "B", "C", "D"}

// Section-2 sub-option letters, top to bottom.
var SubOptions = []string{"a", "b", "c", "d"}

// Section-3 row symbols, top to bottom: sign, decimal separator, digits.
var Section3Symbols = []string{"-", ",", "0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}

// BubbleRegion is one candidate mark position on the rectified sheet.
//
// Which of the optional fields are set depends on Section:
//
//	studentId  Column (digit position), Row, Digit
//	section1   Question, Option
//	section2   Question, SubOption, Value
//	section3   Question, Column (character position), Row, Symbol, Digit for 0-9
//
// Question numbers start at 1; Column and Row start at 0.
type BubbleRegion struct {
	geometry.Rect
	Section   Section `json:"section"`
	Question  int     `json:"question,omitempty"`
	Option    string  `json:"option,omitempty"`
	SubOption string  `json:"subOption,omitempty"`
	Value     *bool   `json:"value,omitempty"`
	Digit     *int    `json:"digit,omitempty"`
	Column    int     `json:"column"`
	Row       int     `json:"row"`
	Symbol    string  `json:"symbol,omitempty"`
}

// ScoredBubble is a BubbleRegion with the fill confidence measured for one image.
type ScoredBubble struct {
	BubbleRegion
	Confidence float64 `json:"confidence"`
}

// TrueFalseAnswer holds the four sub-answers of one section-2 question.
type TrueFalseAnswer struct {
	A bool `json:"a"`
	B bool `json:"b"`
	C bool `json:"c"`
	D bool `json:"d"`
}

// Get returns the sub-answer for "a".."d". Unknown letters read as false.
func (t TrueFalseAnswer) Get(sub string) bool {
	switch sub {
	case "a":
		return t.A
	case "b":
		return t.B
	case "c":
		return t.C
	case "d":
		return t.D
	}
	return false
}

// Set assigns the sub-answer for "a".."d". Unknown letters are ignored.
func (t *TrueFalseAnswer) Set(sub string, v bool) {
	switch sub {
	case "a":
		t.A = v
	case "b":
		t.B = v
	case "c":
		t.C = v
	case "d":
		t.D = v
	}
}

// UnknownStudentID is reported when no student ID digit could be read.
const UnknownStudentID = "UNKNOWN"

// RecognitionResult is the answer data read from one sheet.
//
// Section slices always have exactly the configured number of entries.
// Unanswered section-1 and section-3 questions are empty strings.
type RecognitionResult struct {
	StudentID  string            `json:"studentId"`
	Section1   []string          `json:"section1"`
	Section2   []TrueFalseAnswer `json:"section2"`
	Section3   []string          `json:"section3"`
	Confidence float64           `json:"confidence"`
}

// AlignmentMethod records how the rectified image was produced.
type AlignmentMethod string

const (
	AlignedByMarkers  AlignmentMethod = "markers"
	AlignedByContour  AlignmentMethod = "contour"
	AlignmentDegraded AlignmentMethod = "degraded"
)

// Diagnostics are intermediate artifacts of one recognition pass, for
// debugging and overlay rendering. They are never needed to use the result.
type Diagnostics struct {
	Method AlignmentMethod `json:"method"`

	// AlignmentErr holds the recovered error of each alignment strategy
	// that failed, in the order they were tried.
	AlignmentErr []error `json:"-"`

	// Corners is the source quadrilateral that was rectified, when aligned.
	Corners *geometry.Quad `json:"corners,omitempty"`

	// Frame is the sheet frame within Rectified.
	Frame geometry.Rect `json:"frame"`

	// Markers are the centres of every accepted reference marker.
	Markers []Marker `json:"markers,omitempty"`

	// Rectified is the grayscale image bubbles were measured on.
	Rectified *image.Gray `json:"-"`

	// Bubbles holds every grid region with its fill confidence.
	Bubbles []ScoredBubble `json:"bubbles,omitempty"`
}

// Result bundles the recognition output with optional diagnostics.
type Result struct {
	Recognition RecognitionResult `json:"recognition"`
	Diagnostics *Diagnostics      `json:"diagnostics,omitempty"`
}
