// Package scoring grades a recognised answer sheet against an answer key.
//
// Points per section:
//
//	section 1  0.25 per correct option
//	section 2  per question, by number of correct sub-answers:
//	           1 → 0.10, 2 → 0.25, 3 → 0.50, 4 → 1.00
//	section 3  0.25 per exact numeric answer ("." and "," are equivalent)
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/ironsheep/bubble-sheet-mcp/internal/omr"
)

// Point values.
const (
	Section1Points = 0.25
	Section3Points = 0.25
)

// section2Points maps the number of correct sub-answers to points.
var section2Points = [5]float64{0, 0.10, 0.25, 0.50, 1.00}

// AnswerKey holds the expected answers. Slices may be shorter than the
// recognised result; extra recognised answers are ignored.
type AnswerKey struct {
	Section1 []string              `json:"section1"`
	Section2 []omr.TrueFalseAnswer `json:"section2"`
	Section3 []string              `json:"section3"`
}

// Question is the grading of one question.
type Question struct {
	Section  omr.Section `json:"section"`
	Number   int         `json:"number"`
	Expected string      `json:"expected"`
	Got      string      `json:"got"`
	Correct  int         `json:"correct"`
	Points   float64     `json:"points"`
}

// Report is the outcome of grading one sheet.
type Report struct {
	StudentID string     `json:"studentId"`
	Section1  float64    `json:"section1"`
	Section2  float64    `json:"section2"`
	Section3  float64    `json:"section3"`
	Total     float64    `json:"total"`
	Max       float64    `json:"max"`
	Questions []Question `json:"questions"`
}

// Validate checks that every key entry is a well-formed answer.
func (k AnswerKey) Validate() error {
	for i, a := range k.Section1 {
		if !isOption(a) {
			return fmt.Errorf("section1 answer %d: %q is not one of %s", i+1, a, strings.Join(omr.Options1, ","))
		}
	}
	for i, a := range k.Section3 {
		if _, ok := NormalizeNumber(a); !ok {
			return fmt.Errorf("section3 answer %d: %q is not a number", i+1, a)
		}
	}
	return nil
}

// Score grades rec against key. Questions are graded up to the shorter of
// the key and the result.
func Score(rec omr.RecognitionResult, key AnswerKey) (*Report, error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate answer key: %w", err)
	}

	r := &Report{StudentID: rec.StudentID}

	for i := 0; i < min(len(key.Section1), len(rec.Section1)); i++ {
		q := Question{
			Section:  omr.Section1,
			Number:   i + 1,
			Expected: key.Section1[i],
			Got:      rec.Section1[i],
		}
		if strings.EqualFold(q.Got, q.Expected) {
			q.Correct = 1
			q.Points = Section1Points
		}
		r.Section1 += q.Points
		r.Max += Section1Points
		r.Questions = append(r.Questions, q)
	}

	for i := 0; i < min(len(key.Section2), len(rec.Section2)); i++ {
		want, got := key.Section2[i], rec.Section2[i]
		q := Question{
			Section:  omr.Section2,
			Number:   i + 1,
			Expected: formatTrueFalse(want),
			Got:      formatTrueFalse(got),
		}
		for _, sub := range omr.SubOptions {
			if want.Get(sub) == got.Get(sub) {
				q.Correct++
			}
		}
		q.Points = section2Points[q.Correct]
		r.Section2 += q.Points
		r.Max += section2Points[len(omr.SubOptions)]
		r.Questions = append(r.Questions, q)
	}

	for i := 0; i < min(len(key.Section3), len(rec.Section3)); i++ {
		q := Question{
			Section:  omr.Section3,
			Number:   i + 1,
			Expected: key.Section3[i],
			Got:      rec.Section3[i],
		}
		want, _ := NormalizeNumber(q.Expected)
		if got, ok := NormalizeNumber(q.Got); ok && got == want {
			q.Correct = 1
			q.Points = Section3Points
		}
		r.Section3 += q.Points
		r.Max += Section3Points
		r.Questions = append(r.Questions, q)
	}

	r.Section1 = round2(r.Section1)
	r.Section2 = round2(r.Section2)
	r.Section3 = round2(r.Section3)
	r.Total = round2(r.Section1 + r.Section2 + r.Section3)
	r.Max = round2(r.Max)
	return r, nil
}

// NormalizeNumber canonicalises a section-3 answer: "." becomes ",", a
// leading "+" and surrounding space are dropped. It reports false for
// anything that is not an optionally signed decimal number.
func NormalizeNumber(s string) (string, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "+")
	s = strings.ReplaceAll(s, ".", ",")

	body := strings.TrimPrefix(s, "-")
	if body == "" || strings.Count(body, ",") > 1 {
		return "", false
	}
	digits := 0
	for _, r := range body {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ',':
		default:
			return "", false
		}
	}
	if digits == 0 {
		return "", false
	}
	return s, true
}

func isOption(s string) bool {
	for _, o := range omr.Options1 {
		if strings.EqualFold(s, o) {
			return true
		}
	}
	return false
}

// formatTrueFalse renders a section-2 answer as "a:T b:F c:T d:F".
func formatTrueFalse(t omr.TrueFalseAnswer) string {
	parts := make([]string, len(omr.SubOptions))
	for i, sub := range omr.SubOptions {
		v := "F"
		if t.Get(sub) {
			v = "T"
		}
		parts[i] = sub + ":" + v
	}
	return strings.Join(parts, " ")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
