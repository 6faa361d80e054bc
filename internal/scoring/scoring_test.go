package scoring

import (
	"math"
	"testing"

	"github.com/ironsheep/bubble-sheet-mcp/internal/omr"
)

func tf(a, b, c, d bool) omr.TrueFalseAnswer {
	return omr.TrueFalseAnswer{A: a, B: b, C: c, D: d}
}

func TestScore_Section1(t *testing.T) {
	rec := omr.RecognitionResult{
		StudentID: "123456",
		Section1:  []string{"A", "B", "", "D"},
	}
	key := AnswerKey{Section1: []string{"A", "C", "C", "d"}}

	r, err := Score(rec, key)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if r.Section1 != 0.5 {
		t.Errorf("section1 = %v, want 0.5", r.Section1)
	}
	if r.Max != 1 {
		t.Errorf("max = %v, want 1", r.Max)
	}
	if r.StudentID != "123456" {
		t.Errorf("student ID = %q", r.StudentID)
	}
	if len(r.Questions) != 4 || r.Questions[2].Correct != 0 || r.Questions[3].Correct != 1 {
		t.Errorf("unexpected question detail: %+v", r.Questions)
	}
}

func TestScore_Section2(t *testing.T) {
	want := tf(true, false, true, false)
	tests := []struct {
		name string
		got  omr.TrueFalseAnswer
		pts  float64
	}{
		{"all correct", tf(true, false, true, false), 1.0},
		{"three correct", tf(true, false, true, true), 0.5},
		{"two correct", tf(true, true, true, true), 0.25},
		{"one correct", tf(false, true, true, true), 0.1},
		{"none correct", tf(false, true, false, true), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := omr.RecognitionResult{Section2: []omr.TrueFalseAnswer{tt.got}}
			r, err := Score(rec, AnswerKey{Section2: []omr.TrueFalseAnswer{want}})
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(r.Section2-tt.pts) > 1e-9 {
				t.Errorf("section2 = %v, want %v", r.Section2, tt.pts)
			}
			if r.Questions[0].Expected != "a:T b:F c:T d:F" {
				t.Errorf("expected rendering = %q", r.Questions[0].Expected)
			}
		})
	}
}

func TestScore_Section3(t *testing.T) {
	rec := omr.RecognitionResult{Section3: []string{"3,5", "-2", "", "12"}}
	key := AnswerKey{Section3: []string{"3.5", "-2", "7", "+12"}}

	r, err := Score(rec, key)
	if err != nil {
		t.Fatal(err)
	}
	if r.Section3 != 0.75 {
		t.Errorf("section3 = %v, want 0.75", r.Section3)
	}
}

func TestScore_Totals(t *testing.T) {
	rec := omr.RecognitionResult{
		Section1: []string{"A", "B"},
		Section2: []omr.TrueFalseAnswer{tf(true, true, true, true)},
		Section3: []string{"1"},
	}
	key := AnswerKey{
		Section1: []string{"A", "B", "C"},
		Section2: []omr.TrueFalseAnswer{tf(true, true, true, true)},
		Section3: []string{"1"},
	}

	r, err := Score(rec, key)
	if err != nil {
		t.Fatal(err)
	}
	// Section 1 is graded up to the shorter slice.
	if r.Total != 1.75 || r.Max != 1.75 {
		t.Errorf("total/max = %v/%v, want 1.75/1.75", r.Total, r.Max)
	}
	if len(r.Questions) != 4 {
		t.Errorf("got %d questions, want 4", len(r.Questions))
	}
}

func TestAnswerKey_Validate(t *testing.T) {
	tests := []struct {
		name    string
		key     AnswerKey
		wantErr bool
	}{
		{"empty", AnswerKey{}, false},
		{"valid", AnswerKey{Section1: []string{"a", "D"}, Section3: []string{"-0,5"}}, false},
		{"bad option", AnswerKey{Section1: []string{"E"}}, true},
		{"bad number", AnswerKey{Section3: []string{"1,2,3"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := Score(omr.RecognitionResult{}, AnswerKey{Section1: []string{"X"}}); err == nil {
		t.Error("Score should reject an invalid key")
	}
}

func TestNormalizeNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"3.5", "3,5", true},
		{" +12 ", "12", true},
		{"-0,25", "-0,25", true},
		{",5", ",5", true},
		{"", "", false},
		{"-", "", false},
		{",", "", false},
		{"1-2", "", false},
		{"abc", "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizeNumber(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeNumber(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
