package omr

import "strconv"

// unresolvedDigit stands in for a student ID position with no mark above
// the threshold when other positions were read.
const unresolvedDigit = "?"

// questionKey addresses the bubbles competing for one answer.
type questionKey struct {
	section  Section
	question int
	column   int
	sub      string
}

// pick returns the highest-confidence bubble above threshold. Equal
// confidences keep the bubble that comes first in grid order.
func pick(bubbles []ScoredBubble, threshold float64) (ScoredBubble, bool) {
	var best ScoredBubble
	found := false
	for _, b := range bubbles {
		if b.Confidence <= threshold {
			continue
		}
		if !found || b.Confidence > best.Confidence {
			best, found = b, true
		}
	}
	return best, found
}

// Extract resolves scored bubbles into answers.
//
// The overall confidence is the mean over all answer items of the winning
// confidence (0 for unresolved items), scaled by the alignment quality.
// Items are the student ID, each section-1 and section-3 question, and each
// section-2 question.
func Extract(bubbles []ScoredBubble, cfg Config, threshold float64, method AlignmentMethod) RecognitionResult {
	cfg = cfg.withDefaults()

	groups := make(map[questionKey][]ScoredBubble)
	for _, b := range bubbles {
		k := questionKey{section: b.Section, question: b.Question}
		switch b.Section {
		case SectionStudentID, Section3:
			k.column = b.Column
		case Section2:
			k.sub = b.SubOption
		}
		groups[k] = append(groups[k], b)
	}

	var items []float64
	result := RecognitionResult{
		Section1: make([]string, cfg.Section1Count),
		Section2: make([]TrueFalseAnswer, cfg.Section2Count),
		Section3: make([]string, cfg.Section3Count),
	}

	id, idConf := extractStudentID(groups, cfg.StudentIDDigits, threshold)
	result.StudentID = id
	items = append(items, idConf)

	for q := range result.Section1 {
		best, ok := pick(groups[questionKey{section: Section1, question: q + 1}], threshold)
		if ok {
			result.Section1[q] = best.Option
			items = append(items, best.Confidence)
		} else {
			items = append(items, 0)
		}
	}

	for q := range result.Section2 {
		var sum float64
		for _, sub := range SubOptions {
			best, ok := pick(groups[questionKey{section: Section2, question: q + 1, sub: sub}], threshold)
			if ok && best.Value != nil {
				result.Section2[q].Set(sub, *best.Value)
				sum += best.Confidence
			}
		}
		items = append(items, sum/float64(len(SubOptions)))
	}

	for q := range result.Section3 {
		var answer string
		var sum float64
		var n int
		for col := 0; col < cfg.Section3Digits; col++ {
			best, ok := pick(groups[questionKey{section: Section3, question: q + 1, column: col}], threshold)
			if ok {
				answer += best.Symbol
				sum += best.Confidence
				n++
			}
		}
		result.Section3[q] = answer
		if n > 0 {
			items = append(items, sum/float64(n))
		} else {
			items = append(items, 0)
		}
	}

	var total float64
	for _, v := range items {
		total += v
	}
	result.Confidence = clampUnit(total / float64(len(items)) * method.Quality())
	return result
}

// extractStudentID reads one digit per column. Its confidence item is the
// mean over columns, with unresolved columns counting 0.
func extractStudentID(groups map[questionKey][]ScoredBubble, digits int, threshold float64) (string, float64) {
	var id string
	var sum float64
	resolved := 0
	for col := 0; col < digits; col++ {
		best, ok := pick(groups[questionKey{section: SectionStudentID, column: col}], threshold)
		if !ok || best.Digit == nil {
			id += unresolvedDigit
			continue
		}
		id += strconv.Itoa(*best.Digit)
		sum += best.Confidence
		resolved++
	}
	if resolved == 0 {
		return UnknownStudentID, 0
	}
	return id, sum / float64(digits)
}
