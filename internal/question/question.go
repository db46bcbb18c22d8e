// Package question defines quiz questions and the LLM-backed source that
// generates them.
package question

import (
	"regexp"
	"strings"
)

// Type classifies how a question is asked and answered.
type Type string

const (
	TypeMultipleChoice Type = "multiple_choice"
	TypeTrueFalse      Type = "true_false"
	TypeShortAnswer    Type = "short_answer"
)

// IsValid reports whether t is a recognised question type.
func (t Type) IsValid() bool {
	switch t {
	case TypeMultipleChoice, TypeTrueFalse, TypeShortAnswer:
		return true
	}
	return false
}

// Difficulty grades a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// IsValid reports whether d is a recognised difficulty.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Question is a single quiz question. Immutable after construction.
type Question struct {
	// ID is the question's ordinal within its batch, 0-based.
	ID int

	// Text is the question prompt.
	Text string

	// Type selects the answer format.
	Type Type

	// Options is the ordered option list for multiple_choice questions.
	// Empty for other types except true_false, which carries {"True","False"}.
	Options []string

	// Answer is the canonical correct value as text. For multiple_choice it is
	// the literal text of the correct option; for true_false it is "true" or
	// "false".
	Answer string

	// Explanation is optional prose shown on reveal.
	Explanation string

	// Difficulty grades the question.
	Difficulty Difficulty

	// Category is free text (e.g., "Astronomy").
	Category string

	// Degraded marks a question whose source answer could not be parsed and
	// was repaired to the first option. The reveal notes it as a best guess.
	Degraded bool
}

// optionPrefix matches a leading "A)", "b.", "C:" or "(d)" style letter
// prefix in option text supplied by the model.
var optionPrefix = regexp.MustCompile(`^\(?[A-Da-d][\.\):]\s+`)

// answerSentinels are model outputs meaning "I could not identify the answer".
var answerSentinels = map[string]bool{
	"":         true,
	"unknown":  true,
	"unparsed": true,
	"n/a":      true,
	"none":     true,
	"unclear":  true,
}

// Normalize lowercases s, trims surrounding space, and strips a trailing
// period or comma. All answer comparison runs on normalized forms.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".,")
	return strings.TrimSpace(s)
}

// StripOptionPrefix removes a pre-existing letter prefix from option text so
// that options render with exactly one set of letter labels.
func StripOptionPrefix(opt string) string {
	return optionPrefix.ReplaceAllString(strings.TrimSpace(opt), "")
}

// LetterIndex maps "A"–"D" (any case) to 0–3, or -1 for anything else.
func LetterIndex(s string) int {
	s = strings.TrimSpace(s)
	if len(s) != 1 {
		return -1
	}
	switch s[0] {
	case 'A', 'a':
		return 0
	case 'B', 'b':
		return 1
	case 'C', 'c':
		return 2
	case 'D', 'd':
		return 3
	}
	return -1
}

// NormalizeBool maps common truthy/falsy spellings to "true"/"false".
// Returns "" when s is neither.
func NormalizeBool(s string) string {
	switch Normalize(s) {
	case "true", "t", "yes", "y", "1":
		return "true"
	case "false", "f", "no", "n", "0":
		return "false"
	}
	return ""
}

// Sanitize validates and repairs a freshly generated question.
//
// Options are stripped of pre-existing letter prefixes. A multiple-choice
// question with a sentinel answer but usable options is repaired by promoting
// the first option and marking the question degraded; when dropDegraded is
// set such questions are dropped instead. Questions failing any other
// invariant are dropped.
//
// The returned bool reports whether the question is playable.
func Sanitize(q Question, dropDegraded bool) (Question, bool) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" || !q.Type.IsValid() {
		return Question{}, false
	}
	if !q.Difficulty.IsValid() {
		q.Difficulty = DifficultyMedium
	}

	switch q.Type {
	case TypeMultipleChoice:
		opts := make([]string, 0, len(q.Options))
		for _, o := range q.Options {
			if stripped := StripOptionPrefix(o); stripped != "" {
				opts = append(opts, stripped)
			}
		}
		if len(opts) < 2 {
			return Question{}, false
		}
		q.Options = opts

		answer := strings.TrimSpace(q.Answer)
		if answerSentinels[Normalize(answer)] {
			if dropDegraded {
				return Question{}, false
			}
			q.Answer = opts[0]
			q.Degraded = true
			return q, true
		}
		if idx := LetterIndex(answer); idx >= 0 && idx < len(opts) {
			q.Answer = opts[idx]
			return q, true
		}
		stripped := StripOptionPrefix(answer)
		for _, o := range opts {
			if Normalize(o) == Normalize(stripped) {
				q.Answer = o
				return q, true
			}
		}
		return Question{}, false

	case TypeTrueFalse:
		b := NormalizeBool(q.Answer)
		if b == "" {
			return Question{}, false
		}
		q.Answer = b
		q.Options = []string{"True", "False"}
		return q, true

	case TypeShortAnswer:
		q.Answer = strings.TrimSpace(q.Answer)
		if q.Answer == "" {
			return Question{}, false
		}
		q.Options = nil
		return q, true
	}
	return Question{}, false
}

// ReassignIDs renumbers questions 0..n-1 in place, preserving order.
// Must run after filtering so IDs stay ordinal.
func ReassignIDs(qs []Question) {
	for i := range qs {
		qs[i].ID = i
	}
}
