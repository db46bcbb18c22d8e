// Package answer judges raw user answers against quiz questions.
package answer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/quizzardhq/quizzard/internal/question"
)

// fuzzyMinRunes is the minimum answer length for fuzzy matching to apply.
// Short answers are too easy to brute-force with one-letter variations.
const fuzzyMinRunes = 6

// Verdict is the outcome of judging one raw answer.
type Verdict struct {
	// Accepted reports whether the input was syntactically valid for the
	// question type. Rejected inputs never count as an attempt.
	Accepted bool

	// Correct reports whether an accepted input matches the canonical answer.
	Correct bool
}

// Parser judges raw textual answers. The zero value applies exact-match
// rules only; Fuzzy additionally tolerates a single-character slip in longer
// short answers.
type Parser struct {
	// Fuzzy accepts short answers within Levenshtein distance 1 when both the
	// given and the canonical form are at least six runes long.
	Fuzzy bool
}

// Judge evaluates raw against q.
//
// Multiple choice accepts a letter A–D, a 1-based option number, or option
// text. True/false accepts common truthy and falsy spellings. Short answers
// compare canonicalized forms, with substring containment in either
// direction counting as correct.
func (p Parser) Judge(raw string, q question.Question) Verdict {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Verdict{}
	}

	switch q.Type {
	case question.TypeMultipleChoice:
		idx, ok := ResolveOption(raw, q.Options)
		if !ok {
			return Verdict{}
		}
		correct := question.Normalize(q.Options[idx]) == question.Normalize(q.Answer)
		return Verdict{Accepted: true, Correct: correct}

	case question.TypeTrueFalse:
		b := question.NormalizeBool(raw)
		if b == "" {
			return Verdict{}
		}
		return Verdict{Accepted: true, Correct: b == q.Answer}

	case question.TypeShortAnswer:
		return Verdict{Accepted: true, Correct: p.shortAnswerCorrect(raw, q.Answer)}
	}
	return Verdict{}
}

// ResolveOption maps raw multiple-choice input to an option index. It accepts
// a letter A–D, a 1-based number, or text equal to one of the options after
// normalization. Returns false for input naming no option.
func ResolveOption(raw string, options []string) (int, bool) {
	if idx := question.LetterIndex(raw); idx >= 0 && idx < len(options) {
		return idx, true
	}
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		if n >= 1 && n <= len(options) {
			return n - 1, true
		}
		return 0, false
	}
	want := question.Normalize(raw)
	for i, opt := range options {
		if question.Normalize(opt) == want {
			return i, true
		}
	}
	return 0, false
}

// shortAnswerCorrect compares canonical forms: equal, substring in either
// direction, or (when enabled) within Levenshtein distance 1 for longer
// answers.
func (p Parser) shortAnswerCorrect(raw, canonical string) bool {
	given := question.Normalize(raw)
	want := question.Normalize(canonical)
	if given == "" || want == "" {
		return false
	}
	if given == want || strings.Contains(want, given) || strings.Contains(given, want) {
		return true
	}
	if p.Fuzzy &&
		utf8.RuneCountInString(given) >= fuzzyMinRunes &&
		utf8.RuneCountInString(want) >= fuzzyMinRunes {
		return matchr.Levenshtein(given, want) <= 1
	}
	return false
}
