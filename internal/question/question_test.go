package question

import (
	"slices"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Paris", "paris"},
		{"  Paris.  ", "paris"},
		{"PARIS,", "paris"},
		{"the Moon .", "the moon"},
		{"", ""},
		{"  .,  ", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLetterIndex(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int
	}{
		{"A", 0}, {"a", 0}, {" b ", 1}, {"C", 2}, {"d", 3},
		{"E", -1}, {"AB", -1}, {"", -1}, {"1", -1},
	}
	for _, tc := range cases {
		if got := LetterIndex(tc.in); got != tc.want {
			t.Errorf("LetterIndex(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeBool(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"true", "true"}, {"True", "true"}, {"T", "true"}, {"yes", "true"},
		{"y", "true"}, {"1", "true"},
		{"false", "false"}, {"F", "false"}, {"no", "false"}, {"N", "false"},
		{"0", "false"},
		{"maybe", ""}, {"", ""}, {"10", ""},
	}
	for _, tc := range cases {
		if got := NormalizeBool(tc.in); got != tc.want {
			t.Errorf("NormalizeBool(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStripOptionPrefix(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"A) Mercury", "Mercury"},
		{"b. Venus", "Venus"},
		{"C: Earth", "Earth"},
		{"(d) Mars", "Mars"},
		{"Mercury", "Mercury"},
		{"Avenue Q", "Avenue Q"}, // no separator, not a prefix
	}
	for _, tc := range cases {
		if got := StripOptionPrefix(tc.in); got != tc.want {
			t.Errorf("StripOptionPrefix(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitize_MultipleChoice(t *testing.T) {
	t.Parallel()

	base := Question{
		Text:    "Which planet is closest to the sun?",
		Type:    TypeMultipleChoice,
		Options: []string{"A) Mercury", "B) Venus", "C) Earth", "D) Mars"},
	}

	t.Run("letter answer resolves to option text", func(t *testing.T) {
		q := base
		q.Answer = "A"
		got, ok := Sanitize(q, false)
		if !ok {
			t.Fatal("Sanitize rejected a valid question")
		}
		if got.Answer != "Mercury" {
			t.Errorf("Answer = %q, want %q", got.Answer, "Mercury")
		}
		if got.Degraded {
			t.Error("question marked degraded")
		}
	})

	t.Run("option prefixes stripped", func(t *testing.T) {
		q := base
		q.Answer = "Mercury"
		got, ok := Sanitize(q, false)
		if !ok {
			t.Fatal("Sanitize rejected a valid question")
		}
		want := []string{"Mercury", "Venus", "Earth", "Mars"}
		if !slices.Equal(got.Options, want) {
			t.Errorf("Options = %v, want %v", got.Options, want)
		}
	})

	t.Run("prefixed answer matches stripped option", func(t *testing.T) {
		q := base
		q.Answer = "a) mercury."
		got, ok := Sanitize(q, false)
		if !ok {
			t.Fatal("Sanitize rejected a valid question")
		}
		if got.Answer != "Mercury" {
			t.Errorf("Answer = %q, want %q", got.Answer, "Mercury")
		}
	})

	t.Run("sentinel answer repaired to first option", func(t *testing.T) {
		for _, sentinel := range []string{"", "unknown", "N/A", "Unparsed", "none"} {
			q := base
			q.Answer = sentinel
			got, ok := Sanitize(q, false)
			if !ok {
				t.Fatalf("Sanitize(%q) rejected a repairable question", sentinel)
			}
			if !got.Degraded {
				t.Errorf("Sanitize(%q): question not marked degraded", sentinel)
			}
			if got.Answer != "Mercury" {
				t.Errorf("Sanitize(%q): Answer = %q, want first option", sentinel, got.Answer)
			}
		}
	})

	t.Run("sentinel answer dropped when dropDegraded", func(t *testing.T) {
		q := base
		q.Answer = "unknown"
		if _, ok := Sanitize(q, true); ok {
			t.Error("Sanitize kept a degraded question with dropDegraded set")
		}
	})

	t.Run("answer matching no option dropped", func(t *testing.T) {
		q := base
		q.Answer = "Jupiter"
		if _, ok := Sanitize(q, false); ok {
			t.Error("Sanitize kept a question whose answer names no option")
		}
	})

	t.Run("fewer than two options dropped", func(t *testing.T) {
		q := base
		q.Options = []string{"Mercury"}
		q.Answer = "Mercury"
		if _, ok := Sanitize(q, false); ok {
			t.Error("Sanitize kept a question with one option")
		}
	})
}

func TestSanitize_TrueFalse(t *testing.T) {
	t.Parallel()

	q := Question{Text: "The sky is blue.", Type: TypeTrueFalse, Answer: "Yes"}
	got, ok := Sanitize(q, false)
	if !ok {
		t.Fatal("Sanitize rejected a valid true/false question")
	}
	if got.Answer != "true" {
		t.Errorf("Answer = %q, want %q", got.Answer, "true")
	}
	if !slices.Equal(got.Options, []string{"True", "False"}) {
		t.Errorf("Options = %v, want [True False]", got.Options)
	}

	q.Answer = "maybe"
	if _, ok := Sanitize(q, false); ok {
		t.Error("Sanitize kept a true/false question with a non-boolean answer")
	}
}

func TestSanitize_ShortAnswer(t *testing.T) {
	t.Parallel()

	q := Question{
		Text:    "What is the capital of France?",
		Type:    TypeShortAnswer,
		Answer:  " Paris ",
		Options: []string{"stale"},
	}
	got, ok := Sanitize(q, false)
	if !ok {
		t.Fatal("Sanitize rejected a valid short answer question")
	}
	if got.Answer != "Paris" {
		t.Errorf("Answer = %q, want %q", got.Answer, "Paris")
	}
	if got.Options != nil {
		t.Errorf("Options = %v, want nil", got.Options)
	}

	q.Answer = "  "
	if _, ok := Sanitize(q, false); ok {
		t.Error("Sanitize kept a short answer question with an empty answer")
	}
}

func TestSanitize_InvalidShape(t *testing.T) {
	t.Parallel()

	if _, ok := Sanitize(Question{Text: "", Type: TypeShortAnswer, Answer: "x"}, false); ok {
		t.Error("Sanitize kept a question with empty text")
	}
	if _, ok := Sanitize(Question{Text: "x?", Type: "essay", Answer: "x"}, false); ok {
		t.Error("Sanitize kept a question with an unknown type")
	}
}

func TestSanitize_DefaultsDifficulty(t *testing.T) {
	t.Parallel()

	q := Question{Text: "2+2?", Type: TypeShortAnswer, Answer: "4", Difficulty: "impossible"}
	got, ok := Sanitize(q, false)
	if !ok {
		t.Fatal("Sanitize rejected the question")
	}
	if got.Difficulty != DifficultyMedium {
		t.Errorf("Difficulty = %q, want %q", got.Difficulty, DifficultyMedium)
	}
}

func TestReassignIDs(t *testing.T) {
	t.Parallel()

	qs := []Question{{ID: 7}, {ID: 0}, {ID: 3}}
	ReassignIDs(qs)
	for i, q := range qs {
		if q.ID != i {
			t.Errorf("qs[%d].ID = %d, want %d", i, q.ID, i)
		}
	}
}
