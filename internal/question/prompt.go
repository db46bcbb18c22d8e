package question

import (
	"fmt"
	"strings"
)

// systemPrompt instructs the model to emit a machine-readable question batch.
const systemPrompt = `You are a quiz question writer. Respond with a single JSON array and nothing else.
Each element must be an object with these fields:
  "text": the question (string, required)
  "type": one of "multiple_choice", "true_false", "short_answer"
  "options": array of option strings (required for multiple_choice, 4 options, no letter prefixes)
  "answer": the correct answer (for multiple_choice the exact option text or its letter A-D; for true_false "true" or "false")
  "explanation": one sentence of background (string, optional)
  "difficulty": one of "easy", "medium", "hard"
  "category": short topic label (string)
Questions must be factually accurate and unambiguous. Do not include markdown, commentary, or code fences.`

// buildPrompt renders the user message for a generation request.
func buildPrompt(req Request, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d %s quiz question", count, req.Difficulty)
	if count != 1 {
		b.WriteString("s")
	}
	fmt.Fprintf(&b, " about %q.", req.Topic)
	switch req.Type {
	case TypeMultipleChoice:
		b.WriteString(" Every question must be multiple_choice with exactly 4 options.")
	case TypeTrueFalse:
		b.WriteString(" Every question must be true_false.")
	case TypeShortAnswer:
		b.WriteString(" Every question must be short_answer with a concise factual answer of at most a few words.")
	}
	if req.Category != "" {
		fmt.Fprintf(&b, " Use %q as the category label.", req.Category)
	}
	return b.String()
}
