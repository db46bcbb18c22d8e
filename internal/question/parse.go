package question

import (
	"encoding/json"
	"fmt"
	"strings"
)

// rawQuestion mirrors the JSON shape the prompt asks for, with fallback field
// names models commonly substitute.
type rawQuestion struct {
	Text          string   `json:"text"`
	Question      string   `json:"question"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	Choices       []string `json:"choices"`
	Answer        string   `json:"answer"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty"`
	Category      string   `json:"category"`
}

// rawBatch handles models that wrap the array in an object.
type rawBatch struct {
	Questions []rawQuestion `json:"questions"`
}

// parseBatch extracts a question batch from raw LLM output. It tolerates
// markdown code fences and an enclosing {"questions": [...]} object, but the
// payload itself must be valid JSON.
func parseBatch(content string) ([]Question, error) {
	body := extractJSON(content)
	if body == "" {
		return nil, fmt.Errorf("no JSON payload in response")
	}

	var raws []rawQuestion
	if err := json.Unmarshal([]byte(body), &raws); err != nil {
		var batch rawBatch
		if err2 := json.Unmarshal([]byte(body), &batch); err2 != nil || len(batch.Questions) == 0 {
			return nil, fmt.Errorf("decode question batch: %w", err)
		}
		raws = batch.Questions
	}

	qs := make([]Question, 0, len(raws))
	for _, r := range raws {
		text := r.Text
		if text == "" {
			text = r.Question
		}
		answer := r.Answer
		if answer == "" {
			answer = r.CorrectAnswer
		}
		options := r.Options
		if len(options) == 0 {
			options = r.Choices
		}
		qs = append(qs, Question{
			Text:        text,
			Type:        Type(strings.ToLower(strings.TrimSpace(r.Type))),
			Options:     options,
			Answer:      answer,
			Explanation: strings.TrimSpace(r.Explanation),
			Difficulty:  Difficulty(strings.ToLower(strings.TrimSpace(r.Difficulty))),
			Category:    strings.TrimSpace(r.Category),
		})
	}
	return qs, nil
}

// extractJSON returns the outermost JSON array or object in content,
// discarding surrounding prose and markdown fences.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if fenced, ok := strings.CutPrefix(content, "```json"); ok {
		content = fenced
	} else if fenced, ok := strings.CutPrefix(content, "```"); ok {
		content = fenced
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	start := strings.IndexAny(content, "[{")
	if start < 0 {
		return ""
	}
	var end int
	if content[start] == '[' {
		end = strings.LastIndex(content, "]")
	} else {
		end = strings.LastIndex(content, "}")
	}
	if end <= start {
		return ""
	}
	return content[start : end+1]
}
