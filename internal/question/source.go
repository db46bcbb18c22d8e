package question

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quizzardhq/quizzard/internal/resilience"
	"github.com/quizzardhq/quizzard/pkg/provider/llm"
)

// ErrUnavailable means no LLM provider could be reached for generation.
var ErrUnavailable = errors.New("question generation unavailable")

// ErrInvalid means providers responded but no usable questions could be
// parsed from any response.
var ErrInvalid = errors.New("question generation returned no usable questions")

// maxAttempts is the total number of generation calls per Fetch.
const maxAttempts = 3

// Request describes one question batch to generate.
type Request struct {
	Topic        string
	Count        int
	Type         Type
	Difficulty   Difficulty
	Category     string
	ProviderHint string
}

// Source generates validated question batches from the configured LLM
// providers, rotating providers between attempts. Safe for concurrent use.
type Source struct {
	chain        *resilience.Chain
	dropDegraded bool
	temperature  float64
}

// NewSource creates a Source over the provider chain. When dropDegraded is
// set, questions whose answer had to be guessed are dropped rather than
// repaired.
func NewSource(chain *resilience.Chain, dropDegraded bool) *Source {
	return &Source{
		chain:        chain,
		dropDegraded: dropDegraded,
		temperature:  0.8,
	}
}

// Available reports whether at least one provider can currently serve a
// generation call.
func (s *Source) Available() bool {
	return s.chain.Healthy()
}

// Providers returns the configured provider names in preference order.
func (s *Source) Providers() []string {
	return s.chain.Names()
}

// Fetch generates req.Count validated questions. Up to three provider calls
// are made in total; when a call yields at least 60% of the requested batch,
// the remainder is requested in a follow-up call. The provider rotates
// between attempts. Returns the questions, the name of the provider that
// served the final successful call, and an error when nothing usable could be
// produced.
func (s *Source) Fetch(ctx context.Context, req Request) ([]Question, string, error) {
	if req.Count <= 0 {
		return nil, "", fmt.Errorf("fetch questions: count must be positive, got %d", req.Count)
	}

	start := 0
	if req.ProviderHint != "" {
		if idx := s.chain.IndexOf(req.ProviderHint); idx >= 0 {
			start = idx
		}
	}

	var (
		collected    []Question
		providerUsed string
		lastErr      error
		parsedAny    bool
	)

	for attempt := 0; attempt < maxAttempts && len(collected) < req.Count; attempt++ {
		need := req.Count - len(collected)

		var batch []Question
		name, err := s.chain.Execute(start+attempt, func(name string, p llm.Provider) error {
			qs, genErr := s.generate(ctx, p, req, need)
			if genErr != nil {
				return genErr
			}
			batch = qs
			return nil
		})
		if err != nil {
			if errors.Is(err, errBadResponse) {
				parsedAny = true
			}
			lastErr = err
			continue
		}

		parsedAny = true
		providerUsed = name
		collected = append(collected, batch...)

		slog.Debug("question batch generated",
			"provider", name,
			"requested", need,
			"valid", len(batch),
			"total", len(collected),
		)
	}

	if len(collected) == 0 {
		if parsedAny {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalid, lastErr)
		}
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
	}

	if len(collected) > req.Count {
		collected = collected[:req.Count]
	}
	ReassignIDs(collected)
	return collected, providerUsed, nil
}

// errBadResponse marks a provider call that connected but produced an
// unusable payload, so Fetch can classify the terminal failure.
var errBadResponse = errors.New("unusable response")

// generate makes one completion call and returns the sanitized questions.
func (s *Source) generate(ctx context.Context, p llm.Provider, req Request, count int) ([]Question, error) {
	resp, err := p.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: buildPrompt(req, count)},
		},
		Temperature: s.temperature,
		MaxTokens:   300 * count,
		JSONOnly:    p.Capabilities().SupportsJSONMode,
	})
	if err != nil {
		return nil, err
	}

	raws, err := parseBatch(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadResponse, err)
	}

	qs := make([]Question, 0, len(raws))
	for _, raw := range raws {
		// The request pins type and difficulty; the model's labels win only
		// when the request did not constrain them.
		if req.Type.IsValid() {
			raw.Type = req.Type
		}
		if req.Difficulty.IsValid() {
			raw.Difficulty = req.Difficulty
		}
		if req.Category != "" && raw.Category == "" {
			raw.Category = req.Category
		}
		q, ok := Sanitize(raw, s.dropDegraded)
		if !ok {
			slog.Debug("dropping invalid question", "text", raw.Text)
			continue
		}
		qs = append(qs, q)
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("%w: batch of %d contained no valid questions", errBadResponse, len(raws))
	}
	return qs, nil
}
