package engine

import (
	"math"

	"github.com/quizzardhq/quizzard/internal/question"
)

// DefaultBasePoints is the per-difficulty base award.
var DefaultBasePoints = map[question.Difficulty]int{
	question.DifficultyEasy:   10,
	question.DifficultyMedium: 20,
	question.DifficultyHard:   30,
}

// ScoreInput carries everything the scorer needs for one submission.
type ScoreInput struct {
	Correct        bool
	ResponseTime   float64 // seconds
	Timeout        float64 // seconds
	Difficulty     question.Difficulty
	Mode           Mode
	IsFirstCorrect bool
}

// Scorer computes points from correctness, latency, difficulty and mode.
type Scorer struct {
	base map[question.Difficulty]int
}

// NewScorer creates a Scorer with the given per-difficulty base points.
// Difficulties missing from base fall back to [DefaultBasePoints].
func NewScorer(base map[question.Difficulty]int) *Scorer {
	merged := make(map[question.Difficulty]int, len(DefaultBasePoints))
	for d, pts := range DefaultBasePoints {
		merged[d] = pts
	}
	for d, pts := range base {
		if pts > 0 {
			merged[d] = pts
		}
	}
	return &Scorer{base: merged}
}

// Points returns the award for one submission. A faster answer never scores
// fewer points than a slower one; in FirstCorrectWins only the earliest
// correct responder scores.
func (s *Scorer) Points(in ScoreInput) int {
	if !in.Correct {
		return 0
	}
	if in.Mode == ModeFirstCorrectWins && !in.IsFirstCorrect {
		return 0
	}

	base := s.base[in.Difficulty]
	if base == 0 {
		base = DefaultBasePoints[question.DifficultyEasy]
	}

	f := 0.0
	if in.Timeout > 0 {
		f = math.Max(0, 1-in.ResponseTime/in.Timeout)
	}
	return int(math.Round(float64(base) * (0.5 + 0.5*f)))
}
