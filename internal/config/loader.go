package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists the LLM provider names that ship with Quizzard.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = []string{
	"openai", "anthropic", "gemini", "ollama",
	"deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, validates the result, and
// applies defaults. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Discord.Token == "" {
		errs = append(errs, errors.New("discord.token is required"))
	}

	// Provider order must reference configured entries.
	for i, name := range cfg.Providers.Order {
		if _, ok := cfg.Providers.Entries[name]; !ok {
			errs = append(errs, fmt.Errorf("providers.order[%d] %q has no matching entry in providers.entries", i, name))
		}
		if !slices.Contains(ValidProviderNames, name) {
			slog.Warn("unknown provider name — may be a typo or third-party provider",
				"name", name,
				"known", ValidProviderNames,
			)
		}
	}
	if len(cfg.Providers.Order) == 0 && len(cfg.Providers.Entries) > 0 {
		errs = append(errs, errors.New("providers.order is required when providers.entries is set"))
	}
	if len(cfg.Providers.Entries) == 0 {
		slog.Warn("no LLM providers configured; /quiz start will fail until one is added")
	}
	for name, entry := range cfg.Providers.Entries {
		if entry.Model == "" {
			errs = append(errs, fmt.Errorf("providers.entries.%s.model is required", name))
		}
	}

	// Quiz tunables: zero means "use default", negatives are always wrong.
	q := cfg.Quiz
	if q.SoloMaxQuestions < 0 || q.GroupMaxQuestions < 0 {
		errs = append(errs, errors.New("quiz.*_max_questions must not be negative"))
	}
	if q.QuestionTimeoutMinS < 0 || q.QuestionTimeoutMaxS < 0 {
		errs = append(errs, errors.New("quiz.question_timeout_*_s must not be negative"))
	}
	if q.QuestionTimeoutMinS > 0 && q.QuestionTimeoutMaxS > 0 && q.QuestionTimeoutMinS > q.QuestionTimeoutMaxS {
		errs = append(errs, fmt.Errorf("quiz.question_timeout_min_s %d exceeds quiz.question_timeout_max_s %d", q.QuestionTimeoutMinS, q.QuestionTimeoutMaxS))
	}
	if q.AnswerChannelCapacity < 0 {
		errs = append(errs, errors.New("quiz.answer_channel_capacity must not be negative"))
	}

	for diff, base := range cfg.Scoring.BaseByDifficulty {
		switch diff {
		case "easy", "medium", "hard":
		default:
			errs = append(errs, fmt.Errorf("scoring.base_by_difficulty key %q is invalid; valid keys: easy, medium, hard", diff))
		}
		if base <= 0 {
			errs = append(errs, fmt.Errorf("scoring.base_by_difficulty.%s must be positive", diff))
		}
	}

	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; quiz statistics will not survive a restart")
	}

	return errors.Join(errs...)
}
