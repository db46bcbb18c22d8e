// Package config provides the configuration schema, loader, and LLM provider
// registry for the Quizzard quiz bot.
package config

// LogLevel controls log verbosity for the Quizzard server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Quizzard.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Discord   DiscordConfig   `yaml:"discord"`
	Storage   StorageConfig   `yaml:"storage"`
	Providers ProvidersConfig `yaml:"providers"`
	Quiz      QuizConfig      `yaml:"quiz"`
	Answers   AnswersConfig   `yaml:"answers"`
	Scoring   ScoringConfig   `yaml:"scoring"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the metrics/health server listens on
	// (e.g., ":8080"). Empty disables the HTTP server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// DiscordConfig holds Discord bot settings.
type DiscordConfig struct {
	// Token is the Discord bot token.
	Token string `yaml:"token"`

	// GuildID restricts slash-command registration to one guild.
	// Empty registers commands globally.
	GuildID string `yaml:"guild_id"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// PostgresDSN is the PostgreSQL connection string for quiz statistics and
	// recovery snapshots. Empty runs the bot on the in-memory store: quizzes
	// work, but stats do not survive a restart.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ProvidersConfig declares the LLM providers available for question
// generation and their preference order.
type ProvidersConfig struct {
	// Order lists provider names in preference order. The question generator
	// rotates through this list when a provider fails.
	Order []string `yaml:"order"`

	// Entries configures each named provider.
	Entries map[string]ProviderEntry `yaml:"entries"`
}

// ProviderEntry is the common configuration block shared by all LLM providers.
// The map key in [ProvidersConfig.Entries] selects the registered constructor.
type ProviderEntry struct {
	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above.
	Options map[string]any `yaml:"options"`
}

// QuizConfig holds the quiz engine tunables. Zero values fall back to the
// defaults applied by [ApplyDefaults].
type QuizConfig struct {
	// SoloMaxQuestions caps the question count for solo quizzes.
	SoloMaxQuestions int `yaml:"solo_max_questions"`

	// GroupMaxQuestions caps the question count for group quizzes.
	GroupMaxQuestions int `yaml:"group_max_questions"`

	// QuestionTimeoutMinS and QuestionTimeoutMaxS clamp the per-question
	// answer window in seconds.
	QuestionTimeoutMinS int `yaml:"question_timeout_min_s"`
	QuestionTimeoutMaxS int `yaml:"question_timeout_max_s"`

	// InterQuestionPauseS is the pause between a reveal and the next question.
	InterQuestionPauseS int `yaml:"inter_question_pause_s"`

	// SessionInactivityS closes sessions idle for longer than this.
	SessionInactivityS int `yaml:"session_inactivity_s"`

	// SessionHardCapS closes sessions running for longer than this.
	SessionHardCapS int `yaml:"session_hard_cap_s"`

	// RecoveryTTLS is how long an interruption snapshot stays announceable.
	RecoveryTTLS int `yaml:"recovery_ttl_s"`

	// AnswerChannelCapacity bounds the per-session answer inbox.
	AnswerChannelCapacity int `yaml:"answer_channel_capacity"`

	// DropDegraded drops questions whose answer had to be guessed instead of
	// keeping them playable with the first option as a best-guess answer.
	DropDegraded bool `yaml:"drop_degraded"`
}

// AnswersConfig holds answer-judging tunables.
type AnswersConfig struct {
	// Fuzzy additionally accepts short answers within Levenshtein distance 1
	// for words of six or more runes. Off by default.
	Fuzzy bool `yaml:"fuzzy"`
}

// ScoringConfig holds scoring tunables.
type ScoringConfig struct {
	// BaseByDifficulty maps difficulty ("easy", "medium", "hard") to base
	// points. Missing keys fall back to 10/20/30.
	BaseByDifficulty map[string]int `yaml:"base_by_difficulty"`
}

// ApplyDefaults fills zero-valued quiz tunables with the documented defaults.
func (c *Config) ApplyDefaults() {
	q := &c.Quiz
	if q.SoloMaxQuestions == 0 {
		q.SoloMaxQuestions = 20
	}
	if q.GroupMaxQuestions == 0 {
		q.GroupMaxQuestions = 5
	}
	if q.QuestionTimeoutMinS == 0 {
		q.QuestionTimeoutMinS = 5
	}
	if q.QuestionTimeoutMaxS == 0 {
		q.QuestionTimeoutMaxS = 120
	}
	if q.InterQuestionPauseS == 0 {
		q.InterQuestionPauseS = 5
	}
	if q.SessionInactivityS == 0 {
		q.SessionInactivityS = 1800
	}
	if q.SessionHardCapS == 0 {
		q.SessionHardCapS = 3600
	}
	if q.RecoveryTTLS == 0 {
		q.RecoveryTTLS = 1800
	}
	if q.AnswerChannelCapacity == 0 {
		q.AnswerChannelCapacity = 64
	}
	if c.Scoring.BaseByDifficulty == nil {
		c.Scoring.BaseByDifficulty = map[string]int{
			"easy":   10,
			"medium": 20,
			"hard":   30,
		}
	}
}
