// Command quizzard is the main entry point for the Quizzard quiz bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/quizzardhq/quizzard/internal/answer"
	"github.com/quizzardhq/quizzard/internal/config"
	discordbot "github.com/quizzardhq/quizzard/internal/discord"
	"github.com/quizzardhq/quizzard/internal/discord/commands"
	"github.com/quizzardhq/quizzard/internal/engine"
	"github.com/quizzardhq/quizzard/internal/health"
	"github.com/quizzardhq/quizzard/internal/observe"
	"github.com/quizzardhq/quizzard/internal/question"
	"github.com/quizzardhq/quizzard/internal/resilience"
	"github.com/quizzardhq/quizzard/internal/store"
	"github.com/quizzardhq/quizzard/internal/store/postgres"
	"github.com/quizzardhq/quizzard/pkg/provider/llm"
	"github.com/quizzardhq/quizzard/pkg/provider/llm/anyllm"
	openaillm "github.com/quizzardhq/quizzard/pkg/provider/llm/openai"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "quizzard: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "quizzard: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("quizzard starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "quizzard",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── LLM providers ─────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	named, err := reg.Build(cfg.Providers)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	if len(named) == 0 {
		slog.Error("no LLM providers configured; set providers.order in the config")
		return 1
	}
	chainProviders := make([]resilience.Named, 0, len(named))
	for _, np := range named {
		slog.Info("provider created", "name", np.Name)
		chainProviders = append(chainProviders, resilience.Named{Name: np.Name, Provider: np.Provider})
	}
	chain := resilience.NewChain(resilience.CircuitBreakerConfig{Name: "llm"}, chainProviders...)
	source := question.NewSource(chain, cfg.Quiz.DropDegraded)

	// ── Store ─────────────────────────────────────────────────────────────────
	var (
		st     store.Store
		pinger health.Pinger
	)
	if cfg.Storage.PostgresDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			slog.Error("failed to open postgres store", "err", err)
			return 1
		}
		defer pg.Close()
		st, pinger = pg, pg
		slog.Info("postgres store ready")
	} else {
		st = store.NewMemoryStore()
		slog.Warn("no postgres_dsn configured, using in-memory store; stats will not survive a restart")
	}

	// ── Discord bot ───────────────────────────────────────────────────────────
	bot, err := discordbot.New(ctx, discordbot.Config{
		Token:   cfg.Discord.Token,
		GuildID: cfg.Discord.GuildID,
	})
	if err != nil {
		slog.Error("failed to create Discord bot", "err", err)
		return 1
	}
	slog.Info("discord bot connected", "guild_id", cfg.Discord.GuildID)

	// ── Engine ────────────────────────────────────────────────────────────────
	presenter := discordbot.NewPresenter(bot.Session(), logger)
	eng := engine.New(engineOptions(cfg.Quiz), engine.Deps{
		Source:    source,
		Presenter: presenter,
		Store:     st,
		Scorer:    engine.NewScorer(difficultyBase(cfg.Scoring)),
		Parser:    answer.Parser{Fuzzy: cfg.Answers.Fuzzy},
		Metrics:   metrics,
		Log:       logger,
	})

	ingress := engine.NewAnswerIngress(eng.Registry(), logger)
	discordbot.NewIngress(bot.Session(), ingress, logger)
	commands.NewQuizCommands(bot, eng, logger)

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)
	slog.Info("server ready — press Ctrl+C to shut down")

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return eng.Run(gctx)
	})
	g.Go(func() error {
		if err := bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("discord bot: %w", err)
		}
		return nil
	})
	if cfg.Server.ListenAddr != "" {
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.Server.ListenAddr, metrics, pinger, chain)
		})
	}

	err = g.Wait()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	if cerr := bot.Close(); cerr != nil {
		slog.Warn("discord bot close error", "err", cerr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// "openai" uses the native OpenAI client (JSON response mode); everything
// else goes through the any-llm universal backend.
func registerBuiltinProviders(reg *config.Registry) {
	reg.Register("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, openaillm.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, openaillm.WithOrganization(org))
		}
		return openaillm.New(entry.APIKey, entry.Model, opts...)
	})

	// anthropic, gemini, deepseek, mistral, groq, llamacpp and llamafile all
	// share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.Register(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.Register("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})
}

// engineOptions maps the quiz config section onto engine tunables.
func engineOptions(q config.QuizConfig) engine.Options {
	return engine.Options{
		SoloMaxQuestions:   q.SoloMaxQuestions,
		GroupMaxQuestions:  q.GroupMaxQuestions,
		TimeoutMinS:        q.QuestionTimeoutMinS,
		TimeoutMaxS:        q.QuestionTimeoutMaxS,
		InterQuestionPause: time.Duration(q.InterQuestionPauseS) * time.Second,
		InactivityCap:      time.Duration(q.SessionInactivityS) * time.Second,
		HardCap:            time.Duration(q.SessionHardCapS) * time.Second,
		RecoveryTTL:        time.Duration(q.RecoveryTTLS) * time.Second,
		AnswerInboxCap:     q.AnswerChannelCapacity,
	}
}

// difficultyBase converts the scoring config map to the scorer's key type.
func difficultyBase(s config.ScoringConfig) map[question.Difficulty]int {
	base := make(map[question.Difficulty]int, len(s.BaseByDifficulty))
	for k, v := range s.BaseByDifficulty {
		base[question.Difficulty(k)] = v
	}
	return base
}

// ── HTTP server (metrics + health) ────────────────────────────────────────────

func runHTTPServer(ctx context.Context, addr string, metrics *observe.Metrics, pinger health.Pinger, chain *resilience.Chain) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())

	checkers := []health.Checker{health.Providers(chain)}
	if pinger != nil {
		checkers = append(checkers, health.Database(pinger))
	}
	health.New(checkers...).Register(mux)

	srv := &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Quizzard — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	for i, name := range cfg.Providers.Order {
		label := "Provider"
		if i == 0 {
			label = "Provider (1st)"
		}
		value := name
		if entry, ok := cfg.Providers.Entries[name]; ok && entry.Model != "" {
			value = name + " / " + entry.Model
		}
		printSummaryRow(label, value)
	}
	if cfg.Storage.PostgresDSN != "" {
		printSummaryRow("Storage", "postgres")
	} else {
		printSummaryRow("Storage", "in-memory")
	}
	printSummaryRow("Guild", cfg.Discord.GuildID)
	if cfg.Server.ListenAddr != "" {
		printSummaryRow("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printSummaryRow(label, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", label, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
