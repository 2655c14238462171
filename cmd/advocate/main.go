// advocate runs self-advocacy practice sessions against an LLM challenger,
// plus the shadow investment committee.
//
// Usage:
//
//	advocate serve
//	advocate play [--role=boss] [--intensity=3] [--game]
//	advocate committee -f memo.txt [--deal="Beta Co"] [--rounds=2] [--crossfire]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/advocate/internal/anthropic"
	"github.com/MikeSquared-Agency/advocate/internal/config"
	"github.com/MikeSquared-Agency/advocate/internal/hermes"
	"github.com/MikeSquared-Agency/advocate/internal/judge"
	"github.com/MikeSquared-Agency/advocate/internal/practice"
	"github.com/MikeSquared-Agency/advocate/internal/scenario"
	"github.com/MikeSquared-Agency/advocate/internal/scoring"
	"github.com/MikeSquared-Agency/advocate/internal/slack"
)

var rootCmd = &cobra.Command{
	Use:   "advocate",
	Short: "Practice speaking up against a simulated challenger",
	Long: `advocate pits you against an LLM-played challenger (a boss, a peer, a
customer service rep) who pushes back on your asks. In game mode a judge
decides when you have made your case.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(committeeCmd)
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// deps are the pieces every command builds from configuration.
type deps struct {
	cfg     config.Config
	llm     *anthropic.Client
	profile judge.Profile
	rules   scoring.Rules
	presets *scenario.Catalog
}

func loadDeps() (*deps, error) {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	profile, err := judge.ProfileByName(cfg.JudgeProfile)
	if err != nil {
		return nil, err
	}
	rules, err := scoring.ByName(cfg.ScoringRules)
	if err != nil {
		return nil, err
	}
	presets, err := scenario.Load()
	if err != nil {
		return nil, fmt.Errorf("load presets: %w", err)
	}

	if cfg.AnthropicAPIKey == "" {
		slog.Warn("ANTHROPIC_API_KEY is not set, every generative call will fail")
	}
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	llm.SetRetries(cfg.LLMRetries, 0)

	return &deps{cfg: cfg, llm: llm, profile: profile, rules: rules, presets: presets}, nil
}

// connectHermes returns nil when NATS is not configured.
func (d *deps) connectHermes(ctx context.Context) (*hermes.Client, error) {
	if d.cfg.NatsURL == "" {
		slog.Info("NATS_URL not set, running without event bus")
		return nil, nil
	}
	client, err := hermes.NewClient(ctx, d.cfg.NatsURL, d.cfg.NatsToken, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	slog.Info("NATS connected", "url", d.cfg.NatsURL)
	return client, nil
}

// slackPoster returns nil when Slack is not configured.
func (d *deps) slackPoster() *slack.Poster {
	if d.cfg.SlackBotToken == "" || d.cfg.SlackChannel == "" {
		return nil
	}
	slog.Info("slack poster ready", "channel", d.cfg.SlackChannel)
	return slack.NewPoster(d.cfg.SlackBotToken, d.cfg.SlackChannel, slog.Default())
}

func (d *deps) service(events *hermes.Client, poster *slack.Poster) *practice.Service {
	opts := practice.Options{
		LLM:      d.llm,
		Profile:  d.profile,
		Rules:    d.rules,
		MaxTurns: d.cfg.MaxTurns,
		TTL:      d.cfg.SessionTTL,
		Presets:  d.presets,
		Logger:   slog.Default(),
	}
	// Typed nils must not reach the interface fields.
	if events != nil {
		opts.Events = events
	}
	if poster != nil {
		opts.Slack = poster
	}
	return practice.New(opts)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
