package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/advocate/internal/api"
	"github.com/MikeSquared-Agency/advocate/internal/hermes"
)

const sweepInterval = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the event bus consumers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	d, err := loadDeps()
	if err != nil {
		return err
	}
	cfg := d.cfg
	slog.Info("advocate starting", "port", cfg.Port, "judge_profile", d.profile.Name, "scoring", d.rules.Name)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hermesClient, err := d.connectHermes(ctx)
	if err != nil {
		return err
	}
	if hermesClient != nil {
		defer hermesClient.Close()
	}

	poster := d.slackPoster()
	if poster == nil {
		slog.Warn("slack not configured, committee reviews stay local")
	}

	svc := d.service(hermesClient, poster)

	if hermesClient != nil {
		if err := hermesClient.Subscribe(hermes.SubjectCommitteeRequested, svc.HandleCommitteeRequest); err != nil {
			return err
		}
	}

	go svc.RunSweeper(ctx, sweepInterval)

	srv := api.NewServer(cfg.Port, cfg.APIToken, svc, api.Info{
		Model:        cfg.AnthropicModel,
		JudgeProfile: d.profile.Name,
		Scoring:      d.rules.Name,
		MaxTurns:     cfg.MaxTurns,
		Events:       hermesClient != nil,
		Slack:        poster != nil,
	}, slog.Default())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if hermesClient != nil {
		if err := hermesClient.Publish(hermes.SubjectAgentRegistered, hermes.AgentRegistered{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Port:      cfg.Port,
			Model:     cfg.AnthropicModel,
			Profile:   d.profile.Name,
			Scoring:   d.rules.Name,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("advocate ready", "port", cfg.Port)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		slog.Error("HTTP server error", "error", err)
		return err
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}
	slog.Info("advocate stopped")
	return nil
}
