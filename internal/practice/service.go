// Package practice hosts many isolated dialogue sessions and the on-demand
// evaluator and committee runs, and publishes what happens to the event bus.
package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/advocate/internal/anthropic"
	"github.com/MikeSquared-Agency/advocate/internal/challenger"
	"github.com/MikeSquared-Agency/advocate/internal/committee"
	"github.com/MikeSquared-Agency/advocate/internal/evaluator"
	"github.com/MikeSquared-Agency/advocate/internal/hermes"
	"github.com/MikeSquared-Agency/advocate/internal/judge"
	"github.com/MikeSquared-Agency/advocate/internal/scenario"
	"github.com/MikeSquared-Agency/advocate/internal/scoring"
	"github.com/MikeSquared-Agency/advocate/internal/session"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrUnknownScope = errors.New("unknown reset scope")
)

const DefaultIntensity = 3

// CommitteePoster shares finished committee reviews with humans.
type CommitteePoster interface {
	PostCommitteeReview(ctx context.Context, review *committee.Review) (string, error)
}

type Options struct {
	LLM      anthropic.Completer
	Profile  judge.Profile
	Rules    scoring.Rules
	MaxTurns int
	// TTL is how long an idle session is kept. Zero keeps sessions forever.
	TTL     time.Duration
	Presets *scenario.Catalog
	// Events and Slack are optional.
	Events hermes.Publisher
	Slack  CommitteePoster
	Logger *slog.Logger
	Now    func() time.Time
}

type Service struct {
	llm       anthropic.Completer
	judge     *judge.Judge
	rules     scoring.Rules
	maxTurns  int
	ttl       time.Duration
	presets   *scenario.Catalog
	evaluator *evaluator.Evaluator
	committee *committee.Committee
	events    hermes.Publisher
	slack     CommitteePoster
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Profile.Name == "" {
		opts.Profile = judge.Balanced
	}
	if opts.Rules.Name == "" {
		opts.Rules = scoring.Canonical
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = session.DefaultMaxTurns
	}
	return &Service{
		llm:       opts.LLM,
		judge:     judge.New(opts.LLM, opts.Profile, opts.Logger),
		rules:     opts.Rules,
		maxTurns:  opts.MaxTurns,
		ttl:       opts.TTL,
		presets:   opts.Presets,
		evaluator: evaluator.New(opts.LLM, opts.Logger),
		committee: committee.New(opts.LLM, opts.Logger),
		events:    opts.Events,
		slack:     opts.Slack,
		logger:    opts.Logger,
		now:       opts.Now,
		sessions:  make(map[string]*session.Session),
	}
}

type CreateRequest struct {
	Role      string `json:"role"`
	Intensity int    `json:"intensity"`
	Mode      string `json:"mode"`
}

// NormalizeRole trims a role; an empty role falls back to challenger.DefaultRole.
func NormalizeRole(role string) string {
	role = strings.TrimSpace(role)
	if role == "" {
		return challenger.DefaultRole
	}
	return role
}

func (s *Service) Create(req CreateRequest) (*session.Session, error) {
	mode := session.Practice
	if req.Mode != "" {
		m, err := session.ParseMode(req.Mode)
		if err != nil {
			return nil, err
		}
		mode = m
	}
	intensity := req.Intensity
	if intensity == 0 {
		intensity = DefaultIntensity
	}

	sess, err := session.New(session.Config{
		Role:      NormalizeRole(req.Role),
		Intensity: intensity,
		Mode:      mode,
	}, session.Options{
		MaxTurns:   s.maxTurns,
		Rules:      s.rules,
		Judge:      s.judge,
		NewPersona: s.newPersona,
		Notifier:   session.NotifierFunc(s.publishSessionEvent),
		Logger:     s.logger,
		Now:        s.now,
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	total := len(s.sessions)
	s.mu.Unlock()

	cfg := sess.Config()
	s.logger.Info("session created", "session_id", sess.ID(), "role", cfg.Role, "intensity", cfg.Intensity, "mode", cfg.Mode, "sessions", total)
	return sess, nil
}

func (s *Service) newPersona(role string, intensity int) (session.Persona, error) {
	p, err := challenger.New(s.llm, role, intensity)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.sessions, id)
	s.logger.Info("session deleted", "session_id", id)
	return nil
}

func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) Submit(ctx context.Context, id, text string) (session.TurnResult, error) {
	sess, err := s.Get(id)
	if err != nil {
		return session.TurnResult{}, err
	}
	return sess.Submit(ctx, text)
}

func (s *Service) Retry(ctx context.Context, id string) (session.TurnResult, error) {
	sess, err := s.Get(id)
	if err != nil {
		return session.TurnResult{}, err
	}
	return sess.Retry(ctx)
}

func (s *Service) Reconfigure(id, role string, intensity int) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	return sess.Reconfigure(NormalizeRole(role), intensity)
}

func (s *Service) SetMode(id, mode string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	m, err := session.ParseMode(mode)
	if err != nil {
		return err
	}
	return sess.SetMode(m)
}

// Reset scope is "conversation" (keeps score and streak) or "game".
func (s *Service) Reset(id, scope string) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	switch scope {
	case "", "conversation":
		return sess.ResetConversation()
	case "game":
		return sess.ResetGame()
	}
	return fmt.Errorf("%w: %q", ErrUnknownScope, scope)
}

// ApplyPreset switches the challenger to the preset's role at the current
// intensity, starts a new conversation and plays the opening line as the
// user's first turn.
func (s *Service) ApplyPreset(ctx context.Context, id, name string) (session.TurnResult, error) {
	if s.presets == nil {
		return session.TurnResult{}, fmt.Errorf("%w: %q", scenario.ErrUnknownPreset, name)
	}
	preset, err := s.presets.Find(name)
	if err != nil {
		return session.TurnResult{}, err
	}
	sess, err := s.Get(id)
	if err != nil {
		return session.TurnResult{}, err
	}

	s.logger.Info("preset applied", "session_id", id, "preset", preset.Name, "role", preset.Role)
	return sess.StartPreset(ctx, preset.Role, preset.Opening)
}

func (s *Service) Presets() []scenario.Preset {
	if s.presets == nil {
		return nil
	}
	return s.presets.All()
}

// Evaluate scores the session's transcript without changing the session.
func (s *Service) Evaluate(ctx context.Context, id string) (*evaluator.Result, error) {
	sess, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	res, err := s.evaluator.Evaluate(ctx, sess.Transcript())
	if err != nil {
		return nil, err
	}

	s.publish(hermes.SubjectEvaluationCompleted, hermes.EvaluationCompleted{
		SessionID: id,
		Scores:    res.Coach.Scores,
		Apologies: res.Critic.Counts.Apologies,
		Hedges:    res.Critic.Counts.Hedges,
		Asks:      res.Critic.Counts.ExplicitAsks,
		Timestamp: s.now().UTC(),
	})
	return res, nil
}

// Sweep drops sessions idle for longer than the TTL. Sessions with a turn in
// flight are kept.
func (s *Service) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		snap := sess.Snapshot()
		if snap.Busy || snap.UpdatedAt.After(cutoff) {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	if removed > 0 {
		s.logger.Info("expired idle sessions", "removed", removed, "remaining", len(s.sessions))
	}
	return removed
}

// RunSweeper sweeps on every interval until ctx is cancelled.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Service) publishSessionEvent(e session.Event) {
	evt := hermes.SessionEvent{
		Type:      e.Type,
		SessionID: e.SessionID,
		Mode:      string(e.Mode),
		Reason:    e.Reason,
		Status:    string(e.Game.Status),
		TurnsUsed: e.Game.TurnsUsed,
		MaxTurns:  e.Game.MaxTurns,
		Score:     e.Game.Score,
		Streak:    e.Game.Streak,
		Timestamp: e.Timestamp.UTC(),
	}
	if e.Verdict != nil {
		convinced, confidence := e.Verdict.Convinced, e.Verdict.Confidence
		evt.Convinced = &convinced
		evt.Confidence = &confidence
		evt.Rule = e.Verdict.Rule
	}
	s.publish(hermes.SessionSubject(e.Type), evt)
}

func (s *Service) publish(subject string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(subject, payload); err != nil {
		s.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}
