// Package session is the dialogue state machine: it owns one conversation's
// configuration, transcript, game state and challenger persona.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/advocate/internal/anthropic"
	"github.com/MikeSquared-Agency/advocate/internal/judge"
	"github.com/MikeSquared-Agency/advocate/internal/scoring"
	"github.com/MikeSquared-Agency/advocate/internal/transcript"
)

type Mode string

const (
	Practice Mode = "practice"
	Game     Mode = "game"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Practice:
		return Practice, nil
	case Game:
		return Game, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

type Status string

const (
	Active    Status = "active"
	Won       Status = "won"
	Exhausted Status = "exhausted"
)

const DefaultMaxTurns = 3

type Config struct {
	Role      string `json:"role"`
	Intensity int    `json:"intensity"`
	Mode      Mode   `json:"mode"`
}

type GameState struct {
	TurnsUsed int    `json:"turns_used"`
	MaxTurns  int    `json:"max_turns"`
	Score     int    `json:"score"`
	Streak    int    `json:"streak"`
	Status    Status `json:"status"`
	GameOver  bool   `json:"game_over"`
}

// Judge decides whether the challenger concedes on the latest user turn.
type Judge interface {
	Judge(ctx context.Context, tr transcript.Transcript) (judge.Verdict, error)
}

type Persona interface {
	PushbackReply(ctx context.Context, tr transcript.Transcript) (string, error)
	ConcessionMessage() string
}

// PersonaFactory builds the persona for a role and intensity, validating both.
type PersonaFactory func(role string, intensity int) (Persona, error)

type Options struct {
	ID         string
	MaxTurns   int
	Rules      scoring.Rules
	Judge      Judge
	NewPersona PersonaFactory
	Notifier   Notifier
	Logger     *slog.Logger
	Now        func() time.Time
}

// TurnResult reports what a completed turn did.
type TurnResult struct {
	Reply    string         `json:"reply"`
	Conceded bool           `json:"conceded"`
	Verdict  *judge.Verdict `json:"verdict,omitempty"`
	Game     GameState      `json:"game"`
	Mode     Mode           `json:"mode"`
}

type Snapshot struct {
	ID          string                `json:"id"`
	Config      Config                `json:"config"`
	Transcript  transcript.Transcript `json:"transcript"`
	Game        GameState             `json:"game"`
	LastVerdict *judge.Verdict        `json:"last_verdict,omitempty"`
	Pending     bool                  `json:"pending_retry"`
	Busy        bool                  `json:"busy"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// Session is safe for concurrent use, but accepts one turn at a time: while a
// turn's generative calls are in flight every mutation returns ErrBusy.
type Session struct {
	id         string
	judge      Judge
	newPersona PersonaFactory
	rules      scoring.Rules
	notifier   Notifier
	logger     *slog.Logger
	now        func() time.Time

	mu          sync.Mutex
	cfg         Config
	persona     Persona
	tr          transcript.Transcript
	game        GameState
	lastVerdict *judge.Verdict
	busy        bool
	pending     bool
	updated     time.Time
}

func New(cfg Config, opts Options) (*Session, error) {
	if opts.NewPersona == nil {
		return nil, errors.New("session: persona factory is required")
	}
	if cfg.Mode == "" {
		cfg.Mode = Practice
	}
	if _, err := ParseMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	if cfg.Mode == Game && opts.Judge == nil {
		return nil, errors.New("session: game mode requires a judge")
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	if opts.Rules.Name == "" {
		opts.Rules = scoring.Canonical
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	persona, err := opts.NewPersona(cfg.Role, cfg.Intensity)
	if err != nil {
		return nil, fmt.Errorf("build persona: %w", err)
	}

	return &Session{
		id:         opts.ID,
		judge:      opts.Judge,
		newPersona: opts.NewPersona,
		rules:      opts.Rules,
		notifier:   opts.Notifier,
		logger:     opts.Logger.With("session_id", opts.ID),
		now:        opts.Now,
		cfg:        cfg,
		persona:    persona,
		game:       GameState{MaxTurns: opts.MaxTurns, Status: Active},
		updated:    opts.Now(),
	}, nil
}

func (s *Session) ID() string { return s.id }

// Submit runs one user turn. Rejected input (blank text, a finished game, a
// turn in flight) leaves the session untouched. Otherwise the user message is
// recorded before any generative call; if generation fails the message stays,
// nothing else changes, and the turn can be retried with Retry or by
// submitting the same text again.
func (s *Session) Submit(ctx context.Context, text string) (TurnResult, error) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if text == "" {
		s.mu.Unlock()
		return TurnResult{}, fmt.Errorf("%w: message is empty", ErrInvalidTurn)
	}
	if err := s.acceptingLocked(); err != nil {
		s.mu.Unlock()
		return TurnResult{}, err
	}

	reuse := s.pending && len(s.tr) > 0 &&
		s.tr[len(s.tr)-1].Speaker == transcript.User && s.tr[len(s.tr)-1].Text == text
	if !reuse {
		s.tr = append(s.tr, transcript.Entry{Speaker: transcript.User, Text: text})
	}
	s.busy = true
	s.pending = false
	s.updated = s.now()
	t := s.beginLocked()
	s.mu.Unlock()

	return s.run(ctx, t)
}

// Retry re-runs the last turn whose generation failed.
func (s *Session) Retry(ctx context.Context) (TurnResult, error) {
	s.mu.Lock()
	if err := s.acceptingLocked(); err != nil {
		s.mu.Unlock()
		return TurnResult{}, err
	}
	if !s.pending {
		s.mu.Unlock()
		return TurnResult{}, ErrNoPendingTurn
	}
	s.busy = true
	s.pending = false
	s.updated = s.now()
	t := s.beginLocked()
	s.mu.Unlock()

	return s.run(ctx, t)
}

// StartPreset switches the challenger to role at the current intensity,
// starts a new conversation and runs opening as its first user turn. The
// switch and the start of the turn happen under one lock, so no other turn
// can land in between. A role change also zeroes score and streak.
func (s *Session) StartPreset(ctx context.Context, role, opening string) (TurnResult, error) {
	opening = strings.TrimSpace(opening)
	if opening == "" {
		return TurnResult{}, fmt.Errorf("%w: message is empty", ErrInvalidTurn)
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return TurnResult{}, ErrBusy
	}
	clearScore := false
	if role != s.cfg.Role {
		persona, err := s.newPersona(role, s.cfg.Intensity)
		if err != nil {
			s.mu.Unlock()
			return TurnResult{}, fmt.Errorf("build persona: %w", err)
		}
		s.persona = persona
		s.cfg.Role = role
		clearScore = true
	}
	s.clearLocked(clearScore)
	events := []Event{s.eventLocked(EventReset, "preset", nil)}

	s.tr = append(s.tr, transcript.Entry{Speaker: transcript.User, Text: opening})
	s.busy = true
	t := s.beginLocked()
	s.mu.Unlock()

	s.emit(events)
	return s.run(ctx, t)
}

func (s *Session) acceptingLocked() error {
	if s.busy {
		return ErrBusy
	}
	if s.cfg.Mode == Game && s.game.GameOver {
		return ErrGameOver
	}
	return nil
}

// turn is the state a generative round works from, captured under the lock.
type turn struct {
	mode    Mode
	persona Persona
	tr      transcript.Transcript
}

func (s *Session) beginLocked() turn {
	return turn{mode: s.cfg.Mode, persona: s.persona, tr: s.tr.Clone()}
}

func (s *Session) run(ctx context.Context, t turn) (TurnResult, error) {
	if t.mode == Practice {
		reply, err := t.persona.PushbackReply(ctx, t.tr)
		if err != nil {
			return TurnResult{}, s.fail(err)
		}
		s.mu.Lock()
		s.tr = append(s.tr, transcript.Entry{Speaker: transcript.Challenger, Text: reply})
		res := s.finishLocked(TurnResult{Reply: reply})
		events := []Event{s.eventLocked(EventTurnReplied, "", nil)}
		s.mu.Unlock()
		s.emit(events)
		return res, nil
	}

	v, err := s.judge.Judge(ctx, t.tr)
	if err != nil {
		return TurnResult{}, s.fail(err)
	}

	if v.Convinced {
		concession := t.persona.ConcessionMessage()
		s.mu.Lock()
		s.tr = append(s.tr, transcript.Entry{Speaker: transcript.Challenger, Text: concession})
		s.game.Status = Won
		s.game.GameOver = true
		s.game.Score += s.rules.Win()
		s.game.Streak++
		stored := v
		s.lastVerdict = &stored
		res := s.finishLocked(TurnResult{Reply: concession, Conceded: true, Verdict: &v})
		events := []Event{
			s.eventLocked(EventTurnJudged, "", &v),
			s.eventLocked(EventGameWon, "", &v),
		}
		s.mu.Unlock()

		s.logger.Info("game won", "score", res.Game.Score, "streak", res.Game.Streak, "rule", v.Rule)
		s.emit(events)
		return res, nil
	}

	reply, err := t.persona.PushbackReply(ctx, t.tr)
	if err != nil {
		return TurnResult{}, s.fail(err)
	}

	s.mu.Lock()
	s.tr = append(s.tr, transcript.Entry{Speaker: transcript.Challenger, Text: reply})
	s.game.TurnsUsed++
	s.game.Score += s.rules.TurnBonus(v.Signals.Any(), v.Confidence)
	stored := v
	s.lastVerdict = &stored
	events := []Event{s.eventLocked(EventTurnJudged, "", &v)}
	if s.game.TurnsUsed >= s.game.MaxTurns {
		s.game.Status = Exhausted
		s.game.GameOver = true
		s.game.Streak = 0
		events = append(events, s.eventLocked(EventGameExhausted, "", &v))
	}
	res := s.finishLocked(TurnResult{Reply: reply, Verdict: &v})
	s.mu.Unlock()

	if res.Game.GameOver {
		s.logger.Info("game exhausted", "turns_used", res.Game.TurnsUsed, "score", res.Game.Score)
	}
	s.emit(events)
	return res, nil
}

func (s *Session) finishLocked(res TurnResult) TurnResult {
	s.busy = false
	s.updated = s.now()
	res.Game = s.game
	res.Mode = s.cfg.Mode
	return res
}

// fail releases the turn and keeps the recorded user message for a retry.
// Configuration errors stay distinguishable from generation failures.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.busy = false
	s.pending = true
	s.updated = s.now()
	s.mu.Unlock()

	if errors.Is(err, anthropic.ErrConfiguration) {
		s.logger.Error("turn rejected, text generation not configured", "error", err)
		return err
	}
	s.logger.Warn("turn generation failed", "error", err)
	return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
}

// ResetConversation clears the transcript and the current game. Score and
// streak carry over.
func (s *Session) ResetConversation() error {
	return s.reset("conversation", false)
}

// ResetGame clears the conversation and zeroes score and streak.
func (s *Session) ResetGame() error {
	return s.reset("game", true)
}

func (s *Session) reset(reason string, clearScore bool) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.clearLocked(clearScore)
	events := []Event{s.eventLocked(EventReset, reason, nil)}
	s.mu.Unlock()

	s.emit(events)
	return nil
}

func (s *Session) clearLocked(clearScore bool) {
	s.tr = nil
	s.lastVerdict = nil
	s.pending = false
	s.game.TurnsUsed = 0
	s.game.Status = Active
	s.game.GameOver = false
	if clearScore {
		s.game.Score = 0
		s.game.Streak = 0
	}
	s.updated = s.now()
}

// SetMode switches between practice and game. Entering game mode starts a
// fresh game; entering practice mode lifts any terminal game status.
func (s *Session) SetMode(m Mode) error {
	m, err := ParseMode(string(m))
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if m == s.cfg.Mode {
		s.mu.Unlock()
		return nil
	}
	if m == Game && s.judge == nil {
		s.mu.Unlock()
		return errors.New("session: game mode requires a judge")
	}
	s.cfg.Mode = m
	var events []Event
	if m == Game {
		s.clearLocked(false)
		events = append(events, s.eventLocked(EventReset, "mode", nil))
	} else {
		s.game.Status = Active
		s.game.GameOver = false
		s.game.TurnsUsed = 0
		s.updated = s.now()
	}
	s.mu.Unlock()

	s.emit(events)
	return nil
}

// Reconfigure swaps the challenger. A new persona always starts a new
// conversation with a fresh game state, score and streak included. Unchanged
// settings are a no-op.
func (s *Session) Reconfigure(role string, intensity int) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	if role == s.cfg.Role && intensity == s.cfg.Intensity {
		s.mu.Unlock()
		return nil
	}
	persona, err := s.newPersona(role, intensity)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("build persona: %w", err)
	}
	s.persona = persona
	s.cfg.Role = role
	s.cfg.Intensity = intensity
	s.clearLocked(true)
	events := []Event{s.eventLocked(EventReset, "reconfigured", nil)}
	s.mu.Unlock()

	s.logger.Info("session reconfigured", "role", role, "intensity", intensity)
	s.emit(events)
	return nil
}

func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Session) Transcript() transcript.Transcript {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tr.Clone()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:         s.id,
		Config:     s.cfg,
		Transcript: s.tr.Clone(),
		Game:       s.game,
		Pending:    s.pending,
		Busy:       s.busy,
		UpdatedAt:  s.updated,
	}
	if s.lastVerdict != nil {
		v := *s.lastVerdict
		snap.LastVerdict = &v
	}
	return snap
}

// LastActive is the time of the last accepted mutation.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

func (s *Session) eventLocked(typ, reason string, v *judge.Verdict) Event {
	return Event{
		Type:      typ,
		SessionID: s.id,
		Mode:      s.cfg.Mode,
		Reason:    reason,
		Game:      s.game,
		Verdict:   v,
		Timestamp: s.now(),
	}
}

func (s *Session) emit(events []Event) {
	if s.notifier == nil {
		return
	}
	for _, e := range events {
		s.notifier.Notify(e)
	}
}
