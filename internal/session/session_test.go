package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MikeSquared-Agency/advocate/internal/anthropic"
	"github.com/MikeSquared-Agency/advocate/internal/judge"
	"github.com/MikeSquared-Agency/advocate/internal/scoring"
	"github.com/MikeSquared-Agency/advocate/internal/signals"
	"github.com/MikeSquared-Agency/advocate/internal/transcript"
)

// fakeJudge replays model confidences through the real override rules.
type fakeJudge struct {
	mu          sync.Mutex
	confidences []float64
	err         error
	calls       int
}

func (j *fakeJudge) Judge(_ context.Context, tr transcript.Transcript) (judge.Verdict, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	if j.err != nil {
		return judge.Verdict{}, j.err
	}
	conf := 0.0
	if len(j.confidences) > 0 {
		conf = j.confidences[0]
		j.confidences = j.confidences[1:]
	}
	model := judge.Verdict{Confidence: conf, Rationale: "model", Tips: []string{}}
	return judge.Apply(judge.Balanced, model, signals.Extract(tr.LatestUser())), nil
}

type fakePersona struct {
	mu      sync.Mutex
	role    string
	calls   int
	err     error
	started chan struct{}
	release chan struct{}
	seen    []transcript.Transcript
}

func (p *fakePersona) PushbackReply(_ context.Context, tr transcript.Transcript) (string, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	err := p.err
	p.seen = append(p.seen, tr)
	started, release := p.started, p.release
	p.mu.Unlock()

	if started != nil {
		close(started)
		<-release
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("pushback %d", n), nil
}

func (p *fakePersona) ConcessionMessage() string {
	return "concede " + p.role
}

type harness struct {
	judge    *fakeJudge
	personas []*fakePersona
	events   []Event
	mu       sync.Mutex
}

func (h *harness) persona() *fakePersona {
	return h.personas[len(h.personas)-1]
}

func (h *harness) eventTypes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

func newHarness(t *testing.T, mode Mode, confidences ...float64) (*Session, *harness) {
	t.Helper()
	h := &harness{judge: &fakeJudge{confidences: confidences}}
	s, err := New(Config{Role: "landlord", Intensity: 3, Mode: mode}, Options{
		ID:    "test-session",
		Rules: scoring.Canonical,
		Judge: h.judge,
		NewPersona: func(role string, intensity int) (Persona, error) {
			if intensity < 1 || intensity > 5 {
				return nil, errors.New("bad intensity")
			}
			p := &fakePersona{role: role}
			h.personas = append(h.personas, p)
			return p, nil
		},
		Notifier: NotifierFunc(func(e Event) {
			h.mu.Lock()
			h.events = append(h.events, e)
			h.mu.Unlock()
		}),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, h
}

func TestGame_WinPath(t *testing.T) {
	s, h := newHarness(t, Game, 0.63)

	res, err := s.Submit(context.Background(), "I need a $500 refund by Friday because the service was never delivered.")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if !res.Conceded || res.Verdict == nil || !res.Verdict.Convinced {
		t.Fatalf("expected concession, got %+v", res)
	}
	if res.Verdict.Signals.Count() != 4 {
		t.Errorf("expected 4 signals, got %d", res.Verdict.Signals.Count())
	}

	snap := s.Snapshot()
	want := transcript.Transcript{
		{Speaker: transcript.User, Text: "I need a $500 refund by Friday because the service was never delivered."},
		{Speaker: transcript.Challenger, Text: "concede landlord"},
	}
	if diff := cmp.Diff(want, snap.Transcript); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
	if !snap.Game.GameOver || snap.Game.Status != Won {
		t.Errorf("expected won game, got %+v", snap.Game)
	}
	if snap.Game.Streak != 1 || snap.Game.Score != 10 || snap.Game.TurnsUsed != 0 {
		t.Errorf("unexpected game state: %+v", snap.Game)
	}
	if h.persona().calls != 0 {
		t.Errorf("no pushback expected on a winning turn, got %d calls", h.persona().calls)
	}
	if diff := cmp.Diff([]string{EventTurnJudged, EventGameWon}, h.eventTypes()); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestGame_ExhaustionPath(t *testing.T) {
	s, h := newHarness(t, Game, 0.2, 0.3, 0.57)

	// Build a streak first so the reset is observable.
	s.mu.Lock()
	s.game.Streak = 2
	s.mu.Unlock()

	msgs := []string{"could you maybe reconsider", "please", "it would be nice"}
	for i, m := range msgs {
		res, err := s.Submit(context.Background(), m)
		if err != nil {
			t.Fatalf("turn %d: %v", i+1, err)
		}
		if res.Conceded {
			t.Fatalf("turn %d: unexpected concession", i+1)
		}
		if res.Game.TurnsUsed != i+1 {
			t.Errorf("turn %d: turns_used = %d", i+1, res.Game.TurnsUsed)
		}
	}

	snap := s.Snapshot()
	if snap.Game.TurnsUsed != 3 || !snap.Game.GameOver || snap.Game.Status != Exhausted {
		t.Errorf("expected exhausted after 3 turns, got %+v", snap.Game)
	}
	if snap.Game.Streak != 0 {
		t.Errorf("expected streak reset, got %d", snap.Game.Streak)
	}
	if snap.Game.Score != 2 {
		t.Errorf("expected one confidence bonus (0.57), got score %d", snap.Game.Score)
	}
	for _, e := range snap.Transcript {
		if e.Speaker == transcript.Challenger && e.Text == "concede landlord" {
			t.Error("no concession expected on exhaustion")
		}
	}
	if len(snap.Transcript) != 6 {
		t.Errorf("expected 6 entries, got %d", len(snap.Transcript))
	}
	types := h.eventTypes()
	if types[len(types)-1] != EventGameExhausted {
		t.Errorf("expected final exhausted event, got %v", types)
	}
}

func TestGame_TurnBonuses(t *testing.T) {
	s, _ := newHarness(t, Game, 0.5, 0.1)

	// Amount signal, confidence 0.5: +1 signal, +2 confidence.
	if _, err := s.Submit(context.Background(), "it was 3 weeks ago"); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Game.Score; got != 3 {
		t.Errorf("expected score 3, got %d", got)
	}
	// No signals, low confidence: nothing.
	if _, err := s.Submit(context.Background(), "hmm"); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Game.Score; got != 3 {
		t.Errorf("expected score unchanged, got %d", got)
	}
}

func TestPractice_NeverJudges(t *testing.T) {
	s, h := newHarness(t, Practice)

	for i := 0; i < 5; i++ {
		res, err := s.Submit(context.Background(), "I need a $500 refund by Friday because reasons")
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if res.Verdict != nil || res.Conceded {
			t.Fatalf("practice turn must not carry a verdict: %+v", res)
		}
	}

	if h.judge.calls != 0 {
		t.Errorf("expected zero judge calls, got %d", h.judge.calls)
	}
	if h.persona().calls != 5 {
		t.Errorf("expected one pushback per turn, got %d", h.persona().calls)
	}
	snap := s.Snapshot()
	if len(snap.Transcript) != 10 {
		t.Errorf("expected 10 entries, got %d", len(snap.Transcript))
	}
	if snap.Game.TurnsUsed != 0 || snap.Game.Score != 0 || snap.Game.GameOver {
		t.Errorf("practice must not touch game bookkeeping: %+v", snap.Game)
	}
}

func TestTerminalLockout(t *testing.T) {
	s, h := newHarness(t, Game, 0.9)

	if _, err := s.Submit(context.Background(), "that doesn't work for me"); err != nil {
		t.Fatal(err)
	}
	before := s.Snapshot()
	if !before.Game.GameOver {
		t.Fatal("expected game over after concession")
	}

	for i := 0; i < 3; i++ {
		_, err := s.Submit(context.Background(), "one more thing")
		if !errors.Is(err, ErrGameOver) || !errors.Is(err, ErrInvalidTurn) {
			t.Fatalf("expected ErrGameOver wrapping ErrInvalidTurn, got %v", err)
		}
	}
	if _, err := s.Retry(context.Background()); !errors.Is(err, ErrGameOver) {
		t.Errorf("expected retry to be locked out, got %v", err)
	}

	after := s.Snapshot()
	if diff := cmp.Diff(before.Transcript, after.Transcript); diff != "" {
		t.Errorf("transcript changed after game over:\n%s", diff)
	}
	if before.Game != after.Game {
		t.Errorf("game state changed: %+v -> %+v", before.Game, after.Game)
	}
	if h.judge.calls != 1 {
		t.Errorf("expected no judge calls after game over, got %d", h.judge.calls)
	}
}

func TestTurnMonotonicity(t *testing.T) {
	s, _ := newHarness(t, Game, 0.1, 0.1, 0.9)

	prev := 0
	texts := []string{"hmm", "well", "that does not work for me"}
	for i, text := range texts {
		res, err := s.Submit(context.Background(), text)
		if err != nil {
			t.Fatal(err)
		}
		if res.Game.TurnsUsed < prev {
			t.Fatalf("turns_used decreased: %d -> %d", prev, res.Game.TurnsUsed)
		}
		wantDelta := 1
		if res.Conceded {
			wantDelta = 0
		}
		if res.Game.TurnsUsed-prev != wantDelta {
			t.Errorf("turn %d: delta %d, want %d", i+1, res.Game.TurnsUsed-prev, wantDelta)
		}
		prev = res.Game.TurnsUsed
	}
	if prev != 2 {
		t.Errorf("expected 2 turns used before the win, got %d", prev)
	}
}

func TestInvalidTurn_NothingRecorded(t *testing.T) {
	s, h := newHarness(t, Game)

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := s.Submit(context.Background(), text); !errors.Is(err, ErrInvalidTurn) {
			t.Errorf("Submit(%q): expected ErrInvalidTurn, got %v", text, err)
		}
	}
	if len(s.Transcript()) != 0 || h.judge.calls != 0 {
		t.Error("blank input must not be recorded or judged")
	}
}

func TestReconfigure_ClearsState(t *testing.T) {
	s, h := newHarness(t, Game, 0.1, 0.9)

	if _, err := s.Submit(context.Background(), "hmm"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background(), "I won't accept that"); err != nil {
		t.Fatal(err)
	}
	if s.Snapshot().Game.Score == 0 {
		t.Fatal("expected nonzero score before reconfiguring")
	}

	if err := s.Reconfigure("boss", 5); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Transcript) != 0 {
		t.Errorf("expected empty transcript, got %d entries", len(snap.Transcript))
	}
	want := GameState{MaxTurns: 3, Status: Active}
	if snap.Game != want {
		t.Errorf("expected fresh game state, got %+v", snap.Game)
	}
	if snap.Config != (Config{Role: "boss", Intensity: 5, Mode: Game}) {
		t.Errorf("unexpected config: %+v", snap.Config)
	}
	if len(h.personas) != 2 || h.persona().role != "boss" {
		t.Errorf("expected a new persona for the new role")
	}
	if snap.LastVerdict != nil {
		t.Error("expected last verdict cleared")
	}
}

func TestReconfigure_NoopAndInvalid(t *testing.T) {
	s, h := newHarness(t, Practice)
	if _, err := s.Submit(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}

	if err := s.Reconfigure("landlord", 3); err != nil {
		t.Fatal(err)
	}
	if len(s.Transcript()) != 2 || len(h.personas) != 1 {
		t.Error("unchanged settings must be a no-op")
	}

	if err := s.Reconfigure("landlord", 9); err == nil {
		t.Fatal("expected invalid intensity to be rejected")
	}
	if len(s.Transcript()) != 2 || s.Config().Intensity != 3 {
		t.Error("failed reconfigure must leave the session intact")
	}
}

func TestResets(t *testing.T) {
	s, h := newHarness(t, Game, 0.9, 0.9)

	if _, err := s.Submit(context.Background(), "I won't do it"); err != nil {
		t.Fatal(err)
	}

	if err := s.ResetConversation(); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if len(snap.Transcript) != 0 || snap.Game.GameOver || snap.Game.Status != Active {
		t.Errorf("conversation not reset: %+v", snap)
	}
	if snap.Game.Score != 10 || snap.Game.Streak != 1 {
		t.Errorf("conversation reset must keep score and streak: %+v", snap.Game)
	}

	if _, err := s.Submit(context.Background(), "I won't do it"); err != nil {
		t.Fatalf("expected input accepted after reset: %v", err)
	}
	if got := s.Snapshot().Game; got.Score != 20 || got.Streak != 2 {
		t.Errorf("expected streak to build across conversations: %+v", got)
	}

	if err := s.ResetGame(); err != nil {
		t.Fatal(err)
	}
	if got := s.Snapshot().Game; got.Score != 0 || got.Streak != 0 {
		t.Errorf("game reset must zero score and streak: %+v", got)
	}

	types := h.eventTypes()
	if types[len(types)-1] != EventReset {
		t.Errorf("expected reset event, got %v", types)
	}
}

func TestSetMode(t *testing.T) {
	s, _ := newHarness(t, Practice, 0.9)

	if _, err := s.Submit(context.Background(), "warm up"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMode(Game); err != nil {
		t.Fatal(err)
	}
	if len(s.Transcript()) != 0 {
		t.Error("entering game mode must start a fresh conversation")
	}

	if _, err := s.Submit(context.Background(), "I won't do that"); err != nil {
		t.Fatal(err)
	}
	if !s.Snapshot().Game.GameOver {
		t.Fatal("expected game over")
	}

	if err := s.SetMode(Practice); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background(), "still here"); err != nil {
		t.Errorf("practice mode must accept input after a finished game: %v", err)
	}
	if got := s.Snapshot().Game.Score; got != 10 {
		t.Errorf("mode changes keep score, got %d", got)
	}

	if err := s.SetMode("arcade"); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
}

func TestGenerationFailure_LeavesStateIntact(t *testing.T) {
	s, h := newHarness(t, Game, 0.1)
	h.persona().err = errors.New("connection reset")

	_, err := s.Submit(context.Background(), "please")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Transcript) != 1 || snap.Transcript[0].Text != "please" {
		t.Errorf("only the user message should be recorded: %+v", snap.Transcript)
	}
	if snap.Game.TurnsUsed != 0 || snap.Game.Score != 0 || !snap.Pending || snap.Busy {
		t.Errorf("unexpected state after failure: %+v", snap)
	}

	// Resubmitting the same text reuses the recorded message.
	h.persona().err = nil
	h.judge.confidences = []float64{0.1}
	res, err := s.Submit(context.Background(), "please")
	if err != nil {
		t.Fatalf("retry by resubmission failed: %v", err)
	}
	snap = s.Snapshot()
	if len(snap.Transcript) != 2 || res.Game.TurnsUsed != 1 || snap.Pending {
		t.Errorf("unexpected state after resubmission: %+v", snap)
	}
}

func TestRetry(t *testing.T) {
	s, h := newHarness(t, Practice)

	if _, err := s.Retry(context.Background()); !errors.Is(err, ErrNoPendingTurn) {
		t.Fatalf("expected ErrNoPendingTurn, got %v", err)
	}

	h.persona().err = errors.New("timeout")
	if _, err := s.Submit(context.Background(), "hello"); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected failure, got %v", err)
	}
	h.persona().err = nil

	res, err := s.Retry(context.Background())
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if res.Reply != "pushback 2" {
		t.Errorf("unexpected reply %q", res.Reply)
	}
	if got := s.Transcript(); len(got) != 2 || got[0].Text != "hello" {
		t.Errorf("unexpected transcript after retry: %+v", got)
	}
}

func TestConfigurationError_Distinguishable(t *testing.T) {
	s, h := newHarness(t, Game)
	h.judge.err = fmt.Errorf("judge turn: %w", anthropic.ErrConfiguration)

	_, err := s.Submit(context.Background(), "hello")
	if !errors.Is(err, anthropic.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if errors.Is(err, ErrGenerationFailed) {
		t.Error("configuration error must not look like a generation failure")
	}
	if h.persona().calls != 0 {
		t.Error("no pushback expected after a configuration error")
	}
}

func TestBusyGuard(t *testing.T) {
	s, h := newHarness(t, Practice)
	p := h.persona()
	p.started = make(chan struct{})
	p.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "first")
		done <- err
	}()
	<-p.started

	if _, err := s.Submit(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for concurrent submit, got %v", err)
	}
	if err := s.ResetConversation(); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for reset, got %v", err)
	}
	if err := s.Reconfigure("boss", 1); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for reconfigure, got %v", err)
	}
	if err := s.SetMode(Game); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for mode change, got %v", err)
	}
	if _, err := s.StartPreset(context.Background(), "boss", "opening"); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for preset, got %v", err)
	}
	if !s.Snapshot().Busy {
		t.Error("snapshot should report the turn in flight")
	}

	close(p.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}

	got := s.Transcript()
	if len(got) != 2 || got[0].Text != "first" {
		t.Errorf("rejected turn must not be recorded: %+v", got)
	}
}

func TestStartPreset(t *testing.T) {
	s, h := newHarness(t, Practice)
	if _, err := s.Submit(context.Background(), "old conversation"); err != nil {
		t.Fatal(err)
	}

	res, err := s.StartPreset(context.Background(), "boss", "  Can we move the deadline?  ")
	if err != nil {
		t.Fatalf("StartPreset: %v", err)
	}
	if res.Reply != "pushback 1" {
		t.Errorf("expected the new persona to answer, got %q", res.Reply)
	}

	snap := s.Snapshot()
	if snap.Config != (Config{Role: "boss", Intensity: 3, Mode: Practice}) {
		t.Errorf("unexpected config: %+v", snap.Config)
	}
	if len(snap.Transcript) != 2 || snap.Transcript[0].Text != "Can we move the deadline?" {
		t.Errorf("expected a fresh transcript opening with the preset line, got %+v", snap.Transcript)
	}
	if len(h.personas) != 2 || h.persona().role != "boss" {
		t.Error("expected a new persona for the preset role")
	}

	h.mu.Lock()
	var reasons []string
	for _, e := range h.events {
		if e.Type == EventReset {
			reasons = append(reasons, e.Reason)
		}
	}
	h.mu.Unlock()
	if len(reasons) != 1 || reasons[0] != "preset" {
		t.Errorf("expected one preset reset event, got %v", reasons)
	}

	if _, err := s.StartPreset(context.Background(), "boss", "   "); !errors.Is(err, ErrInvalidTurn) {
		t.Errorf("expected ErrInvalidTurn for a blank opening, got %v", err)
	}
	if len(s.Transcript()) != 2 {
		t.Error("a rejected preset must leave the session untouched")
	}
}

func TestStartPreset_OpeningHoldsTheSession(t *testing.T) {
	s, h := newHarness(t, Practice)
	p := h.persona()
	p.started = make(chan struct{})
	p.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		// Same role keeps the persona, so the blocking fake answers the opening.
		_, err := s.StartPreset(context.Background(), "landlord", "opening line")
		done <- err
	}()
	<-p.started

	if _, err := s.Submit(context.Background(), "sneaking in"); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy while the opening runs, got %v", err)
	}

	close(p.release)
	if err := <-done; err != nil {
		t.Fatalf("StartPreset: %v", err)
	}
	got := s.Transcript()
	if len(got) != 2 || got[0].Text != "opening line" {
		t.Errorf("expected only the opening exchange, got %+v", got)
	}
}

func TestContextSentIncludesTriggeringMessage(t *testing.T) {
	s, h := newHarness(t, Practice)
	if _, err := s.Submit(context.Background(), "latest"); err != nil {
		t.Fatal(err)
	}
	seen := h.persona().seen[0]
	if seen.LatestUser() != "latest" {
		t.Errorf("generative context must include the triggering message, got %+v", seen)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"practice": Practice, " GAME ": Game} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode(""); !errors.Is(err, ErrInvalidMode) {
		t.Errorf("expected ErrInvalidMode, got %v", err)
	}
}
