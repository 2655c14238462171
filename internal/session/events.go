package session

import (
	"time"

	"github.com/MikeSquared-Agency/advocate/internal/judge"
)

const (
	EventTurnJudged    = "turn.judged"
	EventTurnReplied   = "turn.replied"
	EventGameWon       = "game.won"
	EventGameExhausted = "game.exhausted"
	EventReset         = "session.reset"
)

// Event describes a state transition. Notifiers receive events after the
// session lock is released, in the order the transitions happened.
type Event struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	Mode      Mode           `json:"mode"`
	Reason    string         `json:"reason,omitempty"`
	Game      GameState      `json:"game"`
	Verdict   *judge.Verdict `json:"verdict,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }
