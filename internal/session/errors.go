package session

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTurn rejects a turn before anything is recorded.
	ErrInvalidTurn = errors.New("invalid turn")
	// ErrGameOver is returned for input after the game reached a terminal status.
	// It wraps ErrInvalidTurn.
	ErrGameOver = fmt.Errorf("%w: game is over, reset to play again", ErrInvalidTurn)
	// ErrBusy is returned while a previous turn's generative calls are in flight.
	ErrBusy = errors.New("a turn is already in progress")
	// ErrGenerationFailed means the turn's user message was recorded but no
	// reply was produced. The turn can be retried.
	ErrGenerationFailed = errors.New("generation failed")
	ErrNoPendingTurn    = errors.New("no failed turn to retry")
	ErrInvalidMode      = errors.New("mode must be practice or game")
)
