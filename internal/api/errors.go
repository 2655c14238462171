package api

import (
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/advocate/internal/anthropic"
	"github.com/MikeSquared-Agency/advocate/internal/challenger"
	"github.com/MikeSquared-Agency/advocate/internal/committee"
	"github.com/MikeSquared-Agency/advocate/internal/evaluator"
	"github.com/MikeSquared-Agency/advocate/internal/practice"
	"github.com/MikeSquared-Agency/advocate/internal/scenario"
	"github.com/MikeSquared-Agency/advocate/internal/session"
)

var errBadRequest = errors.New("invalid request body")

type errorResponse struct {
	Error string `json:"error"`
	// Retryable is set when the user message was kept and the turn can be
	// re-run with the retry endpoint.
	Retryable bool `json:"retryable,omitempty"`
}

// statusFor maps domain errors to HTTP status codes. Order matters:
// ErrGameOver wraps ErrInvalidTurn.
func statusFor(err error) int {
	switch {
	case errors.Is(err, practice.ErrNotFound), errors.Is(err, scenario.ErrUnknownPreset):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrGameOver),
		errors.Is(err, session.ErrNoPendingTurn):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidTurn), errors.Is(err, evaluator.ErrNothingToEvaluate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest),
		errors.Is(err, session.ErrInvalidMode),
		errors.Is(err, practice.ErrUnknownScope),
		errors.Is(err, challenger.ErrInvalidIntensity),
		errors.Is(err, challenger.ErrEmptyRole),
		errors.Is(err, committee.ErrEmptyMemo),
		errors.Is(err, committee.ErrInvalidRounds):
		return http.StatusBadRequest
	case errors.Is(err, anthropic.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrGenerationFailed), errors.Is(err, anthropic.ErrGeneration):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", code, "error", err)
	}
	writeJSON(w, code, errorResponse{
		Error:     err.Error(),
		Retryable: errors.Is(err, session.ErrGenerationFailed),
	})
}
