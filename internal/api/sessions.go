package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/advocate/internal/practice"
)

type turnRequest struct {
	Text string `json:"text"`
}

type configRequest struct {
	Role      string `json:"role"`
	Intensity int    `json:"intensity"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type resetRequest struct {
	// Scope is "conversation" (default) or "game".
	Scope string `json:"scope"`
}

// createSession handles POST /api/v1/sessions
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req practice.CreateRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	sess, err := s.svc.Create(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// submitTurn handles POST /api/v1/sessions/{id}/turns
func (s *Server) submitTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.svc.Submit(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) retryTurn(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) reconfigure(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.svc.Reconfigure(id, req.Role, req.Intensity); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSnapshot(w, id)
}

func (s *Server) setMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.svc.SetMode(id, req.Mode); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSnapshot(w, id)
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.svc.Reset(id, req.Scope); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSnapshot(w, id)
}

func (s *Server) applyPreset(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.ApplyPreset(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Evaluate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": s.svc.Presets()})
}

func (s *Server) writeSnapshot(w http.ResponseWriter, id string) {
	sess, err := s.svc.Get(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}
