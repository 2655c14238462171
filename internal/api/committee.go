package api

import (
	"mime"
	"net/http"

	"github.com/MikeSquared-Agency/advocate/internal/committee"
)

type committeeRequest struct {
	RequestID string `json:"request_id,omitempty"`
	committee.Request
}

// runCommittee handles POST /api/v1/committee. With ?format=markdown the
// review is returned as a downloadable Markdown file.
func (s *Server) runCommittee(w http.ResponseWriter, r *http.Request) {
	var req committeeRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	out, err := s.svc.RunCommittee(r.Context(), req.RequestID, req.Request)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.FileName}))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(out.Markdown))
		return
	}
	writeJSON(w, http.StatusOK, out)
}
