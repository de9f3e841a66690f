package adapthttp

import (
	"errors"
	"net/http"

	"fitflow/internal/autocommit"
	"fitflow/internal/domain"
)

func (s *Server) handleQuickLogState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"inputs": s.svc.QuickLog.State(r.Context(), userFromContext(r).ID),
	})
}

func (s *Server) handleQuickLogChange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value float64 `json:"value"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snap, err := s.svc.QuickLog.Change(r.Context(), userFromContext(r).ID, r.PathValue("metric"), req.Value)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"input": snap})
}

// handleQuickLogCommit saves the input now. A rejected value leaves the
// input dirty; the snapshot is returned with the error so the tile can show
// it.
func (s *Server) handleQuickLogCommit(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.QuickLog.Commit(r.Context(), userFromContext(r).ID, r.PathValue("metric"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"input": snap})
	case errors.Is(err, autocommit.ErrEmpty), errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]any{"input": snap, "error": err.Error()})
	default:
		s.fail(w, r, err)
	}
}

func (s *Server) handleQuickLogCancel(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.QuickLog.Cancel(r.Context(), userFromContext(r).ID, r.PathValue("metric"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"input": snap})
}

func (s *Server) handleQuickLogAutoCommit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user := userFromContext(r)
	s.svc.QuickLog.SetAutoCommit(r.Context(), user.ID, req.Enabled)
	writeJSON(w, http.StatusOK, map[string]any{"inputs": s.svc.QuickLog.State(r.Context(), user.ID)})
}
