package adapthttp

import (
	"errors"
	"net/http"

	"fitflow/internal/undo"
)

// handleUndoList returns the user's pending undo items and drains the
// confirmations recorded since the last poll.
func (s *Server) handleUndoList(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	items := s.svc.Undo.List(user.ID)
	var notices []undo.Notice
	if s.svc.Notices != nil {
		notices = s.svc.Notices.Drain(user.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":   nonNil(items),
		"notices": nonNil(notices),
	})
}

func (s *Server) handleUndoExecute(w http.ResponseWriter, r *http.Request) {
	if !s.svc.Undo.ExecuteUndoFor(userFromContext(r).ID, r.PathValue("id")) {
		writeError(w, http.StatusNotFound, errors.New("nothing to undo"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"undone": true})
}

func (s *Server) handleUndoDismiss(w http.ResponseWriter, r *http.Request) {
	dismissed := s.svc.Undo.DismissFor(userFromContext(r).ID, r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]any{"dismissed": dismissed})
}
