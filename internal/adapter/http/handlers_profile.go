package adapthttp

import (
	"fmt"
	"net/http"

	"fitflow/internal/domain"
)

func (s *Server) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Profile.Get(r.Context(), userFromContext(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	var u domain.ProfileUpdate
	if err := parseJSON(r, &u); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user := userFromContext(r)
	p, err := s.svc.Profile.Update(r.Context(), user.ID, u)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if u.Preferences != nil {
		s.svc.QuickLog.SetAutoCommit(r.Context(), user.ID, p.Preferences.AutoCommit)
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	kind := domain.Kind(r.PathValue("kind"))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, domain.Invalid("unknown kind %q", kind))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(kind)+".csv"))
	if err := s.svc.Export.WriteCSV(r.Context(), w, userFromContext(r).ID, kind); err != nil {
		w.Header().Del("Content-Disposition")
		s.fail(w, r, err)
	}
}
