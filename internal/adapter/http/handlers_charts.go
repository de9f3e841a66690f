package adapthttp

import (
	"net/http"
	"time"
)

func (s *Server) handleChartsDaily(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r)
	days := intQuery(r, "days", 90)
	unit := r.URL.Query().Get("unit")
	if unit == "" {
		unit = "lb"
	}

	points, err := s.svc.Charts.GetDaily(r.Context(), user.ID, days, unit)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"days":  len(points),
		"unit":  unit,
		"today": localDayString(time.Now()),
		"items": points,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dashboard.Get(r.Context(), userFromContext(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
