package adapthttp

import (
	"context"
	"net/http"
	"time"

	"fitflow/internal/domain"
)

// entryService is the history, delete-with-undo and trash surface shared by
// every metric service.
type entryService[E any] interface {
	History(ctx context.Context, userID int64) ([]E, error)
	Delete(ctx context.Context, userID, id int64) (string, error)
	Trash(ctx context.Context, userID int64) ([]E, error)
	Restore(ctx context.Context, userID, id int64) error
}

type logFunc[In, E any] func(ctx context.Context, userID int64, in In) (*E, string, error)

type entryRoutes struct {
	list, log, trash, remove, restore http.HandlerFunc
}

func registerEntryRoutes(mux *http.ServeMux, prefix string, rt entryRoutes) {
	mux.HandleFunc("GET "+prefix, rt.list)
	mux.HandleFunc("POST "+prefix, rt.log)
	mux.HandleFunc("GET "+prefix+"/trash", rt.trash)
	mux.HandleFunc("DELETE "+prefix+"/{id}", rt.remove)
	mux.HandleFunc("POST "+prefix+"/{id}/restore", rt.restore)
}

func (s *Server) weightRoutes() entryRoutes {
	return newEntryRoutes[domain.WeightEntry, domain.WeightInput](s, s.svc.Weight, s.svc.Weight.Log)
}

func (s *Server) calorieRoutes() entryRoutes {
	return newEntryRoutes[domain.CalorieEntry, domain.CalorieInput](s, s.svc.Calorie, s.svc.Calorie.Log)
}

func (s *Server) wellnessRoutes() entryRoutes {
	return newEntryRoutes[domain.WellnessEntry, domain.WellnessInput](s, s.svc.Wellness, s.svc.Wellness.Log)
}

func (s *Server) moodRoutes() entryRoutes {
	return newEntryRoutes[domain.MoodEntry, domain.MoodInput](s, s.svc.Mood, s.svc.Mood.Log)
}

func newEntryRoutes[E, In any](s *Server, svc entryService[E], logFn logFunc[In, E]) entryRoutes {
	return entryRoutes{
		list: func(w http.ResponseWriter, r *http.Request) {
			items, err := svc.History(r.Context(), userFromContext(r).ID)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"today": localDayString(time.Now()),
				"items": nonNil(items),
			})
		},
		log: func(w http.ResponseWriter, r *http.Request) {
			var in In
			if err := parseJSON(r, &in); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			entry, undoID, err := logFn(r.Context(), userFromContext(r).ID, in)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"entry": entry, "undoId": undoID})
		},
		trash: func(w http.ResponseWriter, r *http.Request) {
			items, err := svc.Trash(r.Context(), userFromContext(r).ID)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(items)})
		},
		remove: func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			undoID, err := svc.Delete(r.Context(), userFromContext(r).ID, id)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"undoId": undoID})
		},
		restore: func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			if err := svc.Restore(r.Context(), userFromContext(r).ID, id); err != nil {
				s.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		},
	}
}

func (s *Server) handleMoodReact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var in domain.ReactionInput
	if err := parseJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entry, err := s.svc.Mood.React(r.Context(), userFromContext(r).ID, id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[E any](items []E) []E {
	if items == nil {
		return []E{}
	}
	return items
}
