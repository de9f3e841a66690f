package adapthttp

import (
	"errors"
	"net/http"

	"fitflow/internal/app"
	"fitflow/internal/domain"
)

func (s *Server) handlePhotoList(w http.ResponseWriter, r *http.Request) {
	photos, err := s.svc.Photo.List(r.Context(), userFromContext(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": nonNil(photos)})
}

// handlePhotoUpload accepts a multipart form with a "photo" file and
// optional "day" and "notes" fields.
func (s *Server) handlePhotoUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxPhotoBytes+1<<20)
	if err := r.ParseMultipartForm(app.MaxPhotoBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errors.New("image must be smaller than 5MB"))
			return
		}
		writeError(w, http.StatusBadRequest, domain.Invalid("invalid upload: %v", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.Invalid("photo file is required"))
		return
	}
	defer func() { _ = file.Close() }()

	photo, err := s.svc.Photo.Upload(r.Context(), userFromContext(r).ID, app.PhotoUpload{
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
		Day:         r.FormValue("day"),
		Notes:       r.FormValue("notes"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"photo": photo})
}

func (s *Server) handlePhotoDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.svc.Photo.Delete(r.Context(), userFromContext(r).ID, id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// ObjectServer serves objects from an in-memory store under /files/.
func ObjectServer(get func(path string) ([]byte, bool)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, ok := get(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", http.DetectContentType(b))
		_, _ = w.Write(b)
	})
}
