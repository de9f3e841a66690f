package adapthttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"fitflow/internal/app"
	"fitflow/internal/domain"
)

type contextKey string

const userContextKey contextKey = "user"

// userFromContext returns the authenticated user. The auth middleware
// guarantees one is present on every /api route behind it.
func userFromContext(r *http.Request) *domain.User {
	u, _ := r.Context().Value(userContextKey).(*domain.User)
	if u == nil {
		return &domain.User{}
	}
	return u
}

func withUser(r *http.Request, u *domain.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userContextKey, u))
}

// authMiddleware validates session tokens and forward auth headers.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.disableAuth {
			next.ServeHTTP(w, withUser(r, &domain.User{ID: s.testUserID}))
			return
		}

		// Forward auth from a reverse proxy takes precedence.
		if remoteUser := r.Header.Get("Remote-User"); remoteUser != "" {
			user, err := s.svc.Auth.ValidateForwardAuth(r.Context(), remoteUser)
			if err == nil && user != nil {
				next.ServeHTTP(w, withUser(r, user))
				return
			}
		}

		cookie, err := r.Cookie(sessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}

		user, err := s.svc.Auth.ValidateSession(r.Context(), cookie.Value, r.UserAgent())
		if errors.Is(err, app.ErrSessionNotFound) || errors.Is(err, app.ErrSessionExpired) || errors.Is(err, app.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}

		next.ServeHTTP(w, withUser(r, user))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware records method, path, status and duration of every
// request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.log.LogAttrs(r.Context(), level, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
