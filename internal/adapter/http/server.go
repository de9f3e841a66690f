package adapthttp

import (
	"log/slog"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"

	"fitflow/internal/app"
	"fitflow/internal/undo"
)

// Services are the application services the HTTP adapter drives.
type Services struct {
	Auth      *app.AuthService
	Weight    *app.WeightService
	Calorie   *app.CalorieService
	Wellness  *app.WellnessService
	Mood      *app.MoodService
	Profile   *app.ProfileService
	Photo     *app.PhotoService
	Charts    *app.ChartsService
	Dashboard *app.DashboardService
	QuickLog  *app.QuickLogService
	Export    *app.ExportService
	Undo      *undo.Queue
	Notices   *undo.Notices
}

// OIDCConfig enables single sign-on through an OpenID Connect provider.
type OIDCConfig struct {
	Enabled      bool
	OAuth2Config oauth2.Config
	Provider     *oidc.Provider
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	svc         Services
	webDir      string
	log         *slog.Logger
	oidcConfig  OIDCConfig
	files       http.Handler
	disableAuth bool
	testUserID  int64
}

// New creates a Server wired to the given application services.
func New(svc Services, webDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, webDir: webDir, log: logger}
}

// WithOIDC enables the SSO routes.
func (s *Server) WithOIDC(cfg OIDCConfig) *Server {
	s.oidcConfig = cfg
	return s
}

// WithFiles serves locally stored objects under /files/. Used with the
// in-memory object store.
func (s *Server) WithFiles(h http.Handler) *Server {
	s.files = h
	return s
}

// WithoutAuth skips authentication and treats every request as userID.
// Tests only.
func (s *Server) WithoutAuth(userID int64) *Server {
	s.disableAuth = true
	s.testUserID = userID
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	public := http.NewServeMux()
	public.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	public.HandleFunc("GET /auth/config", s.handleConfig)
	public.HandleFunc("POST /auth/signup", s.handleSignUp)
	public.HandleFunc("POST /auth/login", s.handleLogin)
	public.HandleFunc("POST /auth/logout", s.handleLogout)
	public.HandleFunc("POST /auth/setup", s.handleSetupUser)
	public.HandleFunc("GET /auth/sso/login", s.handleSSOLogin)
	public.HandleFunc("GET /auth/sso/callback", s.handleSSOCallback)

	api := http.NewServeMux()
	api.HandleFunc("GET /auth/me", s.handleMe)
	api.HandleFunc("POST /auth/password", s.handleChangePassword)

	registerEntryRoutes(api, "/weight", s.weightRoutes())
	registerEntryRoutes(api, "/calories", s.calorieRoutes())
	registerEntryRoutes(api, "/wellness", s.wellnessRoutes())
	registerEntryRoutes(api, "/mood", s.moodRoutes())
	api.HandleFunc("POST /mood/{id}/reactions", s.handleMoodReact)

	api.HandleFunc("GET /undo", s.handleUndoList)
	api.HandleFunc("POST /undo/{id}", s.handleUndoExecute)
	api.HandleFunc("POST /undo/{id}/dismiss", s.handleUndoDismiss)

	api.HandleFunc("GET /quicklog", s.handleQuickLogState)
	api.HandleFunc("PUT /quicklog/autocommit", s.handleQuickLogAutoCommit)
	api.HandleFunc("PUT /quicklog/{metric}", s.handleQuickLogChange)
	api.HandleFunc("POST /quicklog/{metric}/commit", s.handleQuickLogCommit)
	api.HandleFunc("POST /quicklog/{metric}/cancel", s.handleQuickLogCancel)

	api.HandleFunc("GET /dashboard", s.handleDashboard)
	api.HandleFunc("GET /charts/daily", s.handleChartsDaily)

	api.HandleFunc("GET /profile", s.handleProfileGet)
	api.HandleFunc("PATCH /profile", s.handleProfileUpdate)

	api.HandleFunc("GET /photos", s.handlePhotoList)
	api.HandleFunc("POST /photos", s.handlePhotoUpload)
	api.HandleFunc("DELETE /photos/{id}", s.handlePhotoDelete)

	api.HandleFunc("GET /export/{kind}", s.handleExport)

	public.Handle("/", s.authMiddleware(api))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", public))
	root.Handle("GET /metrics", promhttp.Handler())
	if s.files != nil {
		root.Handle("GET /files/", http.StripPrefix("/files/", s.files))
	}
	root.Handle("/", spaFromDisk(s.webDir))

	return s.loggingMiddleware(withNoCache(root))
}
