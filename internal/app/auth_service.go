// Package app holds the application services and business logic.
package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"fitflow/internal/clock"
	"fitflow/internal/domain"
)

// SessionTTL is how long a session stays valid.
const SessionTTL = 24 * time.Hour

var (
	// ErrInvalidCredentials indicates that the provided email or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrSessionNotFound indicates that the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates that the session has expired.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound indicates that the user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists indicates that the email is already registered.
	ErrUserExists = errors.New("an account with this email already exists")
)

// Credentials are the sign-up and sign-in payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// AuthService handles authentication and session management.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	profiles domain.ProfileRepository
	clock    clock.Clock
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		clock:    clock.New(),
	}
}

// WithProfiles makes SignUp seed a default profile for new accounts.
func (s *AuthService) WithProfiles(p domain.ProfileRepository) *AuthService {
	s.profiles = p
	return s
}

// WithClock replaces the service clock; used by tests.
func (s *AuthService) WithClock(c clock.Clock) *AuthService {
	s.clock = c
	return s
}

// SignUp registers a password account and opens a session for it.
func (s *AuthService) SignUp(ctx context.Context, creds Credentials, userAgent, ip string) (string, error) {
	creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
	if err := domain.Validate(creds); err != nil {
		return "", err
	}
	existing, err := s.users.GetByUsername(ctx, creds.Email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", ErrUserExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	user, err := s.users.Create(ctx, creds.Email, string(hash))
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	if s.profiles != nil {
		name, _, _ := strings.Cut(creds.Email, "@")
		p := domain.DefaultProfile(user.ID, name)
		p.UpdatedAt = s.clock.Now()
		if err := s.profiles.SaveProfile(ctx, p); err != nil {
			return "", fmt.Errorf("create profile: %w", err)
		}
	}
	return s.openSession(ctx, user.ID, userAgent, ip)
}

// Login authenticates a user and creates a session.
func (s *AuthService) Login(ctx context.Context, email, password, userAgent, ip string) (string, error) {
	user, err := s.users.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || user == nil || user.PasswordHash == "" {
		return "", ErrInvalidCredentials
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.openSession(ctx, user.ID, userAgent, ip)
}

// Logout invalidates a session.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// ChangePassword replaces the user's password after checking the current one
// and signs out every other session.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if len(next) < 6 {
		return domain.Invalid("password must be at least 6 characters")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user == nil {
		return ErrUserNotFound
	}
	if user.PasswordHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
			return ErrInvalidCredentials
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return s.sessions.DeleteForUser(ctx, userID)
}

// ValidateSession checks if a session token is valid and matches the user agent.
func (s *AuthService) ValidateSession(ctx context.Context, token, userAgent string) (*domain.User, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil || session == nil {
		return nil, ErrSessionNotFound
	}

	if s.clock.Now().After(session.ExpiresAt) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	if session.UserAgent != userAgent {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrSessionExpired
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil || user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// CleanupSessions removes expired sessions.
func (s *AuthService) CleanupSessions(ctx context.Context) error {
	return s.sessions.DeleteExpired(ctx)
}

// CreateInitialUser creates the first account if no users exist yet.
func (s *AuthService) CreateInitialUser(ctx context.Context, email, password string) error {
	count, err := s.users.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("users already exist")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user, err := s.users.Create(ctx, strings.ToLower(email), string(hash))
	if err != nil {
		return err
	}
	if s.profiles != nil {
		name, _, _ := strings.Cut(user.Username, "@")
		return s.profiles.SaveProfile(ctx, domain.DefaultProfile(user.ID, name))
	}
	return nil
}

// ValidateForwardAuth validates a request from a forward-auth proxy.
// It checks for the Remote-User header set by the proxy.
func (s *AuthService) ValidateForwardAuth(ctx context.Context, remoteUser string) (*domain.User, error) {
	if remoteUser == "" {
		return nil, errors.New("no remote user header")
	}
	return s.findOrCreate(ctx, remoteUser)
}

// LoginWithUser creates a session for an already authenticated user (e.g. via SSO).
func (s *AuthService) LoginWithUser(ctx context.Context, username, userAgent, ip string) (string, error) {
	user, err := s.findOrCreate(ctx, username)
	if err != nil {
		return "", err
	}
	return s.openSession(ctx, user.ID, userAgent, ip)
}

// findOrCreate auto-provisions SSO users with an empty password hash.
func (s *AuthService) findOrCreate(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err == nil && user != nil {
		return user, nil
	}
	user, err = s.users.Create(ctx, username, "")
	if err != nil {
		// Lost a race against a concurrent first login.
		user, err = s.users.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
	}
	return user, nil
}

func (s *AuthService) openSession(ctx context.Context, userID int64, userAgent, ip string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	expiresAt := s.clock.Now().Add(SessionTTL)
	if err := s.sessions.Create(ctx, userID, token, userAgent, ip, expiresAt); err != nil {
		return "", err
	}
	return token, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// ConstantTimeCompare performs a constant-time comparison of two strings.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
