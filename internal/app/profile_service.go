package app

import (
	"context"
	"errors"
	"fmt"

	"fitflow/internal/clock"
	"fitflow/internal/domain"
)

// ProfileService manages body metrics, goals and preferences.
type ProfileService struct {
	repo  domain.ProfileRepository
	users domain.UserRepository
	clock clock.Clock
}

// NewProfileService creates a ProfileService. users may be nil; it is only
// used to seed a default profile name.
func NewProfileService(repo domain.ProfileRepository, users domain.UserRepository, c clock.Clock) *ProfileService {
	if c == nil {
		c = clock.New()
	}
	return &ProfileService{repo: repo, users: users, clock: c}
}

// Get returns the user's profile, or defaults if none was saved yet.
func (s *ProfileService) Get(ctx context.Context, userID int64) (*domain.Profile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		def := domain.DefaultProfile(userID, s.defaultName(ctx, userID))
		return &def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// Update validates u and applies it on top of the stored profile.
func (s *ProfileService) Update(ctx context.Context, userID int64, u domain.ProfileUpdate) (*domain.Profile, error) {
	if err := domain.Validate(u); err != nil {
		return nil, err
	}
	if u.Preferences != nil && u.Preferences.WeightUnit != "kg" && u.Preferences.WeightUnit != "lb" {
		return nil, domain.Invalid("preferences.weightUnit must be kg or lb")
	}
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Apply(p)
	p.UpdatedAt = s.clock.Now()
	if err := s.repo.SaveProfile(ctx, *p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

func (s *ProfileService) defaultName(ctx context.Context, userID int64) string {
	if s.users == nil {
		return ""
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil || u == nil {
		return ""
	}
	return u.Username
}
