package app

import (
	"context"
	"fmt"

	"fitflow/internal/domain"
)

// WellnessService encapsulates sleep and water logging.
type WellnessService struct {
	entries[domain.WellnessEntry]
	repo domain.WellnessRepository
}

// NewWellnessService creates a WellnessService backed by repo.
func NewWellnessService(repo domain.WellnessRepository, deps Deps) *WellnessService {
	return &WellnessService{
		entries: newEntries(domain.KindWellness, "Wellness entry", entryRepo[domain.WellnessEntry]{
			list:        repo.ListWellnessEntries,
			listDeleted: repo.ListDeletedWellnessEntries,
			remove:      repo.DeleteWellnessEntry,
			restore:     repo.RestoreWellnessEntry,
			purge:       repo.PurgeWellnessEntry,
		}, deps),
		repo: repo,
	}
}

// Log stores a sleep and water check-in.
func (s *WellnessService) Log(ctx context.Context, userID int64, in domain.WellnessInput) (*domain.WellnessEntry, string, error) {
	if in.Day == "" {
		in.Day = domain.DayString(s.deps.Clock.Now())
	}
	if err := domain.Validate(in); err != nil {
		return nil, "", err
	}
	if _, err := s.View(ctx, userID); err != nil {
		return nil, "", err
	}
	entry, err := s.repo.AddWellnessEntry(ctx, userID, in, s.deps.Clock.Now())
	if err != nil {
		return nil, "", fmt.Errorf("add wellness entry: %w", err)
	}
	return entry, s.logged(userID, *entry), nil
}

// ForDay returns the latest check-in logged on day, or nil.
func (s *WellnessService) ForDay(ctx context.Context, userID int64, day string) (*domain.WellnessEntry, error) {
	list, err := s.View(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Day == day {
			e := list[i]
			return &e, nil
		}
	}
	return nil, nil
}
