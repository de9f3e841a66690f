package app

import (
	"context"
	"fmt"

	"fitflow/internal/domain"
)

// MoodService encapsulates mood check-ins and reactions.
type MoodService struct {
	entries[domain.MoodEntry]
	repo domain.MoodRepository
}

// NewMoodService creates a MoodService backed by repo.
func NewMoodService(repo domain.MoodRepository, deps Deps) *MoodService {
	return &MoodService{
		entries: newEntries(domain.KindMood, "Mood entry", entryRepo[domain.MoodEntry]{
			list:        repo.ListMoodEntries,
			listDeleted: repo.ListDeletedMoodEntries,
			remove:      repo.DeleteMoodEntry,
			restore:     repo.RestoreMoodEntry,
			purge:       repo.PurgeMoodEntry,
		}, deps),
		repo: repo,
	}
}

// Log stores a mood check-in.
func (s *MoodService) Log(ctx context.Context, userID int64, in domain.MoodInput) (*domain.MoodEntry, string, error) {
	if in.Day == "" {
		in.Day = domain.DayString(s.deps.Clock.Now())
	}
	if err := domain.Validate(in); err != nil {
		return nil, "", err
	}
	if _, err := s.View(ctx, userID); err != nil {
		return nil, "", err
	}
	entry, err := s.repo.AddMoodEntry(ctx, userID, in, s.deps.Clock.Now())
	if err != nil {
		return nil, "", fmt.Errorf("add mood entry: %w", err)
	}
	return entry, s.logged(userID, *entry), nil
}

// React increments a reaction counter on one of the user's entries.
func (s *MoodService) React(ctx context.Context, userID, id int64, in domain.ReactionInput) (*domain.MoodEntry, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	entry, err := s.repo.AddMoodReaction(ctx, userID, id, in.Reaction)
	if err != nil {
		return nil, fmt.Errorf("react to mood %d: %w", id, err)
	}
	store := s.stores.For(userID)
	if _, ok := store.Get(id); ok {
		store.Insert(*entry)
	}
	return entry, nil
}
