package app

import (
	"context"
	"fmt"

	"fitflow/internal/domain"
	"fitflow/internal/stats"
)

// WeightService encapsulates weight-tracking use cases.
type WeightService struct {
	entries[domain.WeightEntry]
	repo domain.WeightRepository
}

// NewWeightService creates a WeightService backed by the given repository.
func NewWeightService(repo domain.WeightRepository, deps Deps) *WeightService {
	return &WeightService{
		entries: newEntries(domain.KindWeight, "Weight entry", entryRepo[domain.WeightEntry]{
			list:        repo.ListWeightEntries,
			listDeleted: repo.ListDeletedWeightEntries,
			remove:      repo.DeleteWeightEntry,
			restore:     repo.RestoreWeightEntry,
			purge:       repo.PurgeWeightEntry,
		}, deps),
		repo: repo,
	}
}

// Log validates and stores a weight, then shows it with an undo option. The
// entry becomes visible only after the database accepted it.
func (s *WeightService) Log(ctx context.Context, userID int64, in domain.WeightInput) (*domain.WeightEntry, string, error) {
	if in.Day == "" {
		in.Day = domain.DayString(s.deps.Clock.Now())
	}
	if err := in.Validate(); err != nil {
		return nil, "", err
	}
	if _, err := s.View(ctx, userID); err != nil {
		return nil, "", err
	}
	entry, err := s.repo.AddWeightEntry(ctx, userID, in, s.deps.Clock.Now())
	if err != nil {
		return nil, "", fmt.Errorf("add weight entry: %w", err)
	}
	return entry, s.logged(userID, *entry), nil
}

// Latest returns the most recent entry in the user's view, or nil.
func (s *WeightService) Latest(ctx context.Context, userID int64) (*domain.WeightEntry, error) {
	list, err := s.View(ctx, userID)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	e := list[len(list)-1]
	return &e, nil
}

// Points returns the user's weights in pounds for statistics.
func (s *WeightService) Points(ctx context.Context, userID int64) ([]stats.Point, error) {
	list, err := s.View(ctx, userID)
	if err != nil {
		return nil, err
	}
	return weightPoints(list), nil
}

func weightPoints(list []domain.WeightEntry) []stats.Point {
	pts := make([]stats.Point, len(list))
	for i, e := range list {
		pts[i] = stats.Point{Day: e.Day, Value: e.Pounds()}
	}
	return pts
}
