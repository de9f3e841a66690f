package app

import (
	"context"
	"fmt"

	"fitflow/internal/domain"
)

// CalorieService encapsulates calorie logging.
type CalorieService struct {
	entries[domain.CalorieEntry]
	repo domain.CalorieRepository
}

// NewCalorieService creates a CalorieService backed by repo.
func NewCalorieService(repo domain.CalorieRepository, deps Deps) *CalorieService {
	return &CalorieService{
		entries: newEntries(domain.KindCalorie, "Calorie entry", entryRepo[domain.CalorieEntry]{
			list:        repo.ListCalorieEntries,
			listDeleted: repo.ListDeletedCalorieEntries,
			remove:      repo.DeleteCalorieEntry,
			restore:     repo.RestoreCalorieEntry,
			purge:       repo.PurgeCalorieEntry,
		}, deps),
		repo: repo,
	}
}

// Log stores a meal. A missing meal type is guessed from the time of day.
func (s *CalorieService) Log(ctx context.Context, userID int64, in domain.CalorieInput) (*domain.CalorieEntry, string, error) {
	now := s.deps.Clock.Now()
	if in.Day == "" {
		in.Day = domain.DayString(now)
	}
	if in.MealType == "" {
		in.MealType = domain.MealTypeAt(now)
	}
	if err := domain.Validate(in); err != nil {
		return nil, "", err
	}
	if _, err := s.View(ctx, userID); err != nil {
		return nil, "", err
	}
	entry, err := s.repo.AddCalorieEntry(ctx, userID, in, now)
	if err != nil {
		return nil, "", fmt.Errorf("add calorie entry: %w", err)
	}
	return entry, s.logged(userID, *entry), nil
}

// TotalForDay sums the calories the user logged on day.
func (s *CalorieService) TotalForDay(ctx context.Context, userID int64, day string) (int, error) {
	list, err := s.View(ctx, userID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, e := range list {
		if e.Day == day {
			total += e.Calories
		}
	}
	return total, nil
}
