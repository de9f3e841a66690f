package domain

import (
	"context"
	"time"
)

// Meal types accepted on calorie entries.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

// CalorieEntry is a single meal or snack.
type CalorieEntry struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	Day       string     `json:"day"`
	Calories  int        `json:"calories"`
	MealType  string     `json:"mealType"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func (e CalorieEntry) EntryID() int64   { return e.ID }
func (e CalorieEntry) EntryDay() string { return e.Day }
func (e CalorieEntry) EntryKind() Kind  { return KindCalorie }

// CalorieInput is the payload for logging calories.
type CalorieInput struct {
	Calories int    `json:"calories" validate:"gte=0,lte=5000"`
	MealType string `json:"mealType" validate:"oneof=breakfast lunch dinner snack"`
	Day      string `json:"day" validate:"required,datetime=2006-01-02"`
	Notes    string `json:"notes" validate:"max=500"`
}

// MealTypeAt guesses the meal type from the hour of day.
func MealTypeAt(t time.Time) string {
	h := t.Hour()
	switch {
	case h >= 5 && h < 11:
		return MealBreakfast
	case h >= 11 && h < 15:
		return MealLunch
	case h >= 15 && h < 20:
		return MealDinner
	default:
		return MealSnack
	}
}

// CalorieRepository is the port for calorie persistence.
type CalorieRepository interface {
	AddCalorieEntry(ctx context.Context, userID int64, in CalorieInput, createdAt time.Time) (*CalorieEntry, error)
	ListCalorieEntries(ctx context.Context, userID int64) ([]CalorieEntry, error)
	DeleteCalorieEntry(ctx context.Context, userID, id int64) error
	RestoreCalorieEntry(ctx context.Context, userID, id int64) error
	ListDeletedCalorieEntries(ctx context.Context, userID int64) ([]CalorieEntry, error)
	PurgeCalorieEntry(ctx context.Context, userID, id int64) error
}
