package domain

import (
	"context"
	"time"
)

// Accepted weight range, in pounds.
const (
	MinWeightLb = 50
	MaxWeightLb = 500
)

// WeightEntry represents a single weight measurement.
type WeightEntry struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"userId"`
	Day       string     `json:"day"`
	Value     float64    `json:"value"`
	Unit      string     `json:"unit"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func (e WeightEntry) EntryID() int64   { return e.ID }
func (e WeightEntry) EntryDay() string { return e.Day }
func (e WeightEntry) EntryKind() Kind  { return KindWeight }

// Pounds returns the measurement converted to pounds.
func (e WeightEntry) Pounds() float64 {
	return ConvertWeight(e.Value, e.Unit, "lb")
}

// WeightInput is the payload for logging a weight.
type WeightInput struct {
	Value float64 `json:"value" validate:"gt=0"`
	Unit  string  `json:"unit" validate:"oneof=kg lb"`
	Day   string  `json:"day" validate:"required,datetime=2006-01-02"`
	Notes string  `json:"notes" validate:"max=500"`
}

// Validate checks the tags and the 50-500 lb range in the submitted unit.
func (in WeightInput) Validate() error {
	if err := Validate(in); err != nil {
		return err
	}
	lb := ConvertWeight(in.Value, in.Unit, "lb")
	if lb < MinWeightLb || lb > MaxWeightLb {
		return Invalid("please enter a valid weight (%d-%d lbs)", MinWeightLb, MaxWeightLb)
	}
	return nil
}

// WeightRepository is the port for weight persistence. List methods return
// active entries ordered by day ascending; Delete is a soft delete.
type WeightRepository interface {
	AddWeightEntry(ctx context.Context, userID int64, in WeightInput, createdAt time.Time) (*WeightEntry, error)
	ListWeightEntries(ctx context.Context, userID int64) ([]WeightEntry, error)
	DeleteWeightEntry(ctx context.Context, userID, id int64) error
	RestoreWeightEntry(ctx context.Context, userID, id int64) error
	ListDeletedWeightEntries(ctx context.Context, userID int64) ([]WeightEntry, error)
	PurgeWeightEntry(ctx context.Context, userID, id int64) error
}
