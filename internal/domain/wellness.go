package domain

import (
	"context"
	"time"
)

// WellnessEntry records sleep and water intake for a day.
type WellnessEntry struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"userId"`
	Day          string     `json:"day"`
	SleepHours   float64    `json:"sleepHours"`
	WaterGlasses int        `json:"waterGlasses"`
	CreatedAt    time.Time  `json:"createdAt"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
}

func (e WellnessEntry) EntryID() int64   { return e.ID }
func (e WellnessEntry) EntryDay() string { return e.Day }
func (e WellnessEntry) EntryKind() Kind  { return KindWellness }

// WellnessInput is the payload for logging sleep and water.
type WellnessInput struct {
	SleepHours   float64 `json:"sleepHours" validate:"gte=0,lte=24"`
	WaterGlasses int     `json:"waterGlasses" validate:"gte=0,lte=30"`
	Day          string  `json:"day" validate:"required,datetime=2006-01-02"`
}

// WellnessRepository is the port for wellness persistence.
type WellnessRepository interface {
	AddWellnessEntry(ctx context.Context, userID int64, in WellnessInput, createdAt time.Time) (*WellnessEntry, error)
	ListWellnessEntries(ctx context.Context, userID int64) ([]WellnessEntry, error)
	DeleteWellnessEntry(ctx context.Context, userID, id int64) error
	RestoreWellnessEntry(ctx context.Context, userID, id int64) error
	ListDeletedWellnessEntries(ctx context.Context, userID int64) ([]WellnessEntry, error)
	PurgeWellnessEntry(ctx context.Context, userID, id int64) error
}
