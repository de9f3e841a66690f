package domain

import (
	"context"
	"time"
)

// MoodEntry is a mood check-in with an energy rating.
type MoodEntry struct {
	ID          int64          `json:"id"`
	UserID      int64          `json:"userId"`
	Day         string         `json:"day"`
	Mood        string         `json:"mood"`
	EnergyLevel int            `json:"energyLevel"`
	Notes       string         `json:"notes,omitempty"`
	Reactions   map[string]int `json:"reactions"`
	CreatedAt   time.Time      `json:"createdAt"`
	DeletedAt   *time.Time     `json:"deletedAt,omitempty"`
}

func (e MoodEntry) EntryID() int64   { return e.ID }
func (e MoodEntry) EntryDay() string { return e.Day }
func (e MoodEntry) EntryKind() Kind  { return KindMood }

// MoodInput is the payload for a mood check-in.
type MoodInput struct {
	Mood        string `json:"mood" validate:"oneof=great good okay low bad"`
	EnergyLevel int    `json:"energyLevel" validate:"gte=1,lte=10"`
	Notes       string `json:"notes" validate:"max=1000"`
	Day         string `json:"day" validate:"required,datetime=2006-01-02"`
}

// ReactionInput is a reaction added to somebody's mood entry.
type ReactionInput struct {
	Reaction string `json:"reaction" validate:"oneof=heart clap strong hug"`
}

// MoodRepository is the port for mood persistence.
type MoodRepository interface {
	AddMoodEntry(ctx context.Context, userID int64, in MoodInput, createdAt time.Time) (*MoodEntry, error)
	ListMoodEntries(ctx context.Context, userID int64) ([]MoodEntry, error)
	DeleteMoodEntry(ctx context.Context, userID, id int64) error
	RestoreMoodEntry(ctx context.Context, userID, id int64) error
	ListDeletedMoodEntries(ctx context.Context, userID int64) ([]MoodEntry, error)
	PurgeMoodEntry(ctx context.Context, userID, id int64) error
	AddMoodReaction(ctx context.Context, userID, id int64, reaction string) (*MoodEntry, error)
}
