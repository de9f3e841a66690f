package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fitflow/internal/domain"
)

const moodColumns = "id, user_id, to_char(entry_date, 'YYYY-MM-DD'), mood, energy_level, notes, reactions, created_at, deleted_at"

func scanMood(r rowScanner) (domain.MoodEntry, error) {
	var (
		e         domain.MoodEntry
		reactions []byte
	)
	if err := r.Scan(&e.ID, &e.UserID, &e.Day, &e.Mood, &e.EnergyLevel, &e.Notes, &reactions, &e.CreatedAt, &e.DeletedAt); err != nil {
		return e, err
	}
	e.Reactions = map[string]int{}
	if len(reactions) > 0 {
		if err := json.Unmarshal(reactions, &e.Reactions); err != nil {
			return e, fmt.Errorf("decode reactions of mood %d: %w", e.ID, err)
		}
	}
	return e, nil
}

func (d *DB) AddMoodEntry(ctx context.Context, userID int64, in domain.MoodInput, createdAt time.Time) (*domain.MoodEntry, error) {
	return queryOne(ctx, d, scanMood,
		"INSERT INTO mood_entries(user_id, entry_date, mood, energy_level, notes, created_at) VALUES($1, $2::date, $3, $4, $5, $6) RETURNING "+moodColumns+";",
		userID, in.Day, in.Mood, in.EnergyLevel, in.Notes, createdAt.UTC())
}

func (d *DB) ListMoodEntries(ctx context.Context, userID int64) ([]domain.MoodEntry, error) {
	return queryList(ctx, d, scanMood, "SELECT "+moodColumns+" FROM mood_entries WHERE "+activeClause+";", userID)
}

func (d *DB) ListDeletedMoodEntries(ctx context.Context, userID int64) ([]domain.MoodEntry, error) {
	return queryList(ctx, d, scanMood, "SELECT "+moodColumns+" FROM mood_entries WHERE "+deletedClause+";", userID)
}

func (d *DB) DeleteMoodEntry(ctx context.Context, userID, id int64) error {
	return d.softDelete(ctx, "mood_entries", userID, id)
}

func (d *DB) RestoreMoodEntry(ctx context.Context, userID, id int64) error {
	return d.restore(ctx, "mood_entries", userID, id)
}

func (d *DB) PurgeMoodEntry(ctx context.Context, userID, id int64) error {
	return d.purge(ctx, "mood_entries", userID, id)
}

// AddMoodReaction increments one reaction counter atomically.
func (d *DB) AddMoodReaction(ctx context.Context, userID, id int64, reaction string) (*domain.MoodEntry, error) {
	return queryOne(ctx, d, scanMood,
		`UPDATE mood_entries
		 SET reactions = jsonb_set(reactions, ARRAY[$3::text], to_jsonb(COALESCE((reactions->>$3::text)::int, 0) + 1))
		 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		 RETURNING `+moodColumns+";",
		id, userID, reaction)
}
