package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"fitflow/internal/domain"
)

// GetProfile returns the user's profile or domain.ErrNotFound.
func (d *DB) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	return queryOne(ctx, d, func(r rowScanner) (domain.Profile, error) {
		var (
			p           domain.Profile
			prefs, priv []byte
		)
		err := r.Scan(&p.UserID, &p.Name, &p.HeightInches, &p.StartWeight, &p.TargetWeight, &p.CurrentWeight,
			&p.DailyCalorieGoal, &p.AvatarURL, &prefs, &priv, &p.UpdatedAt)
		if err != nil {
			return p, err
		}
		if err := json.Unmarshal(prefs, &p.Preferences); err != nil {
			return p, fmt.Errorf("decode preferences: %w", err)
		}
		if err := json.Unmarshal(priv, &p.Privacy); err != nil {
			return p, fmt.Errorf("decode privacy: %w", err)
		}
		return p, nil
	}, `SELECT user_id, name, height_inches, start_weight, target_weight, current_weight,
		daily_calorie_goal, avatar_url, preferences, privacy, updated_at
		FROM profiles WHERE user_id = $1;`, userID)
}

// SaveProfile upserts the profile.
func (d *DB) SaveProfile(ctx context.Context, p domain.Profile) error {
	prefs, err := json.Marshal(p.Preferences)
	if err != nil {
		return err
	}
	priv, err := json.Marshal(p.Privacy)
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx, `
		INSERT INTO profiles (user_id, name, height_inches, start_weight, target_weight, current_weight,
			daily_calorie_goal, avatar_url, preferences, privacy, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			height_inches = EXCLUDED.height_inches,
			start_weight = EXCLUDED.start_weight,
			target_weight = EXCLUDED.target_weight,
			current_weight = EXCLUDED.current_weight,
			daily_calorie_goal = EXCLUDED.daily_calorie_goal,
			avatar_url = EXCLUDED.avatar_url,
			preferences = EXCLUDED.preferences,
			privacy = EXCLUDED.privacy,
			updated_at = EXCLUDED.updated_at;`,
		p.UserID, p.Name, p.HeightInches, p.StartWeight, p.TargetWeight, p.CurrentWeight,
		p.DailyCalorieGoal, p.AvatarURL, string(prefs), string(priv), p.UpdatedAt.UTC())
	return err
}
