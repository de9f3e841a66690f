package postgres

import (
	"context"
	"time"

	"fitflow/internal/domain"
)

const calorieColumns = "id, user_id, to_char(entry_date, 'YYYY-MM-DD'), calories, meal_type, notes, created_at, deleted_at"

func scanCalorie(r rowScanner) (domain.CalorieEntry, error) {
	var e domain.CalorieEntry
	err := r.Scan(&e.ID, &e.UserID, &e.Day, &e.Calories, &e.MealType, &e.Notes, &e.CreatedAt, &e.DeletedAt)
	return e, err
}

func (d *DB) AddCalorieEntry(ctx context.Context, userID int64, in domain.CalorieInput, createdAt time.Time) (*domain.CalorieEntry, error) {
	return queryOne(ctx, d, scanCalorie,
		"INSERT INTO calorie_entries(user_id, entry_date, calories, meal_type, notes, created_at) VALUES($1, $2::date, $3, $4, $5, $6) RETURNING "+calorieColumns+";",
		userID, in.Day, in.Calories, in.MealType, in.Notes, createdAt.UTC())
}

func (d *DB) ListCalorieEntries(ctx context.Context, userID int64) ([]domain.CalorieEntry, error) {
	return queryList(ctx, d, scanCalorie, "SELECT "+calorieColumns+" FROM calorie_entries WHERE "+activeClause+";", userID)
}

func (d *DB) ListDeletedCalorieEntries(ctx context.Context, userID int64) ([]domain.CalorieEntry, error) {
	return queryList(ctx, d, scanCalorie, "SELECT "+calorieColumns+" FROM calorie_entries WHERE "+deletedClause+";", userID)
}

func (d *DB) DeleteCalorieEntry(ctx context.Context, userID, id int64) error {
	return d.softDelete(ctx, "calorie_entries", userID, id)
}

func (d *DB) RestoreCalorieEntry(ctx context.Context, userID, id int64) error {
	return d.restore(ctx, "calorie_entries", userID, id)
}

func (d *DB) PurgeCalorieEntry(ctx context.Context, userID, id int64) error {
	return d.purge(ctx, "calorie_entries", userID, id)
}
