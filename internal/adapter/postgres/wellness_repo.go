package postgres

import (
	"context"
	"time"

	"fitflow/internal/domain"
)

const wellnessColumns = "id, user_id, to_char(entry_date, 'YYYY-MM-DD'), sleep_hours, water_glasses, created_at, deleted_at"

func scanWellness(r rowScanner) (domain.WellnessEntry, error) {
	var e domain.WellnessEntry
	err := r.Scan(&e.ID, &e.UserID, &e.Day, &e.SleepHours, &e.WaterGlasses, &e.CreatedAt, &e.DeletedAt)
	return e, err
}

func (d *DB) AddWellnessEntry(ctx context.Context, userID int64, in domain.WellnessInput, createdAt time.Time) (*domain.WellnessEntry, error) {
	return queryOne(ctx, d, scanWellness,
		"INSERT INTO wellness_entries(user_id, entry_date, sleep_hours, water_glasses, created_at) VALUES($1, $2::date, $3, $4, $5) RETURNING "+wellnessColumns+";",
		userID, in.Day, in.SleepHours, in.WaterGlasses, createdAt.UTC())
}

func (d *DB) ListWellnessEntries(ctx context.Context, userID int64) ([]domain.WellnessEntry, error) {
	return queryList(ctx, d, scanWellness, "SELECT "+wellnessColumns+" FROM wellness_entries WHERE "+activeClause+";", userID)
}

func (d *DB) ListDeletedWellnessEntries(ctx context.Context, userID int64) ([]domain.WellnessEntry, error) {
	return queryList(ctx, d, scanWellness, "SELECT "+wellnessColumns+" FROM wellness_entries WHERE "+deletedClause+";", userID)
}

func (d *DB) DeleteWellnessEntry(ctx context.Context, userID, id int64) error {
	return d.softDelete(ctx, "wellness_entries", userID, id)
}

func (d *DB) RestoreWellnessEntry(ctx context.Context, userID, id int64) error {
	return d.restore(ctx, "wellness_entries", userID, id)
}

func (d *DB) PurgeWellnessEntry(ctx context.Context, userID, id int64) error {
	return d.purge(ctx, "wellness_entries", userID, id)
}
