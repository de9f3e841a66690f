package postgres

import (
	"context"
	"time"

	"fitflow/internal/domain"
)

const weightColumns = "id, user_id, to_char(entry_date, 'YYYY-MM-DD'), value, unit, notes, created_at, deleted_at"

func scanWeight(r rowScanner) (domain.WeightEntry, error) {
	var e domain.WeightEntry
	err := r.Scan(&e.ID, &e.UserID, &e.Day, &e.Value, &e.Unit, &e.Notes, &e.CreatedAt, &e.DeletedAt)
	return e, err
}

// AddWeightEntry inserts a new weight entry.
func (d *DB) AddWeightEntry(ctx context.Context, userID int64, in domain.WeightInput, createdAt time.Time) (*domain.WeightEntry, error) {
	return queryOne(ctx, d, scanWeight,
		"INSERT INTO weight_entries(user_id, entry_date, value, unit, notes, created_at) VALUES($1, $2::date, $3, $4, $5, $6) RETURNING "+weightColumns+";",
		userID, in.Day, in.Value, in.Unit, in.Notes, createdAt.UTC())
}

// ListWeightEntries returns the user's active weights, oldest day first.
func (d *DB) ListWeightEntries(ctx context.Context, userID int64) ([]domain.WeightEntry, error) {
	return queryList(ctx, d, scanWeight, "SELECT "+weightColumns+" FROM weight_entries WHERE "+activeClause+";", userID)
}

// ListDeletedWeightEntries returns the user's soft-deleted weights.
func (d *DB) ListDeletedWeightEntries(ctx context.Context, userID int64) ([]domain.WeightEntry, error) {
	return queryList(ctx, d, scanWeight, "SELECT "+weightColumns+" FROM weight_entries WHERE "+deletedClause+";", userID)
}

// DeleteWeightEntry soft-deletes a weight entry.
func (d *DB) DeleteWeightEntry(ctx context.Context, userID, id int64) error {
	return d.softDelete(ctx, "weight_entries", userID, id)
}

// RestoreWeightEntry clears the tombstone of a weight entry.
func (d *DB) RestoreWeightEntry(ctx context.Context, userID, id int64) error {
	return d.restore(ctx, "weight_entries", userID, id)
}

// PurgeWeightEntry permanently removes a soft-deleted weight entry.
func (d *DB) PurgeWeightEntry(ctx context.Context, userID, id int64) error {
	return d.purge(ctx, "weight_entries", userID, id)
}
