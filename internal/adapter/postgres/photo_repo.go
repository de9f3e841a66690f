package postgres

import (
	"context"

	"fitflow/internal/domain"
)

const photoColumns = "id, user_id, url, storage_path, to_char(entry_date, 'YYYY-MM-DD'), notes, created_at, deleted_at"

func scanPhoto(r rowScanner) (domain.Photo, error) {
	var p domain.Photo
	err := r.Scan(&p.ID, &p.UserID, &p.URL, &p.StoragePath, &p.Day, &p.Notes, &p.CreatedAt, &p.DeletedAt)
	return p, err
}

func (d *DB) AddPhoto(ctx context.Context, p domain.Photo) (*domain.Photo, error) {
	return queryOne(ctx, d, scanPhoto,
		"INSERT INTO progress_photos(user_id, url, storage_path, entry_date, notes, created_at) VALUES($1, $2, $3, $4::date, $5, $6) RETURNING "+photoColumns+";",
		p.UserID, p.URL, p.StoragePath, p.Day, p.Notes, p.CreatedAt.UTC())
}

// GetPhoto returns a photo whether or not it is soft-deleted.
func (d *DB) GetPhoto(ctx context.Context, userID, id int64) (*domain.Photo, error) {
	return queryOne(ctx, d, scanPhoto, "SELECT "+photoColumns+" FROM progress_photos WHERE id = $1 AND user_id = $2;", id, userID)
}

// ListPhotos lists active photos, newest first.
func (d *DB) ListPhotos(ctx context.Context, userID int64) ([]domain.Photo, error) {
	return queryList(ctx, d, scanPhoto,
		"SELECT "+photoColumns+" FROM progress_photos WHERE user_id = $1 AND deleted_at IS NULL ORDER BY entry_date DESC, id DESC;", userID)
}

func (d *DB) DeletePhoto(ctx context.Context, userID, id int64) error {
	return d.softDelete(ctx, "progress_photos", userID, id)
}

// PurgePhoto removes the row whether or not it was soft-deleted.
func (d *DB) PurgePhoto(ctx context.Context, userID, id int64) error {
	return d.execOne(ctx, "DELETE FROM progress_photos WHERE id = $1 AND user_id = $2;", id, userID)
}
