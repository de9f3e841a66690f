package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"fitflow/internal/clock"
	"fitflow/internal/domain"
)

// MaxPhotoBytes is the largest accepted upload.
const MaxPhotoBytes = 5 << 20

var photoExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// PhotoUpload describes one uploaded progress photo.
type PhotoUpload struct {
	ContentType string
	Size        int64
	Body        io.Reader
	Day         string
	Notes       string
}

// PhotoService stores progress photos in object storage with their metadata
// in the database.
type PhotoService struct {
	repo    domain.PhotoRepository
	objects domain.ObjectStore
	clock   clock.Clock
	log     *slog.Logger
}

// NewPhotoService creates a PhotoService.
func NewPhotoService(repo domain.PhotoRepository, objects domain.ObjectStore, c clock.Clock, logger *slog.Logger) *PhotoService {
	if c == nil {
		c = clock.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PhotoService{repo: repo, objects: objects, clock: c, log: logger}
}

// Upload checks type and size, stores the object and records it. The object
// is removed again if the metadata insert fails.
func (s *PhotoService) Upload(ctx context.Context, userID int64, up PhotoUpload) (*domain.Photo, error) {
	ext, ok := photoExtensions[up.ContentType]
	if !ok {
		return nil, domain.Invalid("please upload a valid image (JPEG, PNG, or WebP)")
	}
	if up.Size <= 0 || up.Size > MaxPhotoBytes {
		return nil, domain.Invalid("image must be smaller than 5MB")
	}
	now := s.clock.Now()
	if up.Day == "" {
		up.Day = domain.DayString(now)
	}
	if _, err := domain.ParseDay(up.Day); err != nil {
		return nil, domain.Invalid("day must be formatted YYYY-MM-DD")
	}

	path := fmt.Sprintf("%d/%d-%s.%s", userID, now.UnixMilli(), uuid.NewString(), ext)
	body := io.LimitReader(up.Body, MaxPhotoBytes)
	if err := s.objects.Put(ctx, path, up.ContentType, body); err != nil {
		return nil, fmt.Errorf("store photo: %w", err)
	}

	photo, err := s.repo.AddPhoto(ctx, domain.Photo{
		UserID:      userID,
		URL:         s.objects.URL(path),
		StoragePath: path,
		Day:         up.Day,
		Notes:       up.Notes,
		CreatedAt:   now,
	})
	if err != nil {
		if derr := s.objects.Delete(ctx, path); derr != nil {
			s.log.Error("photo cleanup failed", "path", path, "err", derr)
		}
		return nil, fmt.Errorf("record photo: %w", err)
	}
	return photo, nil
}

// List returns the user's active photos, newest first.
func (s *PhotoService) List(ctx context.Context, userID int64) ([]domain.Photo, error) {
	return s.repo.ListPhotos(ctx, userID)
}

// Delete soft-deletes a photo; the object is kept.
func (s *PhotoService) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.DeletePhoto(ctx, userID, id)
}

// Purge removes the stored object and the row.
func (s *PhotoService) Purge(ctx context.Context, userID, id int64) error {
	p, err := s.repo.GetPhoto(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, p.StoragePath); err != nil {
		return fmt.Errorf("delete photo object: %w", err)
	}
	return s.repo.PurgePhoto(ctx, userID, id)
}
