package domain

import (
	"context"
	"io"
	"time"
)

// Photo is a progress photo stored in object storage.
type Photo struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	URL         string     `json:"url"`
	StoragePath string     `json:"storagePath"`
	Day         string     `json:"day"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
}

func (p Photo) EntryID() int64 { return p.ID }

// PhotoRepository is the port for photo metadata persistence.
type PhotoRepository interface {
	AddPhoto(ctx context.Context, p Photo) (*Photo, error)
	GetPhoto(ctx context.Context, userID, id int64) (*Photo, error)
	ListPhotos(ctx context.Context, userID int64) ([]Photo, error)
	DeletePhoto(ctx context.Context, userID, id int64) error
	PurgePhoto(ctx context.Context, userID, id int64) error
}

// ObjectStore is the port for binary file storage.
type ObjectStore interface {
	Put(ctx context.Context, path, contentType string, r io.Reader) error
	Delete(ctx context.Context, path string) error
	URL(path string) string
}
