package domain

import (
	"context"
	"fmt"
	"time"
)

// PendingDelete is a deferred soft delete that failed after its undo window
// closed. The entry is already gone from the user's view; the row may still be
// active in the database until the delete is retried successfully.
type PendingDelete struct {
	Kind      Kind      `json:"kind"`
	UserID    int64     `json:"userId"`
	EntryID   int64     `json:"entryId"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"lastError"`
	FailedAt  time.Time `json:"failedAt"`
}

// Key identifies the pending delete for storage.
func (p PendingDelete) Key() string {
	return fmt.Sprintf("%s/%d/%d", p.Kind, p.UserID, p.EntryID)
}

// DeleteOutbox persists failed deferred deletes until they are reconciled.
type DeleteOutbox interface {
	Put(ctx context.Context, p PendingDelete) error
	Remove(ctx context.Context, kind Kind, userID, entryID int64) error
	List(ctx context.Context) ([]PendingDelete, error)
	ListForUser(ctx context.Context, kind Kind, userID int64) ([]PendingDelete, error)
}
