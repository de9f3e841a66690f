// Package badger keeps the delete outbox in an embedded BadgerDB so failed
// deferred deletes survive a restart.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"fitflow/internal/domain"
)

const prefix = "outbox/"

// Outbox implements domain.DeleteOutbox on BadgerDB.
type Outbox struct {
	db *badger.DB
}

var _ domain.DeleteOutbox = (*Outbox)(nil)

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens the outbox under dir. An empty dir keeps it in memory.
func Open(dir string, logger *slog.Logger) (*Outbox, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create outbox directory %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}
	return &Outbox{db: db}, nil
}

// Close closes the database.
func (o *Outbox) Close() error {
	return o.db.Close()
}

func key(kind domain.Kind, userID, entryID int64) []byte {
	return []byte(prefix + domain.PendingDelete{Kind: kind, UserID: userID, EntryID: entryID}.Key())
}

// Put inserts or replaces the pending delete.
func (o *Outbox) Put(ctx context.Context, p domain.PendingDelete) error {
	val, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return o.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(p.Kind, p.UserID, p.EntryID), val)
	})
}

// Remove deletes the pending delete; a missing key is not an error.
func (o *Outbox) Remove(ctx context.Context, kind domain.Kind, userID, entryID int64) error {
	return o.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(kind, userID, entryID))
	})
}

// List returns every pending delete, oldest failure first.
func (o *Outbox) List(ctx context.Context) ([]domain.PendingDelete, error) {
	return o.scan([]byte(prefix))
}

// ListForUser returns the user's pending deletes of one kind.
func (o *Outbox) ListForUser(ctx context.Context, kind domain.Kind, userID int64) ([]domain.PendingDelete, error) {
	return o.scan([]byte(fmt.Sprintf("%s%s/%d/", prefix, kind, userID)))
}

func (o *Outbox) scan(p []byte) ([]domain.PendingDelete, error) {
	out := []domain.PendingDelete{}
	err := o.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			var pd domain.PendingDelete
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &pd)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, pd)
		}
		return nil
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FailedAt.Before(out[j].FailedAt) })
	return out, nil
}
