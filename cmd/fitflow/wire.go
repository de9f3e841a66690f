package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fitflow/internal/adapter/badger"
	"fitflow/internal/adapter/gcs"
	"fitflow/internal/adapter/memory"
	"fitflow/internal/adapter/postgres"
	"fitflow/internal/app"
	"fitflow/internal/config"
	"fitflow/internal/domain"
)

// repositories is everything a storage backend provides.
type repositories interface {
	domain.WeightRepository
	domain.CalorieRepository
	domain.WellnessRepository
	domain.MoodRepository
	domain.ProfileRepository
	domain.PhotoRepository
	domain.UserRepository
}

// backend holds the opened adapters and closes them in reverse order.
type backend struct {
	repos    repositories
	sessions domain.SessionRepository
	outbox   domain.DeleteOutbox
	objects  domain.ObjectStore
	memFiles *memory.Objects
	closers  []func() error
}

func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

// openStore opens the configured repositories and migrates postgres.
func openStore(ctx context.Context, cfg config.Config, b *backend) error {
	switch cfg.Store {
	case config.StoreMemory:
		db := memory.New()
		b.repos, b.sessions = db, db.NewSessionRepo()
	default:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db open: %w", err)
		}
		b.closers = append(b.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("db migrate: %w", err)
		}
		b.repos, b.sessions = db, postgres.NewSessionRepo(db)
	}
	return nil
}

func openOutbox(cfg config.Config, logger *slog.Logger, b *backend) error {
	outbox, err := badger.Open(cfg.OutboxDir, logger.With("component", "outbox"))
	if err != nil {
		return err
	}
	b.outbox = outbox
	b.closers = append(b.closers, outbox.Close)
	return nil
}

func openObjects(ctx context.Context, cfg config.Config, b *backend) error {
	if cfg.PhotoBucket == "" {
		b.memFiles = memory.NewObjects("/files")
		b.objects = b.memFiles
		return nil
	}
	store, err := gcs.New(ctx, cfg.PhotoBucket, cfg.GCSCredentials)
	if err != nil {
		return err
	}
	b.objects = store
	b.closers = append(b.closers, store.Close)
	return nil
}

// removers maps each kind to its soft delete for the reconciler.
func removers(repos repositories) map[domain.Kind]app.RemoveFunc {
	return map[domain.Kind]app.RemoveFunc{
		domain.KindWeight:   repos.DeleteWeightEntry,
		domain.KindCalorie:  repos.DeleteCalorieEntry,
		domain.KindWellness: repos.DeleteWellnessEntry,
		domain.KindMood:     repos.DeleteMoodEntry,
	}
}
