// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"fitflow/internal/domain"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

// Ensure interfaces are met.
var (
	_ domain.WeightRepository   = (*DB)(nil)
	_ domain.CalorieRepository  = (*DB)(nil)
	_ domain.WellnessRepository = (*DB)(nil)
	_ domain.MoodRepository     = (*DB)(nil)
	_ domain.ProfileRepository  = (*DB)(nil)
	_ domain.PhotoRepository    = (*DB)(nil)
	_ domain.UserRepository     = (*DB)(nil)
	_ domain.SessionRepository  = (*SessionRepo)(nil)
)

// Open connects to PostgreSQL and pings it.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return &DB{sql: s}, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Ping checks the connection; used by the readiness probe.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

// Migrate creates or upgrades the schema. It is idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS users (id BIGSERIAL PRIMARY KEY, username TEXT UNIQUE NOT NULL, password_hash TEXT NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE TABLE IF NOT EXISTS sessions (token TEXT PRIMARY KEY, user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE, expires_at TIMESTAMPTZ NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"ALTER TABLE sessions ADD COLUMN IF NOT EXISTS user_agent TEXT NOT NULL DEFAULT '';",
		"ALTER TABLE sessions ADD COLUMN IF NOT EXISTS ip TEXT NOT NULL DEFAULT '';",
		"CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);",
		"CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);",

		`CREATE TABLE IF NOT EXISTS weight_entries (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			entry_date DATE NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			unit TEXT NOT NULL CHECK(unit IN ('kg','lb')),
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			deleted_at TIMESTAMPTZ
		);`,
		`CREATE TABLE IF NOT EXISTS calorie_entries (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			entry_date DATE NOT NULL,
			calories INTEGER NOT NULL CHECK(calories BETWEEN 0 AND 5000),
			meal_type TEXT NOT NULL CHECK(meal_type IN ('breakfast','lunch','dinner','snack')),
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			deleted_at TIMESTAMPTZ
		);`,
		`CREATE TABLE IF NOT EXISTS wellness_entries (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			entry_date DATE NOT NULL,
			sleep_hours DOUBLE PRECISION NOT NULL CHECK(sleep_hours BETWEEN 0 AND 24),
			water_glasses INTEGER NOT NULL CHECK(water_glasses BETWEEN 0 AND 30),
			created_at TIMESTAMPTZ NOT NULL,
			deleted_at TIMESTAMPTZ
		);`,
		`CREATE TABLE IF NOT EXISTS mood_entries (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			entry_date DATE NOT NULL,
			mood TEXT NOT NULL,
			energy_level INTEGER NOT NULL CHECK(energy_level BETWEEN 1 AND 10),
			notes TEXT NOT NULL DEFAULT '',
			reactions JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL,
			deleted_at TIMESTAMPTZ
		);`,
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			name TEXT NOT NULL DEFAULT '',
			height_inches DOUBLE PRECISION NOT NULL DEFAULT 0,
			start_weight DOUBLE PRECISION NOT NULL DEFAULT 0,
			target_weight DOUBLE PRECISION NOT NULL DEFAULT 0,
			current_weight DOUBLE PRECISION NOT NULL DEFAULT 0,
			daily_calorie_goal INTEGER NOT NULL DEFAULT 2000,
			avatar_url TEXT NOT NULL DEFAULT '',
			preferences JSONB NOT NULL DEFAULT '{}'::jsonb,
			privacy JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS progress_photos (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			url TEXT NOT NULL,
			storage_path TEXT NOT NULL,
			entry_date DATE NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			deleted_at TIMESTAMPTZ
		);`,
	}
	for _, table := range entryTables {
		stmts = append(stmts,
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_active ON %[1]s(user_id, entry_date) WHERE deleted_at IS NULL;", table),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_deleted ON %[1]s(user_id, deleted_at) WHERE deleted_at IS NOT NULL;", table),
		)
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

var entryTables = []string{"weight_entries", "calorie_entries", "wellness_entries", "mood_entries", "progress_photos"}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func queryList[E any](ctx context.Context, d *DB, scan func(rowScanner) (E, error), query string, args ...any) ([]E, error) {
	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []E{}
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func queryOne[E any](ctx context.Context, d *DB, scan func(rowScanner) (E, error), query string, args ...any) (*E, error) {
	e, err := scan(d.sql.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// softDelete tombstones an active row owned by userID.
func (d *DB) softDelete(ctx context.Context, table string, userID, id int64) error {
	return d.execOne(ctx,
		"UPDATE "+table+" SET deleted_at = now() WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL;",
		id, userID)
}

func (d *DB) restore(ctx context.Context, table string, userID, id int64) error {
	return d.execOne(ctx,
		"UPDATE "+table+" SET deleted_at = NULL WHERE id = $1 AND user_id = $2 AND deleted_at IS NOT NULL;",
		id, userID)
}

// purge only removes rows that are already soft-deleted.
func (d *DB) purge(ctx context.Context, table string, userID, id int64) error {
	return d.execOne(ctx,
		"DELETE FROM "+table+" WHERE id = $1 AND user_id = $2 AND deleted_at IS NOT NULL;",
		id, userID)
}

// execOne runs a statement that must affect exactly one row.
func (d *DB) execOne(ctx context.Context, query string, args ...any) error {
	res, err := d.sql.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// activeClause and deletedClause select by tombstone.
const (
	activeClause  = "user_id = $1 AND deleted_at IS NULL ORDER BY entry_date ASC, id ASC"
	deletedClause = "user_id = $1 AND deleted_at IS NOT NULL ORDER BY deleted_at DESC, id DESC"
)
