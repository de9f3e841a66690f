// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"fitflow/internal/domain"
)

// DB implements an in-memory database storage.
type DB struct {
	mu       sync.Mutex
	weights  table[domain.WeightEntry]
	calories table[domain.CalorieEntry]
	wellness table[domain.WellnessEntry]
	moods    table[domain.MoodEntry]
	photos   table[domain.Photo]
	users    []*domain.User
	sessions map[string]*domain.Session
	profiles map[int64]domain.Profile

	userIDCounter int64
	now           func() time.Time
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		weights: table[domain.WeightEntry]{stamp: func(e domain.WeightEntry, at *time.Time) domain.WeightEntry {
			e.DeletedAt = at
			return e
		}},
		calories: table[domain.CalorieEntry]{stamp: func(e domain.CalorieEntry, at *time.Time) domain.CalorieEntry {
			e.DeletedAt = at
			return e
		}},
		wellness: table[domain.WellnessEntry]{stamp: func(e domain.WellnessEntry, at *time.Time) domain.WellnessEntry {
			e.DeletedAt = at
			return e
		}},
		moods: table[domain.MoodEntry]{stamp: func(e domain.MoodEntry, at *time.Time) domain.MoodEntry {
			e.DeletedAt = at
			e.Reactions = copyReactions(e.Reactions)
			return e
		}},
		photos: table[domain.Photo]{stamp: func(p domain.Photo, at *time.Time) domain.Photo {
			p.DeletedAt = at
			return p
		}},
		sessions: make(map[string]*domain.Session),
		profiles: make(map[int64]domain.Profile),
		now:      time.Now,
	}
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

// row is one stored entry with its owner and tombstone.
type row[E any] struct {
	userID    int64
	deletedAt *time.Time
	e         E
}

// table is a soft-delete table keyed by an auto-increment id. Callers hold
// DB.mu.
type table[E interface{ EntryID() int64 }] struct {
	rows   []row[E]
	nextID int64
	stamp  func(E, *time.Time) E
}

func (t *table[E]) insert(userID int64, build func(id int64) E) E {
	t.nextID++
	e := build(t.nextID)
	t.rows = append(t.rows, row[E]{userID: userID, e: e})
	return t.stamp(e, nil)
}

func (t *table[E]) find(userID, id int64) *row[E] {
	for i := range t.rows {
		if t.rows[i].userID == userID && t.rows[i].e.EntryID() == id {
			return &t.rows[i]
		}
	}
	return nil
}

func (t *table[E]) list(userID int64, deleted bool) []E {
	out := []E{}
	for _, r := range t.rows {
		if r.userID == userID && (r.deletedAt != nil) == deleted {
			out = append(out, t.stamp(r.e, r.deletedAt))
		}
	}
	return out
}

// softDelete fails with ErrNotFound when the row is missing or already deleted.
func (t *table[E]) softDelete(userID, id int64, at time.Time) error {
	r := t.find(userID, id)
	if r == nil || r.deletedAt != nil {
		return domain.ErrNotFound
	}
	at = at.UTC()
	r.deletedAt = &at
	return nil
}

func (t *table[E]) restore(userID, id int64) error {
	r := t.find(userID, id)
	if r == nil || r.deletedAt == nil {
		return domain.ErrNotFound
	}
	r.deletedAt = nil
	return nil
}

// purge only removes soft-deleted rows.
func (t *table[E]) purge(userID, id int64) error {
	for i, r := range t.rows {
		if r.userID == userID && r.e.EntryID() == id && r.deletedAt != nil {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func byDay[E domain.Entry](list []E) []E {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].EntryDay() != list[j].EntryDay() {
			return list[i].EntryDay() < list[j].EntryDay()
		}
		return list[i].EntryID() < list[j].EntryID()
	})
	return list
}

// --- WeightRepository ---

// AddWeightEntry stores a weight measurement.
func (db *DB) AddWeightEntry(ctx context.Context, userID int64, in domain.WeightInput, createdAt time.Time) (*domain.WeightEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	e := db.weights.insert(userID, func(id int64) domain.WeightEntry {
		return domain.WeightEntry{ID: id, UserID: userID, Day: in.Day, Value: in.Value, Unit: in.Unit, Notes: in.Notes, CreatedAt: createdAt.UTC()}
	})
	return &e, nil
}

// ListWeightEntries lists the user's active weights by day.
func (db *DB) ListWeightEntries(ctx context.Context, userID int64) ([]domain.WeightEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return byDay(db.weights.list(userID, false)), nil
}

// DeleteWeightEntry soft-deletes a weight.
func (db *DB) DeleteWeightEntry(ctx context.Context, userID, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.weights.softDelete(userID, id, db.now())
}

// RestoreWeightEntry clears a weight's tombstone.
func (db *DB) RestoreWeightEntry(ctx context.Context, userID, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.weights.restore(userID, id)
}

// ListDeletedWeightEntries lists the user's soft-deleted weights.
func (db *DB) ListDeletedWeightEntries(ctx context.Context, userID int64) ([]domain.WeightEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return byDay(db.weights.list(userID, true)), nil
}

// PurgeWeightEntry removes a soft-deleted weight for good.
func (db *DB) PurgeWeightEntry(ctx context.Context, userID, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.weights.purge(userID, id)
}

// --- CalorieRepository ---

// AddCalorieEntry stores a meal.
func (db *DB) AddCalorieEntry(ctx context.Context, userID int64, in domain.CalorieInput, createdAt time.Time) (*domain.CalorieEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	e := db.calories.insert(userID, func(id int64) domain.CalorieEntry {
		return domain.CalorieEntry{ID: id, UserID: userID, Day: in.Day, Calories: in.Calories, MealType: in.MealType, Notes: in.Notes, CreatedAt: createdAt.UTC()}
	})
	return &e, nil
}

func (db *DB) ListCalorieEntries(ctx context.Context, userID int64) ([]domain.CalorieEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return byDay(db.calories.list(userID, false)), nil
}

func (db *DB) DeleteCalorieEntry(ctx context.Context, userID, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.calories.softDelete(userID, id, db.now())
}

func (db *DB) RestoreCalorieEntry(ctx context.Context, userID, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.calories.restore(userID, id)
}

func (db *DB) ListDeletedCalorieEntries(ctx context.Context, userID int64) ([]domain.CalorieEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return byDay(db.calories.list(userID, true)), nil
}

func (db *DB) PurgeCalorieEntry(ctx context.Context, userID, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.calories.purge(userID, id)
}

// --- WellnessRepository ---

// AddWellnessEntry stores a sleep and water record.
func (db *DB) AddWellnessEntry(ctx context.Context, userID int64, in domain.WellnessInput, createdAt time.Time) (*domain.WellnessEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	e := db.wellness.insert(userID, func(id int64) domain.WellnessEntry {
		return domain.WellnessEntry{ID: id, UserID: userID, Day: in.Day, SleepHours: in.SleepHours, WaterGlasses: in.WaterGlasses, CreatedAt: createdAt.UTC()}
	})
	return &e, nil
}

func (db *DB) ListWellnessEntries(ctx context.Context, userID int64) ([]domain.WellnessEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return byDay(db.wellness.list(userID, false)), nil
}

func (db *DB) DeleteWellnessEntry(ctx context.Context, userID, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.wellness.softDelete(userID, id, db.now())
}

func (db *DB) RestoreWellnessEntry(ctx context.Context, userID, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.wellness.restore(userID, id)
}

func (db *DB) ListDeletedWellnessEntries(ctx context.Context, userID int64) ([]domain.WellnessEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return byDay(db.wellness.list(userID, true)), nil
}

func (db *DB) PurgeWellnessEntry(ctx context.Context, userID, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.wellness.purge(userID, id)
}

// --- MoodRepository ---

// AddMoodEntry stores a mood check-in.
func (db *DB) AddMoodEntry(ctx context.Context, userID int64, in domain.MoodInput, createdAt time.Time) (*domain.MoodEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	e := db.moods.insert(userID, func(id int64) domain.MoodEntry {
		return domain.MoodEntry{ID: id, UserID: userID, Day: in.Day, Mood: in.Mood, EnergyLevel: in.EnergyLevel, Notes: in.Notes, Reactions: map[string]int{}, CreatedAt: createdAt.UTC()}
	})
	return &e, nil
}

func (db *DB) ListMoodEntries(ctx context.Context, userID int64) ([]domain.MoodEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return byDay(db.moods.list(userID, false)), nil
}

func (db *DB) DeleteMoodEntry(ctx context.Context, userID, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.moods.softDelete(userID, id, db.now())
}

func (db *DB) RestoreMoodEntry(ctx context.Context, userID, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.moods.restore(userID, id)
}

func (db *DB) ListDeletedMoodEntries(ctx context.Context, userID int64) ([]domain.MoodEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return byDay(db.moods.list(userID, true)), nil
}

func (db *DB) PurgeMoodEntry(ctx context.Context, userID, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.moods.purge(userID, id)
}

// AddMoodReaction increments a reaction counter on an active mood entry.
func (db *DB) AddMoodReaction(ctx context.Context, userID, id int64, reaction string) (*domain.MoodEntry, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	r := db.moods.find(userID, id)
	if r == nil || r.deletedAt != nil {
		return nil, domain.ErrNotFound
	}
	if r.e.Reactions == nil {
		r.e.Reactions = map[string]int{}
	}
	r.e.Reactions[reaction]++
	e := db.moods.stamp(r.e, nil)
	return &e, nil
}

func copyReactions(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// --- ProfileRepository ---

// GetProfile returns the user's profile or ErrNotFound.
func (db *DB) GetProfile(ctx context.Context, userID int64) (*domain.Profile, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	p, ok := db.profiles[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

// SaveProfile upserts the profile.
func (db *DB) SaveProfile(ctx context.Context, p domain.Profile) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.profiles[p.UserID] = p
	return nil
}

// --- PhotoRepository ---

// AddPhoto stores photo metadata.
func (db *DB) AddPhoto(ctx context.Context, p domain.Photo) (*domain.Photo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := db.photos.insert(p.UserID, func(id int64) domain.Photo {
		p.ID = id
		p.CreatedAt = p.CreatedAt.UTC()
		return p
	})
	return &out, nil
}

// GetPhoto returns an active or deleted photo owned by the user.
func (db *DB) GetPhoto(ctx context.Context, userID, id int64) (*domain.Photo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	r := db.photos.find(userID, id)
	if r == nil {
		return nil, domain.ErrNotFound
	}
	p := db.photos.stamp(r.e, r.deletedAt)
	return &p, nil
}

// ListPhotos lists active photos, newest first.
func (db *DB) ListPhotos(ctx context.Context, userID int64) ([]domain.Photo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	list := db.photos.list(userID, false)
	sort.SliceStable(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (db *DB) DeletePhoto(ctx context.Context, userID, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.photos.softDelete(userID, id, db.now())
}

// PurgePhoto removes photo metadata whether or not it was soft-deleted.
func (db *DB) PurgePhoto(ctx context.Context, userID, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i, r := range db.photos.rows {
		if r.userID == userID && r.e.ID == id {
			db.photos.rows = append(db.photos.rows[:i], db.photos.rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return u, nil
		}
	}
	// Return nil if not found
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, errors.New("user already exists")
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    db.now().UTC(),
	}
	db.users = append(db.users, u)
	return u, nil
}

// UpdatePasswordHash replaces the user's password hash.
func (db *DB) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, u := range db.users {
		if u.ID == id {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return domain.ErrNotFound
}

// Count returns the total number of users.
func (db *DB) Count(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// --- SessionRepository ---

// SessionRepo implements session persistence.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		UserAgent: userAgent,
		IP:        ip,
		ExpiresAt: expiresAt,
		CreatedAt: r.db.now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if s, ok := r.db.sessions[token]; ok {
		if r.db.now().After(s.ExpiresAt) {
			delete(r.db.sessions, token)
			return nil, nil
		}
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

// Delete deletes a session.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteForUser signs the user out everywhere.
func (r *SessionRepo) DeleteForUser(ctx context.Context, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for k, v := range r.db.sessions {
		if v.UserID == userID {
			delete(r.db.sessions, k)
		}
	}
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := r.db.now()
	for k, v := range r.db.sessions {
		if now.After(v.ExpiresAt) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}

// --- DeleteOutbox ---

// Outbox keeps failed deferred deletes in memory.
type Outbox struct {
	mu    sync.Mutex
	items map[string]domain.PendingDelete
}

// NewOutbox creates an empty outbox.
func NewOutbox() *Outbox {
	return &Outbox{items: make(map[string]domain.PendingDelete)}
}

var _ domain.DeleteOutbox = (*Outbox)(nil)

func (o *Outbox) Put(ctx context.Context, p domain.PendingDelete) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[p.Key()] = p
	return nil
}

func (o *Outbox) Remove(ctx context.Context, kind domain.Kind, userID, entryID int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.items, domain.PendingDelete{Kind: kind, UserID: userID, EntryID: entryID}.Key())
	return nil
}

// List returns every pending delete, oldest failure first.
func (o *Outbox) List(ctx context.Context) ([]domain.PendingDelete, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.PendingDelete, 0, len(o.items))
	for _, p := range o.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FailedAt.Equal(out[j].FailedAt) {
			return out[i].FailedAt.Before(out[j].FailedAt)
		}
		return out[i].Key() < out[j].Key()
	})
	return out, nil
}

func (o *Outbox) ListForUser(ctx context.Context, kind domain.Kind, userID int64) ([]domain.PendingDelete, error) {
	all, err := o.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.Kind == kind && p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- ObjectStore ---

// Objects is an in-memory object store.
type Objects struct {
	mu      sync.Mutex
	baseURL string
	data    map[string][]byte
}

// NewObjects creates an object store whose URLs are rooted at baseURL.
func NewObjects(baseURL string) *Objects {
	return &Objects{baseURL: baseURL, data: make(map[string][]byte)}
}

var _ domain.ObjectStore = (*Objects)(nil)

func (o *Objects) Put(ctx context.Context, path, contentType string, r io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return fmt.Errorf("read object: %w", err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.data[path] = buf.Bytes()
	return nil
}

func (o *Objects) Delete(ctx context.Context, path string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.data[path]; !ok {
		return domain.ErrNotFound
	}
	delete(o.data, path)
	return nil
}

// Get returns the stored bytes; used by the dev file server and tests.
func (o *Objects) Get(path string) ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.data[path]
	return b, ok
}

// Len returns the number of stored objects.
func (o *Objects) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.data)
}

func (o *Objects) URL(path string) string {
	return o.baseURL + "/" + path
}
