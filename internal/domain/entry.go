package domain

import (
	"errors"
	"time"
)

// DayLayout is the layout of every entry date ("entry_date") in the system.
const DayLayout = "2006-01-02"

var (
	// ErrNotFound is returned by repositories when a row does not exist or
	// belongs to another user.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks user input that was rejected before any mutation.
	ErrValidation = errors.New("validation failed")
)

// Kind names a loggable metric.
type Kind string

// Metric kinds with their own entry table.
const (
	KindWeight   Kind = "weight"
	KindCalorie  Kind = "calorie"
	KindWellness Kind = "wellness"
	KindMood     Kind = "mood"
)

// Kinds lists every metric kind in display order.
var Kinds = []Kind{KindWeight, KindCalorie, KindWellness, KindMood}

// Valid reports whether k is a known metric kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Entry is the behaviour shared by every logged data point. Entries are
// immutable once created apart from the DeletedAt tombstone.
type Entry interface {
	EntryID() int64
	EntryDay() string
	EntryKind() Kind
}

// ParseDay parses a YYYY-MM-DD entry date in the local zone.
func ParseDay(day string) (time.Time, error) {
	return time.ParseInLocation(DayLayout, day, time.Local)
}

// DayString formats t as a local YYYY-MM-DD entry date.
func DayString(t time.Time) string {
	return t.In(time.Local).Format(DayLayout)
}
