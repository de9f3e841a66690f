package app

import (
	"log/slog"
	"time"

	"fitflow/internal/clock"
	"fitflow/internal/domain"
	"fitflow/internal/undo"
)

// Deps are the collaborators shared by the entry services.
type Deps struct {
	Queue         *undo.Queue
	Notices       *undo.Notices
	Outbox        domain.DeleteOutbox
	Clock         clock.Clock
	RemoteTimeout time.Duration
	Logger        *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Queue == nil {
		d.Queue = undo.NewQueue(d.Clock, 0)
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}
