package undo

import (
	"sync"
	"time"

	"fitflow/internal/clock"
)

const maxNotices = 20

// Notice is a short confirmation shown to a user once, e.g. after an undo.
type Notice struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notices buffers confirmations per user until the client drains them. Only
// the most recent notices are kept.
type Notices struct {
	clock clock.Clock

	mu     sync.Mutex
	byUser map[int64][]Notice
}

// NewNotices returns an empty buffer.
func NewNotices(c clock.Clock) *Notices {
	return &Notices{clock: c, byUser: make(map[int64][]Notice)}
}

// Push records msg for userID.
func (n *Notices) Push(userID int64, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	list := append(n.byUser[userID], Notice{Message: msg, At: n.clock.Now()})
	if len(list) > maxNotices {
		list = list[len(list)-maxNotices:]
	}
	n.byUser[userID] = list
}

// Drain returns and clears the user's notices, oldest first.
func (n *Notices) Drain(userID int64) []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	list := n.byUser[userID]
	delete(n.byUser, userID)
	if list == nil {
		return []Notice{}
	}
	return list
}
