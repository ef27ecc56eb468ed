package queue

import "time"

// Record is a single live notification. Payload is never inspected by the queue.
type Record[T any] struct {
	ID           string        `json:"id"`
	Payload      T             `json:"payload"`
	CreatedAt    time.Time     `json:"created_at"`
	ExpiresAfter time.Duration `json:"-"`
}

// ExpiresAt is the instant the record becomes eligible for automatic removal.
func (r Record[T]) ExpiresAt() time.Time {
	return r.CreatedAt.Add(r.ExpiresAfter)
}

// RemovalReason tells hooks which path retired a record.
type RemovalReason string

const (
	ReasonExpired   RemovalReason = "expired"
	ReasonDismissed RemovalReason = "dismissed"
	ReasonCleared   RemovalReason = "cleared"
)

// Listener receives the ordered live records after every change.
// The slice is shared between listeners and must be treated as read-only.
type Listener[T any] func(records []Record[T])

// Hooks observe individual records entering and leaving the queue.
// They run under the queue lock, so they must not block.
type Hooks[T any] struct {
	OnEnqueue func(rec Record[T])
	OnRemove  func(rec Record[T], reason RemovalReason)
}
