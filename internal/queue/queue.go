package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/plbrasil/hs-notify/internal/clock"
)

// DefaultTTL is how long a record stays live when Options.TTL is zero.
const DefaultTTL = 3 * time.Minute

// Options configures a Queue. The zero value is usable.
type Options struct {
	// TTL is applied uniformly to every record.
	TTL time.Duration
	// Clock schedules expiry timers. Defaults to clock.Real.
	Clock clock.Clock
	// NewID generates record identifiers. Defaults to random UUIDs.
	NewID func() string
}

// Queue is an in-memory, insertion-ordered collection of ephemeral records.
// Every record owns one expiry timer which is cancelled the moment the record
// leaves the queue, whichever path removes it.
//
// All mutations, including timer callbacks, are serialized by a single mutex,
// and listeners and hooks are invoked while it is held. A listener therefore
// always observes a complete state, snapshots arrive in mutation order, and
// listeners must not call back into the queue from the same goroutine.
type Queue[T any] struct {
	ttl   time.Duration
	clock clock.Clock
	newID func() string
	hooks Hooks[T]

	mu      sync.Mutex
	entries []*entry[T]
	index   map[string]*entry[T]
	subs    []subscription[T]
	nextSub uint64
	lastAt  time.Time
	closed  bool
}

type entry[T any] struct {
	rec   Record[T]
	timer clock.Timer
}

type subscription[T any] struct {
	id uint64
	fn Listener[T]
}

// New creates an empty queue. hooks may be the zero value.
func New[T any](opts Options, hooks Hooks[T]) *Queue[T] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	return &Queue[T]{
		ttl:   opts.TTL,
		clock: opts.Clock,
		newID: opts.NewID,
		hooks: hooks,
		index: make(map[string]*entry[T]),
	}
}

// TTL returns the lifetime applied to every record.
func (q *Queue[T]) TTL() time.Duration { return q.ttl }

// Enqueue appends payload and starts its expiry timer. It never fails;
// the payload is stored as-is. The returned id identifies the record until
// it is removed.
func (q *Queue[T]) Enqueue(payload T) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := q.newID()
	for {
		if _, live := q.index[id]; !live {
			break
		}
		id = q.newID()
	}
	if q.closed {
		return id
	}

	now := q.clock.Now()
	if now.Before(q.lastAt) {
		now = q.lastAt
	}
	q.lastAt = now

	e := &entry[T]{rec: Record[T]{
		ID:           id,
		Payload:      payload,
		CreatedAt:    now,
		ExpiresAfter: q.ttl,
	}}
	e.timer = q.clock.AfterFunc(q.ttl, func() { q.expire(e) })

	q.entries = append(q.entries, e)
	q.index[id] = e

	if q.hooks.OnEnqueue != nil {
		q.hooks.OnEnqueue(e.rec)
	}
	q.publishLocked()
	return id
}

// Remove dismisses the record with the given id. A stale or unknown id is a
// no-op. It reports whether a record was removed.
func (q *Queue[T]) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.index[id]
	if !ok {
		return false
	}
	q.removeLocked(e, ReasonDismissed)
	q.publishLocked()
	return true
}

// Clear removes every record in one step. Listeners are notified once, and
// not at all when the queue was already empty.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return
	}
	removed := q.entries
	q.dropAllLocked()
	if q.hooks.OnRemove != nil {
		for _, e := range removed {
			q.hooks.OnRemove(e.rec, ReasonCleared)
		}
	}
	q.publishLocked()
}

// Subscribe registers fn to receive the ordered records after every change.
// The returned function deregisters it and is safe to call more than once.
func (q *Queue[T]) Subscribe(fn Listener[T]) (unsubscribe func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.subscribeLocked(fn)
}

// SubscribeWithSnapshot registers fn and returns the records live at that
// moment, in one step. fn then sees exactly the changes that follow the
// returned snapshot, so a reader that starts from it never replays an older
// state.
func (q *Queue[T]) SubscribeWithSnapshot(fn Listener[T]) (snapshot []Record[T], unsubscribe func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked(), q.subscribeLocked(fn)
}

func (q *Queue[T]) subscribeLocked(fn Listener[T]) (unsubscribe func()) {
	if q.closed {
		return func() {}
	}
	q.nextSub++
	id := q.nextSub
	q.subs = append(q.subs, subscription[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { q.unsubscribe(id) })
	}
}

// Snapshot returns a copy of the live records in insertion order.
func (q *Queue[T]) Snapshot() []Record[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Contains reports whether id names a live record.
func (q *Queue[T]) Contains(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.index[id]
	return ok
}

// Len returns the number of live records.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Subscribers returns the number of registered listeners.
func (q *Queue[T]) Subscribers() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.subs)
}

// Close ends the queue's session: timers are cancelled, records and
// listeners are dropped without a final broadcast. Later calls are no-ops.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.dropAllLocked()
	q.subs = nil
}

func (q *Queue[T]) expire(e *entry[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// The record may have been dismissed while this callback waited for the lock.
	if cur, ok := q.index[e.rec.ID]; !ok || cur != e {
		return
	}
	q.removeLocked(e, ReasonExpired)
	q.publishLocked()
}

func (q *Queue[T]) removeLocked(e *entry[T], reason RemovalReason) {
	e.timer.Stop()
	delete(q.index, e.rec.ID)
	for i, cur := range q.entries {
		if cur == e {
			q.entries = append(q.entries[:i:i], q.entries[i+1:]...)
			break
		}
	}
	if q.hooks.OnRemove != nil {
		q.hooks.OnRemove(e.rec, reason)
	}
}

func (q *Queue[T]) dropAllLocked() {
	for _, e := range q.entries {
		e.timer.Stop()
	}
	q.entries = nil
	q.index = make(map[string]*entry[T])
}

func (q *Queue[T]) unsubscribe(id uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, s := range q.subs {
		if s.id == id {
			q.subs = append(q.subs[:i:i], q.subs[i+1:]...)
			return
		}
	}
}

func (q *Queue[T]) publishLocked() {
	if len(q.subs) == 0 {
		return
	}
	snap := q.snapshotLocked()
	for _, s := range q.subs {
		s.fn(snap)
	}
}

func (q *Queue[T]) snapshotLocked() []Record[T] {
	out := make([]Record[T], len(q.entries))
	for i, e := range q.entries {
		out[i] = e.rec
	}
	return out
}
