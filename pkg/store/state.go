package store

import (
	"sync"
	"time"
)

// State is the client-observed connection state.
type State string

const (
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateSyncing      State = "syncing"
	StateSynced       State = "synced"
	StateError        State = "error"
	StateDisconnected State = "disconnected"
)

// DefaultGraceWindow is how long the tracker lingers in synced before
// reverting to connected. Purely cosmetic; it gates nothing.
const DefaultGraceWindow = 1000 * time.Millisecond

// StateTracker drives the connection-state machine from subscription
// callbacks and write attempts. Safe for concurrent use.
type StateTracker struct {
	mu     sync.Mutex
	state  State
	grace  time.Duration
	revert *time.Timer
	gen    int
}

// NewStateTracker returns a tracker in the disconnected state. A grace of 0
// selects DefaultGraceWindow.
func NewStateTracker(grace time.Duration) *StateTracker {
	if grace <= 0 {
		grace = DefaultGraceWindow
	}
	return &StateTracker{state: StateDisconnected, grace: grace}
}

// Current reports the current state.
func (t *StateTracker) Current() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// CanWrite reports whether a mutating command may be issued. Writes are
// rejected client-side in every other state, before reaching the network.
func (t *StateTracker) CanWrite() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == StateConnected || t.state == StateSyncing || t.state == StateSynced
}

// Subscribing marks the start of a subscribe attempt.
func (t *StateTracker) Subscribing() {
	t.set(StateConnecting)
}

// SnapshotDelivered marks a successful snapshot delivery. A snapshot also
// clears a prior error state: the transport has evidently recovered.
func (t *StateTracker) SnapshotDelivered() {
	t.mu.Lock()
	defer t.mu.Unlock()
	// Do not mask an in-flight write's syncing/synced display.
	if t.state == StateSyncing || t.state == StateSynced {
		return
	}
	t.transition(StateConnected)
}

// WriteBegan marks a write operation leaving for the store.
func (t *StateTracker) WriteBegan() {
	t.set(StateSyncing)
}

// WriteAcked marks a write's remote acknowledgment. The tracker shows
// synced for the grace window, then reverts to connected unless something
// else happened in between.
func (t *StateTracker) WriteAcked() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transition(StateSynced)

	gen := t.gen
	t.revert = time.AfterFunc(t.grace, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.gen == gen && t.state == StateSynced {
			t.state = StateConnected
		}
	})
}

// Failed marks a delivered transport error, from either channel.
func (t *StateTracker) Failed() {
	t.set(StateError)
}

// Disconnected marks explicit teardown.
func (t *StateTracker) Disconnected() {
	t.set(StateDisconnected)
}

func (t *StateTracker) set(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.transition(s)
}

// transition must be called with the lock held. Bumping gen invalidates any
// pending synced revert timer.
func (t *StateTracker) transition(s State) {
	t.gen++
	if t.revert != nil {
		t.revert.Stop()
		t.revert = nil
	}
	t.state = s
}
