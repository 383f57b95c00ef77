// Package cursor tracks remote peers' cursor positions and keeps them
// spatially accurate across applied operations (component C5).
package cursor

import (
	"sync"

	"github.com/shiv248/coedit/pkg/document"
	"github.com/shiv248/coedit/pkg/position"
)

// Entry is one tracked remote cursor.
type Entry struct {
	UserID   string
	Position document.Position
	Color    string
	Name     string // optional; empty if the peer never sent a display name
}

// Tracker holds the current set of remote cursors for one document replica.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[string]Entry)}
}

// Update upserts a peer's cursor.
func (t *Tracker) Update(userID string, pos document.Position, color, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[userID] = Entry{UserID: userID, Position: pos, Color: color, Name: name}
}

// Remove deletes a peer's cursor, e.g. on disconnect.
func (t *Tracker) Remove(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, userID)
}

// MapThrough folds position.Map over ops for every tracked cursor,
// replacing an entry only when its position actually changed.
func (t *Tracker) MapThrough(ops []document.Operation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, entry := range t.entries {
		mapped := position.MapThroughOps(entry.Position, ops)
		if mapped != entry.Position {
			entry.Position = mapped
			t.entries[id] = entry
		}
	}
}

// GetAll returns a snapshot of every tracked cursor, order unspecified.
func (t *Tracker) GetAll() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	return out
}

// GetOne returns a single peer's cursor, if tracked.
func (t *Tracker) GetOne(userID string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[userID]
	return e, ok
}

// Clear removes every tracked cursor.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = make(map[string]Entry)
}
