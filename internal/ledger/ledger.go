// Package ledger records user-authored replacement text per segment identity.
// The ledger is independent of rendering; it only ever references segments
// that exist in the current segment store.
package ledger

import (
	"sync"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/segment"
)

// Ledger is the keyed store of per-segment edits for the current session.
// At most one entry exists per segment id; the last write wins.
type Ledger struct {
	mu    sync.RWMutex
	store *segment.Store
	edits map[string]string
	dirty bool // edits made since the last successful reconciliation
}

// NewLedger creates an empty ledger guarded by the given segment store.
func NewLedger(store *segment.Store) *Ledger {
	return &Ledger{
		store: store,
		edits: make(map[string]string),
	}
}

// SetEdit upserts the replacement text for one segment. Empty text means
// "delete text". The edit is silently dropped when the segment id is not
// present in the current store (stale UI references after a reset) or when
// the segment is not editable (empty extracted text marks a non-text
// region). It reports whether the edit was applied.
func (l *Ledger) SetEdit(segmentID, text string) bool {
	seg, ok := l.store.Get(segmentID)
	if !ok {
		logger.Debug("edit rejected for unknown segment", logger.String("segmentID", segmentID))
		return false
	}
	if !seg.Editable() {
		logger.Debug("edit rejected for non-editable segment", logger.String("segmentID", segmentID))
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.edits[segmentID] = text
	l.dirty = true
	return true
}

// Remove deletes one entry, reverting the segment to its extracted text.
func (l *Ledger) Remove(segmentID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.edits[segmentID]; ok {
		delete(l.edits, segmentID)
		l.dirty = true
	}
}

// Get returns the edited text for a segment, if any.
func (l *Ledger) Get(segmentID string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	text, ok := l.edits[segmentID]
	return text, ok
}

// Clear empties all entries. Called on new upload or session reset.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.edits = make(map[string]string)
	l.dirty = false
}

// Count returns the number of distinct edited segments.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.edits)
}

// Snapshot returns a point-in-time copy of all edits keyed by segment id.
// Edits made after the call do not affect the returned mapping.
func (l *Ledger) Snapshot() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]string, len(l.edits))
	for id, text := range l.edits {
		out[id] = text
	}
	return out
}

// Dirty reports whether edits exist that have not been reconciled into a
// successful translation yet.
func (l *Ledger) Dirty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dirty && len(l.edits) > 0
}

// MarkReconciled records that the current edits were merged into a
// successful translation request.
func (l *Ledger) MarkReconciled() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dirty = false
}
