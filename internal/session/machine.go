// Package session owns the workflow phase of the current document session
// and the identifiers associated with it. All state lives in an immutable
// snapshot that is replaced wholesale on each transition; the snapshot's
// epoch identifies the session generation so that responses belonging to a
// discarded session can be recognized and dropped.
package session

import (
	"sync"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

// Machine is the session state machine. The workflow phase acts as the sole
// mutual-exclusion mechanism for the single active session: operations that
// conflict with the current phase are refused, never queued.
type Machine struct {
	mu   sync.RWMutex
	snap types.SessionSnapshot
}

// NewMachine creates a machine in the NoDocument phase.
func NewMachine() *Machine {
	return &Machine{
		snap: types.SessionSnapshot{
			Epoch: 1,
			Phase: types.PhaseNoDocument,
		},
	}
}

// Snapshot returns a copy of the current session state.
func (m *Machine) Snapshot() types.SessionSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Phase returns the current workflow phase.
func (m *Machine) Phase() types.SessionPhase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Phase
}

// Epoch returns the current session generation.
func (m *Machine) Epoch() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Epoch
}

// BeginSession transitions to Loaded for a freshly uploaded and extracted
// document. It is called only after both the upload response (carrying the
// session id) and the extraction succeeded; a failed extraction leaves the
// machine untouched. Starting a new session while a translation is in flight
// is refused. The epoch increases so in-flight responses for the previous
// session become stale.
func (m *Machine) BeginSession(sessionID, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.Phase == types.PhaseTranslating {
		return types.NewAppError(types.ErrState, "a translation is in progress", nil)
	}
	if sessionID == "" {
		return types.NewAppError(types.ErrState, "session id must not be empty", nil)
	}

	m.snap = types.SessionSnapshot{
		Epoch:            m.snap.Epoch + 1,
		SessionID:        sessionID,
		OriginalFilename: filename,
		Phase:            types.PhaseLoaded,
	}
	logger.Info("session started",
		logger.String("sessionID", sessionID),
		logger.String("filename", filename),
		logger.Uint64("epoch", m.snap.Epoch))
	return nil
}

// StartTranslation transitions Loaded -> Translating. It returns the epoch
// captured at the moment of transition; completion callbacks must present it
// back so stale completions can be dropped.
func (m *Machine) StartTranslation() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.Phase != types.PhaseLoaded {
		return 0, types.NewAppErrorWithDetails(types.ErrState,
			"translation requires a loaded document", string(m.snap.Phase), nil)
	}
	if m.snap.SessionID == "" {
		return 0, types.NewAppError(types.ErrState, "no session id", nil)
	}

	next := m.snap
	next.Phase = types.PhaseTranslating
	m.snap = next
	return m.snap.Epoch, nil
}

// CompleteTranslation transitions Translating -> Translated for the session
// generation identified by epoch. A completion whose epoch no longer matches
// the current session is stale and dropped. It reports whether the
// transition was applied.
func (m *Machine) CompleteTranslation(epoch uint64, resultLocation string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.snap.Epoch {
		logger.Warn("dropping stale translation success",
			logger.Uint64("responseEpoch", epoch),
			logger.Uint64("currentEpoch", m.snap.Epoch))
		return false
	}
	if m.snap.Phase != types.PhaseTranslating || m.snap.SessionID == "" || resultLocation == "" {
		return false
	}

	next := m.snap
	next.Phase = types.PhaseTranslated
	next.TranslatedLocation = resultLocation
	m.snap = next
	logger.Info("session translated", logger.String("resultLocation", resultLocation))
	return true
}

// FailTranslation transitions Translating back to Loaded, the last stable
// phase, for the session generation identified by epoch. The edit ledger is
// untouched so the user can retry without re-entering edits. It reports
// whether the transition was applied.
func (m *Machine) FailTranslation(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.snap.Epoch {
		logger.Warn("dropping stale translation failure",
			logger.Uint64("responseEpoch", epoch),
			logger.Uint64("currentEpoch", m.snap.Epoch))
		return false
	}
	if m.snap.Phase != types.PhaseTranslating {
		return false
	}

	next := m.snap
	next.Phase = types.PhaseLoaded
	m.snap = next
	return true
}

// ViewOriginal navigates Translated -> Loaded so the user can see the
// original document again. This is a view transition, not a phase
// regression: session identity, the translated result location, and the
// edit ledger are all preserved.
func (m *Machine) ViewOriginal() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.Phase != types.PhaseTranslated {
		return types.NewAppErrorWithDetails(types.ErrState,
			"no translated document to navigate from", string(m.snap.Phase), nil)
	}

	next := m.snap
	next.Phase = types.PhaseLoaded
	m.snap = next
	return nil
}

// ViewTranslated navigates back to the translated result after ViewOriginal.
// Only valid when a result location from a completed translation exists.
func (m *Machine) ViewTranslated() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.Phase != types.PhaseLoaded || m.snap.TranslatedLocation == "" {
		return types.NewAppError(types.ErrState, "no translated result to view", nil)
	}

	next := m.snap
	next.Phase = types.PhaseTranslated
	m.snap = next
	return nil
}

// SetEditMode records which edit path the session uses. The two paths
// (per-segment edits, whole-document viewer export) are mutually exclusive
// per session: once one is chosen, switching is refused until reset.
func (m *Machine) SetEditMode(mode types.EditMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap.Phase != types.PhaseLoaded {
		return types.NewAppErrorWithDetails(types.ErrState,
			"editing requires a loaded document", string(m.snap.Phase), nil)
	}
	if m.snap.EditMode != types.EditModeNone && m.snap.EditMode != mode {
		return types.NewAppErrorWithDetails(types.ErrEditConflict,
			"session already uses a different edit path", string(m.snap.EditMode), nil)
	}

	next := m.snap
	next.EditMode = mode
	m.snap = next
	return nil
}

// Reset forces a transition to NoDocument from any phase. The caller is
// responsible for discarding the segment store and edit ledger in the same
// interaction, so the three are replaced atomically from the user's
// perspective. The epoch increases so any in-flight response for the
// discarded session is dropped on arrival.
func (m *Machine) Reset() types.SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.snap
	m.snap = types.SessionSnapshot{
		Epoch: m.snap.Epoch + 1,
		Phase: types.PhaseNoDocument,
	}
	logger.Info("session reset",
		logger.String("previousSessionID", previous.SessionID),
		logger.Uint64("epoch", m.snap.Epoch))
	return previous
}
