package main

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sync"

	"pdf-translator/internal/backend"
	"pdf-translator/internal/config"
	apperrors "pdf-translator/internal/errors"
	"pdf-translator/internal/extract"
	"pdf-translator/internal/ledger"
	"pdf-translator/internal/logger"
	"pdf-translator/internal/overlay"
	"pdf-translator/internal/parser"
	"pdf-translator/internal/reconcile"
	"pdf-translator/internal/results"
	"pdf-translator/internal/segment"
	"pdf-translator/internal/session"
	"pdf-translator/internal/types"
	"pdf-translator/internal/viewer"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Event names for frontend communication
const (
	EventDocumentLoaded      = "document-loaded"
	EventTranslationComplete = "translation-complete"
	EventTranslationFailed   = "translation-failed"
	EventSessionReset        = "session-reset"
)

// App is the main Wails application controller. It owns the single active
// session triple (state machine, segment store, edit ledger) and wires the
// backend client, overlay mapper, reconciliation service, and viewer
// together. All mutations are serialized through the session phase; an
// operation that conflicts with the current phase is refused.
type App struct {
	ctx        context.Context
	config     *config.ConfigManager
	backend    *backend.Client
	machine    *session.Machine
	store      *segment.Store
	ledger     *ledger.Ledger
	mapper     *overlay.Mapper
	reconciler *reconcile.Service
	viewer     viewer.Viewer
	library    *results.Manager
	failures   *apperrors.Manager
	workDir    string

	// Current viewer instance for the loaded document
	viewerMu   sync.Mutex
	viewerInst viewer.Instance

	// isWailsRuntime indicates if the app is running in a Wails environment
	// This is used to safely skip EventsEmit calls during tests
	isWailsRuntime bool
}

// EditStatus reports the outcome of a segment edit for the frontend's
// progress indication.
type EditStatus struct {
	Applied bool `json:"applied"`
	Count   int  `json:"count"`
}

// NewApp creates a new App application struct. The session triple exists
// from the start so bindings are callable before startup completes.
func NewApp() *App {
	store := segment.NewStore()
	return &App{
		machine: session.NewMachine(),
		store:   store,
		ledger:  ledger.NewLedger(store),
		mapper:  overlay.NewMapper(store),
		viewer:  viewer.NewPDFCPUViewer(),
	}
}

// NewAppWithConfig creates a new App with a custom config path.
// This is useful for testing or when a specific configuration location is needed.
func NewAppWithConfig(configPath string) (*App, error) {
	app := NewApp()

	configMgr, err := config.NewConfigManager(configPath)
	if err != nil {
		return nil, err
	}
	app.config = configMgr

	return app, nil
}

// safeEmit safely emits an event to the frontend.
// It only emits events when running in a Wails environment.
func (a *App) safeEmit(eventName string, data ...interface{}) {
	if !a.isWailsRuntime {
		logger.Debug("event emit skipped (not in Wails runtime)",
			logger.String("event", eventName))
		return
	}
	runtime.EventsEmit(a.ctx, eventName, data...)
}

// SetWailsRuntime sets the Wails runtime flag.
// This should be called from main.go when the app is started in Wails mode.
func (a *App) SetWailsRuntime(isWails bool) {
	a.isWailsRuntime = isWails
}

// startup is called when the app starts. The context is saved so we can
// call the runtime methods. It initializes all modules and prepares the
// application for use.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	logger.Info("application starting up")

	if a.config == nil {
		configMgr, err := config.NewConfigManager("")
		if err != nil {
			logger.Error("failed to create config manager", err)
			return
		}
		a.config = configMgr
	}

	if err := a.config.Load(); err != nil {
		// Continue with defaults if config load fails
		logger.Warn("failed to load config, using defaults", logger.Err(err))
	}

	if err := a.initWorkDir(); err != nil {
		logger.Error("failed to initialize work directory", err)
	}

	a.backend = backend.NewClientWithTimeout(a.config.GetBackendBaseURL(), a.config.GetHTTPTimeout())
	logger.Debug("backend client initialized", logger.String("baseURL", a.backend.BaseURL()))

	a.reconciler = reconcile.NewService(a.backend, a.machine, a.ledger)

	libraryMgr, err := results.NewManager(a.config.GetLibraryDirectory())
	if err != nil {
		logger.Warn("failed to initialize library manager", logger.Err(err))
	} else {
		a.library = libraryMgr
		logger.Debug("library manager initialized", logger.String("baseDir", libraryMgr.GetBaseDir()))
	}

	failureMgr, err := apperrors.NewManager("")
	if err != nil {
		logger.Warn("failed to initialize failure journal", logger.Err(err))
	} else {
		a.failures = failureMgr
	}

	logger.Info("application startup complete")
}

// shutdown is called when the app is closing. It performs cleanup of the
// active session and temporary files.
func (a *App) shutdown(ctx context.Context) {
	logger.Info("application shutting down")

	a.unloadViewerInstance()

	// Best-effort backend cleanup for the active session
	snap := a.machine.Snapshot()
	if snap.SessionID != "" && a.backend != nil {
		if err := a.backend.Cleanup(ctx, snap.SessionID); err != nil {
			logger.Warn("session cleanup failed on shutdown", logger.Err(err))
		}
	}

	if a.workDir != "" && a.isTemporaryWorkDir() {
		if err := os.RemoveAll(a.workDir); err != nil {
			logger.Warn("failed to clean up work directory", logger.String("workDir", a.workDir), logger.Err(err))
		}
	}

	logger.Info("application shutdown complete")
}

// initWorkDir initializes the work directory for temporary files.
// It first checks if a work directory is configured, otherwise creates
// a temporary directory.
func (a *App) initWorkDir() error {
	if a.config != nil {
		configWorkDir := a.config.GetWorkDirectory()
		if configWorkDir != "" {
			a.workDir = configWorkDir
			return os.MkdirAll(a.workDir, 0755)
		}
	}

	tempDir, err := os.MkdirTemp("", "pdf-translator-*")
	if err != nil {
		return err
	}
	a.workDir = tempDir
	return nil
}

// isTemporaryWorkDir checks if the current work directory is a temporary directory.
func (a *App) isTemporaryWorkDir() bool {
	if a.workDir == "" {
		return false
	}
	return filepath.HasPrefix(a.workDir, os.TempDir())
}

// GetConfig returns the config manager.
func (a *App) GetConfig() *config.ConfigManager {
	return a.config
}

// GetWorkDir returns the current work directory.
func (a *App) GetWorkDir() string {
	return a.workDir
}

// GetSession returns the current session snapshot.
func (a *App) GetSession() types.SessionSnapshot {
	return a.machine.Snapshot()
}

// IsTranslating returns true if a translation request is in flight.
func (a *App) IsTranslating() bool {
	return a.machine.Phase() == types.PhaseTranslating
}

// HasPendingEdits reports whether edits exist that have not yet been
// reconciled into a successful translation.
func (a *App) HasPendingEdits() bool {
	return a.ledger.Dirty()
}

// EditCount returns the number of distinct edited segments.
func (a *App) EditCount() int {
	return a.ledger.Count()
}

// unloadViewerInstance releases the current viewer instance, if any.
func (a *App) unloadViewerInstance() {
	a.viewerMu.Lock()
	defer a.viewerMu.Unlock()
	if a.viewerInst != nil {
		if err := a.viewerInst.Unload(); err != nil {
			logger.Warn("failed to unload viewer instance", logger.Err(err))
		}
		a.viewerInst = nil
	}
}

// setViewerInstance swaps in a new viewer instance, unloading the old one.
func (a *App) setViewerInstance(inst viewer.Instance) {
	a.viewerMu.Lock()
	defer a.viewerMu.Unlock()
	if a.viewerInst != nil {
		a.viewerInst.Unload()
	}
	a.viewerInst = inst
}

// currentViewerInstance returns the viewer instance for the loaded document.
func (a *App) currentViewerInstance() viewer.Instance {
	a.viewerMu.Lock()
	defer a.viewerMu.Unlock()
	return a.viewerInst
}

// recordFailure journals a workflow failure. Journaling is best-effort.
func (a *App) recordFailure(sessionID, filename, input string, stage apperrors.FailureStage, errMsg string) {
	if a.failures == nil {
		return
	}
	if err := a.failures.Record(sessionID, filename, input, stage, errMsg); err != nil {
		logger.Warn("failed to journal failure", logger.Err(err))
	}
}

// UploadDocument onboards a new document: it resolves the input (local PDF
// path or URL), uploads the bytes, runs text extraction, loads the viewer,
// and atomically replaces the session triple. The previous session, its
// segments, and its edits are discarded together; the superseded backend
// session is cleaned up best-effort.
//
// If extraction fails after a successful upload the onboarding attempt
// fails as a whole: the session stays in NoDocument and the orphaned
// backend session is handed to cleanup.
func (a *App) UploadDocument(input string) (*types.SessionSnapshot, error) {
	logger.Info("uploading document", logger.String("input", input))

	if a.machine.Phase() == types.PhaseTranslating {
		return nil, types.NewAppError(types.ErrState, "a translation is in progress", nil)
	}
	if a.backend == nil {
		return nil, types.NewAppError(types.ErrState, "application not started", nil)
	}

	inputType, err := parser.ParseInput(input)
	if err != nil {
		return nil, err
	}

	var document []byte
	var filename string
	switch inputType {
	case parser.InputTypeLocalPDF:
		document, err = os.ReadFile(input)
		if err != nil {
			return nil, types.NewAppError(types.ErrUpload, "failed to read document", err)
		}
		filename = filepath.Base(input)
	case parser.InputTypeURL:
		document, err = a.backend.FetchDocument(a.ctx, input)
		if err != nil {
			return nil, err
		}
		filename = urlFilename(input)
	}

	uploadResp, err := a.backend.Upload(a.ctx, filename, bytes.NewReader(document))
	if err != nil {
		a.recordFailure("", filename, input, apperrors.StageUpload, err.Error())
		return nil, err
	}

	segments, err := a.extractSegments(uploadResp.SessionID, document)
	if err != nil {
		// Failed onboarding: the partially-created backend session is
		// eligible for cleanup, the machine stays untouched.
		a.recordFailure(uploadResp.SessionID, filename, input, apperrors.StageExtract, err.Error())
		a.cleanupSession(uploadResp.SessionID)
		return nil, err
	}

	inst, err := a.viewer.Load(a.ctx, document)
	if err != nil {
		a.cleanupSession(uploadResp.SessionID)
		return nil, err
	}

	previous := a.machine.Snapshot()

	// Replace the session triple atomically: ledger, store, then phase.
	a.ledger.Clear()
	a.store.Load(segments)
	if err := a.machine.BeginSession(uploadResp.SessionID, uploadResp.Filename); err != nil {
		a.store.Clear()
		a.ledger.Clear()
		inst.Unload()
		a.cleanupSession(uploadResp.SessionID)
		return nil, err
	}
	a.setViewerInstance(inst)

	if previous.SessionID != "" {
		a.cleanupSession(previous.SessionID)
	}

	if a.config != nil {
		if err := a.config.SetLastInput(input); err != nil {
			logger.Warn("failed to persist last input", logger.Err(err))
		}
	}

	snap := a.machine.Snapshot()
	a.safeEmit(EventDocumentLoaded, snap)
	return &snap, nil
}

// extractSegments asks the backend for positioned text; when the endpoint
// fails it falls back to local extraction from the uploaded bytes.
func (a *App) extractSegments(sessionID string, document []byte) ([]types.TextSegment, error) {
	extractResp, err := a.backend.ExtractText(a.ctx, sessionID)
	if err == nil {
		return extractResp.Segments, nil
	}

	logger.Warn("backend extraction failed, trying local extraction",
		logger.String("sessionID", sessionID), logger.Err(err))

	segments, localErr := extract.Segments(document)
	if localErr != nil || len(segments) == 0 {
		return nil, types.NewAppError(types.ErrExtract, "text extraction failed", err)
	}
	return segments, nil
}

// cleanupSession releases a backend session best-effort. Cleanup failures
// never affect client state; they are logged and journaled only.
func (a *App) cleanupSession(sessionID string) {
	if sessionID == "" || a.backend == nil {
		return
	}
	if err := a.backend.Cleanup(a.ctx, sessionID); err != nil {
		logger.Warn("session cleanup failed", logger.String("sessionID", sessionID), logger.Err(err))
		a.recordFailure(sessionID, "", "", apperrors.StageCleanup, err.Error())
	}
}

// urlFilename derives a filename from a document URL.
func urlFilename(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return "document.pdf"
}

// SegmentsForPage returns the extracted segments on one page, in
// extraction order.
func (a *App) SegmentsForPage(page int) []types.TextSegment {
	return a.store.SegmentsForPage(page)
}

// ProjectOverlay returns screen-space rectangles for the visible page under
// the given render scale and offset. The overlay is recomputed on every
// call, so zoom and page switches need no invalidation on the Go side.
func (a *App) ProjectOverlay(vp overlay.Viewport) []overlay.ScreenBox {
	return a.mapper.Project(vp)
}

// SegmentAt hit-tests the pointer position against the visible page's
// overlay and returns the hit segment, or nil when nothing was hit.
func (a *App) SegmentAt(pointerX, pointerY float64, vp overlay.Viewport) *types.TextSegment {
	seg, ok := a.mapper.SegmentAt(pointerX, pointerY, vp)
	if !ok {
		return nil
	}
	return &seg
}

// SetSegmentEdit commits a user edit for one segment. The first segment
// edit commits the session to the per-segment edit path; sessions that
// already used the viewer path refuse it. An edit referencing a segment
// that no longer exists (stale UI reference after reset) or a non-editable
// segment (empty extracted text) is a silent no-op and does not commit the
// edit path.
func (a *App) SetSegmentEdit(segmentID, text string) (*EditStatus, error) {
	seg, ok := a.store.Get(segmentID)
	if !ok || !seg.Editable() {
		logger.Debug("ignoring edit for unknown or non-editable segment",
			logger.String("segmentID", segmentID))
		return &EditStatus{Applied: false, Count: a.ledger.Count()}, nil
	}

	if err := a.machine.SetEditMode(types.EditModeSegments); err != nil {
		return nil, err
	}

	applied := a.ledger.SetEdit(segmentID, text)
	return &EditStatus{Applied: applied, Count: a.ledger.Count()}, nil
}

// RevertSegmentEdit removes a user edit, restoring the extracted text.
func (a *App) RevertSegmentEdit(segmentID string) *EditStatus {
	a.ledger.Remove(segmentID)
	return &EditStatus{Applied: true, Count: a.ledger.Count()}
}

// MarkViewerEditing commits the session to the whole-document viewer edit
// path. Sessions that already carry per-segment edits refuse it; the two
// paths are mutually exclusive.
func (a *App) MarkViewerEditing() error {
	if a.ledger.Count() > 0 {
		return types.NewAppError(types.ErrEditConflict,
			"session already has per-segment edits", nil)
	}
	return a.machine.SetEditMode(types.EditModeViewer)
}

// TranslateDocument submits the translation request for the loaded
// document. On success the session transitions to Translated and the
// result is recorded in the library; on failure the session returns to
// Loaded with the edit ledger intact so the user can retry.
func (a *App) TranslateDocument(sourceLang, targetLang string) (*types.SessionSnapshot, error) {
	if a.reconciler == nil {
		return nil, types.NewAppError(types.ErrState, "application not started", nil)
	}

	before := a.machine.Snapshot()
	editCount := a.ledger.Count()

	_, err := a.reconciler.Submit(a.ctx, a.currentViewerInstance(), sourceLang, targetLang)
	if err != nil {
		a.recordFailure(before.SessionID, before.OriginalFilename, "", apperrors.StageTranslate, err.Error())
		a.safeEmit(EventTranslationFailed, err.Error())
		return nil, err
	}

	snap := a.machine.Snapshot()
	if snap.Epoch == before.Epoch && snap.Phase == types.PhaseTranslated && a.library != nil {
		if err := a.library.Add(&results.Record{
			SessionID:          snap.SessionID,
			Filename:           snap.OriginalFilename,
			SourceLang:         sourceLang,
			TargetLang:         targetLang,
			TranslatedLocation: snap.TranslatedLocation,
			SegmentEdits:       editCount,
		}); err != nil {
			logger.Warn("failed to record translation in library", logger.Err(err))
		}
	}

	a.safeEmit(EventTranslationComplete, snap)
	return &snap, nil
}

// DownloadDocument fetches the original or translated document and writes
// it to savePath. The translated variant is only available once the
// session reached Translated.
func (a *App) DownloadDocument(kind string, savePath string) error {
	downloadKind := types.DownloadKind(kind)
	if downloadKind != types.KindOriginal && downloadKind != types.KindTranslated {
		return types.NewAppErrorWithDetails(types.ErrInvalidInput,
			"invalid download kind", kind, nil)
	}

	snap := a.machine.Snapshot()
	if snap.SessionID == "" {
		return types.NewAppError(types.ErrState, "no document loaded", nil)
	}
	if downloadKind == types.KindTranslated && snap.TranslatedLocation == "" {
		return types.NewAppError(types.ErrDownload, "document has not been translated yet", nil)
	}

	data, err := a.backend.Download(a.ctx, snap.SessionID, downloadKind)
	if err != nil {
		a.recordFailure(snap.SessionID, snap.OriginalFilename, "", apperrors.StageDownload, err.Error())
		return err
	}

	if err := os.WriteFile(savePath, data, 0644); err != nil {
		return types.NewAppError(types.ErrDownload, "failed to save document", err)
	}

	if downloadKind == types.KindTranslated && a.library != nil {
		if err := a.library.SetTranslatedPath(snap.SessionID, savePath); err != nil {
			logger.Debug("library record not updated", logger.Err(err))
		}
	}

	logger.Info("document saved",
		logger.String("kind", kind),
		logger.String("path", savePath))
	return nil
}

// ViewOriginal navigates from the translated result back to the original
// document without losing session identity or edits.
func (a *App) ViewOriginal() (*types.SessionSnapshot, error) {
	if err := a.machine.ViewOriginal(); err != nil {
		return nil, err
	}
	snap := a.machine.Snapshot()
	return &snap, nil
}

// ViewTranslated navigates back to the translated result.
func (a *App) ViewTranslated() (*types.SessionSnapshot, error) {
	if err := a.machine.ViewTranslated(); err != nil {
		return nil, err
	}
	snap := a.machine.Snapshot()
	return &snap, nil
}

// ResetSession forces the workflow back to NoDocument from any phase,
// discarding the session, segment store, and edit ledger together. Any
// in-flight backend response for the discarded session is dropped when it
// arrives, by epoch comparison.
func (a *App) ResetSession() types.SessionSnapshot {
	previous := a.machine.Reset()
	a.store.Clear()
	a.ledger.Clear()
	a.unloadViewerInstance()

	if previous.SessionID != "" {
		a.cleanupSession(previous.SessionID)
	}

	snap := a.machine.Snapshot()
	a.safeEmit(EventSessionReset, snap)
	return snap
}

// ListLibrary returns the recorded translations, most recent first.
func (a *App) ListLibrary() []*results.Record {
	if a.library == nil {
		return nil
	}
	return a.library.List()
}

// DeleteLibraryRecord removes one translation record.
func (a *App) DeleteLibraryRecord(sessionID string) error {
	if a.library == nil {
		return types.NewAppError(types.ErrState, "library not initialized", nil)
	}
	return a.library.Delete(sessionID)
}

// ListFailures returns the journaled workflow failures, most recent first.
func (a *App) ListFailures() []*apperrors.FailureRecord {
	if a.failures == nil {
		return nil
	}
	return a.failures.List()
}
