package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"pdf-translator/internal/config"
	"pdf-translator/internal/overlay"
	"pdf-translator/internal/types"
	"pdf-translator/internal/viewer"
)

// stubViewer accepts any document so tests do not need real PDF bytes.
type stubViewer struct{}

func (s *stubViewer) Load(ctx context.Context, document []byte) (viewer.Instance, error) {
	return &stubViewerInstance{document: document}, nil
}

type stubViewerInstance struct {
	document []byte
	unloaded bool
}

func (s *stubViewerInstance) Export() ([]byte, error) { return s.document, nil }
func (s *stubViewerInstance) PageCount() int          { return 1 }
func (s *stubViewerInstance) Unload() error           { s.unloaded = true; return nil }

// fakeBackend is a minimal in-memory document backend for integration tests.
type fakeBackend struct {
	mu               sync.Mutex
	extractFails     bool
	translateFails   bool
	cleanupCalls     []string
	lastTranslateReq types.TranslationRequest
}

func (f *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("upload without multipart file: %v", err)
		}
		json.NewEncoder(w).Encode(types.UploadResponse{SessionID: "sess-1", Filename: "paper.pdf"})
	})
	mux.HandleFunc("/extract-text/sess-1", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		fails := f.extractFails
		f.mu.Unlock()
		if fails {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail": "extraction engine down"}`))
			return
		}
		json.NewEncoder(w).Encode(types.ExtractTextResponse{
			Segments: []types.TextSegment{
				{SegmentID: "seg_1_0", Page: 1, Text: "Title", Box: types.Box{X0: 10, Y0: 20, X1: 110, Y1: 70}},
				{SegmentID: "seg_1_1", Page: 1, Text: "Body", Box: types.Box{X0: 10, Y0: 100, X1: 210, Y1: 140}},
				{SegmentID: "seg_2_0", Page: 2, Text: "", Box: types.Box{X0: 10, Y0: 20, X1: 110, Y1: 70}}, // non-text region
			},
			TotalSegments: 3,
		})
	})
	mux.HandleFunc("/translate/sess-1", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		json.NewDecoder(r.Body).Decode(&f.lastTranslateReq)
		fails := f.translateFails
		f.mu.Unlock()
		if fails {
			json.NewEncoder(w).Encode(types.TranslationResponse{Success: false, ErrorMsg: "engine unavailable"})
			return
		}
		json.NewEncoder(w).Encode(types.TranslationResponse{Success: true, PDFURL: "/download/sess-1/translated"})
	})
	mux.HandleFunc("/download/sess-1/translated", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("translated-bytes"))
	})
	mux.HandleFunc("/download/sess-1/original", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("original-bytes"))
	})
	mux.HandleFunc("/cleanup/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.cleanupCalls = append(f.cleanupCalls, r.URL.Path)
		f.mu.Unlock()
		w.Write([]byte(`{"message": "cleaned"}`))
	})
	return mux
}

func (f *fakeBackend) translateRequest() types.TranslationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastTranslateReq
}

func (f *fakeBackend) cleanups() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.cleanupCalls))
	copy(out, f.cleanupCalls)
	return out
}

func newTestApp(t *testing.T, backendURL string) *App {
	t.Helper()
	tmpDir := t.TempDir()
	// Keep the library, failure journal, and default config under the test dir
	t.Setenv("HOME", tmpDir)
	t.Setenv(config.EnvBackendURL, backendURL)

	app, err := NewAppWithConfig(filepath.Join(tmpDir, "config.json"))
	if err != nil {
		t.Fatalf("NewAppWithConfig failed: %v", err)
	}
	app.viewer = &stubViewer{}
	app.startup(context.Background())
	t.Cleanup(func() { app.shutdown(context.Background()) })
	return app
}

func writeTestPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "paper.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test document"), 0644); err != nil {
		t.Fatalf("failed to write test document: %v", err)
	}
	return path
}

func TestApp_StartupDefaults(t *testing.T) {
	app := newTestApp(t, "http://127.0.0.1:1")

	snap := app.GetSession()
	if snap.Phase != types.PhaseNoDocument {
		t.Errorf("expected NoDocument on startup, got %s", snap.Phase)
	}
	if app.HasPendingEdits() {
		t.Error("fresh app must not report pending edits")
	}
	if app.GetWorkDir() == "" {
		t.Error("expected a work directory after startup")
	}
}

func TestApp_UploadTranslateDownloadFlow(t *testing.T) {
	backend := &fakeBackend{}
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	app := newTestApp(t, server.URL)

	snap, err := app.UploadDocument(writeTestPDF(t))
	if err != nil {
		t.Fatalf("UploadDocument failed: %v", err)
	}
	if snap.Phase != types.PhaseLoaded || snap.SessionID != "sess-1" {
		t.Fatalf("unexpected snapshot after upload: %+v", snap)
	}

	segments := app.SegmentsForPage(1)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}

	t.Run("overlay and hit-test", func(t *testing.T) {
		vp := overlay.Viewport{Page: 1, Scale: 2.0, OffsetX: 5, OffsetY: 5}
		boxes := app.ProjectOverlay(vp)
		if len(boxes) != 2 {
			t.Fatalf("expected 2 overlay boxes, got %d", len(boxes))
		}
		if boxes[0].X0 != 25 || boxes[0].Y0 != 45 || boxes[0].X1 != 225 || boxes[0].Y1 != 145 {
			t.Errorf("unexpected projection: %+v", boxes[0])
		}

		seg := app.SegmentAt(100, 100, vp)
		if seg == nil || seg.SegmentID != "seg_1_0" {
			t.Errorf("expected hit on seg_1_0, got %+v", seg)
		}
		if miss := app.SegmentAt(1, 1, vp); miss != nil {
			t.Errorf("expected miss, got %+v", miss)
		}
	})

	t.Run("segment edits", func(t *testing.T) {
		status, err := app.SetSegmentEdit("seg_1_0", "Titulo")
		if err != nil {
			t.Fatalf("SetSegmentEdit failed: %v", err)
		}
		if !status.Applied || status.Count != 1 {
			t.Errorf("unexpected edit status: %+v", status)
		}
		if !app.HasPendingEdits() {
			t.Error("expected pending edits")
		}

		// Unknown segment id is a silent no-op
		status, err = app.SetSegmentEdit("seg_9_9", "ghost")
		if err != nil {
			t.Fatalf("SetSegmentEdit for unknown id errored: %v", err)
		}
		if status.Applied || status.Count != 1 {
			t.Errorf("unknown id must not change the ledger: %+v", status)
		}
	})

	t.Run("translate carries edits", func(t *testing.T) {
		snap, err := app.TranslateDocument("en", "es")
		if err != nil {
			t.Fatalf("TranslateDocument failed: %v", err)
		}
		if snap.Phase != types.PhaseTranslated {
			t.Errorf("expected translated, got %s", snap.Phase)
		}
		if snap.TranslatedLocation != "/download/sess-1/translated" {
			t.Errorf("unexpected result location: %s", snap.TranslatedLocation)
		}

		req := backend.translateRequest()
		if req.SourceLang != "en" || req.TargetLang != "es" {
			t.Errorf("language pair not transmitted: %+v", req)
		}
		if req.ManualEdits["seg_1_0"] != "Titulo" {
			t.Errorf("segment edit missing from request: %+v", req.ManualEdits)
		}
		if app.HasPendingEdits() {
			t.Error("edits must be reconciled after a successful translation")
		}
	})

	t.Run("library records the translation", func(t *testing.T) {
		records := app.ListLibrary()
		if len(records) != 1 {
			t.Fatalf("expected 1 library record, got %d", len(records))
		}
		rec := records[0]
		if rec.SessionID != "sess-1" || rec.SegmentEdits != 1 {
			t.Errorf("unexpected record: %+v", rec)
		}
	})

	t.Run("view navigation round trip", func(t *testing.T) {
		if _, err := app.ViewOriginal(); err != nil {
			t.Fatalf("ViewOriginal failed: %v", err)
		}
		if app.GetSession().Phase != types.PhaseLoaded {
			t.Errorf("expected loaded, got %s", app.GetSession().Phase)
		}
		if _, err := app.ViewTranslated(); err != nil {
			t.Fatalf("ViewTranslated failed: %v", err)
		}
		if app.GetSession().Phase != types.PhaseTranslated {
			t.Errorf("expected translated, got %s", app.GetSession().Phase)
		}
	})

	t.Run("download translated document", func(t *testing.T) {
		savePath := filepath.Join(t.TempDir(), "paper_es.pdf")
		if err := app.DownloadDocument(string(types.KindTranslated), savePath); err != nil {
			t.Fatalf("DownloadDocument failed: %v", err)
		}
		data, err := os.ReadFile(savePath)
		if err != nil {
			t.Fatalf("saved file unreadable: %v", err)
		}
		if string(data) != "translated-bytes" {
			t.Errorf("unexpected file content: %s", data)
		}

		rec, ok := app.library.Get("sess-1")
		if !ok || rec.TranslatedPath != savePath {
			t.Errorf("library record missing download path: %+v", rec)
		}
	})

	t.Run("reset discards everything", func(t *testing.T) {
		snap := app.ResetSession()
		if snap.Phase != types.PhaseNoDocument || snap.SessionID != "" {
			t.Errorf("unexpected snapshot after reset: %+v", snap)
		}
		if len(app.SegmentsForPage(1)) != 0 {
			t.Error("segment store must be empty after reset")
		}
		if app.HasPendingEdits() || app.EditCount() != 0 {
			t.Error("edit ledger must be empty after reset")
		}

		found := false
		for _, p := range backend.cleanups() {
			if p == "/cleanup/sess-1" {
				found = true
			}
		}
		if !found {
			t.Error("expected backend cleanup for the discarded session")
		}
	})
}

func TestApp_TranslationFailureKeepsEdits(t *testing.T) {
	backend := &fakeBackend{translateFails: true}
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	app := newTestApp(t, server.URL)
	if _, err := app.UploadDocument(writeTestPDF(t)); err != nil {
		t.Fatalf("UploadDocument failed: %v", err)
	}
	app.SetSegmentEdit("seg_1_0", "Titulo")

	_, err := app.TranslateDocument("en", "es")
	if err == nil {
		t.Fatal("expected translation failure")
	}

	snap := app.GetSession()
	if snap.Phase != types.PhaseLoaded {
		t.Errorf("expected loaded after failure, got %s", snap.Phase)
	}
	if !app.HasPendingEdits() || app.EditCount() != 1 {
		t.Error("failure must leave the edit ledger intact")
	}

	failures := app.ListFailures()
	if len(failures) == 0 {
		t.Fatal("expected journaled failure")
	}
	if failures[0].SessionID != "sess-1" {
		t.Errorf("unexpected failure record: %+v", failures[0])
	}

	if len(app.ListLibrary()) != 0 {
		t.Error("failed translation must not be recorded in the library")
	}
}

func TestApp_ExtractionFailureLeavesNoDocument(t *testing.T) {
	backend := &fakeBackend{extractFails: true}
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	app := newTestApp(t, server.URL)

	// Backend extraction fails and the fake bytes defeat local extraction,
	// so the onboarding attempt fails as a whole.
	_, err := app.UploadDocument(writeTestPDF(t))
	if err == nil {
		t.Fatal("expected upload to fail when extraction fails")
	}
	appErr, ok := err.(*types.AppError)
	if !ok || appErr.Code != types.ErrExtract {
		t.Errorf("expected EXTRACT_ERROR, got %v", err)
	}

	snap := app.GetSession()
	if snap.Phase != types.PhaseNoDocument || snap.SessionID != "" {
		t.Errorf("failed onboarding must leave NoDocument: %+v", snap)
	}

	found := false
	for _, p := range backend.cleanups() {
		if p == "/cleanup/sess-1" {
			found = true
		}
	}
	if !found {
		t.Error("expected orphaned backend session to be cleaned up")
	}
}

func TestApp_EditPathExclusivity(t *testing.T) {
	backend := &fakeBackend{}
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	t.Run("segments first blocks viewer", func(t *testing.T) {
		app := newTestApp(t, server.URL)
		if _, err := app.UploadDocument(writeTestPDF(t)); err != nil {
			t.Fatalf("UploadDocument failed: %v", err)
		}

		if _, err := app.SetSegmentEdit("seg_1_0", "edited"); err != nil {
			t.Fatalf("SetSegmentEdit failed: %v", err)
		}

		err := app.MarkViewerEditing()
		if err == nil {
			t.Fatal("expected viewer path to be refused after segment edits")
		}
		appErr, ok := err.(*types.AppError)
		if !ok || appErr.Code != types.ErrEditConflict {
			t.Errorf("expected EDIT_CONFLICT, got %v", err)
		}
	})

	t.Run("viewer first blocks segments", func(t *testing.T) {
		app := newTestApp(t, server.URL)
		if _, err := app.UploadDocument(writeTestPDF(t)); err != nil {
			t.Fatalf("UploadDocument failed: %v", err)
		}

		if err := app.MarkViewerEditing(); err != nil {
			t.Fatalf("MarkViewerEditing failed: %v", err)
		}

		_, err := app.SetSegmentEdit("seg_1_0", "edited")
		if err == nil {
			t.Fatal("expected segment edit to be refused on the viewer path")
		}
		appErr, ok := err.(*types.AppError)
		if !ok || appErr.Code != types.ErrEditConflict {
			t.Errorf("expected EDIT_CONFLICT, got %v", err)
		}
	})
}

func TestApp_ViewerEditPathTranslation(t *testing.T) {
	backend := &fakeBackend{}
	updated := make(chan []byte, 1)
	mux := http.NewServeMux()
	mux.Handle("/", backend.handler(t))
	mux.HandleFunc("/update-document/sess-1", func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("update without multipart file: %v", err)
		}
		defer file.Close()
		buf := make([]byte, 128)
		n, _ := file.Read(buf)
		updated <- buf[:n]
		w.Write([]byte(`{"message": "updated"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	app := newTestApp(t, server.URL)
	if _, err := app.UploadDocument(writeTestPDF(t)); err != nil {
		t.Fatalf("UploadDocument failed: %v", err)
	}
	if err := app.MarkViewerEditing(); err != nil {
		t.Fatalf("MarkViewerEditing failed: %v", err)
	}

	snap, err := app.TranslateDocument("en", "es")
	if err != nil {
		t.Fatalf("TranslateDocument failed: %v", err)
	}
	if snap.Phase != types.PhaseTranslated {
		t.Errorf("expected translated, got %s", snap.Phase)
	}

	select {
	case doc := <-updated:
		if string(doc) != "%PDF-1.4 test document" {
			t.Errorf("unexpected exported document: %s", doc)
		}
	default:
		t.Error("viewer export never reached the backend")
	}

	if edits := backend.translateRequest().ManualEdits; len(edits) != 0 {
		t.Errorf("viewer path must not carry per-segment edits: %+v", edits)
	}
}

func TestApp_EditOnNonEditableSegment(t *testing.T) {
	backend := &fakeBackend{}
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	app := newTestApp(t, server.URL)
	if _, err := app.UploadDocument(writeTestPDF(t)); err != nil {
		t.Fatalf("UploadDocument failed: %v", err)
	}

	// seg_2_0 has empty extracted text and is excluded from the editable set
	status, err := app.SetSegmentEdit("seg_2_0", "ghost text")
	if err != nil {
		t.Fatalf("SetSegmentEdit errored: %v", err)
	}
	if status.Applied || status.Count != 0 {
		t.Errorf("edit on non-editable segment must be a no-op: %+v", status)
	}
	if app.HasPendingEdits() {
		t.Error("rejected edit must not leave pending edits")
	}

	// The rejected edit must not commit the per-segment edit path either
	if app.GetSession().EditMode != types.EditModeNone {
		t.Errorf("rejected edit committed an edit path: %s", app.GetSession().EditMode)
	}
	if err := app.MarkViewerEditing(); err != nil {
		t.Errorf("viewer path should still be available: %v", err)
	}
}

func TestApp_UploadDocument_InvalidInput(t *testing.T) {
	app := newTestApp(t, "http://127.0.0.1:1")

	_, err := app.UploadDocument("/home/user/paper.docx")
	if err == nil {
		t.Fatal("expected error for unsupported input")
	}
	appErr, ok := err.(*types.AppError)
	if !ok || appErr.Code != types.ErrInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestApp_UploadReplacesPreviousSession(t *testing.T) {
	backend := &fakeBackend{}
	server := httptest.NewServer(backend.handler(t))
	defer server.Close()

	app := newTestApp(t, server.URL)

	if _, err := app.UploadDocument(writeTestPDF(t)); err != nil {
		t.Fatalf("first upload failed: %v", err)
	}
	app.SetSegmentEdit("seg_1_0", "stale edit")
	firstEpoch := app.GetSession().Epoch

	if _, err := app.UploadDocument(writeTestPDF(t)); err != nil {
		t.Fatalf("second upload failed: %v", err)
	}

	snap := app.GetSession()
	if snap.Epoch <= firstEpoch {
		t.Errorf("expected epoch to advance, got %d -> %d", firstEpoch, snap.Epoch)
	}
	if app.EditCount() != 0 {
		t.Error("edits from the previous session must be discarded")
	}
	if snap.EditMode != types.EditModeNone {
		t.Errorf("edit mode must reset with the session, got %s", snap.EditMode)
	}
}

func TestApp_DownloadDocument_Validation(t *testing.T) {
	app := newTestApp(t, "http://127.0.0.1:1")

	if err := app.DownloadDocument("sideways", "/tmp/x.pdf"); err == nil {
		t.Error("expected error for invalid download kind")
	}
	if err := app.DownloadDocument(string(types.KindOriginal), "/tmp/x.pdf"); err == nil {
		t.Error("expected error without a loaded document")
	}
}

func TestApp_TranslateWithoutDocument(t *testing.T) {
	app := newTestApp(t, "http://127.0.0.1:1")

	_, err := app.TranslateDocument("en", "es")
	if err == nil {
		t.Fatal("expected error without a loaded document")
	}
	appErr, ok := err.(*types.AppError)
	if !ok || appErr.Code != types.ErrState {
		t.Errorf("expected STATE_ERROR, got %v", err)
	}
}
