// Package reconcile merges the edit ledger into a single translation
// request at submission time and drives the session phase transitions
// around the translation call.
package reconcile

import (
	"context"

	"golang.org/x/text/language"

	"pdf-translator/internal/backend"
	"pdf-translator/internal/ledger"
	"pdf-translator/internal/logger"
	"pdf-translator/internal/session"
	"pdf-translator/internal/types"
	"pdf-translator/internal/viewer"
)

// Service builds and submits translation requests. It performs no retries;
// retry is a user-initiated re-invocation.
type Service struct {
	backend *backend.Client
	machine *session.Machine
	ledger  *ledger.Ledger
}

// NewService creates a reconciliation service over the given collaborators.
func NewService(client *backend.Client, machine *session.Machine, edits *ledger.Ledger) *Service {
	return &Service{
		backend: client,
		machine: machine,
		ledger:  edits,
	}
}

// ValidateLanguagePair parses both language tags and refuses pairs whose
// canonical forms are equal. It returns the normalized tag strings.
func ValidateLanguagePair(sourceLang, targetLang string) (string, string, error) {
	src, err := language.Parse(sourceLang)
	if err != nil {
		return "", "", types.NewAppErrorWithDetails(types.ErrLanguagePair,
			"invalid source language", sourceLang, err)
	}
	tgt, err := language.Parse(targetLang)
	if err != nil {
		return "", "", types.NewAppErrorWithDetails(types.ErrLanguagePair,
			"invalid target language", targetLang, err)
	}
	if src == tgt {
		return "", "", types.NewAppErrorWithDetails(types.ErrLanguagePair,
			"source and target languages must differ", src.String(), nil)
	}
	return src.String(), tgt.String(), nil
}

// BuildRequest constructs the translation payload from the language pair and
// a point-in-time snapshot of the edit ledger. Edits committed after
// BuildRequest returns never appear in the returned request; they apply only
// to a subsequent build.
func (s *Service) BuildRequest(sourceLang, targetLang string) (*types.TranslationRequest, error) {
	src, tgt, err := ValidateLanguagePair(sourceLang, targetLang)
	if err != nil {
		return nil, err
	}

	return &types.TranslationRequest{
		SourceLang:  src,
		TargetLang:  tgt,
		ManualEdits: s.ledger.Snapshot(),
	}, nil
}

// Submit builds the request, transitions the session to Translating, calls
// the backend, and applies the outcome:
//
//   - success with a result location transitions Translating -> Translated
//   - any failure transitions Translating -> Loaded, edit ledger untouched
//
// When the session used the viewer edit path, the viewer export is sent to
// the backend as the authoritative edited document before translating, and
// no per-segment edits accompany the request; the two edit paths are never
// merged. A language pair that fails validation refuses the transition
// entirely: no request is issued and the session stays in Loaded.
//
// Completions are guarded by the epoch captured when the translation
// started, so a session reset while the request is in flight makes the
// eventual response a no-op.
func (s *Service) Submit(ctx context.Context, inst viewer.Instance, sourceLang, targetLang string) (*types.TranslationResponse, error) {
	snap := s.machine.Snapshot()

	request, err := s.BuildRequest(sourceLang, targetLang)
	if err != nil {
		return nil, err
	}

	epoch, err := s.machine.StartTranslation()
	if err != nil {
		return nil, err
	}

	if snap.EditMode == types.EditModeViewer && inst != nil {
		document, err := inst.Export()
		if err != nil {
			s.machine.FailTranslation(epoch)
			return nil, types.NewAppError(types.ErrTranslation, "viewer export failed", err)
		}
		if err := s.backend.UpdateDocument(ctx, snap.SessionID, document); err != nil {
			s.machine.FailTranslation(epoch)
			return nil, err
		}
		request.ManualEdits = nil
	}

	response, err := s.backend.Translate(ctx, snap.SessionID, request)
	if err != nil {
		s.machine.FailTranslation(epoch)
		return nil, err
	}

	if !response.Success || response.PDFURL == "" {
		s.machine.FailTranslation(epoch)
		detail := response.ErrorMsg
		if detail == "" {
			detail = response.Message
		}
		return response, types.NewAppErrorWithDetails(types.ErrTranslation,
			"translation was not successful", detail, nil)
	}

	if !s.machine.CompleteTranslation(epoch, response.PDFURL) {
		// The session was reset or replaced while the request was in
		// flight; the result belongs to a discarded session.
		logger.Warn("translation result arrived for a discarded session",
			logger.String("sessionID", snap.SessionID))
		return response, nil
	}

	s.ledger.MarkReconciled()
	return response, nil
}
