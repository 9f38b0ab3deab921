// Package types defines core data types and enums for the PDF translator application.
package types

// Box is an axis-aligned rectangle in a PDF page's coordinate space.
// Origin is the top-left corner of the page, units are page points.
type Box struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Valid reports whether the box has positive area (x1 > x0 and y1 > y0).
func (b Box) Valid() bool {
	return b.X1 > b.X0 && b.Y1 > b.Y0
}

// TextSegment is one extracted run of text on one page.
// Segments are created in bulk when extraction completes for a session and
// are immutable thereafter; user edits live in the edit ledger, not here.
type TextSegment struct {
	SegmentID string `json:"segment_id"`
	Page      int    `json:"page"` // 1-based
	Text      string `json:"text"`
	Box
}

// Editable reports whether the segment can receive user edits.
// Segments with empty text are non-text regions and excluded from editing.
func (s TextSegment) Editable() bool {
	return s.Text != ""
}

// SessionPhase 会话阶段枚举
type SessionPhase string

const (
	PhaseNoDocument  SessionPhase = "no_document"
	PhaseLoaded      SessionPhase = "loaded"
	PhaseTranslating SessionPhase = "translating"
	PhaseTranslated  SessionPhase = "translated"
)

// EditMode identifies which of the two mutually exclusive edit paths a
// session uses: structured per-segment edits, or whole-document viewer export.
type EditMode string

const (
	EditModeNone     EditMode = ""
	EditModeSegments EditMode = "segments"
	EditModeViewer   EditMode = "viewer"
)

// SessionSnapshot is the immutable state of one document's workflow instance.
// Snapshots are replaced wholesale on each transition; Epoch increases every
// time the session identity changes (new upload, reset) so that responses from
// a discarded session can be recognized and dropped.
type SessionSnapshot struct {
	Epoch              uint64       `json:"epoch"`
	SessionID          string       `json:"session_id"`
	OriginalFilename   string       `json:"original_filename"`
	Phase              SessionPhase `json:"phase"`
	TranslatedLocation string       `json:"translated_location,omitempty"`
	EditMode           EditMode     `json:"edit_mode,omitempty"`
}

// DownloadKind selects which document variant to download.
type DownloadKind string

const (
	KindOriginal   DownloadKind = "original"
	KindTranslated DownloadKind = "translated"
)

// UploadResponse 上传响应
type UploadResponse struct {
	SessionID string `json:"session_id"`
	Filename  string `json:"filename"`
	Message   string `json:"message,omitempty"`
}

// ExtractTextResponse 文本提取响应
type ExtractTextResponse struct {
	Segments      []TextSegment `json:"segments"`
	TotalSegments int           `json:"total_segments"`
}

// TranslationRequest is the payload submitted to the translation endpoint.
// ManualEdits maps segment ids to user-authored replacement text and reflects
// the edit ledger at the exact instant the request was built.
type TranslationRequest struct {
	SourceLang  string            `json:"source_lang"`
	TargetLang  string            `json:"target_lang"`
	ManualEdits map[string]string `json:"manual_edits,omitempty"`
}

// TranslationResponse 翻译响应
type TranslationResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	PDFURL   string `json:"pdf_url,omitempty"`
	ErrorMsg string `json:"error,omitempty"`
}

// ErrorCode 错误代码枚举
type ErrorCode string

const (
	ErrUpload       ErrorCode = "UPLOAD_ERROR"
	ErrExtract      ErrorCode = "EXTRACT_ERROR"
	ErrEditRejected ErrorCode = "EDIT_REJECTED"
	ErrEditConflict ErrorCode = "EDIT_CONFLICT"
	ErrLanguagePair ErrorCode = "LANGUAGE_PAIR_ERROR"
	ErrTranslation  ErrorCode = "TRANSLATION_ERROR"
	ErrDownload     ErrorCode = "DOWNLOAD_ERROR"
	ErrCleanup      ErrorCode = "CLEANUP_ERROR"
	ErrNetwork      ErrorCode = "NETWORK_ERROR"
	ErrState        ErrorCode = "STATE_ERROR"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrConfig       ErrorCode = "CONFIG_ERROR"
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
)

// AppError 应用错误
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}
