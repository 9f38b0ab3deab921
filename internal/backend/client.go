// Package backend provides the HTTP client for the document backend that
// owns file storage, text extraction, translation, and session cleanup.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

const (
	// DefaultTimeout is the default HTTP client timeout for backend requests.
	// Document translation of large files can take minutes.
	DefaultTimeout = 120 * time.Second
	// maxErrorBodySize limits how much of an error response body is read
	maxErrorBodySize = 4096
)

// Client talks to the document backend. It performs exactly one attempt per
// call; retries are user-initiated re-invocations, never automatic.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new backend client for the given base URL.
func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, DefaultTimeout)
}

// NewClientWithTimeout creates a new backend client with a custom timeout.
func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return types.NewAppError(types.ErrNetwork, "too many redirects", nil)
				}
				return nil
			},
		},
	}
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// errorDetail is the error body shape the backend returns on failures.
type errorDetail struct {
	Detail string `json:"detail"`
}

// readErrorDetail extracts a human-readable message from a non-2xx response.
func readErrorDetail(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil || len(body) == 0 {
		return resp.Status
	}
	var detail errorDetail
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return detail.Detail
	}
	return strings.TrimSpace(string(body))
}

// Upload sends the document bytes to POST /upload as a multipart form and
// returns the issued session id and stored filename.
func (c *Client) Upload(ctx context.Context, filename string, document io.Reader) (*types.UploadResponse, error) {
	logger.Info("uploading document", logger.String("filename", filename))

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, types.NewAppError(types.ErrUpload, "failed to build upload form", err)
	}
	if _, err := io.Copy(part, document); err != nil {
		return nil, types.NewAppError(types.ErrUpload, "failed to read document", err)
	}
	if err := writer.Close(); err != nil {
		return nil, types.NewAppError(types.ErrUpload, "failed to finalize upload form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, types.NewAppError(types.ErrUpload, "failed to create upload request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("upload request failed", err)
		return nil, types.NewAppError(types.ErrNetwork, "upload request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail := readErrorDetail(resp)
		logger.Warn("upload rejected", logger.Int("status", resp.StatusCode), logger.String("detail", detail))
		return nil, types.NewAppErrorWithDetails(types.ErrUpload, "upload rejected by backend", detail, nil)
	}

	var uploadResp types.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return nil, types.NewAppError(types.ErrUpload, "invalid upload response", err)
	}
	if uploadResp.SessionID == "" {
		return nil, types.NewAppError(types.ErrUpload, "upload response missing session id", nil)
	}

	logger.Info("upload complete", logger.String("sessionID", uploadResp.SessionID))
	return &uploadResp, nil
}

// ExtractText calls GET /extract-text/{sessionId} and returns the extracted
// segments with their page positions.
func (c *Client) ExtractText(ctx context.Context, sessionID string) (*types.ExtractTextResponse, error) {
	logger.Info("extracting text", logger.String("sessionID", sessionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/extract-text/%s", c.baseURL, sessionID), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrExtract, "failed to create extraction request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("extraction request failed", err, logger.String("sessionID", sessionID))
		return nil, types.NewAppError(types.ErrNetwork, "extraction request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail := readErrorDetail(resp)
		return nil, types.NewAppErrorWithDetails(types.ErrExtract, "text extraction failed", detail, nil)
	}

	var extractResp types.ExtractTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&extractResp); err != nil {
		return nil, types.NewAppError(types.ErrExtract, "invalid extraction response", err)
	}

	logger.Info("extraction complete",
		logger.String("sessionID", sessionID),
		logger.Int("segments", len(extractResp.Segments)))
	return &extractResp, nil
}

// UpdateDocument sends an edited document to POST /update-document/{sessionId},
// replacing the stored original before translation.
func (c *Client) UpdateDocument(ctx context.Context, sessionID string, document []byte) error {
	logger.Info("updating document",
		logger.String("sessionID", sessionID),
		logger.Int("bytes", len(document)))

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "edited.pdf")
	if err != nil {
		return types.NewAppError(types.ErrUpload, "failed to build update form", err)
	}
	if _, err := part.Write(document); err != nil {
		return types.NewAppError(types.ErrUpload, "failed to write document", err)
	}
	if err := writer.Close(); err != nil {
		return types.NewAppError(types.ErrUpload, "failed to finalize update form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/update-document/%s", c.baseURL, sessionID), &buf)
	if err != nil {
		return types.NewAppError(types.ErrUpload, "failed to create update request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.NewAppError(types.ErrNetwork, "update request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail := readErrorDetail(resp)
		return types.NewAppErrorWithDetails(types.ErrUpload, "document update rejected", detail, nil)
	}
	return nil
}

// Translate submits the translation request to POST /translate/{sessionId}.
// A response with Success=false is returned as-is; mapping it onto session
// state is the caller's concern.
func (c *Client) Translate(ctx context.Context, sessionID string, request *types.TranslationRequest) (*types.TranslationResponse, error) {
	logger.Info("requesting translation",
		logger.String("sessionID", sessionID),
		logger.String("sourceLang", request.SourceLang),
		logger.String("targetLang", request.TargetLang),
		logger.Int("manualEdits", len(request.ManualEdits)))

	body, err := json.Marshal(request)
	if err != nil {
		return nil, types.NewAppError(types.ErrTranslation, "failed to serialize translation request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/translate/%s", c.baseURL, sessionID), bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAppError(types.ErrTranslation, "failed to create translation request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("translation request failed", err, logger.String("sessionID", sessionID))
		return nil, types.NewAppError(types.ErrNetwork, "translation request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail := readErrorDetail(resp)
		return nil, types.NewAppErrorWithDetails(types.ErrTranslation, "translation failed", detail, nil)
	}

	var translationResp types.TranslationResponse
	if err := json.NewDecoder(resp.Body).Decode(&translationResp); err != nil {
		return nil, types.NewAppError(types.ErrTranslation, "invalid translation response", err)
	}
	return &translationResp, nil
}

// Download fetches document bytes from GET /download/{sessionId}/{kind}.
func (c *Client) Download(ctx context.Context, sessionID string, kind types.DownloadKind) ([]byte, error) {
	logger.Info("downloading document",
		logger.String("sessionID", sessionID),
		logger.String("kind", string(kind)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/download/%s/%s", c.baseURL, sessionID, kind), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrDownload, "failed to create download request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrNetwork, "download request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail := readErrorDetail(resp)
		return nil, types.NewAppErrorWithDetails(types.ErrDownload, "download failed", detail, nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(types.ErrDownload, "failed to read document", err)
	}
	return data, nil
}

// Cleanup calls DELETE /cleanup/{sessionId}. Cleanup is best-effort; callers
// log the returned error and move on, it never affects client state.
func (c *Client) Cleanup(ctx context.Context, sessionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/cleanup/%s", c.baseURL, sessionID), nil)
	if err != nil {
		return types.NewAppError(types.ErrCleanup, "failed to create cleanup request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.NewAppError(types.ErrCleanup, "cleanup request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail := readErrorDetail(resp)
		return types.NewAppErrorWithDetails(types.ErrCleanup, "cleanup rejected", detail, nil)
	}

	logger.Debug("session cleaned up", logger.String("sessionID", sessionID))
	return nil
}

// FetchDocument downloads a document from an arbitrary URL for
// upload-by-URL inputs.
func (c *Client) FetchDocument(ctx context.Context, url string) ([]byte, error) {
	logger.Info("fetching document", logger.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "invalid document URL", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrNetwork, "document fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppErrorWithDetails(types.ErrNetwork, "document fetch failed", resp.Status, nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(types.ErrNetwork, "failed to read fetched document", err)
	}
	return data, nil
}
