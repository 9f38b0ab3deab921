package viewer

import (
	"bytes"
	"context"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

// PDFCPUViewer is the pdfcpu-backed Viewer implementation. Load validates
// the document and reads its page count; Export writes an optimized copy.
type PDFCPUViewer struct {
	conf *model.Configuration
}

// NewPDFCPUViewer creates a viewer with relaxed validation, matching the
// tolerance of browser-based PDF renderers towards slightly broken files.
func NewPDFCPUViewer() *PDFCPUViewer {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFCPUViewer{conf: conf}
}

// Load validates the document bytes and returns an instance holding them.
func (v *PDFCPUViewer) Load(ctx context.Context, document []byte) (Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(document) == 0 {
		return nil, types.NewAppError(types.ErrInvalidInput, "document is empty", nil)
	}

	if err := api.Validate(bytes.NewReader(document), v.conf); err != nil {
		logger.Warn("document failed validation", logger.Err(err))
		return nil, types.NewAppError(types.ErrInvalidInput, "invalid or corrupted PDF", err)
	}

	pdfCtx, err := api.ReadContext(bytes.NewReader(document), v.conf)
	if err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "failed to read PDF", err)
	}

	logger.Debug("document loaded into viewer", logger.Int("pages", pdfCtx.PageCount))
	return &pdfcpuInstance{
		conf:      v.conf,
		document:  document,
		pageCount: pdfCtx.PageCount,
	}, nil
}

type pdfcpuInstance struct {
	conf      *model.Configuration
	document  []byte
	pageCount int
}

// Export writes the current document through pdfcpu's optimizer and returns
// the result.
func (i *pdfcpuInstance) Export() ([]byte, error) {
	if i.document == nil {
		return nil, types.NewAppError(types.ErrState, "viewer instance is unloaded", nil)
	}

	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(i.document), &buf, i.conf); err != nil {
		return nil, types.NewAppError(types.ErrInternal, "failed to export document", err)
	}
	return buf.Bytes(), nil
}

func (i *pdfcpuInstance) PageCount() int {
	return i.pageCount
}

// Unload releases the document bytes.
func (i *pdfcpuInstance) Unload() error {
	i.document = nil
	i.pageCount = 0
	return nil
}
