package viewer

import (
	"context"
	"testing"

	"pdf-translator/internal/types"
)

func TestPDFCPUViewer_LoadRejectsGarbage(t *testing.T) {
	v := NewPDFCPUViewer()

	cases := []struct {
		name     string
		document []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("definitely not a PDF document")},
		{"truncated header", []byte("%PDF-1.7")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inst, err := v.Load(context.Background(), tc.document)
			if err == nil {
				t.Fatal("expected error for invalid document")
			}
			if inst != nil {
				t.Error("expected nil instance on failure")
			}
			appErr, ok := err.(*types.AppError)
			if !ok || appErr.Code != types.ErrInvalidInput {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}

func TestPDFCPUViewer_LoadHonorsContext(t *testing.T) {
	v := NewPDFCPUViewer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := v.Load(ctx, []byte("%PDF-1.7")); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestInstance_ExportAfterUnload(t *testing.T) {
	inst := &pdfcpuInstance{document: nil}
	if _, err := inst.Export(); err == nil {
		t.Error("expected error exporting an unloaded instance")
	}
}
