package extract

import (
	"testing"

	"github.com/ledongthuc/pdf"

	"pdf-translator/internal/types"
)

func TestSegments_GarbageInput(t *testing.T) {
	cases := []struct {
		name     string
		document []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("this is plain text, not a PDF")},
		{"truncated header", []byte("%PDF-1.4")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			segments, err := Segments(tc.document)
			if err == nil {
				t.Fatal("expected error for unreadable document")
			}
			if segments != nil {
				t.Errorf("expected no segments, got %d", len(segments))
			}
			appErr, ok := err.(*types.AppError)
			if !ok || appErr.Code != types.ErrExtract {
				t.Errorf("expected EXTRACT_ERROR, got %v", err)
			}
		})
	}
}

func TestRowSegment(t *testing.T) {
	t.Run("empty row is skipped", func(t *testing.T) {
		if _, ok := rowSegment(&pdf.Row{Position: 700}, 1, 0, 792); ok {
			t.Error("expected empty row to be skipped")
		}
	})

	t.Run("row collapses to one segment with converted box", func(t *testing.T) {
		row := &pdf.Row{
			Position: 700, // baseline in bottom-left coordinates
			Content: pdf.TextHorizontal{
				{S: "Hello ", X: 72, W: 30, FontSize: 12},
				{S: "world", X: 102, W: 28, FontSize: 12},
			},
		}

		seg, ok := rowSegment(row, 1, 0, 792)
		if !ok {
			t.Fatal("expected a segment")
		}
		if seg.SegmentID != "seg_1_0" {
			t.Errorf("unexpected segment id: %s", seg.SegmentID)
		}
		if seg.Text != "Hello world" {
			t.Errorf("unexpected text: '%s'", seg.Text)
		}
		if seg.X0 != 72 || seg.X1 != 130 {
			t.Errorf("unexpected x range: %v..%v", seg.X0, seg.X1)
		}
		// Top-left origin: y0 = 792 - 700 - 12 = 80, y1 = 792 - 700 + 3 = 95
		if seg.Y0 != 80 || seg.Y1 != 95 {
			t.Errorf("unexpected y range: %v..%v", seg.Y0, seg.Y1)
		}
		if !seg.Box.Valid() {
			t.Error("expected a valid box")
		}
	})

	t.Run("zero font size gets a floor", func(t *testing.T) {
		row := &pdf.Row{
			Position: 700,
			Content:  pdf.TextHorizontal{{S: "x", X: 10, W: 5, FontSize: 0}},
		}

		seg, ok := rowSegment(row, 2, 3, 792)
		if !ok {
			t.Fatal("expected a segment")
		}
		if seg.SegmentID != "seg_2_3" {
			t.Errorf("unexpected segment id: %s", seg.SegmentID)
		}
		if !seg.Box.Valid() {
			t.Error("expected a valid box even with missing font size")
		}
	})
}
