// Package extract produces positioned text segments from PDF bytes without
// backend help. It is the fallback path when the backend extraction
// endpoint is unavailable; segment ids follow the same seg_{page}_{index}
// scheme the backend uses so the edit ledger is oblivious to the source.
package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

// defaultPageHeight is the US Letter height in points, used when a page
// carries no resolvable MediaBox.
const defaultPageHeight = 792.0

// Segments extracts text rows with bounding boxes from the document.
// Rows are grouped per baseline, left to right, so extraction order
// approximates reading order. PDF text coordinates have a bottom-left
// origin; boxes are converted to the top-left convention used everywhere
// else in this application.
func Segments(document []byte) (segments []types.TextSegment, err error) {
	// The content stream parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			segments = nil
			err = types.NewAppErrorWithDetails(types.ErrExtract,
				"local extraction failed", fmt.Sprint(r), nil)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(document), int64(len(document)))
	if err != nil {
		return nil, types.NewAppError(types.ErrExtract, "failed to open PDF", err)
	}

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		height := pageHeight(page)
		rows, err := page.GetTextByRow()
		if err != nil {
			logger.Warn("skipping unreadable page",
				logger.Int("page", pageNum), logger.Err(err))
			continue
		}

		index := 0
		for _, row := range rows {
			seg, ok := rowSegment(row, pageNum, index, height)
			if !ok {
				continue
			}
			segments = append(segments, seg)
			index++
		}
	}

	logger.Info("local extraction complete", logger.Int("segments", len(segments)))
	return segments, nil
}

// rowSegment collapses one text row into a single segment.
func rowSegment(row *pdf.Row, pageNum, index int, pageHeight float64) (types.TextSegment, bool) {
	if len(row.Content) == 0 {
		return types.TextSegment{}, false
	}

	var sb bytes.Buffer
	x0 := row.Content[0].X
	x1 := x0
	maxFont := 0.0
	for _, t := range row.Content {
		sb.WriteString(t.S)
		if t.X < x0 {
			x0 = t.X
		}
		if end := t.X + t.W; end > x1 {
			x1 = end
		}
		if t.FontSize > maxFont {
			maxFont = t.FontSize
		}
	}
	if maxFont == 0 {
		maxFont = 10
	}

	// Row.Position is the baseline in bottom-left page coordinates.
	baseline := float64(row.Position)
	y0 := pageHeight - baseline - maxFont
	y1 := pageHeight - baseline + maxFont*0.25

	seg := types.TextSegment{
		SegmentID: fmt.Sprintf("seg_%d_%d", pageNum, index),
		Page:      pageNum,
		Text:      sb.String(),
		Box:       types.Box{X0: x0, Y0: y0, X1: x1, Y1: y1},
	}
	if !seg.Box.Valid() {
		return types.TextSegment{}, false
	}
	return seg, true
}

// pageHeight resolves the page's MediaBox height, walking up the page tree
// for inherited attributes.
func pageHeight(page pdf.Page) float64 {
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		mb := v.Key("MediaBox")
		if mb.IsNull() {
			continue
		}
		height := mb.Index(3).Float64() - mb.Index(1).Float64()
		if height > 0 {
			return height
		}
	}
	return defaultPageHeight
}
