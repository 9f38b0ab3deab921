// Package overlay projects stored segments for the visible page into
// screen-space rectangles and answers hit-tests against them.
// The mapper holds no state of its own; every call recomputes from the
// viewport it is given, so zoom and page switches need no invalidation.
package overlay

import (
	"pdf-translator/internal/segment"
	"pdf-translator/internal/types"
)

// Viewport describes the renderer's current view of one page.
type Viewport struct {
	Page    int     `json:"page"` // 1-based, the page currently displayed
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// ScreenBox is one segment's rectangle in screen coordinates.
type ScreenBox struct {
	SegmentID string  `json:"segment_id"`
	Text      string  `json:"text"`
	Editable  bool    `json:"editable"`
	X0        float64 `json:"x0"`
	Y0        float64 `json:"y0"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
}

// Contains reports whether the point lies inside the box, edges included.
func (b ScreenBox) Contains(x, y float64) bool {
	return x >= b.X0 && x <= b.X1 && y >= b.Y0 && y <= b.Y1
}

// Mapper projects segments from page space to screen space.
type Mapper struct {
	store *segment.Store
}

// NewMapper creates a mapper over the given segment store.
func NewMapper(store *segment.Store) *Mapper {
	return &Mapper{store: store}
}

// project applies screen = page*scale + offset to one box.
func project(b types.Box, vp Viewport) (x0, y0, x1, y1 float64) {
	x0 = b.X0*vp.Scale + vp.OffsetX
	y0 = b.Y0*vp.Scale + vp.OffsetY
	x1 = b.X1*vp.Scale + vp.OffsetX
	y1 = b.Y1*vp.Scale + vp.OffsetY
	return
}

// Project returns screen-space rectangles for every segment on the
// viewport's page, in extraction order. Pages other than the current one
// produce no overlay.
func (m *Mapper) Project(vp Viewport) []ScreenBox {
	segments := m.store.SegmentsForPage(vp.Page)
	boxes := make([]ScreenBox, 0, len(segments))
	for _, seg := range segments {
		x0, y0, x1, y1 := project(seg.Box, vp)
		boxes = append(boxes, ScreenBox{
			SegmentID: seg.SegmentID,
			Text:      seg.Text,
			Editable:  seg.Editable(),
			X0:        x0,
			Y0:        y0,
			X1:        x1,
			Y1:        y1,
		})
	}
	return boxes
}

// SegmentAt returns the first segment, in extraction order, whose projected
// box contains the pointer position. Segments with zero-area boxes are
// degenerate extraction results and excluded from hit-testing. The mapper
// only locates; callers decide whether a hit opens an edit affordance.
func (m *Mapper) SegmentAt(pointerX, pointerY float64, vp Viewport) (types.TextSegment, bool) {
	for _, seg := range m.store.SegmentsForPage(vp.Page) {
		if !seg.Box.Valid() {
			continue
		}
		x0, y0, x1, y1 := project(seg.Box, vp)
		sb := ScreenBox{X0: x0, Y0: y0, X1: x1, Y1: y1}
		if sb.Contains(pointerX, pointerY) {
			return seg, true
		}
	}
	return types.TextSegment{}, false
}
