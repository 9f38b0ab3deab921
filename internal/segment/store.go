// Package segment holds extracted text fragments and their page positions.
// The store is pure data: bulk load on extraction, lookup by page or id.
package segment

import (
	"sync"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

// Store holds all text segments for the current session.
// Segments are replaced wholesale when extraction completes; there are no
// partial updates. Extraction order is preserved and assumed to be reading order.
type Store struct {
	mu       sync.RWMutex
	segments []types.TextSegment
	byID     map[string]int // segment id -> index into segments
}

// NewStore creates an empty segment store.
func NewStore() *Store {
	return &Store{
		byID: make(map[string]int),
	}
}

// Load replaces the entire store with the given segments.
// It is called once per successful extraction.
func (s *Store) Load(segments []types.TextSegment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.segments = make([]types.TextSegment, len(segments))
	copy(s.segments, segments)

	s.byID = make(map[string]int, len(segments))
	for i, seg := range s.segments {
		s.byID[seg.SegmentID] = i
	}

	logger.Debug("segment store loaded", logger.Int("segments", len(segments)))
}

// Clear empties the store. Called on session reset.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = nil
	s.byID = make(map[string]int)
}

// SegmentsForPage returns all segments on the given 1-based page,
// in extraction order.
func (s *Store) SegmentsForPage(page int) []types.TextSegment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.TextSegment
	for _, seg := range s.segments {
		if seg.Page == page {
			out = append(out, seg)
		}
	}
	return out
}

// Get returns the segment with the given id.
func (s *Store) Get(segmentID string) (types.TextSegment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[segmentID]
	if !ok {
		return types.TextSegment{}, false
	}
	return s.segments[i], true
}

// Has reports whether a segment with the given id exists.
func (s *Store) Has(segmentID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[segmentID]
	return ok
}

// Len returns the number of segments in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.segments)
}
