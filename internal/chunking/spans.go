package chunking

import (
	"sort"

	"github.com/custodia-labs/filings-qa/internal/core/domain"
)

// segmentAt returns the index of the segment containing offset, or the
// closest preceding segment when offset falls between segments.
// Returns -1 when there are no segments.
func segmentAt(ranges []domain.Range, offset int) int {
	if len(ranges) == 0 {
		return -1
	}
	// First segment whose end lies beyond offset.
	i := sort.Search(len(ranges), func(i int) bool { return ranges[i].End > offset })
	if i == len(ranges) {
		return len(ranges) - 1
	}
	if ranges[i].Start > offset && i > 0 {
		return i - 1
	}
	return i
}

// spanFor intersects a chunk range with the segment ranges. The span starts
// at the first overlapping segment's marker and ends at the last one's.
func spanFor(segments []domain.Segment, ranges []domain.Range, r domain.Range) domain.Span {
	first, last := -1, -1
	lo := sort.Search(len(ranges), func(i int) bool { return ranges[i].End > r.Start })
	for i := lo; i < len(ranges) && ranges[i].Start < r.End; i++ {
		if !ranges[i].Overlaps(r) {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
	}

	if first < 0 {
		idx := segmentAt(ranges, r.Start)
		if idx < 0 {
			return domain.Span{}
		}
		return domain.SingleSpan(segments[idx].Marker)
	}
	return domain.Span{Start: segments[first].Marker, End: segments[last].Marker}
}
