/*
pause.go - Pause-period subtraction from billable windows

PURPOSE:
  A rented unit can be paused mid-rental (taken into the shop, a billing
  dispute, a negotiated hold). Paused time is not billable: the effective
  window is split into the pause-free remainder before proration.

NORMALIZATION:
  Raw pause periods may be malformed, open-ended, unsorted, or overlapping.
  NormalizePauses drops the unusable ones, clamps open pauses to the window
  end, sorts, and merges overlaps so subtraction sees disjoint spans.
*/
package billing

import (
	"sort"
	"time"

	"github.com/rentsoft/rental-engine/rental"
)

// Span is a half-open billable time span [Start, End).
type Span struct {
	Start time.Time
	End   time.Time
}

// Duration returns the span's length.
func (s Span) Duration() time.Duration { return s.End.Sub(s.Start) }

// NormalizePauses converts raw pause periods into a sorted, merged,
// disjoint list. Pauses without a usable start are dropped; an open pause
// (no end) runs to rangeEnd; pauses that end up empty are dropped.
func NormalizePauses(pauses []rental.PausePeriod, rangeEnd time.Time) []Span {
	spans := make([]Span, 0, len(pauses))
	for _, p := range pauses {
		if p.Start.IsZero() {
			continue
		}
		end := rangeEnd
		if p.End != nil {
			end = *p.End
		}
		if !end.After(p.Start) {
			continue
		}
		spans = append(spans, Span{Start: p.Start, End: end})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start.Before(spans[j].Start) })

	var merged []Span
	for _, s := range spans {
		if n := len(merged); n > 0 && !s.Start.After(merged[n-1].End) {
			if s.End.After(merged[n-1].End) {
				merged[n-1].End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// SubtractPauses removes the pause spans from [start, end) and returns the
// billable remainder in order. Pauses must be normalized (disjoint, sorted).
func SubtractPauses(start, end time.Time, pauses []Span) []Span {
	segments := []Span{{Start: start, End: end}}
	for _, pause := range pauses {
		var next []Span
		for _, seg := range segments {
			overlapStart := maxTime(seg.Start, pause.Start)
			overlapEnd := minTime(seg.End, pause.End)
			if !overlapEnd.After(overlapStart) {
				next = append(next, seg)
				continue
			}
			if overlapStart.After(seg.Start) {
				next = append(next, Span{Start: seg.Start, End: overlapStart})
			}
			if overlapEnd.Before(seg.End) {
				next = append(next, Span{Start: overlapEnd, End: seg.End})
			}
		}
		segments = next
	}

	billable := segments[:0]
	for _, seg := range segments {
		if seg.End.After(seg.Start) {
			billable = append(billable, seg)
		}
	}
	return billable
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
