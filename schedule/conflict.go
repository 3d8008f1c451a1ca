/*
conflict.go - Reschedule validation against same-unit bookings

PURPOSE:
  When a dispatcher drags a bar's edge to a new return time, the candidate
  window must not overlap any other booking of the same physical unit.
  This file holds the authoritative overlap predicate and the conflict
  collection: EVERY blocker is reported, not just the first, so the UI can
  show all of them at once.

RACE NOTE:
  The predicate here is pure. The same check must also run inside the
  transaction that commits the new end time (see store/sqlite), or two
  concurrent reschedules of the same unit can both pass a client-side
  check and then both commit.
*/
package schedule

import (
	"time"

	"github.com/rentsoft/rental-engine/rental"
)

// Overlaps reports strict interval intersection of [aStart, aEnd) and
// [bStart, bEnd). Touching endpoints do not overlap: back-to-back rentals
// of the same unit are legal.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// FindConflicts validates the candidate window [start, newEnd) for the
// given assignment against all other assignments. A conflict arises only
// with a different assignment sharing the same non-nil equipment unit.
// Every overlapping booking is returned.
func FindConflicts(candidate rental.Assignment, newEnd time.Time, others []rental.Assignment) []rental.Conflict {
	if candidate.EquipmentID == nil || !newEnd.After(candidate.Start) {
		return nil
	}

	var conflicts []rental.Conflict
	for _, other := range others {
		if other.ID == candidate.ID || !candidate.SameEquipment(other) || !other.Valid() {
			continue
		}
		if Overlaps(candidate.Start, newEnd, other.Start, other.End) {
			conflicts = append(conflicts, rental.Conflict{
				EquipmentID:   *other.EquipmentID,
				DocumentLabel: other.DocumentLabel,
				Status:        other.Status,
				CustomerName:  other.CustomerName,
				Start:         other.Start,
				End:           other.End,
			})
		}
	}
	return conflicts
}

// ValidateReschedule checks a line item's candidate end against every
// other booking. The line item's own assignments (one per physical unit)
// are each validated against all assignments of other line items; a
// booking never conflicts with its own sibling units. Returns nil when
// the move is clean.
//
// Stores call this inside the transaction that commits the new end time.
func ValidateReschedule(lineItemID string, newEnd time.Time, all []rental.Assignment) *rental.ConflictError {
	var candidates, others []rental.Assignment
	for _, a := range all {
		if a.LineItemID == lineItemID {
			candidates = append(candidates, a)
		} else {
			others = append(others, a)
		}
	}

	var conflicts []rental.Conflict
	for _, c := range candidates {
		conflicts = append(conflicts, FindConflicts(c, newEnd, others)...)
	}
	if len(conflicts) == 0 {
		return nil
	}
	return &rental.ConflictError{LineItemID: lineItemID, Conflicts: conflicts}
}

// RoundToStep rounds an instant to the nearest multiple of step.
// Drag gestures snap return times to 30 minutes.
func RoundToStep(t time.Time, step time.Duration) time.Time {
	if step <= 0 {
		step = 30 * time.Minute
	}
	return t.Round(step)
}
