/*
Package schedule provides the timeline layout and conflict engines.

PURPOSE:
  The dispatch timeline shows every booking of every equipment unit as a
  bar on a horizontal track. Overlapping bookings must stack into separate
  lanes, each bar needs a temporal state (active, ending soon, overdue)
  relative to "now", and a rescheduled booking must not collide with
  another booking of the same physical unit.

KEY CONCEPTS IN THIS FILE (layout.go):
  - Bar: An assignment positioned in a lane with a derived state
  - Lane assignment: Greedy interval partitioning (first-fit by start time)
  - BarState: Overdue > EndingSoon > Active > Reserved > Other

LANE OPTIMALITY:
  Processing bars in start-time order and always choosing the first free
  lane yields the chromatic number of the interval graph: the lane count
  equals the maximum number of bookings overlapping at any instant.

SEE ALSO:
  - conflict.go: Overlap validation for reschedules
*/
package schedule

import (
	"sort"
	"time"

	"github.com/rentsoft/rental-engine/rental"
)

// DefaultEndingSoonDays is the standard "ending soon" horizon.
// The dispatch bench view widens it to 3.
const DefaultEndingSoonDays = 2

// bellHorizon flags bars approaching their return within 48 hours.
const bellHorizon = 48 * time.Hour

// =============================================================================
// BAR STATE - Temporal classification relative to "now"
// =============================================================================

type StateTag string

const (
	StateActive     StateTag = "active"
	StateEndingSoon StateTag = "ending"
	StateOverdue    StateTag = "overdue"
	StateReserved   StateTag = "reserved"
	StateOther      StateTag = "other"
)

// BarState classifies a booking relative to now. Tag is the mutually
// exclusive display bucket; the booleans can co-occur at boundaries
// (a bar ending this instant is both active and ending soon).
type BarState struct {
	Tag          StateTag
	IsOverdue    bool
	IsEndingSoon bool
	IsActive     bool
	// Bell rings when an ordered booking's return is within 48 hours.
	Bell bool
}

// BarStateFor derives the state of an assignment. Only ordered bookings
// can be active, ending soon, or overdue; reservations and open requests
// show as reserved; everything else is other. endingSoonDays below 1 is
// clamped to the default.
func BarStateFor(a rental.Assignment, now time.Time, endingSoonDays int) BarState {
	if endingSoonDays < 1 {
		endingSoonDays = DefaultEndingSoonDays
	}
	soon := time.Duration(endingSoonDays) * 24 * time.Hour

	ordered := a.Status == rental.StatusOrdered
	st := BarState{
		IsOverdue:    ordered && a.End.Before(now),
		IsEndingSoon: ordered && !a.End.Before(now) && !a.End.After(now.Add(soon)),
		IsActive:     ordered && !a.Start.After(now) && !now.After(a.End),
		Bell:         ordered && !a.End.Before(now) && !a.End.After(now.Add(bellHorizon)),
	}

	switch {
	case st.IsOverdue:
		st.Tag = StateOverdue
	case st.IsEndingSoon:
		st.Tag = StateEndingSoon
	case st.IsActive:
		st.Tag = StateActive
	case a.Status == rental.StatusReservation || a.Status == rental.StatusRequested:
		st.Tag = StateReserved
	default:
		st.Tag = StateOther
	}
	return st
}

// =============================================================================
// BAR & LANE ASSIGNMENT
// =============================================================================

// Bar is an assignment positioned on the timeline: clamped to the visible
// window, placed in a lane, and classified.
type Bar struct {
	Assignment rental.Assignment
	// Start/End are the rendered extent: the assignment window intersected
	// with the visible range.
	Start time.Time
	End   time.Time
	Lane  int
	State BarState
}

// ComputeLanes assigns each bar the first lane whose last-placed bar has
// ended by this bar's start, opening a new lane when none qualifies.
// Bars are processed in start-time order; the input slice is not modified.
// Returns the positioned bars and the lane count (row height driver).
func ComputeLanes(bars []Bar) ([]Bar, int) {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var laneEnds []time.Time
	for i := range sorted {
		placed := false
		for lane, lastEnd := range laneEnds {
			if !sorted[i].Start.Before(lastEnd) {
				sorted[i].Lane = lane
				laneEnds[lane] = sorted[i].End
				placed = true
				break
			}
		}
		if !placed {
			sorted[i].Lane = len(laneEnds)
			laneEnds = append(laneEnds, sorted[i].End)
		}
	}
	return sorted, len(laneEnds)
}

// =============================================================================
// ROW LAYOUT
// =============================================================================

// Window is the visible timeline range [Start, Start+Days*24h).
type Window struct {
	Start time.Time
	Days  int
}

func (w Window) end() time.Time {
	return w.Start.Add(time.Duration(w.Days) * 24 * time.Hour)
}

// Row is one timeline row (an equipment unit, or a type for unassigned
// demand) with its positioned bars.
type Row struct {
	Key       string
	Bars      []Bar
	LaneCount int
}

// BuildRow lays out one row's assignments: invalid windows and bars
// entirely outside the visible window are dropped, the rest are clamped,
// classified, and packed into lanes.
func BuildRow(key string, assignments []rental.Assignment, window Window, now time.Time, endingSoonDays int) Row {
	bars := make([]Bar, 0, len(assignments))
	winEnd := window.end()
	for _, a := range assignments {
		if !a.Valid() {
			continue
		}
		if !a.End.After(window.Start) || !winEnd.After(a.Start) {
			continue
		}
		start, end := a.Start, a.End
		if start.Before(window.Start) {
			start = window.Start
		}
		if end.After(winEnd) {
			end = winEnd
		}
		if !end.After(start) {
			continue
		}
		bars = append(bars, Bar{
			Assignment: a,
			Start:      start,
			End:        end,
			State:      BarStateFor(a, now, endingSoonDays),
		})
	}

	placed, laneCount := ComputeLanes(bars)
	return Row{Key: key, Bars: placed, LaneCount: laneCount}
}

// BuildRows groups assignments by equipment unit (or type when
// unassigned) and lays out each group. Rows come back sorted by key for a
// stable timeline order.
func BuildRows(assignments []rental.Assignment, window Window, now time.Time, endingSoonDays int) []Row {
	groups := make(map[string][]rental.Assignment)
	for _, a := range assignments {
		key := a.GroupKey()
		groups[key] = append(groups[key], a)
	}

	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([]Row, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, BuildRow(key, groups[key], window, now, endingSoonDays))
	}
	return rows
}
