package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentsoft/rental-engine/rental"
	"github.com/rentsoft/rental-engine/schedule"
)

func TestOverlaps(t *testing.T) {
	t.Run("strict intersection", func(t *testing.T) {
		assert.True(t, schedule.Overlaps(day(0), day(5), day(3), day(8)))
	})

	t.Run("symmetry", func(t *testing.T) {
		assert.Equal(t,
			schedule.Overlaps(day(0), day(5), day(3), day(8)),
			schedule.Overlaps(day(3), day(8), day(0), day(5)))
		assert.Equal(t,
			schedule.Overlaps(day(0), day(3), day(3), day(6)),
			schedule.Overlaps(day(3), day(6), day(0), day(3)))
	})

	t.Run("touching endpoints do not overlap", func(t *testing.T) {
		assert.False(t, schedule.Overlaps(day(0), day(3), day(3), day(6)))
		assert.False(t, schedule.Overlaps(day(3), day(6), day(0), day(3)))
	})

	t.Run("containment overlaps", func(t *testing.T) {
		assert.True(t, schedule.Overlaps(day(0), day(10), day(3), day(5)))
		assert.True(t, schedule.Overlaps(day(3), day(5), day(0), day(10)))
	})

	t.Run("disjoint", func(t *testing.T) {
		assert.False(t, schedule.Overlaps(day(0), day(2), day(5), day(8)))
	})
}

func TestFindConflicts_ReportsEveryBlocker(t *testing.T) {
	// GIVEN: A candidate extended over two later bookings of the same unit
	// THEN: Both blockers come back, not just the first
	candidate := ordered("mine", day(0), day(3))
	b1 := ordered("b1", day(4), day(6))
	b1.DocumentLabel = "RO-1041"
	b1.CustomerName = "Acme Paving"
	b2 := ordered("b2", day(7), day(9))
	b2.DocumentLabel = "RO-1042"

	conflicts := schedule.FindConflicts(candidate, day(8), []rental.Assignment{candidate, b1, b2})
	require.Len(t, conflicts, 2)
	assert.Equal(t, "RO-1041", conflicts[0].DocumentLabel)
	assert.Equal(t, "Acme Paving", conflicts[0].CustomerName)
	assert.Equal(t, "RO-1042", conflicts[1].DocumentLabel)
	assert.Equal(t, "exc-1", conflicts[0].EquipmentID)
}

func TestFindConflicts_SkipsSelfAndOtherUnits(t *testing.T) {
	candidate := ordered("mine", day(0), day(3))
	otherUnit := ordered("other", day(2), day(6))
	u := "exc-2"
	otherUnit.EquipmentID = &u

	conflicts := schedule.FindConflicts(candidate, day(8), []rental.Assignment{candidate, otherUnit})
	assert.Empty(t, conflicts)
}

func TestFindConflicts_TouchingNextBookingIsLegal(t *testing.T) {
	// Extending exactly to the next booking's start does not conflict.
	candidate := ordered("mine", day(0), day(3))
	next := ordered("next", day(5), day(8))

	assert.Empty(t, schedule.FindConflicts(candidate, day(5), []rental.Assignment{candidate, next}))
	assert.Len(t, schedule.FindConflicts(candidate, day(5).Add(time.Minute), []rental.Assignment{candidate, next}), 1)
}

func TestFindConflicts_UnassignedCandidateNeverConflicts(t *testing.T) {
	candidate := ordered("mine", day(0), day(3))
	candidate.EquipmentID = nil
	other := ordered("other", day(2), day(6))

	assert.Nil(t, schedule.FindConflicts(candidate, day(8), []rental.Assignment{other}))
}

func TestFindConflicts_InvertedCandidateWindow(t *testing.T) {
	candidate := ordered("mine", day(5), day(8))
	other := ordered("other", day(2), day(6))

	assert.Nil(t, schedule.FindConflicts(candidate, day(5), []rental.Assignment{other}))
	assert.Nil(t, schedule.FindConflicts(candidate, day(4), []rental.Assignment{other}))
}

func TestFindConflicts_ReservationBlocksToo(t *testing.T) {
	// A reservation of the same unit is still a blocker.
	candidate := ordered("mine", day(0), day(3))
	res := ordered("res", day(2), day(6))
	res.Status = rental.StatusReservation

	conflicts := schedule.FindConflicts(candidate, day(4), []rental.Assignment{res})
	require.Len(t, conflicts, 1)
	assert.Equal(t, rental.StatusReservation, conflicts[0].Status)
}

func TestRoundToStep(t *testing.T) {
	base := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)

	t.Run("snaps to 30 minutes", func(t *testing.T) {
		assert.Equal(t, base.Add(30*time.Minute), schedule.RoundToStep(base.Add(37*time.Minute), 30*time.Minute))
		assert.Equal(t, base.Add(60*time.Minute), schedule.RoundToStep(base.Add(46*time.Minute), 30*time.Minute))
	})

	t.Run("non-positive step defaults to 30 minutes", func(t *testing.T) {
		assert.Equal(t, base.Add(30*time.Minute), schedule.RoundToStep(base.Add(40*time.Minute), 0))
	})

	t.Run("exact multiples are unchanged", func(t *testing.T) {
		assert.Equal(t, base, schedule.RoundToStep(base, 30*time.Minute))
	})
}
