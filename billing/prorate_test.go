package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentsoft/rental-engine/billing"
	"github.com/rentsoft/rental-engine/calendar"
	"github.com/rentsoft/rental-engine/rental"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func money(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func utc(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

// dailyItem builds a returned-on-schedule rental: actuals match the
// scheduled window, so the effective window is fixed no matter where
// "now" sits. Tests covering open items nil the stamps out themselves.
func dailyItem(start, end time.Time, rate string) rental.LineItem {
	return rental.LineItem{
		ID:             "li-1",
		TypeName:       "Excavator",
		ScheduledStart: start,
		ScheduledEnd:   end,
		ActualStart:    &start,
		ActualEnd:      &end,
		RateBasis:      rental.BasisDaily,
		RateAmount:     money(rate),
		InventoryIDs:   []string{"unit-1"},
	}
}

func ceilUnitPolicy() billing.Policy {
	return billing.DefaultPolicy()
}

// =============================================================================
// NON-MONTHLY PRORATION
// =============================================================================

func TestComputeLineCharge_DailyExactDays_CeilUnit(t *testing.T) {
	// GIVEN: Daily $100, a window of exactly 3.0 days, ceil at unit granularity
	// WHEN: Computing the charge
	// THEN: 3 units, $300 - the epsilon keeps 3.0 from ceiling to 4
	li := dailyItem(utc(2025, time.June, 1, 0), utc(2025, time.June, 4, 0), "100")
	now := utc(2025, time.July, 1, 0)

	charge := billing.ComputeLineCharge(li, rental.StatusOrdered, ceilUnitPolicy(), now)
	require.NotNil(t, charge)
	assert.Equal(t, float64(3), charge.BillableUnits)
	assert.True(t, charge.Amount.Equal(decimal.NewFromInt(300)), "got %s", charge.Amount)
}

func TestComputeLineCharge_DailyPartialDay_CeilUnit(t *testing.T) {
	// GIVEN: Daily $100, a window of 2.1 days
	// THEN: Ceils to 3 units, $300
	end := utc(2025, time.June, 1, 0).Add(2*24*time.Hour + 144*time.Minute) // 2.1 days
	li := dailyItem(utc(2025, time.June, 1, 0), end, "100")
	now := utc(2025, time.July, 1, 0)

	charge := billing.ComputeLineCharge(li, rental.StatusOrdered, ceilUnitPolicy(), now)
	require.NotNil(t, charge)
	assert.Equal(t, float64(3), charge.BillableUnits)
	assert.True(t, charge.Amount.Equal(decimal.NewFromInt(300)))
}

func TestComputeLineCharge_Weekly_ProratedNone(t *testing.T) {
	// GIVEN: Weekly $700, 10.5 days, no rounding
	// THEN: 1.5 weeks, $1050
	policy := billing.NewPolicy("none", "unit", "hours", "UTC")
	li := dailyItem(utc(2025, time.June, 1, 0), utc(2025, time.June, 11, 12), "700")
	li.RateBasis = rental.BasisWeekly

	charge := billing.ComputeLineCharge(li, rental.StatusOrdered, policy, utc(2025, time.July, 1, 0))
	require.NotNil(t, charge)
	assert.InDelta(t, 1.5, charge.BillableUnits, 1e-9)
	assert.True(t, charge.Amount.Equal(decimal.NewFromInt(1050)), "got %s", charge.Amount)
}

func TestComputeLineCharge_DayGranularityFloor(t *testing.T) {
	// GIVEN: Daily basis, 2.6 days, floor at day granularity, no unit rounding
	// THEN: Duration floors to 2 days before unit conversion
	policy := billing.NewPolicy("floor", "day", "hours", "UTC")
	end := utc(2025, time.June, 1, 0).Add(62*time.Hour + 24*time.Minute)
	li := dailyItem(utc(2025, time.June, 1, 0), end, "100")

	charge := billing.ComputeLineCharge(li, rental.StatusOrdered, policy, utc(2025, time.July, 1, 0))
	require.NotNil(t, charge)
	assert.InDelta(t, 2.0, charge.BillableUnits, 1e-9)
}

func TestComputeLineCharge_HourGranularityCeil(t *testing.T) {
	// GIVEN: Daily basis, 25h10m, ceil at hour granularity
	// THEN: 26 hours -> 26/24 days, then unit rounding does not apply (hour granularity)
	policy := billing.NewPolicy("ceil", "hour", "hours", "UTC")
	li := dailyItem(utc(2025, time.June, 1, 0), utc(2025, time.June, 2, 1).Add(10*time.Minute), "100")

	charge := billing.ComputeLineCharge(li, rental.StatusOrdered, policy, utc(2025, time.July, 1, 0))
	require.NotNil(t, charge)
	assert.InDelta(t, 26.0/24.0, charge.BillableUnits, 1e-9)
}

// =============================================================================
// NO-CHARGE SEMANTICS
// =============================================================================

func TestComputeLineCharge_NoCharge(t *testing.T) {
	now := utc(2025, time.July, 1, 0)
	base := dailyItem(utc(2025, time.June, 1, 0), utc(2025, time.June, 4, 0), "100")

	t.Run("missing rate amount", func(t *testing.T) {
		li := base
		li.RateAmount = nil
		assert.Nil(t, billing.ComputeLineCharge(li, rental.StatusOrdered, ceilUnitPolicy(), now))
	})

	t.Run("unset rate basis", func(t *testing.T) {
		li := base
		li.RateBasis = ""
		assert.Nil(t, billing.ComputeLineCharge(li, rental.StatusOrdered, ceilUnitPolicy(), now))
	})

	t.Run("inverted window", func(t *testing.T) {
		li := dailyItem(utc(2025, time.June, 4, 0), utc(2025, time.June, 1, 0), "100")
		assert.Nil(t, billing.ComputeLineCharge(li, rental.StatusOrdered, ceilUnitPolicy(), now))
	})

	t.Run("zero quantity", func(t *testing.T) {
		// Ordered status with no assigned units bills nothing.
		li := base
		li.InventoryIDs = nil
		assert.Nil(t, billing.ComputeLineCharge(li, rental.StatusOrdered, ceilUnitPolicy(), now))
	})

	t.Run("demand-only status bills quantity one", func(t *testing.T) {
		li := base
		li.InventoryIDs = nil
		charge := billing.ComputeLineCharge(li, rental.StatusReservation, ceilUnitPolicy(), now)
		require.NotNil(t, charge)
		assert.True(t, charge.Amount.Equal(decimal.NewFromInt(300)))
	})
}

func TestComputeLineCharge_Determinism(t *testing.T) {
	li := dailyItem(utc(2025, time.June, 1, 0), utc(2025, time.June, 4, 6), "129.99")
	now := utc(2025, time.July, 1, 0)

	first := billing.ComputeLineCharge(li, rental.StatusOrdered, ceilUnitPolicy(), now)
	for i := 0; i < 5; i++ {
		again := billing.ComputeLineCharge(li, rental.StatusOrdered, ceilUnitPolicy(), now)
		require.NotNil(t, again)
		assert.Equal(t, first.BillableUnits, again.BillableUnits)
		assert.True(t, first.Amount.Equal(again.Amount))
	}
}

func TestComputeLineCharge_CeilMonotoneInEnd(t *testing.T) {
	// GIVEN: A fixed start and an end that only moves later
	// THEN: Billable units never decrease (ceil, floor, and none alike)
	for _, mode := range []string{"ceil", "floor", "none"} {
		policy := billing.NewPolicy(mode, "unit", "hours", "UTC")
		prev := float64(0)
		for h := 1; h <= 31*24; h += 7 {
			li := dailyItem(utc(2025, time.June, 1, 0), utc(2025, time.June, 1, 0).Add(time.Duration(h)*time.Hour), "100")
			charge := billing.ComputeLineCharge(li, rental.StatusOrdered, policy, utc(2025, time.August, 1, 0))
			require.NotNil(t, charge, "mode %s at %dh", mode, h)
			assert.GreaterOrEqual(t, charge.BillableUnits, prev, "mode %s at %dh", mode, h)
			prev = charge.BillableUnits
		}
	}
}

func TestRoundingIdempotence_CeilOnInteger(t *testing.T) {
	// Ceil applied to an already-integer unit count returns that count.
	li := dailyItem(utc(2025, time.June, 1, 0), utc(2025, time.June, 6, 0), "100")
	charge := billing.ComputeLineCharge(li, rental.StatusOrdered, ceilUnitPolicy(), utc(2025, time.July, 1, 0))
	require.NotNil(t, charge)
	assert.Equal(t, float64(5), charge.BillableUnits)
}

// =============================================================================
// OPEN ITEMS - effective end clamped to now
// =============================================================================

func TestComputeLineCharge_OpenItemClampsToNow(t *testing.T) {
	// GIVEN: An ordered item past its scheduled end with no recorded return
	// WHEN: Computing a running total "now"
	// THEN: The effective window extends to now
	li := dailyItem(utc(2025, time.June, 1, 0), utc(2025, time.June, 3, 0), "100")
	li.ActualStart, li.ActualEnd = nil, nil // still out, nothing stamped
	now := utc(2025, time.June, 5, 0)

	charge := billing.ComputeLineCharge(li, rental.StatusOrdered, ceilUnitPolicy(), now)
	require.NotNil(t, charge)
	assert.Equal(t, float64(4), charge.BillableUnits)
}

func TestComputeLineCharge_ReturnStopsTheClock(t *testing.T) {
	// GIVEN: A June 1-4 rental viewed a month later
	// WHEN: Comparing an unreturned copy with one returned on schedule
	// THEN: The open item keeps billing through now; the return caps it
	now := utc(2025, time.July, 1, 0)

	open := dailyItem(utc(2025, time.June, 1, 0), utc(2025, time.June, 4, 0), "100")
	open.ActualStart, open.ActualEnd = nil, nil
	running := billing.ComputeLineCharge(open, rental.StatusOrdered, ceilUnitPolicy(), now)
	require.NotNil(t, running)
	assert.Equal(t, float64(30), running.BillableUnits)
	assert.True(t, running.Amount.Equal(decimal.NewFromInt(3000)))

	returned := dailyItem(utc(2025, time.June, 1, 0), utc(2025, time.June, 4, 0), "100")
	charge := billing.ComputeLineCharge(returned, rental.StatusOrdered, ceilUnitPolicy(), now)
	require.NotNil(t, charge)
	assert.Equal(t, float64(3), charge.BillableUnits)
	assert.True(t, charge.Amount.Equal(decimal.NewFromInt(300)))
}

func TestComputeLineCharge_ActualsWinOverScheduled(t *testing.T) {
	li := dailyItem(utc(2025, time.June, 1, 0), utc(2025, time.June, 10, 0), "100")
	pickup := utc(2025, time.June, 2, 0)
	returned := utc(2025, time.June, 5, 0)
	li.ActualStart = &pickup
	li.ActualEnd = &returned

	charge := billing.ComputeLineCharge(li, rental.StatusReceived, ceilUnitPolicy(), utc(2025, time.July, 1, 0))
	require.NotNil(t, charge)
	assert.Equal(t, float64(3), charge.BillableUnits)
}

// =============================================================================
// MONTHLY PRORATION
// =============================================================================

func TestComputeLineCharge_MonthlyHours_TwoSegments(t *testing.T) {
	// GIVEN: Monthly $1000, hours method, day 20 of a 30-day month through
	//        day 10 of the following 31-day month, no rounding
	// THEN: 10/30 + 10/31 ~= 0.6559 units ~= $655.91
	policy := billing.NewPolicy("none", "unit", "hours", "UTC")
	li := dailyItem(utc(2025, time.June, 20, 0), utc(2025, time.July, 10, 0), "1000")
	li.RateBasis = rental.BasisMonthly

	charge := billing.ComputeLineCharge(li, rental.StatusOrdered, policy, utc(2025, time.August, 1, 0))
	require.NotNil(t, charge)
	assert.InDelta(t, 10.0/30.0+10.0/31.0, charge.BillableUnits, 1e-9)

	want := decimal.NewFromFloat(10.0/30.0 + 10.0/31.0).Mul(decimal.NewFromInt(1000)).Round(2)
	assert.True(t, charge.Amount.Equal(want), "got %s want %s", charge.Amount, want)
}

func TestComputeLineCharge_MonthlyDaysMethod(t *testing.T) {
	// GIVEN: Days method, 9.5 active days inside February 2025 (28 days)
	// THEN: Days ceil to 10, fraction = 10/28
	policy := billing.NewPolicy("ceil", "unit", "days", "UTC")
	li := dailyItem(utc(2025, time.February, 10, 0), utc(2025, time.February, 19, 12), "1000")
	li.RateBasis = rental.BasisMonthly

	charge := billing.ComputeLineCharge(li, rental.StatusOrdered, policy, utc(2025, time.March, 1, 0))
	require.NotNil(t, charge)
	// Unit-granularity ceil then lifts 10/28 to a whole month.
	assert.Equal(t, float64(1), charge.BillableUnits)
}

func TestComputeLineCharge_MonthlyDaysMethod_NoUnitRounding(t *testing.T) {
	policy := billing.NewPolicy("ceil", "day", "days", "UTC")
	li := dailyItem(utc(2025, time.February, 10, 0), utc(2025, time.February, 19, 12), "1000")
	li.RateBasis = rental.BasisMonthly

	charge := billing.ComputeLineCharge(li, rental.StatusOrdered, policy, utc(2025, time.March, 1, 0))
	require.NotNil(t, charge)
	assert.InDelta(t, 10.0/28.0, charge.BillableUnits, 1e-9)
}

func TestComputeLineCharge_MonthlyUnitCeil_BillsWholeMonths(t *testing.T) {
	// The common configuration: whole months, rounded up.
	li := dailyItem(utc(2025, time.June, 20, 0), utc(2025, time.July, 10, 0), "1000")
	li.RateBasis = rental.BasisMonthly

	charge := billing.ComputeLineCharge(li, rental.StatusOrdered, ceilUnitPolicy(), utc(2025, time.August, 1, 0))
	require.NotNil(t, charge)
	assert.Equal(t, float64(1), charge.BillableUnits)
	assert.True(t, charge.Amount.Equal(decimal.NewFromInt(1000)))
}

// =============================================================================
// MONTH SEGMENTATION
// =============================================================================

func TestSplitCalendarMonths_CoversWindowExactly(t *testing.T) {
	// Segment durations must tile the window: no gaps, no overlaps.
	cases := []struct {
		name       string
		start, end time.Time
		zone       string
	}{
		{"within one month", utc(2025, time.June, 3, 8), utc(2025, time.June, 20, 17), "UTC"},
		{"two months", utc(2025, time.June, 20, 0), utc(2025, time.July, 10, 0), "UTC"},
		{"full year", utc(2024, time.February, 10, 6), utc(2025, time.February, 10, 6), "UTC"},
		{"DST spring forward", utc(2025, time.February, 15, 12), utc(2025, time.April, 15, 12), "America/New_York"},
		{"DST fall back", utc(2025, time.October, 15, 12), utc(2025, time.December, 15, 12), "America/New_York"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loc := calendar.NormalizeZone(tc.zone)
			segments := billing.SplitCalendarMonths(tc.start, tc.end, loc)
			require.NotEmpty(t, segments)

			assert.True(t, segments[0].Start.Equal(tc.start))
			assert.True(t, segments[len(segments)-1].End.Equal(tc.end))

			var total time.Duration
			for i, seg := range segments {
				require.True(t, seg.End.After(seg.Start), "segment %d empty", i)
				if i > 0 {
					assert.True(t, seg.Start.Equal(segments[i-1].End), "gap/overlap at segment %d", i)
				}
				total += seg.End.Sub(seg.Start)
			}
			assert.Equal(t, tc.end.Sub(tc.start), total)
		})
	}
}

func TestSplitCalendarMonths_SegmentMonthMetadata(t *testing.T) {
	segments := billing.SplitCalendarMonths(utc(2025, time.January, 15, 0), utc(2025, time.March, 10, 0), time.UTC)
	require.Len(t, segments, 3)
	assert.Equal(t, 31, segments[0].DaysInMonth) // January
	assert.Equal(t, 28, segments[1].DaysInMonth) // February
	assert.Equal(t, 31, segments[2].DaysInMonth) // March
	assert.Equal(t, 2, segments[1].Month)
}

func TestSplitCalendarMonths_InvalidWindow(t *testing.T) {
	assert.Nil(t, billing.SplitCalendarMonths(utc(2025, time.June, 2, 0), utc(2025, time.June, 1, 0), time.UTC))
	assert.Nil(t, billing.SplitCalendarMonths(utc(2025, time.June, 1, 0), utc(2025, time.June, 1, 0), time.UTC))
}

func TestSplitCalendarMonths_ZoneBoundary(t *testing.T) {
	// GIVEN: A window crossing midnight July 1 New York time
	// THEN: The split happens at New York's month boundary, not UTC's
	loc := calendar.NormalizeZone("America/New_York")
	start := utc(2025, time.June, 30, 12) // June 30, 08:00 NY
	end := utc(2025, time.July, 1, 12)    // July 1, 08:00 NY

	segments := billing.SplitCalendarMonths(start, end, loc)
	require.Len(t, segments, 2)
	assert.True(t, segments[0].End.Equal(utc(2025, time.July, 1, 4)), "boundary should be 04:00 UTC")
	assert.Equal(t, 6, segments[0].Month)
	assert.Equal(t, 7, segments[1].Month)
}

// =============================================================================
// PAUSE PERIODS
// =============================================================================

func TestComputeLineCharge_PausesReduceBillableTime(t *testing.T) {
	// GIVEN: A 10-day window with a 4-day pause in the middle, no rounding
	// THEN: 6 billable days
	policy := billing.NewPolicy("none", "unit", "hours", "UTC")
	li := dailyItem(utc(2025, time.June, 1, 0), utc(2025, time.June, 11, 0), "100")
	pauseEnd := utc(2025, time.June, 7, 0)
	li.PausePeriods = []rental.PausePeriod{{Start: utc(2025, time.June, 3, 0), End: &pauseEnd}}

	charge := billing.ComputeLineCharge(li, rental.StatusOrdered, policy, utc(2025, time.July, 1, 0))
	require.NotNil(t, charge)
	assert.InDelta(t, 6.0, charge.BillableUnits, 1e-9)
}

func TestComputeLineCharge_FullyPausedHasNoCharge(t *testing.T) {
	policy := billing.NewPolicy("none", "unit", "hours", "UTC")
	li := dailyItem(utc(2025, time.June, 1, 0), utc(2025, time.June, 5, 0), "100")
	li.PausePeriods = []rental.PausePeriod{{Start: utc(2025, time.May, 1, 0)}} // open pause covers all

	assert.Nil(t, billing.ComputeLineCharge(li, rental.StatusOrdered, policy, utc(2025, time.July, 1, 0)))
}
