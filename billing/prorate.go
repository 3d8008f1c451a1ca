/*
prorate.go - Billable unit computation and calendar-month segmentation

PURPOSE:
  The proration engine proper. Daily and weekly bases have fixed period
  lengths, so their unit count is a duration ratio. Monthly has none: a
  window from the 20th of a 31-day month to the 10th of a 28-day month
  must be split at month boundaries and prorated against each month's own
  day count, or the answer is simply wrong.

ALGORITHM (monthly):
  1. Subtract pauses from the effective window.
  2. Split each billable span at zone-local calendar-month boundaries.
  3. Per segment, compute a fractional month count (hours or days method).
  4. Sum the fractions; apply unit-granularity rounding to the sum.

TERMINATION:
  Month segmentation walks boundary to boundary and is bounded by a hard
  segment cap, so malformed windows cannot loop forever.
*/
package billing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentsoft/rental-engine/calendar"
	"github.com/rentsoft/rental-engine/rental"
)

const dayDuration = 24 * time.Hour

// maxMonthSegments bounds the month-splitting walk (100 years of months).
const maxMonthSegments = 1200

// =============================================================================
// LINE CHARGE
// =============================================================================

// LineCharge is the engine's output for one line item.
type LineCharge struct {
	// BillableUnits may be fractional when the rounding mode is none.
	BillableUnits float64
	Amount        decimal.Decimal
}

// ComputeLineCharge converts a line item's effective window into a charge
// under the given policy. Returns nil ("no charge") when the item is not
// billable: missing/invalid window, unset rate basis or amount, or zero
// quantity. Callers must treat nil as "not yet computable", not as zero.
func ComputeLineCharge(li rental.LineItem, status rental.OrderStatus, policy Policy, now time.Time) *LineCharge {
	if !validBasis(li.RateBasis) || li.RateAmount == nil {
		return nil
	}
	qty := li.Quantity(status)
	if qty <= 0 {
		return nil
	}
	start, end, _ := li.EffectiveWindow(now)
	if !end.After(start) {
		return nil
	}

	spans := SubtractPauses(start, end, NormalizePauses(li.PausePeriods, end))
	if len(spans) == 0 {
		return nil
	}

	var units float64
	if li.RateBasis == rental.BasisMonthly {
		units = monthlyUnits(spans, policy)
	} else {
		units = fixedPeriodUnits(spans, li.RateBasis, policy)
	}

	if policy.RoundingMode != ModeNone && policy.RoundingGranularity == GranularityUnit {
		units = applyRounding(units, policy.RoundingMode)
	}
	if math.IsNaN(units) || math.IsInf(units, 0) || units <= 0 {
		return nil
	}

	amount := decimal.NewFromFloat(units).
		Mul(*li.RateAmount).
		Mul(decimal.NewFromInt(int64(qty))).
		Round(2)
	return &LineCharge{BillableUnits: units, Amount: amount}
}

func validBasis(b rental.RateBasis) bool {
	switch b {
	case rental.BasisDaily, rental.BasisWeekly, rental.BasisMonthly:
		return true
	}
	return false
}

// fixedPeriodUnits computes units for daily/weekly bases: the total active
// duration, rounded at hour/day granularity if configured, over the basis
// period length.
func fixedPeriodUnits(spans []Span, basis rental.RateBasis, policy Policy) float64 {
	var active time.Duration
	for _, s := range spans {
		active += s.Duration()
	}
	active = applyDurationRounding(active, policy.RoundingMode, policy.RoundingGranularity)
	days := float64(active) / float64(dayDuration)
	return days / float64(basis.PeriodDays())
}

// monthlyUnits sums per-segment month fractions across all billable spans.
func monthlyUnits(spans []Span, policy Policy) float64 {
	var units float64
	for _, span := range spans {
		for _, seg := range SplitCalendarMonths(span.Start, span.End, policy.location()) {
			units += monthSegmentFraction(seg, policy)
		}
	}
	return units
}

// =============================================================================
// CALENDAR-MONTH SEGMENTATION
// =============================================================================

// MonthSegment is the portion of a window falling inside one calendar month
// (in the policy's zone), annotated with that month's day count.
type MonthSegment struct {
	Start       time.Time
	End         time.Time
	Year        int
	Month       int // 1-based
	DaysInMonth int
}

// SplitCalendarMonths partitions [start, end) at zone-local month
// boundaries. The segments tile the window exactly: no gaps, no overlaps.
// Returns nil for empty or inverted windows.
func SplitCalendarMonths(start, end time.Time, loc *time.Location) []MonthSegment {
	if loc == nil {
		loc = time.UTC
	}
	if !end.After(start) {
		return nil
	}

	var segments []MonthSegment
	cursor := start
	for cursor.Before(end) && len(segments) < maxMonthSegments {
		parts := calendar.PartsIn(cursor, loc)
		boundary := calendar.NextMonthStart(cursor, loc)
		segEnd := end
		if boundary.Before(end) {
			segEnd = boundary
		}
		if !segEnd.After(cursor) {
			break
		}
		segments = append(segments, MonthSegment{
			Start:       cursor,
			End:         segEnd,
			Year:        parts.Year,
			Month:       parts.Month,
			DaysInMonth: calendar.DaysInMonth(parts.Year, parts.Month),
		})
		cursor = segEnd
	}
	return segments
}

// monthSegmentFraction computes one segment's fractional month count,
// without unit-granularity rounding (that applies to the summed total).
func monthSegmentFraction(seg MonthSegment, policy Policy) float64 {
	active := seg.End.Sub(seg.Start)
	if active <= 0 {
		return 0
	}

	if policy.MonthlyProration == ProrateByDays {
		days := float64(active) / float64(dayDuration)
		if policy.RoundingMode != ModeNone && policy.RoundingGranularity == GranularityDay {
			days = applyRounding(days, policy.RoundingMode)
		} else if policy.RoundingMode != ModeNone {
			// Days method always bills whole days; ceiling when the
			// granularity doesn't say otherwise.
			days = math.Ceil(days - roundingEpsilon)
		}
		return days / float64(seg.DaysInMonth)
	}

	adjusted := active
	if policy.RoundingGranularity == GranularityHour || policy.RoundingGranularity == GranularityDay {
		adjusted = applyDurationRounding(active, policy.RoundingMode, policy.RoundingGranularity)
	}
	return float64(adjusted) / (float64(seg.DaysInMonth) * float64(dayDuration))
}

// SegmentUnits computes the billable units contributed by one month segment
// for any basis, including unit-granularity rounding applied per segment.
// This is the per-month attribution used by the monthly breakdown, where
// each calendar month's charge stands on its own.
func SegmentUnits(seg MonthSegment, basis rental.RateBasis, policy Policy) float64 {
	if !validBasis(basis) || !seg.End.After(seg.Start) {
		return 0
	}

	var units float64
	if basis == rental.BasisMonthly {
		units = monthSegmentFraction(seg, policy)
	} else {
		active := applyDurationRounding(seg.End.Sub(seg.Start), policy.RoundingMode, policy.RoundingGranularity)
		days := float64(active) / float64(dayDuration)
		units = days / float64(basis.PeriodDays())
	}

	if policy.RoundingMode != ModeNone && policy.RoundingGranularity == GranularityUnit {
		units = applyRounding(units, policy.RoundingMode)
	}
	if math.IsNaN(units) || math.IsInf(units, 0) || units < 0 {
		return 0
	}
	return units
}
