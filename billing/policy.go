/*
Package billing provides the proration engine for rental line items.

PURPOSE:
  Converts a line item's billable time window, its rate basis, and the
  company billing policy into a deterministic monetary charge. The hard
  part is monthly proration: a window spanning several calendar months of
  different lengths must be segmented at month boundaries in the policy's
  time zone and prorated against each month's own day count.

KEY CONCEPTS:
  - Policy: Company-wide rounding and proration settings
  - RoundingMode/RoundingGranularity: How durations become whole units
  - LineCharge: billableUnits * rateAmount * quantity, or nil for "no charge"
  - Month segmentation: splitting windows at zone-local month boundaries

NO-CHARGE SEMANTICS:
  A nil LineCharge means "not yet computable" (missing rate, empty window,
  zero quantity) - deliberately distinct from a zero-amount charge, so
  callers can tell "nothing to bill" from "misconfigured".

DETERMINISM:
  Every function is a pure transform of its inputs; "now" is always a
  parameter, never read from a wall clock.

SEE ALSO:
  - prorate.go: The unit computation and month segmentation
  - pause.go: Pause-period subtraction from billable windows
  - breakdown.go: Per-calendar-month charge aggregation for an order
*/
package billing

import (
	"math"
	"strings"
	"time"

	"github.com/rentsoft/rental-engine/calendar"
)

// =============================================================================
// ROUNDING ENUMS
// =============================================================================

type RoundingMode string

const (
	ModeNone    RoundingMode = "none" // true continuous proration
	ModeCeil    RoundingMode = "ceil"
	ModeFloor   RoundingMode = "floor"
	ModeNearest RoundingMode = "nearest"
)

type RoundingGranularity string

const (
	GranularityHour RoundingGranularity = "hour"
	GranularityDay  RoundingGranularity = "day"
	GranularityUnit RoundingGranularity = "unit" // the billing period itself
)

type ProrationMethod string

const (
	// ProrateByHours prorates a month segment as elapsed time over the
	// month's full duration.
	ProrateByHours ProrationMethod = "hours"

	// ProrateByDays prorates as whole days (rounded) over days-in-month.
	ProrateByDays ProrationMethod = "days"
)

// NormalizeRoundingMode maps raw settings values onto the closed enum.
// "prorate" is a legacy alias for none; anything unrecognized defaults
// to ceil, the conservative billing default.
func NormalizeRoundingMode(raw string) RoundingMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "prorate", "none":
		return ModeNone
	case "floor":
		return ModeFloor
	case "nearest":
		return ModeNearest
	default:
		return ModeCeil
	}
}

func NormalizeRoundingGranularity(raw string) RoundingGranularity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "hour":
		return GranularityHour
	case "day":
		return GranularityDay
	default:
		return GranularityUnit
	}
}

func NormalizeProrationMethod(raw string) ProrationMethod {
	if strings.ToLower(strings.TrimSpace(raw)) == "days" {
		return ProrateByDays
	}
	return ProrateByHours
}

// =============================================================================
// POLICY - Company-wide billing settings, immutable per computation
// =============================================================================

// Policy carries the rounding and proration settings for one company.
// Exactly one rounding mode and one granularity apply per computation;
// ModeNone means no rounding regardless of granularity.
type Policy struct {
	RoundingMode        RoundingMode
	RoundingGranularity RoundingGranularity
	MonthlyProration    ProrationMethod
	Zone                *time.Location
}

// DefaultPolicy returns the settings used when a company has none:
// bill whole units, rounded up, hours-based monthly proration, UTC.
func DefaultPolicy() Policy {
	return Policy{
		RoundingMode:        ModeCeil,
		RoundingGranularity: GranularityUnit,
		MonthlyProration:    ProrateByHours,
		Zone:                time.UTC,
	}
}

// NewPolicy normalizes raw settings strings into a Policy. An invalid or
// empty time zone degrades to UTC; a billing policy must always resolve.
func NewPolicy(mode, granularity, prorationMethod, zone string) Policy {
	return Policy{
		RoundingMode:        NormalizeRoundingMode(mode),
		RoundingGranularity: NormalizeRoundingGranularity(granularity),
		MonthlyProration:    NormalizeProrationMethod(prorationMethod),
		Zone:                calendar.NormalizeZone(zone),
	}
}

// Prorated returns a copy of the policy with rounding disabled, for
// display paths that show continuous (fractional) proration.
func (p Policy) Prorated() Policy {
	p.RoundingMode = ModeNone
	p.RoundingGranularity = GranularityUnit
	return p
}

func (p Policy) location() *time.Location {
	if p.Zone == nil {
		return time.UTC
	}
	return p.Zone
}

// =============================================================================
// ROUNDING PRIMITIVES
// =============================================================================

// roundingEpsilon guards ceil/floor against floating-point noise:
// a window of exactly 3.0 days must not ceil to 4.
const roundingEpsilon = 1e-9

// applyRounding applies the mode to a raw unit count.
func applyRounding(v float64, mode RoundingMode) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	switch mode {
	case ModeNone:
		return v
	case ModeCeil:
		return math.Ceil(v - roundingEpsilon)
	case ModeFloor:
		return math.Floor(v + roundingEpsilon)
	default:
		return math.Round(v)
	}
}

// applyDurationRounding converts an active duration to whole hours or days
// per the mode, then back to a duration. Unit granularity is handled later,
// on the unit count itself.
func applyDurationRounding(active time.Duration, mode RoundingMode, granularity RoundingGranularity) time.Duration {
	if mode == ModeNone {
		return active
	}
	var step time.Duration
	switch granularity {
	case GranularityHour:
		step = time.Hour
	case GranularityDay:
		step = 24 * time.Hour
	default:
		return active
	}
	units := applyRounding(float64(active)/float64(step), mode)
	if units < 0 {
		units = 0
	}
	return time.Duration(units * float64(step))
}
