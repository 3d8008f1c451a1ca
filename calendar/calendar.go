/*
Package calendar provides civil-time conversions for billing computations.

PURPOSE:
  Billing policies name an IANA time zone, and monthly proration must find
  calendar-month boundaries in that zone. This package converts between UTC
  instants and zone-local calendar parts, and answers "how many days are in
  this month?" for proration denominators.

KEY CONCEPTS:
  - Parts: A zone-local {year, month, day, hour, minute, second} decomposition
  - NormalizeZone: Resolves a zone name, degrading to UTC on anything unknown
  - FromParts: Zone-local parts back to a UTC instant, DST-corrected

DST HANDLING:
  FromParts guesses the instant as if the zone were UTC, measures the zone's
  offset at that guess, and corrects once. Civil zone changes are in whole
  minutes, so a single fixed-point iteration is sufficient for this system's
  precision (month boundaries at midnight).

ERROR POLICY:
  Zone resolution never fails. A billing policy must always be computable,
  so an unparseable zone identifier silently degrades to UTC.

SEE ALSO:
  - billing/prorate.go: Uses month boundaries for calendar-month segmentation
*/
package calendar

import "time"

// =============================================================================
// ZONE RESOLUTION
// =============================================================================

// NormalizeZone resolves an IANA zone identifier to a Location.
// Empty or unknown identifiers degrade to UTC rather than failing.
func NormalizeZone(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// =============================================================================
// PARTS - Zone-local calendar decomposition
// =============================================================================

// Parts is the calendar decomposition of an instant in some zone.
// Month is 1-based (January = 1).
type Parts struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// PartsIn decomposes an instant into calendar parts in the given zone.
func PartsIn(t time.Time, loc *time.Location) Parts {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return Parts{
		Year:   local.Year(),
		Month:  int(local.Month()),
		Day:    local.Day(),
		Hour:   local.Hour(),
		Minute: local.Minute(),
		Second: local.Second(),
	}
}

// FromParts converts zone-local calendar parts to the UTC instant that
// corresponds to them in the given zone. The zone offset is derived at a
// UTC guess and applied once; see the package comment for why once is enough.
func FromParts(p Parts, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	guess := time.Date(p.Year, time.Month(p.Month), p.Day, p.Hour, p.Minute, p.Second, 0, time.UTC)
	offset := offsetAt(guess, loc)
	return guess.Add(-offset)
}

// offsetAt measures the zone's UTC offset at the given instant.
func offsetAt(t time.Time, loc *time.Location) time.Duration {
	local := PartsIn(t, loc)
	asUTC := time.Date(local.Year, time.Month(local.Month), local.Day, local.Hour, local.Minute, local.Second, 0, time.UTC)
	return asUTC.Sub(t.Truncate(time.Second))
}

// =============================================================================
// MONTH ARITHMETIC
// =============================================================================

// DaysInMonth returns the Gregorian day count (28-31) for a month.
// Month is 1-based.
func DaysInMonth(year, month int) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextMonthStart returns the UTC instant of the first moment of the calendar
// month following the month containing t, in the given zone.
func NextMonthStart(t time.Time, loc *time.Location) time.Time {
	p := PartsIn(t, loc)
	year, month := p.Year, p.Month+1
	if p.Month == 12 {
		year, month = p.Year+1, 1
	}
	return FromParts(Parts{Year: year, Month: month, Day: 1}, loc)
}
