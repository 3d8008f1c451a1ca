package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentsoft/rental-engine/calendar"
)

// =============================================================================
// ZONE RESOLUTION
// =============================================================================

func TestNormalizeZone_Known(t *testing.T) {
	loc := calendar.NormalizeZone("America/New_York")
	assert.Equal(t, "America/New_York", loc.String())
}

func TestNormalizeZone_UnknownDegradesToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, calendar.NormalizeZone("Not/AZone"))
	assert.Equal(t, time.UTC, calendar.NormalizeZone(""))
}

// =============================================================================
// PARTS ROUND-TRIP
// =============================================================================

func TestPartsIn_DecomposesInZone(t *testing.T) {
	// GIVEN: 2025-03-01T03:30:00Z
	// WHEN: Decomposed in America/New_York (UTC-5 in winter)
	// THEN: Local calendar still shows Feb 28, 22:30
	loc := calendar.NormalizeZone("America/New_York")
	instant := time.Date(2025, time.March, 1, 3, 30, 0, 0, time.UTC)

	p := calendar.PartsIn(instant, loc)
	assert.Equal(t, 2025, p.Year)
	assert.Equal(t, 2, p.Month)
	assert.Equal(t, 28, p.Day)
	assert.Equal(t, 22, p.Hour)
	assert.Equal(t, 30, p.Minute)
}

func TestFromParts_RoundTrip(t *testing.T) {
	loc := calendar.NormalizeZone("America/New_York")
	p := calendar.Parts{Year: 2025, Month: 7, Day: 4, Hour: 12}

	instant := calendar.FromParts(p, loc)
	back := calendar.PartsIn(instant, loc)
	assert.Equal(t, p, back)
}

func TestFromParts_UTC(t *testing.T) {
	p := calendar.Parts{Year: 2025, Month: 1, Day: 15, Hour: 8, Minute: 45}
	instant := calendar.FromParts(p, time.UTC)
	assert.Equal(t, time.Date(2025, time.January, 15, 8, 45, 0, 0, time.UTC), instant)
}

func TestFromParts_DSTSpring(t *testing.T) {
	// GIVEN: Midnight April 1 in New York, weeks after the spring-forward
	// WHEN: Converted to UTC
	// THEN: Offset is EDT (-4), not EST (-5)
	loc := calendar.NormalizeZone("America/New_York")
	instant := calendar.FromParts(calendar.Parts{Year: 2025, Month: 4, Day: 1}, loc)
	assert.Equal(t, time.Date(2025, time.April, 1, 4, 0, 0, 0, time.UTC), instant)
}

// =============================================================================
// MONTH ARITHMETIC
// =============================================================================

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year, month, want int
	}{
		{2025, 1, 31},
		{2025, 2, 28},
		{2024, 2, 29}, // leap year
		{2025, 4, 30},
		{2025, 12, 31},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, calendar.DaysInMonth(tc.year, tc.month),
			"daysInMonth(%d, %d)", tc.year, tc.month)
	}
}

func TestNextMonthStart_UTC(t *testing.T) {
	instant := time.Date(2025, time.June, 20, 15, 0, 0, 0, time.UTC)
	next := calendar.NextMonthStart(instant, time.UTC)
	assert.Equal(t, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), next)
}

func TestNextMonthStart_DecemberRollsYear(t *testing.T) {
	instant := time.Date(2025, time.December, 31, 23, 0, 0, 0, time.UTC)
	next := calendar.NextMonthStart(instant, time.UTC)
	assert.Equal(t, time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), next)
}

func TestNextMonthStart_ZoneLocalBoundary(t *testing.T) {
	// GIVEN: An instant that is already July 1 in UTC but still June 30 in New York
	// WHEN: Finding the next month start in New York
	// THEN: The boundary is New York's July 1 midnight (04:00 UTC)
	loc := calendar.NormalizeZone("America/New_York")
	instant := time.Date(2025, time.July, 1, 1, 0, 0, 0, time.UTC)

	next := calendar.NextMonthStart(instant, loc)
	require.Equal(t, time.Date(2025, time.July, 1, 4, 0, 0, 0, time.UTC), next)
}
