package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentsoft/rental-engine/billing"
	"github.com/rentsoft/rental-engine/rental"
)

func TestNormalizePauses(t *testing.T) {
	rangeEnd := utc(2025, time.June, 30, 0)

	t.Run("open pause closes at range end", func(t *testing.T) {
		spans := billing.NormalizePauses([]rental.PausePeriod{
			{Start: utc(2025, time.June, 10, 0)},
		}, rangeEnd)
		require.Len(t, spans, 1)
		assert.True(t, spans[0].End.Equal(rangeEnd))
	})

	t.Run("overlapping pauses merge", func(t *testing.T) {
		e1 := utc(2025, time.June, 12, 0)
		e2 := utc(2025, time.June, 15, 0)
		spans := billing.NormalizePauses([]rental.PausePeriod{
			{Start: utc(2025, time.June, 10, 0), End: &e1},
			{Start: utc(2025, time.June, 11, 0), End: &e2},
		}, rangeEnd)
		require.Len(t, spans, 1)
		assert.True(t, spans[0].Start.Equal(utc(2025, time.June, 10, 0)))
		assert.True(t, spans[0].End.Equal(e2))
	})

	t.Run("touching pauses merge", func(t *testing.T) {
		e1 := utc(2025, time.June, 12, 0)
		e2 := utc(2025, time.June, 14, 0)
		spans := billing.NormalizePauses([]rental.PausePeriod{
			{Start: utc(2025, time.June, 10, 0), End: &e1},
			{Start: e1, End: &e2},
		}, rangeEnd)
		require.Len(t, spans, 1)
	})

	t.Run("disjoint pauses sort by start", func(t *testing.T) {
		e1 := utc(2025, time.June, 21, 0)
		e2 := utc(2025, time.June, 5, 0)
		spans := billing.NormalizePauses([]rental.PausePeriod{
			{Start: utc(2025, time.June, 20, 0), End: &e1},
			{Start: utc(2025, time.June, 4, 0), End: &e2},
		}, rangeEnd)
		require.Len(t, spans, 2)
		assert.True(t, spans[0].Start.Before(spans[1].Start))
	})

	t.Run("zero-start and empty pauses dropped", func(t *testing.T) {
		e := utc(2025, time.June, 10, 0)
		spans := billing.NormalizePauses([]rental.PausePeriod{
			{End: &e},                 // no start
			{Start: e, End: &e},       // empty
		}, rangeEnd)
		assert.Empty(t, spans)
	})
}

func TestSubtractPauses(t *testing.T) {
	start := utc(2025, time.June, 1, 0)
	end := utc(2025, time.June, 11, 0)

	t.Run("no pauses returns whole window", func(t *testing.T) {
		spans := billing.SubtractPauses(start, end, nil)
		require.Len(t, spans, 1)
		assert.True(t, spans[0].Start.Equal(start))
		assert.True(t, spans[0].End.Equal(end))
	})

	t.Run("interior pause splits the window", func(t *testing.T) {
		spans := billing.SubtractPauses(start, end, []billing.Span{
			{Start: utc(2025, time.June, 3, 0), End: utc(2025, time.June, 7, 0)},
		})
		require.Len(t, spans, 2)
		assert.True(t, spans[0].End.Equal(utc(2025, time.June, 3, 0)))
		assert.True(t, spans[1].Start.Equal(utc(2025, time.June, 7, 0)))
	})

	t.Run("pause overhanging the start clips it", func(t *testing.T) {
		spans := billing.SubtractPauses(start, end, []billing.Span{
			{Start: utc(2025, time.May, 20, 0), End: utc(2025, time.June, 4, 0)},
		})
		require.Len(t, spans, 1)
		assert.True(t, spans[0].Start.Equal(utc(2025, time.June, 4, 0)))
	})

	t.Run("pause covering the window removes it", func(t *testing.T) {
		spans := billing.SubtractPauses(start, end, []billing.Span{
			{Start: utc(2025, time.May, 1, 0), End: utc(2025, time.July, 1, 0)},
		})
		assert.Empty(t, spans)
	})

	t.Run("pause outside the window is ignored", func(t *testing.T) {
		spans := billing.SubtractPauses(start, end, []billing.Span{
			{Start: utc(2025, time.July, 1, 0), End: utc(2025, time.July, 5, 0)},
		})
		require.Len(t, spans, 1)
		assert.True(t, spans[0].Start.Equal(start))
		assert.True(t, spans[0].End.Equal(end))
	})
}
