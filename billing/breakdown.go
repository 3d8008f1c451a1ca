/*
breakdown.go - Per-calendar-month charge aggregation for a rental order

PURPOSE:
  Answers "what does this order cost, month by month?". Each line item's
  billable spans are split at calendar-month boundaries and each segment's
  charge lands in its month's bucket, alongside dated fees. Undated fees
  collect in a trailing bucket of their own.

WARNINGS:
  Line items that cannot be billed (missing basis, rate, dates, or units)
  are skipped with a human-readable warning instead of failing the whole
  breakdown - a back-office page must render what it can.
*/
package billing

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentsoft/rental-engine/rental"
)

// =============================================================================
// INPUT / OUTPUT TYPES
// =============================================================================

// ItemCharge is one line item's contribution to one month.
type ItemCharge struct {
	LineItemID string
	Label      string
	Units      float64
	RateBasis  rental.RateBasis
	RateAmount decimal.Decimal
	Quantity   int
	Amount     decimal.Decimal
}

// FeeCharge is one fee's appearance in a month bucket.
type FeeCharge struct {
	Name   string
	Amount decimal.Decimal
	Date   string
}

// MonthCharge is one calendar month's bucket of charges.
type MonthCharge struct {
	Key            string // YYYY-MM, or "undated"
	Year           int
	Month          int
	Label          string
	Items          []ItemCharge
	Fees           []FeeCharge
	LineItemsTotal decimal.Decimal
	FeesTotal      decimal.Decimal
	Total          decimal.Decimal
	Undated        bool
}

// Breakdown is the full monthly view of an order's charges.
type Breakdown struct {
	Months         []MonthCharge
	LineItemsTotal decimal.Decimal
	FeesTotal      decimal.Decimal
	GrandTotal     decimal.Decimal
	Warnings       []string
	// OpenItems counts line items still out (no recorded return); their
	// charges run through "now".
	OpenItems int
}

// =============================================================================
// BREAKDOWN COMPUTATION
// =============================================================================

// ComputeMonthlyBreakdown aggregates an order's line-item charges and fees
// into calendar-month buckets under the given policy. The display page
// passes policy.Prorated() to show continuous fractions; invoicing passes
// the policy as configured.
func ComputeMonthlyBreakdown(status rental.OrderStatus, items []rental.LineItem, fees []rental.Fee, policy Policy, now time.Time) Breakdown {
	months := make(map[string]*MonthCharge)
	var warnings []string
	openItems := 0

	ensure := func(key string, year, month int, undated bool) *MonthCharge {
		if m, ok := months[key]; ok {
			return m
		}
		m := &MonthCharge{Key: key, Year: year, Month: month, Undated: undated}
		if undated {
			m.Label = "Undated fees"
		} else {
			m.Label = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
		}
		months[key] = m
		return m
	}

	for i, li := range items {
		if !validBasis(li.RateBasis) {
			warnings = append(warnings, fmt.Sprintf("Line item %d missing rate basis.", i+1))
			continue
		}
		if li.RateAmount == nil {
			warnings = append(warnings, fmt.Sprintf("Line item %d missing rate amount.", i+1))
			continue
		}
		qty := li.Quantity(status)
		if qty <= 0 {
			warnings = append(warnings, fmt.Sprintf("Line item %d has no billable units assigned.", i+1))
			continue
		}
		if li.ScheduledStart.IsZero() || li.ScheduledEnd.IsZero() {
			warnings = append(warnings, fmt.Sprintf("Line item %d missing start or end date.", i+1))
			continue
		}

		start, end, closed := li.EffectiveWindow(now)
		if !closed {
			openItems++
		}
		if !end.After(start) {
			warnings = append(warnings, fmt.Sprintf("Line item %d has invalid dates.", i+1))
			continue
		}

		spans := SubtractPauses(start, end, NormalizePauses(li.PausePeriods, end))
		for _, span := range spans {
			for _, seg := range SplitCalendarMonths(span.Start, span.End, policy.location()) {
				units := SegmentUnits(seg, li.RateBasis, policy)
				if units <= 0 {
					continue
				}
				amount := decimal.NewFromFloat(units).
					Mul(*li.RateAmount).
					Mul(decimal.NewFromInt(int64(qty))).
					Round(2)

				key := fmt.Sprintf("%04d-%02d", seg.Year, seg.Month)
				bucket := ensure(key, seg.Year, seg.Month, false)
				bucket.addItem(li, qty, units, amount)
			}
		}
	}

	for _, fee := range fees {
		key := "undated"
		year, month := 0, 0
		undated := true
		if len(fee.Date) >= 7 {
			if t, err := time.Parse("2006-01-02", fee.Date); err == nil {
				key = fee.Date[:7]
				year, month = t.Year(), int(t.Month())
				undated = false
			}
		}
		bucket := ensure(key, year, month, undated)
		bucket.Fees = append(bucket.Fees, FeeCharge{Name: fee.Name, Amount: fee.Amount, Date: fee.Date})
		bucket.FeesTotal = bucket.FeesTotal.Add(fee.Amount)
	}

	list := make([]MonthCharge, 0, len(months))
	for _, m := range months {
		sort.Slice(m.Items, func(i, j int) bool { return m.Items[i].Label < m.Items[j].Label })
		m.Total = m.LineItemsTotal.Add(m.FeesTotal)
		list = append(list, *m)
	}
	// Chronological, undated fees last.
	sort.Slice(list, func(i, j int) bool {
		if list[i].Undated != list[j].Undated {
			return !list[i].Undated
		}
		return list[i].Key < list[j].Key
	})

	out := Breakdown{Months: list, Warnings: warnings, OpenItems: openItems}
	for _, m := range list {
		out.LineItemsTotal = out.LineItemsTotal.Add(m.LineItemsTotal)
		out.FeesTotal = out.FeesTotal.Add(m.FeesTotal)
		out.GrandTotal = out.GrandTotal.Add(m.Total)
	}
	return out
}

// addItem merges a segment charge into the month, accumulating units and
// amounts for line items that appear in the month more than once (a pause
// splits an item into several spans of the same month).
func (m *MonthCharge) addItem(li rental.LineItem, qty int, units float64, amount decimal.Decimal) {
	for i := range m.Items {
		if m.Items[i].LineItemID == li.ID {
			m.Items[i].Units += units
			m.Items[i].Amount = m.Items[i].Amount.Add(amount)
			m.LineItemsTotal = m.LineItemsTotal.Add(amount)
			return
		}
	}
	m.Items = append(m.Items, ItemCharge{
		LineItemID: li.ID,
		Label:      li.Label(),
		Units:      units,
		RateBasis:  li.RateBasis,
		RateAmount: *li.RateAmount,
		Quantity:   qty,
		Amount:     amount,
	})
	m.LineItemsTotal = m.LineItemsTotal.Add(amount)
}
