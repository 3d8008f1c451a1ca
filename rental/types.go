/*
Package rental provides the core domain types for the rental back office.

PURPOSE:
  This package defines the vocabulary the engines speak: rental orders move
  through a status lifecycle, line items carry a time window and a rate, and
  assignments bind a line item to a physical equipment unit for scheduling.

KEY CONCEPTS IN THIS FILE (types.go):
  - OrderStatus: Closed lifecycle enum with tolerant boundary normalization
  - RateBasis: The billing period unit (daily, weekly, monthly)
  - LineItem: One equipment-type booking with its window, rate and pauses
  - Assignment: An equipment-level booking used for layout and conflict checks

DESIGN PRINCIPLES:
  1. Normalization at the boundary: unrecognized strings are rejected or
     mapped ONCE, when data enters the system - never deep in an algorithm.
  2. Precision: Uses decimal.Decimal for currency amounts.
  3. Purity: These are plain values; every computation over them takes
     explicit policy and "now" parameters.

SEE ALSO:
  - billing: Proration engine consuming LineItem
  - schedule: Layout and conflict engines consuming Assignment
*/
package rental

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ORDER STATUS - Lifecycle of a rental order
// =============================================================================

type OrderStatus string

const (
	StatusQuote           OrderStatus = "quote"
	StatusQuoteRejected   OrderStatus = "quote_rejected"
	StatusRequested       OrderStatus = "requested"
	StatusRequestRejected OrderStatus = "request_rejected"
	StatusReservation     OrderStatus = "reservation"
	StatusOrdered         OrderStatus = "ordered"
	StatusReceived        OrderStatus = "received"
	StatusClosed          OrderStatus = "closed"
)

// NormalizeOrderStatus maps a raw status string onto the closed enum.
// Historical misspellings and aliases are accepted; anything else
// defaults to quote, the lifecycle's entry state.
func NormalizeOrderStatus(raw string) OrderStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "quote":
		return StatusQuote
	case "quote_rejected", "rejected":
		return StatusQuoteRejected
	case "requested", "request":
		return StatusRequested
	case "request_rejected", "requested_rejected":
		return StatusRequestRejected
	case "reservation":
		return StatusReservation
	case "ordered":
		return StatusOrdered
	case "received", "recieved":
		return StatusReceived
	case "closed":
		return StatusClosed
	default:
		return StatusQuote
	}
}

// IsDemandOnly reports whether the status represents demand without a
// physical unit assigned yet (quotes, reservations, open requests).
// Demand-only orders bill quantity 1 per line item.
func (s OrderStatus) IsDemandOnly() bool {
	switch s {
	case StatusQuote, StatusQuoteRejected, StatusReservation, StatusRequested:
		return true
	default:
		return false
	}
}

// =============================================================================
// RATE BASIS - The billing period unit
// =============================================================================

type RateBasis string

const (
	BasisDaily   RateBasis = "daily"
	BasisWeekly  RateBasis = "weekly"
	BasisMonthly RateBasis = "monthly"
)

// NormalizeRateBasis validates a raw basis string. Unknown values return
// ok=false: a line item without a recognizable basis is not billable.
func NormalizeRateBasis(raw string) (RateBasis, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "daily":
		return BasisDaily, true
	case "weekly":
		return BasisWeekly, true
	case "monthly":
		return BasisMonthly, true
	default:
		return "", false
	}
}

// PeriodDays returns the billing period length in days. Monthly has no
// fixed day length (calendar months vary) and returns 0; the proration
// engine segments monthly windows at calendar boundaries instead.
func (b RateBasis) PeriodDays() int {
	switch b {
	case BasisDaily:
		return 1
	case BasisWeekly:
		return 7
	default:
		return 0
	}
}

// =============================================================================
// PAUSE PERIOD - Suspension of billing within a line item's window
// =============================================================================

// PausePeriod marks a span during which a rented unit was out of service
// (e.g. in the shop) and billing is suspended. An open pause (nil End)
// extends to the end of whatever window it is applied against.
type PausePeriod struct {
	Start time.Time
	End   *time.Time
}

// =============================================================================
// LINE ITEM - One equipment-type booking within a rental order
// =============================================================================

// LineItem is one equipment-type booking with its own window and rate.
// ActualStart/ActualEnd record pickup and return when they happen; the
// billable window prefers actuals over the scheduled window.
type LineItem struct {
	ID       string
	OrderID  string
	TypeName string

	// Bundles bill as one unit regardless of member count.
	BundleID   string
	BundleName string

	// Physical units assigned to this line item (empty until fulfillment).
	InventoryIDs []string

	ScheduledStart time.Time
	ScheduledEnd   time.Time
	ActualStart    *time.Time // pickup
	ActualEnd      *time.Time // return

	RateBasis    RateBasis
	RateAmount   *decimal.Decimal // per one billing period; nil = no charge computable
	PausePeriods []PausePeriod
}

// EffectiveWindow returns the billable window: actuals when recorded,
// scheduled otherwise. An open item (no recorded return) whose scheduled
// end has already passed clamps to now, never earlier than the start.
// The second return is false when the item is still open.
func (li LineItem) EffectiveWindow(now time.Time) (start, end time.Time, closed bool) {
	start = li.ScheduledStart
	if li.ActualStart != nil {
		start = *li.ActualStart
	}
	if li.ActualEnd != nil {
		return start, *li.ActualEnd, true
	}
	end = li.ScheduledEnd
	if end.Before(now) {
		end = now
	}
	if end.Before(start) {
		end = start
	}
	return start, end, false
}

// Quantity returns the billable unit count for this line item.
// Bundles bill as one; otherwise the count of assigned physical units;
// demand-only orders (no units assigned yet) bill one per line item.
func (li LineItem) Quantity(orderStatus OrderStatus) int {
	if li.BundleID != "" {
		return 1
	}
	if n := len(li.InventoryIDs); n > 0 {
		return n
	}
	if orderStatus.IsDemandOnly() {
		return 1
	}
	return 0
}

// Label returns the display label for charge breakdowns.
func (li LineItem) Label() string {
	if li.BundleName != "" {
		return "Bundle: " + li.BundleName
	}
	if li.TypeName != "" {
		return li.TypeName
	}
	return "Line item"
}

// =============================================================================
// ASSIGNMENT - Equipment-level booking for layout and conflict checks
// =============================================================================

// Assignment is a concrete equipment booking derived from a line item.
// EquipmentID is nil for unassigned/TBD bookings, which group by type
// on the timeline instead of by unit.
type Assignment struct {
	ID            string
	LineItemID    string
	EquipmentID   *string
	EquipmentType string
	Start         time.Time
	End           time.Time
	Status        OrderStatus
	DocumentLabel string // display id (RO number, quote number)
	CustomerName  string
	Quantity      int
}

// Valid reports whether the assignment has a well-formed window.
// Invalid assignments are excluded from layout and conflict checks.
func (a Assignment) Valid() bool {
	return !a.Start.IsZero() && !a.End.IsZero() && a.End.After(a.Start)
}

// SameEquipment reports whether two assignments share a physical unit.
// Unassigned bookings (nil EquipmentID) never collide.
func (a Assignment) SameEquipment(b Assignment) bool {
	if a.EquipmentID == nil || b.EquipmentID == nil {
		return false
	}
	return *a.EquipmentID == *b.EquipmentID
}

// GroupKey returns the timeline row key: the equipment unit when assigned,
// the equipment type otherwise.
func (a Assignment) GroupKey() string {
	if a.EquipmentID != nil && *a.EquipmentID != "" {
		return "unit:" + *a.EquipmentID
	}
	return "type:" + a.EquipmentType
}
