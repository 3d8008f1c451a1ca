/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Amounts travel as decimal strings ("655.91"), never floats. Clients
  must not lose cents to binary floating point.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: SettingsJSON type (the settings API payload)
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentsoft/rental-engine/billing"
	"github.com/rentsoft/rental-engine/rental"
	"github.com/rentsoft/rental-engine/schedule"
)

// =============================================================================
// ORDER TYPES
// =============================================================================

// OrderDTO represents a rental order in API responses.
type OrderDTO struct {
	ID            string        `json:"id"`
	DocumentLabel string        `json:"document_label"`
	CustomerName  string        `json:"customer_name"`
	Status        string        `json:"status"`
	LineItems     []LineItemDTO `json:"line_items"`
	Fees          []FeeDTO      `json:"fees,omitempty"`
}

// LineItemDTO represents one equipment line of an order.
type LineItemDTO struct {
	ID             string     `json:"id"`
	TypeName       string     `json:"type_name"`
	BundleID       string     `json:"bundle_id,omitempty"`
	BundleName     string     `json:"bundle_name,omitempty"`
	InventoryIDs   []string   `json:"inventory_ids"`
	ScheduledStart string     `json:"scheduled_start,omitempty"`
	ScheduledEnd   string     `json:"scheduled_end,omitempty"`
	ActualStart    *string    `json:"actual_start,omitempty"`
	ActualEnd      *string    `json:"actual_end,omitempty"`
	RateBasis      string     `json:"rate_basis,omitempty"`
	RateAmount     *string    `json:"rate_amount,omitempty"`
	PausePeriods   []PauseDTO `json:"pause_periods,omitempty"`
}

// PauseDTO is a billing pause on a line item.
type PauseDTO struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// FeeDTO is a flat charge on an order.
type FeeDTO struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Date   string `json:"date,omitempty"`
}

// =============================================================================
// MONTHLY CHARGES
// =============================================================================

// MonthlyChargesResponse is the month-by-month cost view of an order.
type MonthlyChargesResponse struct {
	OrderID        string          `json:"order_id"`
	Months         []MonthDTO      `json:"months"`
	LineItemsTotal string          `json:"line_items_total"`
	FeesTotal      string          `json:"fees_total"`
	GrandTotal     string          `json:"grand_total"`
	// BilledTotal applies the company's configured rounding policy,
	// where the month buckets show continuous proration.
	BilledTotal string   `json:"billed_total"`
	Warnings    []string `json:"warnings,omitempty"`
	OpenItems   int      `json:"open_items"`
}

// MonthDTO is one calendar month's bucket.
type MonthDTO struct {
	Key            string          `json:"key"`
	Label          string          `json:"label"`
	Items          []ItemChargeDTO `json:"items"`
	Fees           []FeeDTO        `json:"fees,omitempty"`
	LineItemsTotal string          `json:"line_items_total"`
	FeesTotal      string          `json:"fees_total"`
	Total          string          `json:"total"`
	Undated        bool            `json:"undated,omitempty"`
}

// ItemChargeDTO is one line item's contribution to a month.
type ItemChargeDTO struct {
	LineItemID string  `json:"line_item_id"`
	Label      string  `json:"label"`
	Units      float64 `json:"units"`
	RateBasis  string  `json:"rate_basis"`
	RateAmount string  `json:"rate_amount"`
	Quantity   int     `json:"quantity"`
	Amount     string  `json:"amount"`
}

// =============================================================================
// TIMELINE
// =============================================================================

// TimelineResponse is the dispatch timeline: one row per equipment unit
// (or per type for unassigned demand).
type TimelineResponse struct {
	Start time.Time `json:"start"`
	Days  int       `json:"days"`
	Rows  []RowDTO  `json:"rows"`
}

// RowDTO is one timeline row.
type RowDTO struct {
	Key       string   `json:"key"`
	LaneCount int      `json:"lane_count"`
	Bars      []BarDTO `json:"bars"`
}

// BarDTO is one positioned booking bar.
type BarDTO struct {
	AssignmentID  string    `json:"assignment_id"`
	LineItemID    string    `json:"line_item_id"`
	EquipmentID   *string   `json:"equipment_id,omitempty"`
	EquipmentType string    `json:"equipment_type"`
	DocumentLabel string    `json:"document_label"`
	CustomerName  string    `json:"customer_name"`
	Status        string    `json:"status"`
	Start         time.Time `json:"start_at"`
	End           time.Time `json:"end_at"`
	Lane          int       `json:"lane"`
	State         string    `json:"state"`
	Overdue       bool      `json:"overdue"`
	EndingSoon    bool      `json:"ending_soon"`
	Active        bool      `json:"active"`
	Bell          bool      `json:"bell"`
}

// =============================================================================
// MUTATIONS
// =============================================================================

// RescheduleRequest moves a line item's scheduled end.
type RescheduleRequest struct {
	EndAt time.Time `json:"end_at"`
}

// StampRequest records an actual pickup or return time. A zero At means
// "now" on the server clock.
type StampRequest struct {
	At time.Time `json:"at,omitempty"`
}

// ConflictResponse is the 409 body of a rejected reschedule.
type ConflictResponse struct {
	Error     string            `json:"error"`
	Conflicts []rental.Conflict `json:"conflicts"`
}

// =============================================================================
// SCENARIOS & ERRORS
// =============================================================================

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// DOMAIN -> DTO CONVERSIONS
// =============================================================================

func toOrderDTO(o rental.Order) OrderDTO {
	dto := OrderDTO{
		ID:            o.ID,
		DocumentLabel: o.DocumentLabel,
		CustomerName:  o.CustomerName,
		Status:        string(o.Status),
		LineItems:     make([]LineItemDTO, len(o.LineItems)),
	}
	for i, li := range o.LineItems {
		dto.LineItems[i] = toLineItemDTO(li)
	}
	for _, fee := range o.Fees {
		dto.Fees = append(dto.Fees, FeeDTO{Name: fee.Name, Amount: fee.Amount.String(), Date: fee.Date})
	}
	return dto
}

func toLineItemDTO(li rental.LineItem) LineItemDTO {
	dto := LineItemDTO{
		ID:           li.ID,
		TypeName:     li.TypeName,
		BundleID:     li.BundleID,
		BundleName:   li.BundleName,
		InventoryIDs: li.InventoryIDs,
		RateBasis:    string(li.RateBasis),
	}
	if dto.InventoryIDs == nil {
		dto.InventoryIDs = []string{}
	}
	if !li.ScheduledStart.IsZero() {
		dto.ScheduledStart = li.ScheduledStart.Format(time.RFC3339)
	}
	if !li.ScheduledEnd.IsZero() {
		dto.ScheduledEnd = li.ScheduledEnd.Format(time.RFC3339)
	}
	dto.ActualStart = formatTimePtr(li.ActualStart)
	dto.ActualEnd = formatTimePtr(li.ActualEnd)
	if li.RateAmount != nil {
		s := li.RateAmount.String()
		dto.RateAmount = &s
	}
	for _, p := range li.PausePeriods {
		pd := PauseDTO{Start: p.Start.Format(time.RFC3339)}
		pd.End = formatTimePtr(p.End)
		dto.PausePeriods = append(dto.PausePeriods, pd)
	}
	return dto
}

func toMonthlyChargesResponse(orderID string, b billing.Breakdown) MonthlyChargesResponse {
	resp := MonthlyChargesResponse{
		OrderID:        orderID,
		Months:         make([]MonthDTO, len(b.Months)),
		LineItemsTotal: b.LineItemsTotal.StringFixed(2),
		FeesTotal:      b.FeesTotal.StringFixed(2),
		GrandTotal:     b.GrandTotal.StringFixed(2),
		Warnings:       b.Warnings,
		OpenItems:      b.OpenItems,
	}
	for i, m := range b.Months {
		md := MonthDTO{
			Key:            m.Key,
			Label:          m.Label,
			Items:          make([]ItemChargeDTO, len(m.Items)),
			LineItemsTotal: m.LineItemsTotal.StringFixed(2),
			FeesTotal:      m.FeesTotal.StringFixed(2),
			Total:          m.Total.StringFixed(2),
			Undated:        m.Undated,
		}
		for j, item := range m.Items {
			md.Items[j] = ItemChargeDTO{
				LineItemID: item.LineItemID,
				Label:      item.Label,
				Units:      item.Units,
				RateBasis:  string(item.RateBasis),
				RateAmount: item.RateAmount.String(),
				Quantity:   item.Quantity,
				Amount:     item.Amount.StringFixed(2),
			}
		}
		for _, fee := range m.Fees {
			md.Fees = append(md.Fees, FeeDTO{Name: fee.Name, Amount: fee.Amount.StringFixed(2), Date: fee.Date})
		}
		resp.Months[i] = md
	}
	return resp
}

func toRowDTO(row schedule.Row) RowDTO {
	dto := RowDTO{Key: row.Key, LaneCount: row.LaneCount, Bars: make([]BarDTO, len(row.Bars))}
	for i, bar := range row.Bars {
		a := bar.Assignment
		dto.Bars[i] = BarDTO{
			AssignmentID:  a.ID,
			LineItemID:    a.LineItemID,
			EquipmentID:   a.EquipmentID,
			EquipmentType: a.EquipmentType,
			DocumentLabel: a.DocumentLabel,
			CustomerName:  a.CustomerName,
			Status:        string(a.Status),
			Start:         bar.Start,
			End:           bar.End,
			Lane:          bar.Lane,
			State:         string(bar.State.Tag),
			Overdue:       bar.State.IsOverdue,
			EndingSoon:    bar.State.IsEndingSoon,
			Active:        bar.State.IsActive,
			Bell:          bar.State.Bell,
		}
	}
	return dto
}

// =============================================================================
// DTO -> DOMAIN CONVERSIONS
// =============================================================================

func fromOrderDTO(dto OrderDTO) rental.Order {
	o := rental.Order{
		ID:            dto.ID,
		DocumentLabel: dto.DocumentLabel,
		CustomerName:  dto.CustomerName,
		Status:        rental.NormalizeOrderStatus(dto.Status),
	}
	for _, lid := range dto.LineItems {
		o.LineItems = append(o.LineItems, fromLineItemDTO(lid, o.ID))
	}
	for _, fd := range dto.Fees {
		amount, err := decimal.NewFromString(fd.Amount)
		if err != nil {
			continue
		}
		o.Fees = append(o.Fees, rental.Fee{Name: fd.Name, Amount: amount, Date: fd.Date})
	}
	return o
}

func fromLineItemDTO(dto LineItemDTO, orderID string) rental.LineItem {
	li := rental.LineItem{
		ID:           dto.ID,
		OrderID:      orderID,
		TypeName:     dto.TypeName,
		BundleID:     dto.BundleID,
		BundleName:   dto.BundleName,
		InventoryIDs: dto.InventoryIDs,
	}
	if b, ok := rental.NormalizeRateBasis(dto.RateBasis); ok {
		li.RateBasis = b
	}
	if dto.RateAmount != nil {
		if d, err := decimal.NewFromString(*dto.RateAmount); err == nil {
			li.RateAmount = &d
		}
	}
	li.ScheduledStart = parseTimeString(dto.ScheduledStart)
	li.ScheduledEnd = parseTimeString(dto.ScheduledEnd)
	li.ActualStart = parseTimePtr(dto.ActualStart)
	li.ActualEnd = parseTimePtr(dto.ActualEnd)
	for _, pd := range dto.PausePeriods {
		li.PausePeriods = append(li.PausePeriods, rental.PausePeriod{
			Start: parseTimeString(pd.Start),
			End:   parseTimePtr(pd.End),
		})
	}
	return li
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func parseTimeString(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}
