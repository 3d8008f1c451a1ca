/*
order.go - The rental order aggregate

PURPOSE:
  An Order is the document a customer signs: a status, a set of line
  items, and flat fees. It is the unit of persistence; line items never
  exist outside an order. Assignments for the dispatch timeline are
  derived views of line items, one per assigned physical unit.

SEE ALSO:
  - types.go: LineItem, Assignment, status enums
  - store.go: Persistence interface
*/
package rental

import "github.com/shopspring/decimal"

// Fee is a flat charge on an order, dated or not.
type Fee struct {
	Name   string
	Amount decimal.Decimal
	// Date is a date-only string (YYYY-MM-DD), empty for undated fees.
	Date string
}

// Order is a rental document with its line items and fees.
type Order struct {
	ID            string
	DocumentLabel string
	CustomerName  string
	Status        OrderStatus
	LineItems     []LineItem
	Fees          []Fee
}

// Assignments derives the timeline view of the order: one assignment per
// assigned physical unit of each line item, or a single unassigned one
// (grouped by type) for demand without units.
func (o Order) Assignments() []Assignment {
	var out []Assignment
	for _, li := range o.LineItems {
		base := Assignment{
			LineItemID:    li.ID,
			EquipmentType: li.TypeName,
			Start:         li.ScheduledStart,
			End:           li.ScheduledEnd,
			Status:        o.Status,
			DocumentLabel: o.DocumentLabel,
			CustomerName:  o.CustomerName,
			Quantity:      1,
		}
		if li.ActualStart != nil {
			base.Start = *li.ActualStart
		}
		if li.ActualEnd != nil {
			base.End = *li.ActualEnd
		}

		if len(li.InventoryIDs) == 0 {
			a := base
			a.ID = li.ID
			a.Quantity = li.Quantity(o.Status)
			out = append(out, a)
			continue
		}
		for _, unitID := range li.InventoryIDs {
			a := base
			unit := unitID
			a.ID = li.ID + ":" + unit
			a.EquipmentID = &unit
			out = append(out, a)
		}
	}
	return out
}

// FindLineItem returns the line item with the given ID, if present.
func (o Order) FindLineItem(id string) (LineItem, bool) {
	for _, li := range o.LineItems {
		if li.ID == id {
			return li, true
		}
	}
	return LineItem{}, false
}
