/*
store.go - Persistence interface for orders, line items, and settings

PURPOSE:
  Defines the interface between the scheduling/billing logic and the
  database. Different implementations can use SQLite or in-memory
  storage.

ATOMIC RESCHEDULE CONTRACT:
  RescheduleLineItemEnd must run its conflict check and its write inside
  one database transaction. Two concurrent reschedules of bookings on the
  same physical unit must never both commit into an overlap; one of them
  has to observe the other's committed window and fail with a
  ConflictError listing every blocker.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - rental/store/memory.go: In-memory for testing

SEE ALSO:
  - order.go: The Order aggregate these methods persist
  - errors.go: ErrOrderNotFound, ErrLineItemNotFound, ConflictError
*/
package rental

import (
	"context"
	"time"
)

// =============================================================================
// STORE - Interface for order persistence
// =============================================================================

// Store handles persistence of rental orders and company settings.
type Store interface {
	// PutOrder inserts or replaces an order with its line items and fees.
	PutOrder(ctx context.Context, o Order) error

	// LoadOrder returns one order. ErrOrderNotFound if absent.
	LoadOrder(ctx context.Context, id string) (Order, error)

	// ListOrders returns all orders, sorted by document label.
	ListOrders(ctx context.Context) ([]Order, error)

	// LoadLineItem returns a line item together with its parent order.
	// ErrLineItemNotFound if absent.
	LoadLineItem(ctx context.Context, id string) (Order, LineItem, error)

	// RescheduleLineItemEnd moves a line item's scheduled end. The write
	// commits only if no booking of the same physical units overlaps the
	// widened window; otherwise a *ConflictError reports every blocker
	// and nothing changes.
	RescheduleLineItemEnd(ctx context.Context, lineItemID string, newEnd time.Time) (LineItem, error)

	// RecordPickup stamps the actual start. ErrInvalidWindow if the
	// item already has one.
	RecordPickup(ctx context.Context, lineItemID string, at time.Time) (LineItem, error)

	// RecordReturn stamps the actual end, closing the item for billing.
	// ErrInvalidWindow if it precedes the actual start or the item was
	// never picked up.
	RecordReturn(ctx context.Context, lineItemID string, at time.Time) (LineItem, error)

	// ListAssignments returns the derived timeline view of every order.
	ListAssignments(ctx context.Context) ([]Assignment, error)

	// LoadSettings returns the company settings JSON document, "" when
	// none has been saved yet.
	LoadSettings(ctx context.Context) (string, error)

	// SaveSettings replaces the company settings JSON document.
	SaveSettings(ctx context.Context, doc string) error
}
