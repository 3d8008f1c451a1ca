/*
errors.go - Centralized error types for the rental domain

PURPOSE:
  All domain error types in one place. Engine packages degrade to nil/empty
  results for data-shape issues; these errors cover the store and API
  boundaries, where a caller must distinguish expected outcomes (a
  scheduling conflict) from failures (missing rows, bad input).

ERROR CATEGORIES:
  1. Not-found errors - Store lookups for missing rows
  2. Validation errors - Malformed input at the API boundary
  3. Conflict - A first-class, structured outcome of a reschedule attempt

USAGE:
  if errors.Is(err, rental.ErrConflict) {
      var ce *rental.ConflictError
      errors.As(err, &ce)
      // ce.Conflicts carries EVERY overlapping assignment
  }
*/
package rental

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrOrderNotFound is returned when a referenced rental order doesn't exist.
	ErrOrderNotFound = errors.New("rental order not found")

	// ErrLineItemNotFound is returned when a referenced line item doesn't exist.
	ErrLineItemNotFound = errors.New("line item not found")

	// ErrInvalidWindow is returned when a time window is malformed (end <= start).
	ErrInvalidWindow = errors.New("invalid window: end not after start")

	// ErrConflict is returned when a reschedule would overlap another booking
	// of the same equipment unit. Always wrapped by ConflictError.
	ErrConflict = errors.New("scheduling conflict")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// Conflict describes one booking that blocks a proposed reschedule.
type Conflict struct {
	EquipmentID   string    `json:"equipmentId"`
	DocumentLabel string    `json:"documentLabel"`
	Status        OrderStatus `json:"status"`
	CustomerName  string    `json:"customerName"`
	Start         time.Time `json:"startAt"`
	End           time.Time `json:"endAt"`
}

// ConflictError carries the FULL list of overlapping assignments, never just
// the first match, so the caller can show every blocker at once.
type ConflictError struct {
	LineItemID string
	Conflicts  []Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("reschedule blocked by %d overlapping booking(s)", len(e.Conflicts))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrLineItemNotFound)
}
