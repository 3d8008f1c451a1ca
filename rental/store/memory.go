// Package store provides rental.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rentsoft/rental-engine/rental"
	"github.com/rentsoft/rental-engine/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	orders   map[string]rental.Order
	settings string
}

func NewMemory() *Memory {
	return &Memory{orders: make(map[string]rental.Order)}
}

func (m *Memory) PutOrder(_ context.Context, o rental.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *Memory) LoadOrder(_ context.Context, id string) (rental.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orders[id]
	if !ok {
		return rental.Order{}, rental.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (m *Memory) ListOrders(_ context.Context) ([]rental.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]rental.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentLabel < out[j].DocumentLabel })
	return out, nil
}

func (m *Memory) LoadLineItem(_ context.Context, id string) (rental.Order, rental.LineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findLineItemLocked(id)
}

func (m *Memory) findLineItemLocked(id string) (rental.Order, rental.LineItem, error) {
	for _, o := range m.orders {
		if li, ok := o.FindLineItem(id); ok {
			return cloneOrder(o), li, nil
		}
	}
	return rental.Order{}, rental.LineItem{}, rental.ErrLineItemNotFound
}

// RescheduleLineItemEnd validates and commits under one lock hold, the
// in-memory equivalent of the single-transaction contract.
func (m *Memory) RescheduleLineItemEnd(_ context.Context, lineItemID string, newEnd time.Time) (rental.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, li, err := m.findLineItemLocked(lineItemID)
	if err != nil {
		return rental.LineItem{}, err
	}
	start := li.ScheduledStart
	if li.ActualStart != nil {
		start = *li.ActualStart
	}
	if !newEnd.After(start) {
		return rental.LineItem{}, rental.ErrInvalidWindow
	}

	if cerr := schedule.ValidateReschedule(lineItemID, newEnd, m.assignmentsLocked()); cerr != nil {
		return rental.LineItem{}, cerr
	}

	return m.mutateLineItemLocked(order.ID, lineItemID, func(li *rental.LineItem) error {
		li.ScheduledEnd = newEnd
		return nil
	})
}

func (m *Memory) RecordPickup(_ context.Context, lineItemID string, at time.Time) (rental.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, _, err := m.findLineItemLocked(lineItemID)
	if err != nil {
		return rental.LineItem{}, err
	}
	return m.mutateLineItemLocked(order.ID, lineItemID, func(li *rental.LineItem) error {
		if li.ActualStart != nil {
			return rental.ErrInvalidWindow
		}
		li.ActualStart = &at
		return nil
	})
}

func (m *Memory) RecordReturn(_ context.Context, lineItemID string, at time.Time) (rental.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, _, err := m.findLineItemLocked(lineItemID)
	if err != nil {
		return rental.LineItem{}, err
	}
	return m.mutateLineItemLocked(order.ID, lineItemID, func(li *rental.LineItem) error {
		if li.ActualStart == nil || at.Before(*li.ActualStart) {
			return rental.ErrInvalidWindow
		}
		li.ActualEnd = &at
		return nil
	})
}

func (m *Memory) ListAssignments(_ context.Context) ([]rental.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.assignmentsLocked(), nil
}

func (m *Memory) LoadSettings(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings, nil
}

func (m *Memory) SaveSettings(_ context.Context, doc string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = doc
	return nil
}

func (m *Memory) assignmentsLocked() []rental.Assignment {
	var out []rental.Assignment
	for _, o := range m.orders {
		out = append(out, o.Assignments()...)
	}
	return out
}

func (m *Memory) mutateLineItemLocked(orderID, lineItemID string, fn func(*rental.LineItem) error) (rental.LineItem, error) {
	o := m.orders[orderID]
	for i := range o.LineItems {
		if o.LineItems[i].ID != lineItemID {
			continue
		}
		if err := fn(&o.LineItems[i]); err != nil {
			return rental.LineItem{}, err
		}
		m.orders[orderID] = o
		return o.LineItems[i], nil
	}
	return rental.LineItem{}, rental.ErrLineItemNotFound
}

// cloneOrder deep-copies the slices so callers cannot mutate stored state.
func cloneOrder(o rental.Order) rental.Order {
	items := make([]rental.LineItem, len(o.LineItems))
	copy(items, o.LineItems)
	for i := range items {
		items[i].InventoryIDs = append([]string(nil), items[i].InventoryIDs...)
		items[i].PausePeriods = append([]rental.PausePeriod(nil), items[i].PausePeriods...)
	}
	o.LineItems = items
	o.Fees = append([]rental.Fee(nil), o.Fees...)
	return o
}
