/*
Package sqlite provides a SQLite-backed implementation of rental.Store.

PURPOSE:
  Persists rental orders, line items, fees, and company settings using
  SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  orders:           Rental documents (status, customer, label)
  line_items:       Scheduled equipment lines of an order
  fees:             Flat charges attached to an order
  company_settings: Single-row JSON settings document

RESCHEDULE ATOMICITY:
  RescheduleLineItemEnd loads every assignment, runs the overlap check,
  and commits the new end inside ONE database transaction. Two
  concurrent reschedules of the same physical unit cannot both commit
  into an overlap: the second transaction sees the first's committed
  window and fails with a ConflictError.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/rental.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - rental/store.go: Interface definition
  - rental/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rentsoft/rental-engine/rental"
	"github.com/rentsoft/rental-engine/schedule"
)

// Store implements rental.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Rental documents
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		document_label TEXT NOT NULL,
		customer_name TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Equipment lines of an order
	CREATE TABLE IF NOT EXISTS line_items (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		type_name TEXT NOT NULL,
		bundle_id TEXT,
		bundle_name TEXT,
		inventory_ids_json TEXT NOT NULL DEFAULT '[]',
		scheduled_start TEXT,
		scheduled_end TEXT,
		actual_start TEXT,
		actual_end TEXT,
		rate_basis TEXT,
		rate_amount TEXT,
		pause_periods_json TEXT NOT NULL DEFAULT '[]'
	);

	CREATE INDEX IF NOT EXISTS idx_line_items_order
		ON line_items(order_id);

	-- Timeline queries scan by window
	CREATE INDEX IF NOT EXISTS idx_line_items_window
		ON line_items(scheduled_start, scheduled_end);

	-- Flat charges on an order
	CREATE TABLE IF NOT EXISTS fees (
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		amount TEXT NOT NULL,
		fee_date TEXT,
		PRIMARY KEY (order_id, position)
	);

	-- Single-row company settings document
	CREATE TABLE IF NOT EXISTS company_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		doc TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ORDERS
// =============================================================================

// PutOrder inserts or replaces an order with its line items and fees.
func (s *Store) PutOrder(ctx context.Context, o rental.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, document_label, customer_name, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_label = excluded.document_label,
			customer_name = excluded.customer_name,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, o.ID, o.DocumentLabel, o.CustomerName, string(o.Status), now, now)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM line_items WHERE order_id = ?", o.ID); err != nil {
		return fmt.Errorf("failed to clear line items: %w", err)
	}
	for i, li := range o.LineItems {
		if err := insertLineItem(ctx, tx, o.ID, i, li); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM fees WHERE order_id = ?", o.ID); err != nil {
		return fmt.Errorf("failed to clear fees: %w", err)
	}
	for i, fee := range o.Fees {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO fees (order_id, position, name, amount, fee_date)
			VALUES (?, ?, ?, ?, ?)
		`, o.ID, i, fee.Name, fee.Amount.String(), nullString(fee.Date))
		if err != nil {
			return fmt.Errorf("failed to save fee: %w", err)
		}
	}

	return tx.Commit()
}

func insertLineItem(ctx context.Context, tx *sql.Tx, orderID string, position int, li rental.LineItem) error {
	inventoryJSON, _ := json.Marshal(li.InventoryIDs)
	pausesJSON, _ := json.Marshal(pausesToJSON(li.PausePeriods))

	var rateAmount sql.NullString
	if li.RateAmount != nil {
		rateAmount = sql.NullString{String: li.RateAmount.String(), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO line_items
		(id, order_id, position, type_name, bundle_id, bundle_name, inventory_ids_json,
		 scheduled_start, scheduled_end, actual_start, actual_end,
		 rate_basis, rate_amount, pause_periods_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		li.ID,
		orderID,
		position,
		li.TypeName,
		nullString(li.BundleID),
		nullString(li.BundleName),
		string(inventoryJSON),
		nullTime(li.ScheduledStart),
		nullTime(li.ScheduledEnd),
		nullTimePtr(li.ActualStart),
		nullTimePtr(li.ActualEnd),
		nullString(string(li.RateBasis)),
		rateAmount,
		string(pausesJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save line item: %w", err)
	}
	return nil
}

// LoadOrder returns one order with its line items and fees.
func (s *Store) LoadOrder(ctx context.Context, id string) (rental.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadOrder(ctx, s.db, id)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) loadOrder(ctx context.Context, db querier, id string) (rental.Order, error) {
	var o rental.Order
	var status string
	err := db.QueryRowContext(ctx, `
		SELECT id, document_label, customer_name, status FROM orders WHERE id = ?
	`, id).Scan(&o.ID, &o.DocumentLabel, &o.CustomerName, &status)
	if err == sql.ErrNoRows {
		return rental.Order{}, rental.ErrOrderNotFound
	}
	if err != nil {
		return rental.Order{}, fmt.Errorf("failed to load order: %w", err)
	}
	o.Status = rental.NormalizeOrderStatus(status)

	if o.LineItems, err = s.queryLineItems(ctx, db,
		"SELECT "+lineItemColumns+" FROM line_items WHERE order_id = ? ORDER BY position", id); err != nil {
		return rental.Order{}, err
	}
	if o.Fees, err = s.queryFees(ctx, db, id); err != nil {
		return rental.Order{}, err
	}
	return o, nil
}

// ListOrders returns all orders, sorted by document label.
func (s *Store) ListOrders(ctx context.Context) ([]rental.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM orders ORDER BY document_label")
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orders := make([]rental.Order, 0, len(ids))
	for _, id := range ids {
		o, err := s.loadOrder(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// =============================================================================
// LINE ITEMS
// =============================================================================

const lineItemColumns = `id, order_id, type_name, bundle_id, bundle_name, inventory_ids_json,
	scheduled_start, scheduled_end, actual_start, actual_end, rate_basis, rate_amount, pause_periods_json`

// LoadLineItem returns a line item together with its parent order.
func (s *Store) LoadLineItem(ctx context.Context, id string) (rental.Order, rental.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLineItem(ctx, s.db, id)
}

func (s *Store) loadLineItem(ctx context.Context, db querier, id string) (rental.Order, rental.LineItem, error) {
	items, err := s.queryLineItems(ctx, db,
		"SELECT "+lineItemColumns+" FROM line_items WHERE id = ?", id)
	if err != nil {
		return rental.Order{}, rental.LineItem{}, err
	}
	if len(items) == 0 {
		return rental.Order{}, rental.LineItem{}, rental.ErrLineItemNotFound
	}

	order, err := s.loadOrder(ctx, db, items[0].OrderID)
	if err != nil {
		return rental.Order{}, rental.LineItem{}, err
	}
	return order, items[0], nil
}

// RescheduleLineItemEnd moves a line item's scheduled end after checking
// every booking of the same physical units, all inside one transaction.
func (s *Store) RescheduleLineItemEnd(ctx context.Context, lineItemID string, newEnd time.Time) (rental.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rental.LineItem{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, li, err := s.loadLineItem(ctx, tx, lineItemID)
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

	assignments, err := s.listAssignments(ctx, tx)
	if err != nil {
		return rental.LineItem{}, err
	}
	if cerr := schedule.ValidateReschedule(lineItemID, newEnd, assignments); cerr != nil {
		return rental.LineItem{}, cerr
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE line_items SET scheduled_end = ? WHERE id = ?",
		newEnd.UTC().Format(time.RFC3339Nano), lineItemID); err != nil {
		return rental.LineItem{}, fmt.Errorf("failed to update line item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return rental.LineItem{}, fmt.Errorf("failed to commit reschedule: %w", err)
	}

	li.ScheduledEnd = newEnd
	return li, nil
}

// RecordPickup stamps the actual start.
func (s *Store) RecordPickup(ctx context.Context, lineItemID string, at time.Time) (rental.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, li, err := s.loadLineItem(ctx, s.db, lineItemID)
	if err != nil {
		return rental.LineItem{}, err
	}
	if li.ActualStart != nil {
		return rental.LineItem{}, rental.ErrInvalidWindow
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE line_items SET actual_start = ? WHERE id = ?",
		at.UTC().Format(time.RFC3339Nano), lineItemID); err != nil {
		return rental.LineItem{}, fmt.Errorf("failed to record pickup: %w", err)
	}
	li.ActualStart = &at
	return li, nil
}

// RecordReturn stamps the actual end, closing the item for billing.
func (s *Store) RecordReturn(ctx context.Context, lineItemID string, at time.Time) (rental.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, li, err := s.loadLineItem(ctx, s.db, lineItemID)
	if err != nil {
		return rental.LineItem{}, err
	}
	if li.ActualStart == nil || at.Before(*li.ActualStart) {
		return rental.LineItem{}, rental.ErrInvalidWindow
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE line_items SET actual_end = ? WHERE id = ?",
		at.UTC().Format(time.RFC3339Nano), lineItemID); err != nil {
		return rental.LineItem{}, fmt.Errorf("failed to record return: %w", err)
	}
	li.ActualEnd = &at
	return li, nil
}

func (s *Store) queryFees(ctx context.Context, db querier, orderID string) ([]rental.Fee, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name, amount, fee_date FROM fees WHERE order_id = ? ORDER BY position", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fees: %w", err)
	}
	defer rows.Close()

	var fees []rental.Fee
	for rows.Next() {
		var fee rental.Fee
		var amount string
		var date sql.NullString
		if err := rows.Scan(&fee.Name, &amount, &date); err != nil {
			return nil, fmt.Errorf("failed to scan fee: %w", err)
		}
		fee.Amount, _ = decimal.NewFromString(amount)
		fee.Date = date.String
		fees = append(fees, fee)
	}
	return fees, rows.Err()
}

func (s *Store) queryLineItems(ctx context.Context, db querier, query string, args ...any) ([]rental.LineItem, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	var items []rental.LineItem
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

func scanLineItem(rows *sql.Rows) (rental.LineItem, error) {
	var (
		li             rental.LineItem
		bundleID       sql.NullString
		bundleName     sql.NullString
		inventoryJSON  string
		scheduledStart sql.NullString
		scheduledEnd   sql.NullString
		actualStart    sql.NullString
		actualEnd      sql.NullString
		rateBasis      sql.NullString
		rateAmount     sql.NullString
		pausesJSON     string
	)

	err := rows.Scan(
		&li.ID, &li.OrderID, &li.TypeName, &bundleID, &bundleName, &inventoryJSON,
		&scheduledStart, &scheduledEnd, &actualStart, &actualEnd,
		&rateBasis, &rateAmount, &pausesJSON,
	)
	if err != nil {
		return li, fmt.Errorf("failed to scan line item: %w", err)
	}

	li.BundleID = bundleID.String
	li.BundleName = bundleName.String
	json.Unmarshal([]byte(inventoryJSON), &li.InventoryIDs)
	li.ScheduledStart = parseTime(scheduledStart)
	li.ScheduledEnd = parseTime(scheduledEnd)
	li.ActualStart = parseTimePtr(actualStart)
	li.ActualEnd = parseTimePtr(actualEnd)
	if rateBasis.Valid {
		if b, ok := rental.NormalizeRateBasis(rateBasis.String); ok {
			li.RateBasis = b
		}
	}
	if rateAmount.Valid {
		if d, err := decimal.NewFromString(rateAmount.String); err == nil {
			li.RateAmount = &d
		}
	}

	var pauses []pauseJSON
	json.Unmarshal([]byte(pausesJSON), &pauses)
	li.PausePeriods = pausesFromJSON(pauses)

	return li, nil
}

// =============================================================================
// ASSIGNMENTS (derived timeline view)
// =============================================================================

// ListAssignments returns the derived timeline view of every order.
func (s *Store) ListAssignments(ctx context.Context) ([]rental.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAssignments(ctx, s.db)
}

func (s *Store) listAssignments(ctx context.Context, db querier) ([]rental.Assignment, error) {
	rows, err := db.QueryContext(ctx, "SELECT id FROM orders")
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []rental.Assignment
	for _, id := range ids {
		o, err := s.loadOrder(ctx, db, id)
		if err != nil {
			return nil, err
		}
		out = append(out, o.Assignments()...)
	}
	return out, nil
}

// =============================================================================
// COMPANY SETTINGS
// =============================================================================

// LoadSettings returns the company settings JSON document.
func (s *Store) LoadSettings(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM company_settings WHERE id = 1").Scan(&doc)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load settings: %w", err)
	}
	return doc, nil
}

// SaveSettings replaces the company settings JSON document.
func (s *Store) SaveSettings(ctx context.Context, doc string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO company_settings (id, doc, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
	`, doc, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// pauseJSON is the stored form of a pause period.
type pauseJSON struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

func pausesToJSON(pauses []rental.PausePeriod) []pauseJSON {
	out := make([]pauseJSON, 0, len(pauses))
	for _, p := range pauses {
		pj := pauseJSON{}
		if !p.Start.IsZero() {
			pj.Start = p.Start.UTC().Format(time.RFC3339Nano)
		}
		if p.End != nil {
			pj.End = p.End.UTC().Format(time.RFC3339Nano)
		}
		out = append(out, pj)
	}
	return out
}

func pausesFromJSON(pauses []pauseJSON) []rental.PausePeriod {
	var out []rental.PausePeriod
	for _, pj := range pauses {
		p := rental.PausePeriod{}
		if pj.Start != "" {
			p.Start, _ = time.Parse(time.RFC3339Nano, pj.Start)
		}
		if pj.End != "" {
			if t, err := time.Parse(time.RFC3339Nano, pj.End); err == nil {
				p.End = &t
			}
		}
		out = append(out, p)
	}
	return out
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func nullTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return nullTime(*t)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s.String)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}
