/*
handlers.go - HTTP API handlers for the rental scheduling engine

PURPOSE:
  Exposes the scheduling and billing engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Orders:
    GET    /api/rental-orders                      List all orders
    POST   /api/rental-orders                      Create or replace an order
    GET    /api/rental-orders/{id}                 Get order details
    GET    /api/rental-orders/{id}/monthly-charges Month-by-month cost view

  Line items:
    PUT    /api/rental-orders/line-items/{id}/reschedule  Move scheduled end
    POST   /api/rental-orders/line-items/{id}/pickup      Record actual start
    POST   /api/rental-orders/line-items/{id}/return      Record actual end

  Timeline:
    GET    /api/timeline                           Dispatch timeline rows

  Settings:
    GET    /api/company-settings                   Current settings
    PUT    /api/company-settings                   Replace settings

  Scenarios:
    GET    /api/scenarios                          List demo scenarios
    POST   /api/scenarios/load                     Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Scheduling conflict, with EVERY blocker listed in the body
  - 500: Internal errors

CLOCK:
  "Now" flows through the Handler's Clock so tests pin it. Billing and
  bar states are pure functions of that instant.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentsoft/rental-engine/billing"
	"github.com/rentsoft/rental-engine/factory"
	"github.com/rentsoft/rental-engine/rental"
	"github.com/rentsoft/rental-engine/schedule"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   rental.Store
	Factory *factory.SettingsFactory

	// Clock supplies "now" for billing and timeline states.
	Clock func() time.Time

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store rental.Store) *Handler {
	return &Handler{
		Store:   store,
		Factory: factory.NewSettingsFactory(),
		Clock:   time.Now,
	}
}

// settings loads and parses company settings, falling back to defaults
// when none are stored or the stored document is unreadable.
func (h *Handler) settings(ctx context.Context) factory.Settings {
	doc, err := h.Store.LoadSettings(ctx)
	if err != nil || doc == "" {
		return factory.DefaultSettings()
	}
	s, err := h.Factory.ParseSettings(doc)
	if err != nil {
		return factory.DefaultSettings()
	}
	return s
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// ListOrders returns all orders.
// GET /api/rental-orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Store.ListOrders(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list orders", err)
		return
	}

	dtos := make([]OrderDTO, len(orders))
	for i, o := range orders {
		dtos[i] = toOrderDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOrder returns a single order.
// GET /api/rental-orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Store.LoadOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if rental.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Order not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// CreateOrder creates or replaces an order.
// POST /api/rental-orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var dto OrderDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	o := fromOrderDTO(dto)
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	for i := range o.LineItems {
		if o.LineItems[i].ID == "" {
			o.LineItems[i].ID = uuid.NewString()
		}
		o.LineItems[i].OrderID = o.ID
		if !o.LineItems[i].ScheduledStart.IsZero() && !o.LineItems[i].ScheduledEnd.After(o.LineItems[i].ScheduledStart) {
			writeError(w, http.StatusBadRequest, "Line item end must be after start", nil)
			return
		}
	}

	if err := h.Store.PutOrder(r.Context(), o); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save order", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(o))
}

// GetMonthlyCharges returns the month-by-month cost view of an order.
// The display uses continuous proration; billed_total applies the
// company's configured rounding.
// GET /api/rental-orders/{id}/monthly-charges
func (h *Handler) GetMonthlyCharges(w http.ResponseWriter, r *http.Request) {
	o, err := h.Store.LoadOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if rental.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Order not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load order", err)
		return
	}

	now := h.Clock()
	policy := h.settings(r.Context()).Policy
	breakdown := billing.ComputeMonthlyBreakdown(o.Status, o.LineItems, o.Fees, policy.Prorated(), now)

	resp := toMonthlyChargesResponse(o.ID, breakdown)
	resp.BilledTotal = billedTotal(o, policy, now).StringFixed(2)
	writeJSON(w, http.StatusOK, resp)
}

// billedTotal sums each line item's charge under the configured rounding
// policy, plus fees.
func billedTotal(o rental.Order, policy billing.Policy, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.LineItems {
		if charge := billing.ComputeLineCharge(li, o.Status, policy, now); charge != nil {
			total = total.Add(charge.Amount)
		}
	}
	for _, fee := range o.Fees {
		total = total.Add(fee.Amount)
	}
	return total
}

// =============================================================================
// LINE ITEM HANDLERS
// =============================================================================

// RescheduleLineItem moves a line item's scheduled end. The requested
// time snaps to the configured step before validation, matching the drag
// gesture on the timeline.
// PUT /api/rental-orders/line-items/{id}/reschedule
func (h *Handler) RescheduleLineItem(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EndAt.IsZero() {
		writeError(w, http.StatusBadRequest, "end_at is required", nil)
		return
	}

	settings := h.settings(r.Context())
	newEnd := schedule.RoundToStep(req.EndAt, time.Duration(settings.RescheduleStepMinutes)*time.Minute)

	li, err := h.Store.RescheduleLineItemEnd(r.Context(), chi.URLParam(r, "id"), newEnd)
	if err != nil {
		var cerr *rental.ConflictError
		switch {
		case errors.As(err, &cerr):
			writeJSON(w, http.StatusConflict, ConflictResponse{
				Error:     "Scheduling conflict",
				Conflicts: cerr.Conflicts,
			})
		case rental.IsNotFound(err):
			writeError(w, http.StatusNotFound, "Line item not found", nil)
		case errors.Is(err, rental.ErrInvalidWindow):
			writeError(w, http.StatusBadRequest, "End must be after start", nil)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to reschedule", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toLineItemDTO(li))
}

// RecordPickup stamps the actual start of a line item.
// POST /api/rental-orders/line-items/{id}/pickup
func (h *Handler) RecordPickup(w http.ResponseWriter, r *http.Request) {
	h.stamp(w, r, h.Store.RecordPickup, "Already picked up")
}

// RecordReturn stamps the actual end of a line item, closing it for
// billing.
// POST /api/rental-orders/line-items/{id}/return
func (h *Handler) RecordReturn(w http.ResponseWriter, r *http.Request) {
	h.stamp(w, r, h.Store.RecordReturn, "Return must follow pickup")
}

func (h *Handler) stamp(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, id string, at time.Time) (rental.LineItem, error), invalidMsg string) {

	var req StampRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	at := req.At
	if at.IsZero() {
		at = h.Clock()
	}

	li, err := op(r.Context(), chi.URLParam(r, "id"), at)
	if err != nil {
		switch {
		case rental.IsNotFound(err):
			writeError(w, http.StatusNotFound, "Line item not found", nil)
		case errors.Is(err, rental.ErrInvalidWindow):
			writeError(w, http.StatusBadRequest, invalidMsg, nil)
		default:
			writeError(w, http.StatusInternalServerError, "Failed to record time", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toLineItemDTO(li))
}

// =============================================================================
// TIMELINE HANDLER
// =============================================================================

// GetTimeline returns the dispatch timeline.
// GET /api/timeline?start=RFC3339&days=N
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	now := h.Clock()
	settings := h.settings(r.Context())

	window := schedule.Window{
		// Default: two days of history, two weeks ahead.
		Start: now.Truncate(24 * time.Hour).Add(-2 * 24 * time.Hour),
		Days:  14,
	}
	if raw := r.URL.Query().Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start time", err)
			return
		}
		window.Start = t
	}
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 366 {
			writeError(w, http.StatusBadRequest, "Invalid days", nil)
			return
		}
		window.Days = n
	}

	assignments, err := h.Store.ListAssignments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load assignments", err)
		return
	}

	rows := schedule.BuildRows(assignments, window, now, settings.EndingSoonDays)
	resp := TimelineResponse{Start: window.Start, Days: window.Days, Rows: make([]RowDTO, len(rows))}
	for i, row := range rows {
		resp.Rows[i] = toRowDTO(row)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the normalized company settings.
// GET /api/company-settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Factory.ToJSON(h.settings(r.Context())))
}

// PutSettings replaces the company settings. The stored document is the
// normalized form, so unknown values never persist.
// PUT /api/company-settings
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var sj factory.SettingsJSON
	if err := json.NewDecoder(r.Body).Decode(&sj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	normalized := h.Factory.ToJSON(h.Factory.FromJSON(sj))
	doc, err := json.Marshal(normalized)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode settings", err)
		return
	}
	if err := h.Store.SaveSettings(r.Context(), string(doc)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, normalized)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
