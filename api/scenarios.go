/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario creates rental orders whose
	windows are positioned relative to "now", so the timeline always shows
	something interesting regardless of when it is loaded.

AVAILABLE SCENARIOS:

	construction-site: One customer, mixed daily/monthly items, a pause
	fleet-pressure:    One excavator booked back-to-back by two customers
	month-spanning:    Monthly billing across several calendar months

HOW SCENARIOS WORK:
 1. Build orders relative to the handler's clock
 2. PutOrder each (replacing any previous copy by ID)

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "fleet-pressure"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h, now)
 3. Add case to LoadScenario handler

SEE ALSO:
  - handlers.go: Order and timeline handlers serving this data
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rentsoft/rental-engine/rental"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "construction-site",
		Name:        "Construction Site",
		Description: "Mixed daily and monthly rentals for one site, with an on-hire pause",
		Category:    "billing",
	},
	{
		ID:          "fleet-pressure",
		Name:        "Fleet Pressure",
		Description: "One excavator booked back-to-back by two customers (reschedules will conflict)",
		Category:    "scheduling",
	},
	{
		ID:          "month-spanning",
		Name:        "Month Spanning",
		Description: "Monthly billing prorated across several calendar months",
		Category:    "billing",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario populates the store with a demo scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	now := h.Clock()
	var err error
	switch req.ScenarioID {
	case "construction-site":
		err = loadConstructionSiteScenario(ctx, h, now)
	case "fleet-pressure":
		err = loadFleetPressureScenario(ctx, h, now)
	case "month-spanning":
		err = loadMonthSpanningScenario(ctx, h, now)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// loadConstructionSiteScenario: one ordered document with a daily
// excavator (paused for a weekend) and a monthly scissor lift, plus fees.
func loadConstructionSiteScenario(ctx context.Context, h *Handler, now time.Time) error {
	start := now.AddDate(0, 0, -9).Truncate(24 * time.Hour)
	pauseStart := start.AddDate(0, 0, 4)
	pauseEnd := pauseStart.AddDate(0, 0, 2)

	return h.Store.PutOrder(ctx, rental.Order{
		ID:            "demo-site-1",
		DocumentLabel: "RO-2001",
		CustomerName:  "Harbor Construction",
		Status:        rental.StatusOrdered,
		LineItems: []rental.LineItem{
			{
				ID:             "demo-site-1-exc",
				OrderID:        "demo-site-1",
				TypeName:       "Excavator 14t",
				InventoryIDs:   []string{"exc-14t-01"},
				ScheduledStart: start,
				ScheduledEnd:   now.AddDate(0, 0, 5).Truncate(24 * time.Hour),
				RateBasis:      rental.BasisDaily,
				RateAmount:     money("420"),
				PausePeriods:   []rental.PausePeriod{{Start: pauseStart, End: &pauseEnd}},
			},
			{
				ID:             "demo-site-1-lift",
				OrderID:        "demo-site-1",
				TypeName:       "Scissor Lift 12m",
				InventoryIDs:   []string{"lift-12m-03"},
				ScheduledStart: start,
				ScheduledEnd:   start.AddDate(0, 2, 0),
				RateBasis:      rental.BasisMonthly,
				RateAmount:     money("1850"),
			},
		},
		Fees: []rental.Fee{
			{Name: "Delivery", Amount: decimal.NewFromInt(250), Date: start.Format("2006-01-02")},
			{Name: "Damage waiver", Amount: decimal.NewFromInt(120)},
		},
	})
}

// loadFleetPressureScenario: the same excavator booked by two customers
// with one free day between them. Extending the first booking by more
// than a day collides.
func loadFleetPressureScenario(ctx context.Context, h *Handler, now time.Time) error {
	first := now.AddDate(0, 0, -4).Truncate(24 * time.Hour)

	if err := h.Store.PutOrder(ctx, rental.Order{
		ID:            "demo-fleet-1",
		DocumentLabel: "RO-2101",
		CustomerName:  "Acme Paving",
		Status:        rental.StatusOrdered,
		LineItems: []rental.LineItem{{
			ID:             "demo-fleet-1-exc",
			OrderID:        "demo-fleet-1",
			TypeName:       "Excavator 22t",
			InventoryIDs:   []string{"exc-22t-07"},
			ScheduledStart: first,
			ScheduledEnd:   first.AddDate(0, 0, 6),
			RateBasis:      rental.BasisDaily,
			RateAmount:     money("580"),
		}},
	}); err != nil {
		return err
	}

	return h.Store.PutOrder(ctx, rental.Order{
		ID:            "demo-fleet-2",
		DocumentLabel: "RO-2102",
		CustomerName:  "Borealis Builders",
		Status:        rental.StatusReservation,
		LineItems: []rental.LineItem{{
			ID:             "demo-fleet-2-exc",
			OrderID:        "demo-fleet-2",
			TypeName:       "Excavator 22t",
			InventoryIDs:   []string{"exc-22t-07"},
			ScheduledStart: first.AddDate(0, 0, 7),
			ScheduledEnd:   first.AddDate(0, 0, 12),
			RateBasis:      rental.BasisDaily,
			RateAmount:     money("580"),
		}},
	})
}

// loadMonthSpanningScenario: a generator on monthly billing running from
// the 20th of last month into next month, showing three-way proration.
func loadMonthSpanningScenario(ctx context.Context, h *Handler, now time.Time) error {
	year, month, _ := now.UTC().Date()
	start := time.Date(year, month, 20, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)

	return h.Store.PutOrder(ctx, rental.Order{
		ID:            "demo-months-1",
		DocumentLabel: "RO-2201",
		CustomerName:  "Northfield Events",
		Status:        rental.StatusOrdered,
		LineItems: []rental.LineItem{{
			ID:             "demo-months-1-gen",
			OrderID:        "demo-months-1",
			TypeName:       "Generator 60kVA",
			InventoryIDs:   []string{"gen-60-02"},
			ScheduledStart: start,
			ScheduledEnd:   start.AddDate(0, 2, -10),
			RateBasis:      rental.BasisMonthly,
			RateAmount:     money("2400"),
		}},
		Fees: []rental.Fee{
			{Name: "Fuel service", Amount: decimal.NewFromInt(180), Date: start.Format("2006-01-02")},
		},
	})
}
