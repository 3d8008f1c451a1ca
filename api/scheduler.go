/*
scheduler.go - Automated overdue sweep

PURPOSE:
  Periodically scans ordered bookings for overdue returns (past their
  scheduled end with no recorded return) and for returns due within the
  notification horizon, and logs them. The timeline derives the same
  states on demand; the sweep exists so operators see overdue equipment
  without anyone loading the dashboard.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Uses the same BarStateFor classification the timeline renders
  - A booking is reported once per state transition, not every tick

CONFIGURATION:
  - CheckInterval: How often to check (default: 15 minutes)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  sweep := NewOverdueScheduler(store, handler)
  sweep.Start()
  // ... later
  sweep.Stop()

SEE ALSO:
  - schedule/layout.go: BarStateFor
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/rentsoft/rental-engine/rental"
	"github.com/rentsoft/rental-engine/schedule"
)

// OverdueScheduler periodically reports overdue and soon-due bookings.
type OverdueScheduler struct {
	Store         rental.Store
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker   *time.Ticker
	stop     chan bool
	wg       sync.WaitGroup
	mu       sync.Mutex
	reported map[string]schedule.StateTag
}

// NewOverdueScheduler creates a new scheduler.
func NewOverdueScheduler(store rental.Store, handler *Handler) *OverdueScheduler {
	return &OverdueScheduler{
		Store:         store,
		Handler:       handler,
		CheckInterval: 15 * time.Minute,
		Enabled:       true,
		stop:          make(chan bool),
		reported:      make(map[string]schedule.StateTag),
	}
}

// Start begins the scheduler.
func (sw *OverdueScheduler) Start() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if !sw.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	sw.ticker = time.NewTicker(sw.CheckInterval)
	sw.wg.Add(1)

	go sw.run()

	log.Printf("[Scheduler] Started with check interval: %v", sw.CheckInterval)
}

// Stop stops the scheduler.
func (sw *OverdueScheduler) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.ticker != nil {
		sw.ticker.Stop()
		close(sw.stop)
		sw.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (sw *OverdueScheduler) run() {
	defer sw.wg.Done()

	// Run immediately on start
	sw.sweep()

	for {
		select {
		case <-sw.ticker.C:
			sw.sweep()
		case <-sw.stop:
			return
		}
	}
}

// sweep classifies every assignment and logs state transitions.
func (sw *OverdueScheduler) sweep() {
	ctx := context.Background()
	now := sw.Handler.Clock()

	assignments, err := sw.Store.ListAssignments(ctx)
	if err != nil {
		log.Printf("[Scheduler] Failed to load assignments: %v", err)
		return
	}

	settings := sw.Handler.settings(ctx)
	overdue, endingSoon := 0, 0

	sw.mu.Lock()
	defer sw.mu.Unlock()
	seen := make(map[string]bool, len(assignments))

	for _, a := range assignments {
		if !a.Valid() {
			continue
		}
		seen[a.ID] = true
		st := schedule.BarStateFor(a, now, settings.EndingSoonDays)

		switch st.Tag {
		case schedule.StateOverdue:
			overdue++
		case schedule.StateEndingSoon:
			endingSoon++
		}

		if sw.reported[a.ID] == st.Tag {
			continue
		}
		sw.reported[a.ID] = st.Tag

		switch st.Tag {
		case schedule.StateOverdue:
			log.Printf("[Scheduler] OVERDUE: %s (%s) for %s, due back %s",
				a.DocumentLabel, a.EquipmentType, a.CustomerName, a.End.Format(time.RFC3339))
		case schedule.StateEndingSoon:
			log.Printf("[Scheduler] Ending soon: %s (%s) for %s, due back %s",
				a.DocumentLabel, a.EquipmentType, a.CustomerName, a.End.Format(time.RFC3339))
		}
	}

	// Forget bookings that no longer exist so a re-created ID re-reports.
	for id := range sw.reported {
		if !seen[id] {
			delete(sw.reported, id)
		}
	}

	log.Printf("[Scheduler] Sweep complete: %d assignment(s), %d overdue, %d ending soon",
		len(assignments), overdue, endingSoon)
}
