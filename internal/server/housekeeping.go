// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jeranaias/questrun/internal/quest"
)

// ============================================================================
// HOUSEKEEPING SCHEDULER
// ============================================================================

// Housekeeping schedules (local time).
const (
	// pruneSchedule trims oversized history namespaces nightly.
	pruneSchedule = "0 3 * * *"

	// progressSchedule writes one progress summary line each morning.
	progressSchedule = "0 8 * * *"
)

// housekeeper runs the server's periodic maintenance jobs.
type housekeeper struct {
	srv *Server
	c   *cron.Cron
}

// newHousekeeper creates the scheduler with both jobs registered.
func newHousekeeper(srv *Server) *housekeeper {
	hk := &housekeeper{
		srv: srv,
		c:   cron.New(),
	}

	if _, err := hk.c.AddFunc(pruneSchedule, hk.pruneHistories); err != nil {
		log.Printf("HOUSEKEEPING_SETUP_FAILED | job=prune error=%v", err)
	}
	if _, err := hk.c.AddFunc(progressSchedule, hk.logProgress); err != nil {
		log.Printf("HOUSEKEEPING_SETUP_FAILED | job=progress error=%v", err)
	}

	return hk
}

// start begins running scheduled jobs.
func (hk *housekeeper) start() {
	hk.c.Start()
}

// stop halts the scheduler and waits for running jobs.
func (hk *housekeeper) stop() {
	ctx := hk.c.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		log.Printf("HOUSEKEEPING_STOP_TIMEOUT")
	}
}

// pruneHistories trims every namespace down to the configured cap.
func (hk *housekeeper) pruneHistories() {
	namespaces, err := hk.srv.histories.Namespaces()
	if err != nil {
		log.Printf("HISTORY_PRUNE_FAILED | error=%v", err)
		return
	}

	max := hk.srv.cfg.Storage.MaxHistories
	total := 0
	for _, ns := range namespaces {
		removed, err := hk.srv.histories.Prune(ns, max)
		if err != nil {
			log.Printf("HISTORY_PRUNE_FAILED | namespace=%s error=%v", ns, err)
			continue
		}
		total += removed
	}

	log.Printf("HISTORY_PRUNED | namespaces=%d removed=%d max=%d", len(namespaces), total, max)
}

// logProgress writes one summary line of the user's current standing.
func (hk *housekeeper) logProgress() {
	st, err := hk.srv.states.Load()
	if err != nil || st == nil {
		return
	}

	p := quest.CalculateProgress(st.Plans)
	log.Printf("DAILY_PROGRESS | points=%d rank=%s bonusDays=%d weeklyPct=%d day=%d",
		p.TotalPoints, p.Rank.Name, p.BonusDays, p.WeeklyPct,
		quest.TodayIndex(st.CreatedAt, time.Now())+1)
}
