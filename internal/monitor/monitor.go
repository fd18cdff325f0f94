// Package monitor runs the stale-telemetry sweep: a periodic check for
// machines that report as online but have not sent a reading within the
// configured threshold. The sweep only raises notifications; it never
// mutates machine state, so is_online keeps its report-once semantics.
package monitor

import (
	"context"
	"fmt"
	"log"
	"time"

	"fleet-telemetry-backend/config"
	"fleet-telemetry-backend/internal/model"
	"fleet-telemetry-backend/internal/store"
)

// Dispatcher accepts alerts for asynchronous delivery.
type Dispatcher interface {
	Dispatch(machineID int64, message string)
}

// Service periodically scans for machines with stale telemetry.
type Service struct {
	cfg    *config.MonitorConfig
	store  store.Store
	alerts Dispatcher

	// notified tracks the last_update value each machine was already
	// reported at, so one silent machine does not alert every sweep.
	notified map[int64]int64
}

// NewService creates a stale-telemetry monitor.
func NewService(cfg *config.MonitorConfig, s store.Store, alerts Dispatcher) *Service {
	return &Service{
		cfg:      cfg,
		store:    s,
		alerts:   alerts,
		notified: make(map[int64]int64),
	}
}

// Run starts the sweep loop. It returns when ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("stale-telemetry monitor is disabled, not starting")
		return
	}
	log.Println("starting stale-telemetry monitor...")

	s.SweepOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("stale-telemetry monitor shutting down")
			return
		case <-timer.C:
			s.SweepOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// SweepOnce performs a single scan and dispatches an alert for each
// machine newly observed as stale.
func (s *Service) SweepOnce(ctx context.Context) {
	cutoff := time.Now().Unix() - s.cfg.StaleAfterSeconds

	stale, err := s.store.StaleMachines(ctx, cutoff)
	if err != nil {
		log.Printf("stale sweep failed: %v", err)
		return
	}

	for _, m := range stale {
		if s.notified[m.ID] == m.LastUpdate {
			continue
		}
		s.notified[m.ID] = m.LastUpdate
		log.Printf("machine %d (%s) has not reported since %d", m.ID, m.Name, m.LastUpdate)
		if s.alerts != nil {
			s.alerts.Dispatch(m.ID, staleMessage(m, s.cfg.StaleAfterSeconds))
		}
	}
}

func staleMessage(m model.Machine, threshold int64) string {
	return fmt.Sprintf("no telemetry received for over %s (last report %s)",
		(time.Duration(threshold) * time.Second).String(),
		time.Unix(m.LastUpdate, 0).UTC().Format(time.RFC3339))
}
