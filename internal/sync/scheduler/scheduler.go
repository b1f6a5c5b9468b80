// Package scheduler decides when each supplier is due for a scheduled sync
// and triggers it through the orchestrator. Ticks only enqueue runs; they
// never perform connector I/O.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/voyagedesk/inventory-sync/internal/inventory"
	"github.com/voyagedesk/inventory-sync/internal/logger"
	"github.com/voyagedesk/inventory-sync/internal/store"
)

const (
	// DefaultTickInterval is how often schedules are evaluated
	DefaultTickInterval = time.Minute

	// DefaultSlotTolerance is how long after a daily slot it may still fire
	DefaultSlotTolerance = 5 * time.Minute
)

// Starter starts a sync run for a supplier
type Starter interface {
	Start(ctx context.Context, supplierID string, trigger inventory.Trigger) (*inventory.SyncRun, error)
}

// Scheduler triggers scheduled runs and serializes schedule updates
type Scheduler struct {
	profiles  store.ProfileStore
	starter   Starter
	interval  time.Duration
	tolerance time.Duration
	now       func() time.Time

	// mu serializes ticks with schedule updates so a tick never writes back
	// a schedule that was replaced meanwhile
	mu sync.Mutex

	// Lifecycle management
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option configures the Scheduler
type Option func(*Scheduler)

// WithTickInterval sets how often schedules are evaluated
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSlotTolerance sets how long after a daily slot it may still fire
func WithSlotTolerance(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tolerance = d
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// New creates a Scheduler
func New(profiles store.ProfileStore, starter Starter, opts ...Option) *Scheduler {
	s := &Scheduler{
		profiles:  profiles,
		starter:   starter,
		interval:  DefaultTickInterval,
		tolerance: DefaultSlotTolerance,
		now:       time.Now,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	// a slot must survive at least one tick
	if s.tolerance < s.interval {
		s.tolerance = s.interval
	}
	return s
}

// Start runs the tick loop until ctx is cancelled or Stop is called
func (s *Scheduler) Start(ctx context.Context) error {
	logger.Infof("Starting sync scheduler (tick=%s, slotTolerance=%s)", s.interval, s.tolerance)

	loopCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelFunc = cancel
	s.mu.Unlock()
	defer func() {
		close(s.done)
		logger.Info("Sync scheduler shut down")
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(loopCtx, s.now())

	for {
		select {
		case <-ticker.C:
			s.Tick(loopCtx, s.now())
		case <-loopCtx.Done():
			return nil
		}
	}
}

// Stop ends the tick loop and waits for it to return
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel := s.cancelFunc
	s.mu.Unlock()

	if cancel != nil {
		logger.Info("Stopping sync scheduler")
		cancel()
		<-s.done
	}
	return nil
}

// Tick starts a scheduled run for every enabled supplier due at now and
// returns the suppliers it started
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		logger.Errorf("Scheduler failed to list profiles: %v", err)
		return nil
	}

	var started []string
	for _, p := range profiles {
		if !p.Enabled {
			continue
		}
		due, err := Due(p, now, s.tolerance)
		if err != nil {
			logger.Warnf("Supplier '%s': schedule is unusable: %v", p.SupplierID, err)
			continue
		}
		if !due {
			continue
		}

		run, err := s.starter.Start(ctx, p.SupplierID, inventory.TriggerScheduled)
		if errors.Is(err, inventory.ErrAlreadyRunning) {
			logger.Debugf("Supplier '%s': due but a run is in flight", p.SupplierID)
			continue
		}
		if err != nil {
			logger.Errorf("Supplier '%s': failed to start scheduled sync: %v", p.SupplierID, err)
			continue
		}

		triggered := now.UTC()
		p.LastTriggeredAt = &triggered
		if err := s.profiles.UpsertProfile(ctx, p); err != nil {
			logger.Errorf("Supplier '%s': failed to persist trigger time: %v", p.SupplierID, err)
		}
		logger.Infof("Supplier '%s': scheduled run %s started", p.SupplierID, run.ID)
		started = append(started, p.SupplierID)
	}
	return started
}

// TriggerManual starts an operator-requested run. It fails with
// inventory.ErrAlreadyRunning when the supplier has a run in flight.
func (s *Scheduler) TriggerManual(ctx context.Context, supplierID string) (*inventory.SyncRun, error) {
	return s.starter.Start(ctx, supplierID, inventory.TriggerManual)
}

// UpdateSchedule validates and replaces a supplier's schedule
func (s *Scheduler) UpdateSchedule(
	ctx context.Context, supplierID string, schedule inventory.Schedule,
) (*inventory.Profile, error) {
	if err := Validate(schedule); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.profiles.GetProfile(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("supplier %s: %w", supplierID, err)
	}
	profile.Schedule = schedule.Clone()
	profile.UpdatedAt = s.now().UTC()
	if err := s.profiles.UpsertProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save schedule of supplier %s: %w", supplierID, err)
	}

	logger.Infof("Supplier '%s': schedule updated to %s", supplierID, schedule.Frequency)
	return profile, nil
}
