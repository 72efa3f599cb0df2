// Package scheduler drives the decision loop on an adaptive cron cadence:
// cycles run more often when the risk picture worsens and back off when
// things are quiet.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/kyrou/warden/internal/config"
	"github.com/kyrou/warden/internal/orchestrator"
)

// CycleRunner executes one full decision cycle.
type CycleRunner func(ctx context.Context) (*orchestrator.ConsensusResult, error)

// Scheduler runs the decision cycle on a cron entry whose interval adapts
// between the configured bounds after every run.
type Scheduler struct {
	cron        *cron.Cron
	run         CycleRunner
	minInterval time.Duration
	maxInterval time.Duration
	log         zerolog.Logger

	mu       sync.Mutex
	current  time.Duration
	entryID  cron.EntryID
	inFlight bool
}

// New creates the scheduler. The first entry runs at the minimum interval
// so a fresh process reaches its first decision quickly.
func New(cfg config.SchedulerConfig, run CycleRunner, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		run:         run,
		minInterval: cfg.MinInterval,
		maxInterval: cfg.MaxInterval,
		current:     cfg.MinInterval,
		log:         log.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the cycle entry and starts the cron loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.scheduleLocked(s.current); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Dur("interval", s.current).Msg("Scheduler started")
	return nil
}

// Stop stops the cron loop and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// TriggerNow runs one cycle immediately, outside the schedule. Returns an
// error when a cycle is already in flight.
func (s *Scheduler) TriggerNow(ctx context.Context) (*orchestrator.ConsensusResult, error) {
	return s.runCycle(ctx)
}

// Interval returns the current cadence.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.minInterval)
	defer cancel()

	if _, err := s.runCycle(ctx); err != nil {
		s.log.Error().Err(err).Msg("Scheduled cycle failed")
	}
}

// runCycle executes one cycle, guards against overlap and adapts the
// cadence from the result.
func (s *Scheduler) runCycle(ctx context.Context) (*orchestrator.ConsensusResult, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, fmt.Errorf("a decision cycle is already running")
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	result, err := s.run(ctx)
	if err != nil {
		return nil, err
	}

	s.adapt(result)
	return result, nil
}

// adapt tightens the cadence when the cycle saw elevated risk and relaxes
// it while things stay calm. Medium risk keeps the current cadence.
func (s *Scheduler) adapt(result *orchestrator.ConsensusResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	switch result.RiskLevel {
	case "high", "critical", "emergency":
		next = s.current / 2
	case "low":
		next = s.current * 2
	}
	if result.VetoCount > 0 {
		next = s.minInterval
	}

	if next < s.minInterval {
		next = s.minInterval
	}
	if next > s.maxInterval {
		next = s.maxInterval
	}
	if next == s.current {
		return
	}

	s.current = next
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		if err := s.scheduleLocked(next); err != nil {
			s.log.Error().Err(err).Msg("Failed to reschedule cycle entry")
			return
		}
	}
	s.log.Info().Dur("interval", next).Msg("Cycle cadence adjusted")
}

func (s *Scheduler) scheduleLocked(interval time.Duration) error {
	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.tick)
	if err != nil {
		return fmt.Errorf("failed to register cycle entry: %w", err)
	}
	s.entryID = id
	return nil
}
