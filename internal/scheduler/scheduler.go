package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roundbuy/notification-api/internal/repository"
	"github.com/roundbuy/notification-api/internal/service/dispatch"
	"github.com/roundbuy/notification-api/pkg/logger"
	"github.com/roundbuy/notification-api/pkg/metrics"
)

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

type Config struct {
	Interval time.Duration
}

type Status struct {
	Started   bool       `json:"started"`
	State     State      `json:"state"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastCount int        `json:"last_count"`
}

// Scheduler polls for scheduled notifications whose time has arrived and
// dispatches them. A tick that fires while the previous run is still in
// flight is skipped rather than queued; the pending notifications are picked
// up by the next idle tick.
type Scheduler struct {
	notifRepo  repository.NotificationRepository
	dispatcher dispatch.Service
	interval   time.Duration
	logger     *logger.Logger
	metrics    *metrics.Metrics

	running atomic.Bool

	mu        sync.Mutex
	started   bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastRunAt *time.Time
	lastCount int
}

func New(notifRepo repository.NotificationRepository, dispatcher dispatch.Service, cfg Config, logger *logger.Logger, metrics *metrics.Metrics) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		notifRepo:  notifRepo,
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger,
		metrics:    metrics,
	}
}

// Start launches the tick loop. Calling Start on a started scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.started = true
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(runCtx)
	s.logger.Info("scheduler started", "interval", s.interval.String())
}

// Stop halts the loop and waits for an in-flight run to finish. Calling Stop
// on a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("scheduler stopped")
}

// TriggerNow runs one pass immediately, subject to the same overlap guard as
// ticks. Returns false when a run was already in flight.
func (s *Scheduler) TriggerNow(ctx context.Context) bool {
	return s.runOnce(ctx)
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := StateIdle
	if s.running.Load() {
		state = StateRunning
	}
	return Status{
		Started:   s.started,
		State:     state,
		LastRunAt: s.lastRunAt,
		LastCount: s.lastCount,
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce is the overlap gate: exactly one run at a time, others report a
// skip and return immediately.
func (s *Scheduler) runOnce(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.metrics.SchedulerTicks.WithLabelValues("skipped").Inc()
		s.logger.Info("scheduler tick skipped, previous run still in flight")
		return false
	}
	defer s.running.Store(false)

	s.processDue(ctx)
	return true
}

func (s *Scheduler) processDue(ctx context.Context) {
	now := time.Now().UTC()

	due, err := s.notifRepo.ListScheduledReady(ctx, now)
	if err != nil {
		s.metrics.SchedulerTicks.WithLabelValues("error").Inc()
		s.logger.Error(err, "failed to list due notifications")
		return
	}

	dispatched := 0
	for _, n := range due {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.dispatcher.Dispatch(ctx, n.ID); err != nil {
			// One bad notification never blocks the rest of the batch.
			s.logger.Error(err, "scheduled dispatch failed", "notification_id", n.ID.String())
			continue
		}
		dispatched++
	}

	s.mu.Lock()
	s.lastRunAt = &now
	s.lastCount = dispatched
	s.mu.Unlock()

	s.metrics.SchedulerTicks.WithLabelValues("success").Inc()
	if len(due) > 0 {
		s.logger.Info("scheduler run complete",
			"due", len(due),
			"dispatched", dispatched)
	}
}
