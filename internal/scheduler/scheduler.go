// Package scheduler fires the daily blend and guards against overlapping
// cycles.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dailyblend/blender/internal/errors"
)

// State of the scheduler.
type State int

// Scheduler states.
const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Reporter receives operator-facing failure notices.
type Reporter interface {
	Alert(ctx context.Context, message string) error
}

// Scheduler runs job at every trigger firing. At most one job, scheduled or
// forced, runs at a time; firings that arrive while one is running are dropped.
type Scheduler struct {
	trigger  Trigger
	job      func(context.Context) error
	reporter Reporter
	logger   *slog.Logger
	now      func() time.Time

	running atomic.Bool

	mu     sync.Mutex
	next   time.Time
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scheduler. reporter may be nil.
func New(trigger Trigger, job func(context.Context) error, reporter Reporter, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		trigger:  trigger,
		job:      job,
		reporter: reporter,
		logger:   logger,
		now:      time.Now,
	}
}

// Start arms the trigger. Calling Start on a started scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)
	s.logger.Info("scheduler started", "trigger", s.trigger)
}

// Stop disarms the trigger and waits for the loop, including a cycle in
// progress, to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.mu.Lock()
	s.next = time.Time{}
	s.mu.Unlock()
	s.logger.Info("scheduler stopped")
}

// State reports whether a cycle is running.
func (s *Scheduler) State() State {
	if s.running.Load() {
		return Running
	}
	return Idle
}

// Running reports whether a cycle is running.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// NextFire returns the next armed firing, or zero when stopped.
func (s *Scheduler) NextFire() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Force runs job now on the caller's goroutine. It returns errors.ErrBusy
// without running job when a cycle is already in progress.
func (s *Scheduler) Force(ctx context.Context, job func(context.Context) error) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.ErrBusy
	}
	defer s.running.Store(false)

	err := job(ctx)
	if err != nil {
		s.report(ctx, "Forced blend failed", err)
	}
	return err
}

func (s *Scheduler) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	var last time.Time
	for {
		// A wall clock stepped back during the wait must not re-arm the
		// instant that just fired.
		from := s.now()
		if from.Before(last) {
			from = last
		}
		next := s.trigger.Next(from)
		s.mu.Lock()
		s.next = next
		s.mu.Unlock()

		s.logger.Debug("next blend armed", "at", next)
		timer := time.NewTimer(next.Sub(s.now()))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			last = next
			s.fire(ctx)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("missed tick, a blend is already running")
		return
	}
	defer s.running.Store(false)

	start := s.now()
	if err := s.job(ctx); err != nil {
		s.report(ctx, "Daily blend failed", err)
		return
	}
	s.logger.Info("daily blend completed", "duration", s.now().Sub(start))
}

func (s *Scheduler) report(ctx context.Context, prefix string, err error) {
	s.logger.Error(prefix, "error", err, "code", errors.CodeOf(err))
	if s.reporter == nil {
		return
	}

	msg := prefix + ": " + err.Error()
	if errors.CodeOf(err) == errors.CodeNothingToBlend {
		msg = "Nothing to blend today: the random pool is empty! Add levels with /randomblend."
	}

	// The cycle context may already be cancelled on shutdown.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.reporter.Alert(ctx, msg); err != nil {
		s.logger.Warn("failed to report blend failure", "error", err)
	}
}
