package jobs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a scheduled unit of work. Errors are logged, never fatal:
// every task wired here is idempotent and safe to re-trigger.
type Task func(context.Context) error

type entry struct {
	name    string
	weekday *time.Weekday
	hour    int
	minute  int
	task    Task
}

// Scheduler fires registered tasks at fixed local wall-clock times,
// daily or on a specific weekday.
type Scheduler struct {
	logger  *zap.Logger
	entries []entry

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewScheduler constructs an empty scheduler.
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{logger: logger}
}

// Daily registers a task firing every day at the given HH:MM local time.
func (s *Scheduler) Daily(name, at string, task Task) error {
	hour, minute, err := parseClock(at)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{name: name, hour: hour, minute: minute, task: task})
	return nil
}

// Weekly registers a task firing on the given weekday at HH:MM local time.
func (s *Scheduler) Weekly(name string, day time.Weekday, at string, task Task) error {
	hour, minute, err := parseClock(at)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry{name: name, weekday: &day, hour: hour, minute: minute, task: task})
	return nil
}

// Start launches one goroutine per registered entry. Safe to call once.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	for _, e := range s.entries {
		s.wg.Add(1)
		go s.run(ctx, e)
	}
	s.started = true
	s.logger.Sugar().Infow("scheduler started", "entries", len(s.entries))
}

// Stop cancels all entries and waits for them to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Sugar().Infow("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, e entry) {
	defer s.wg.Done()
	for {
		wait := time.Until(nextRun(time.Now(), e))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		start := time.Now()
		if err := e.task(ctx); err != nil {
			s.logger.Sugar().Errorw("scheduled task failed", "task", e.name, "error", err)
		} else {
			s.logger.Sugar().Infow("scheduled task completed", "task", e.name, "duration", time.Since(start))
		}
	}
}

// nextRun computes the next wall-clock firing strictly after now.
func nextRun(now time.Time, e entry) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), e.hour, e.minute, 0, 0, now.Location())
	if e.weekday == nil {
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}

	delta := (int(*e.weekday) - int(now.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, delta)
	if !next.After(now) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func parseClock(at string) (int, int, error) {
	parts := strings.SplitN(at, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q, expected HH:MM", at)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", at)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", at)
	}
	return hour, minute, nil
}
