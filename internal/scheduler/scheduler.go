package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var secondsParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule is a parsed trigger: either a cron expression or a fixed interval.
type Schedule struct {
	Expr        string
	Every       time.Duration // non-zero for interval schedules
	WithSeconds bool          // six-field cron expression

	next cron.Schedule
}

// ParseSchedule accepts a five-field cron expression, a six-field one with a
// leading seconds field, a descriptor such as "@hourly", or a Go duration ("15m").
func ParseSchedule(expr string) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Schedule{}, fmt.Errorf("empty schedule")
	}

	if d, err := time.ParseDuration(expr); err == nil {
		if d <= 0 {
			return Schedule{}, fmt.Errorf("interval %q must be positive", expr)
		}
		return Schedule{Expr: expr, Every: d}, nil
	}

	s := Schedule{Expr: expr}
	var err error
	if len(strings.Fields(expr)) == 6 {
		s.WithSeconds = true
		s.next, err = secondsParser.Parse(expr)
	} else {
		s.next, err = cron.ParseStandard(expr)
	}
	if err != nil {
		return Schedule{}, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return s, nil
}

// Next returns the first activation after t.
func (s Schedule) Next(t time.Time) time.Time {
	if s.Every > 0 {
		return t.Add(s.Every)
	}
	return s.next.Next(t)
}

// Scheduler triggers a job on a Schedule. Activations that fire while the
// previous one is still running are skipped.
type Scheduler struct {
	scheduler *gocron.Scheduler
	schedule  Schedule
	job       func(ctx context.Context)
	logger    logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	running sync.WaitGroup
}

// New creates a new Scheduler. The job receives a context that is cancelled by Stop.
func New(schedule Schedule, job func(ctx context.Context), logger logrus.FieldLogger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		schedule:  schedule,
		job:       job,
		logger:    logger.WithField("component", "scheduler"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	var sched *gocron.Scheduler
	switch {
	case s.schedule.Every > 0:
		sched = s.scheduler.Every(s.schedule.Every).WaitForSchedule()
	case s.schedule.WithSeconds:
		sched = s.scheduler.CronWithSeconds(s.schedule.Expr)
	default:
		sched = s.scheduler.Cron(s.schedule.Expr)
	}

	_, err := sched.SingletonMode().Do(s.run)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", s.schedule.Expr, err)
	}

	s.scheduler.StartAsync()
	s.logger.WithFields(logrus.Fields{
		"schedule": s.schedule.Expr,
		"next_run": s.schedule.Next(time.Now().UTC()).Format(time.RFC3339),
	}).Info("scheduler started")
	return nil
}

func (s *Scheduler) run() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()

	defer func() {
		if p := recover(); p != nil {
			s.logger.WithField("panic", p).Error("scheduled job panicked")
		}
	}()
	s.job(s.ctx)
}

// Stop stops the scheduler, cancels the running job's context and waits for
// that job to return. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.running.Wait()
}
