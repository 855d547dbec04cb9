package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mhorbach/weather-reminder/internal/models"
	"gorm.io/gorm"
)

// Runner executes the notification pipeline for one subscription.
type Runner interface {
	Notify(ctx context.Context, subscriptionID uuid.UUID) error
}

// Scheduler keeps exactly one recurring task per live subscription, keyed by
// subscription ID. Create is an upsert and Remove tolerates a missing task, so
// callers never have to care whether a task already exists.
type Scheduler struct {
	db     *gorm.DB
	runner Runner
	clock  clockwork.Clock
	unit   time.Duration
	logger *slog.Logger

	tasks  map[uuid.UUID]*task
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

type task struct {
	interval time.Duration
	ticker   clockwork.Ticker
	cancel   context.CancelFunc
}

// New creates a Scheduler. unit is the duration one period step stands for
// (time.Hour in production; tests shrink it).
func New(db *gorm.DB, runner Runner, clock clockwork.Clock, unit time.Duration, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		db:     db,
		runner: runner,
		clock:  clock,
		unit:   unit,
		logger: logger,
		tasks:  make(map[uuid.UUID]*task),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers a task for every stored subscription.
func (s *Scheduler) Start() error {
	var subs []models.Subscription
	if err := s.db.Find(&subs).Error; err != nil {
		return err
	}

	for _, sub := range subs {
		s.Create(sub)
	}

	s.logger.Info("scheduler started", "tasks", len(subs))
	return nil
}

// Stop cancels all tasks.
func (s *Scheduler) Stop() {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tasks {
		t.ticker.Stop()
		t.cancel()
	}
	s.tasks = make(map[uuid.UUID]*task)
	s.logger.Info("scheduler stopped")
}

// Create registers a recurring task for the subscription, replacing any
// existing one.
func (s *Scheduler) Create(sub models.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tasks[sub.ID]; ok {
		existing.ticker.Stop()
		existing.cancel()
	}

	interval := time.Duration(sub.PeriodNotifications) * s.unit
	taskCtx, taskCancel := context.WithCancel(s.ctx)
	t := &task{
		interval: interval,
		ticker:   s.clock.NewTicker(interval),
		cancel:   taskCancel,
	}
	s.tasks[sub.ID] = t

	go s.run(taskCtx, sub.ID, t)

	s.logger.Info("task registered", "subscription_id", sub.ID, "period", sub.PeriodNotifications)
}

// Update re-registers the task with the subscription's current period.
func (s *Scheduler) Update(sub models.Subscription) {
	s.Create(sub)
}

// Remove stops and drops the subscription's task. No-op when absent.
func (s *Scheduler) Remove(subscriptionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[subscriptionID]
	if !ok {
		s.logger.Warn("no task to remove", "subscription_id", subscriptionID)
		return
	}

	t.ticker.Stop()
	t.cancel()
	delete(s.tasks, subscriptionID)
	s.logger.Info("task removed", "subscription_id", subscriptionID)
}

// TaskCount returns the number of live tasks.
func (s *Scheduler) TaskCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Interval returns the live task's interval for a subscription, if present.
func (s *Scheduler) Interval(subscriptionID uuid.UUID) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[subscriptionID]
	if !ok {
		return 0, false
	}
	return t.interval, true
}

func (s *Scheduler) run(ctx context.Context, subscriptionID uuid.UUID, t *task) {
	defer t.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.ticker.Chan():
			if err := s.runner.Notify(ctx, subscriptionID); err != nil {
				s.logger.Error("notification run failed", "subscription_id", subscriptionID, "error", err)
			}
		}
	}
}
