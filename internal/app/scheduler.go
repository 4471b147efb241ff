package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tutorhub/classbooking/internal/service"
)

// Scheduler управляет фоновыми задачами: рассылкой напоминаний и
// переводом прошедших занятий в completed.
type Scheduler struct {
	reminders *service.ReminderService
	logger    *zap.Logger
	interval  time.Duration
	stopChan  chan struct{}
}

// NewScheduler создаёт новый планировщик
func NewScheduler(reminders *service.ReminderService, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Scheduler{
		reminders: reminders,
		logger:    logger,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")

	go s.runReminderTask(ctx)
	go s.runCompletionTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runReminderTask периодически рассылает напоминания о скорых занятиях
func (s *Scheduler) runReminderTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.sweepReminders(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepReminders(ctx)
		case <-s.stopChan:
			s.logger.Info("Reminder task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Reminder task cancelled")
			return
		}
	}
}

// runCompletionTask раз в час переводит прошедшие занятия в completed
func (s *Scheduler) runCompletionTask(ctx context.Context) {
	s.sweepCompleted(ctx)

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepCompleted(ctx)
		case <-s.stopChan:
			s.logger.Info("Completion task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Completion task cancelled")
			return
		}
	}
}

func (s *Scheduler) sweepReminders(ctx context.Context) {
	count, err := s.reminders.SweepReminders(ctx, time.Now())
	if err != nil {
		s.logger.Error("Failed to sweep reminders", zap.Error(err))
		return
	}

	if count > 0 {
		s.logger.Info("Reminder sweep completed", zap.Int("count", count))
	}
}

func (s *Scheduler) sweepCompleted(ctx context.Context) {
	count, err := s.reminders.SweepCompleted(ctx, time.Now())
	if err != nil {
		s.logger.Error("Failed to sweep completed bookings", zap.Error(err))
		return
	}

	if count > 0 {
		s.logger.Info("Completion sweep completed", zap.Int64("count", count))
	}
}
