package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tutorhub/classbooking/internal/notify"
)

// ReminderService — периодические проходы: напоминания о скорых
// занятиях и перевод прошедших занятий в completed.
type ReminderService struct {
	bookingRepo BookingRepository
	notifier    notify.Notifier
	horizon     time.Duration
	logger      *zap.Logger
}

func NewReminderService(
	bookingRepo BookingRepository,
	notifier notify.Notifier,
	horizon time.Duration,
	logger *zap.Logger,
) *ReminderService {
	if horizon <= 0 {
		horizon = 24 * time.Hour
	}
	return &ReminderService{
		bookingRepo: bookingRepo,
		notifier:    notifier,
		horizon:     horizon,
		logger:      logger,
	}
}

// SweepReminders помечает и рассылает напоминания о занятиях,
// начинающихся в пределах горизонта. Флаг reminder_sent выставляется
// тем же запросом, который отбирает бронирования, поэтому каждое
// напоминание уходит не более одного раза даже при конкурентных проходах.
func (s *ReminderService) SweepReminders(ctx context.Context, now time.Time) (int, error) {
	bookings, err := s.bookingRepo.ClaimDueReminders(ctx, now, now.Add(s.horizon))
	if err != nil {
		return 0, fmt.Errorf("claim due reminders: %w", err)
	}

	for _, b := range bookings {
		msg := fmt.Sprintf("Напоминание: занятие по курсу «%s» начнётся %s",
			b.CourseTitle, b.StartTime.Format("02.01.2006 15:04"))
		link := fmt.Sprintf("/bookings/%d", b.ID)

		if err := s.notifier.Notify(ctx, b.StudentID, msg, link); err != nil {
			s.logger.Warn("Failed to deliver reminder",
				zap.Int64("booking_id", b.ID),
				zap.Int64("user_id", b.StudentID),
				zap.Error(err),
			)
		}
		if err := s.notifier.Notify(ctx, b.TeacherID, msg, link); err != nil {
			s.logger.Warn("Failed to deliver reminder",
				zap.Int64("booking_id", b.ID),
				zap.Int64("user_id", b.TeacherID),
				zap.Error(err),
			)
		}
	}

	if len(bookings) > 0 {
		s.logger.Info("Reminders sent",
			zap.Int("count", len(bookings)),
		)
	}

	return len(bookings), nil
}

// SweepCompleted переводит занятия с прошедшим временем окончания
// из confirmed в completed
func (s *ReminderService) SweepCompleted(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.bookingRepo.MarkCompleted(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("mark completed: %w", err)
	}

	if count > 0 {
		s.logger.Info("Bookings completed",
			zap.Int64("count", count),
		)
	}

	return count, nil
}
