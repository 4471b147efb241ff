package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorhub/classbooking/internal/model"
	"github.com/tutorhub/classbooking/internal/notify"
	"github.com/tutorhub/classbooking/internal/repository/base"
	"github.com/tutorhub/classbooking/internal/schedule"
)

// DefaultCancellationWindow — запас до начала занятия, в пределах
// которого студент ещё может отменить бронирование, если явный
// дедлайн не сохранён.
const DefaultCancellationWindow = 24 * time.Hour

// BookingService — транзакционное ядро: атомарное превращение слота
// в бронирование и обратный путь при отмене.
type BookingService struct {
	tx          TxRunner
	availRepo   AvailabilityRepository
	bookingRepo BookingRepository
	courseRepo  CourseRepository
	userRepo    UserRepository
	notifier    notify.Notifier
	logger      *zap.Logger
	now         func() time.Time
}

func NewBookingService(
	tx TxRunner,
	availRepo AvailabilityRepository,
	bookingRepo BookingRepository,
	courseRepo CourseRepository,
	userRepo UserRepository,
	notifier notify.Notifier,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		tx:          tx,
		availRepo:   availRepo,
		bookingRepo: bookingRepo,
		courseRepo:  courseRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
}

// Book бронирует слот для студента. Потребление слота и создание
// бронирования выполняются в одной транзакции: частичное применение
// никогда не наблюдаемо. Проигранная гонка за слот возвращает
// ErrSlotUnavailable без автоматического повтора — вызывающий должен
// перечитать свежий список слотов.
func (s *BookingService) Book(ctx context.Context, studentID, courseID, availabilityID int64) (*model.Booking, error) {
	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, studentID)
	}

	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if course == nil {
		return nil, fmt.Errorf("%w: course %d", ErrNotFound, courseID)
	}

	if !course.HasStudent(studentID) {
		return nil, fmt.Errorf("%w: student is not enrolled in course", ErrPermission)
	}

	var booking *model.Booking
	err = s.tx.InTx(ctx, func(q base.Querier) error {
		slot, err := s.availRepo.ConsumeOpen(ctx, q, availabilityID)
		if err != nil {
			return fmt.Errorf("consume availability: %w", err)
		}

		if slot == nil {
			return fmt.Errorf("%w: availability %d", ErrSlotUnavailable, availabilityID)
		}

		if slot.TeacherID != course.TeacherID {
			return fmt.Errorf("%w: slot belongs to another teacher", ErrValidation)
		}

		if slot.StartTime.Before(s.now()) {
			return fmt.Errorf("%w: slot is in the past", ErrValidation)
		}

		status := model.BookingStatusConfirmed
		if course.RequiresApproval {
			status = model.BookingStatusPending
		}

		booking = &model.Booking{
			StudentID:   studentID,
			StudentName: student.Name,
			TeacherID:   slot.TeacherID,
			CourseID:    courseID,
			CourseTitle: course.Title,
			StartTime:   slot.StartTime,
			EndTime:     slot.EndTime,
			Status:      status,
		}

		return s.bookingRepo.Create(ctx, q, booking)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot booked",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("student_id", studentID),
		zap.Int64("availability_id", availabilityID),
		zap.String("status", string(booking.Status)),
	)

	when := booking.StartTime.Format("02.01.2006 15:04")
	s.notifyQuiet(ctx, booking.TeacherID,
		fmt.Sprintf("Новая запись: %s, курс «%s», %s", booking.StudentName, booking.CourseTitle, when),
		bookingLink(booking.ID))
	s.notifyQuiet(ctx, booking.StudentID,
		fmt.Sprintf("Вы записаны на курс «%s», %s", booking.CourseTitle, when),
		bookingLink(booking.ID))

	return booking, nil
}

// Cancel отменяет бронирование. Запись не удаляется — только статус.
// Если занятие ещё не началось, слот публикуется заново отдельной
// записью, чтобы его можно было перебронировать.
func (s *BookingService) Cancel(ctx context.Context, bookingID, actorID int64, reason string) (*model.Booking, error) {
	booking, actor, err := s.loadBookingAndActor(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}

	if !booking.Status.IsActive() {
		return nil, fmt.Errorf("%w: booking is already %s", ErrInvalidState, booking.Status)
	}

	if actorID != booking.StudentID && actorID != booking.TeacherID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only the student, the teacher or an admin may cancel", ErrPermission)
	}

	// Окно отмены действует только для студента; учитель и
	// администратор отменяют без ограничений по времени.
	if actorID == booking.StudentID && !actor.IsAdmin() {
		if err := s.checkCancellationWindow(booking); err != nil {
			return nil, err
		}
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	// Проверка IsActive выше сделана на чтении вне транзакции; сам
	// переход ограничен активными статусами внутри UPDATE, поэтому
	// конкурентная отмена не восстановит слот дважды.
	activeStatuses := []model.BookingStatus{model.BookingStatusPending, model.BookingStatusConfirmed}

	err = s.tx.InTx(ctx, func(q base.Querier) error {
		if err := s.bookingRepo.UpdateStatus(ctx, q, bookingID, model.BookingStatusCancelled, reasonPtr, &actorID, activeStatuses); err != nil {
			if base.IsNotFound(err) {
				return fmt.Errorf("%w: booking %d is no longer active", ErrInvalidState, bookingID)
			}
			return err
		}

		if booking.StartTime.After(s.now()) {
			restored := &model.Availability{
				TeacherID: booking.TeacherID,
				BatchID:   uuid.New(),
				StartTime: booking.StartTime,
				EndTime:   booking.EndTime,
			}
			if err := s.availRepo.CreateBatch(ctx, q, []*model.Availability{restored}); err != nil {
				return fmt.Errorf("restore availability: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	booking.Status = model.BookingStatusCancelled
	booking.CancellationReason = reasonPtr
	booking.CancelledBy = &actorID

	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", bookingID),
		zap.Int64("actor_id", actorID),
		zap.String("reason", reason),
	)

	msg := fmt.Sprintf("Занятие по курсу «%s» %s отменено", booking.CourseTitle,
		booking.StartTime.Format("02.01.2006 15:04"))
	if reason != "" {
		msg += ". Причина: " + reason
	}
	s.notifyQuiet(ctx, booking.StudentID, msg, bookingLink(bookingID))
	s.notifyQuiet(ctx, booking.TeacherID, msg, bookingLink(bookingID))

	return booking, nil
}

// Confirm подтверждает ожидающее бронирование
func (s *BookingService) Confirm(ctx context.Context, bookingID, actorID int64) (*model.Booking, error) {
	booking, actor, err := s.loadBookingAndActor(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}

	if actorID != booking.TeacherID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only the teacher or an admin may confirm", ErrPermission)
	}

	if !booking.Status.CanTransitionTo(model.BookingStatusConfirmed) {
		return nil, fmt.Errorf("%w: booking is %s, not pending", ErrInvalidState, booking.Status)
	}

	err = s.tx.InTx(ctx, func(q base.Querier) error {
		// Подтверждение допустимо только из pending: guard в UPDATE
		// защищает от гонки с конкурентной отменой.
		err := s.bookingRepo.UpdateStatus(ctx, q, bookingID, model.BookingStatusConfirmed, nil, nil,
			[]model.BookingStatus{model.BookingStatusPending})
		if base.IsNotFound(err) {
			return fmt.Errorf("%w: booking %d is no longer pending", ErrInvalidState, bookingID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	booking.Status = model.BookingStatusConfirmed

	s.logger.Info("Booking confirmed",
		zap.Int64("booking_id", bookingID),
		zap.Int64("actor_id", actorID),
	)

	s.notifyQuiet(ctx, booking.StudentID,
		fmt.Sprintf("Запись на курс «%s» %s подтверждена", booking.CourseTitle,
			booking.StartTime.Format("02.01.2006 15:04")),
		bookingLink(bookingID))

	return booking, nil
}

// Decline отклоняет ожидающее бронирование и возвращает слот в продажу
func (s *BookingService) Decline(ctx context.Context, bookingID, actorID int64, reason string) (*model.Booking, error) {
	booking, actor, err := s.loadBookingAndActor(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}

	if actorID != booking.TeacherID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only the teacher or an admin may decline", ErrPermission)
	}

	if booking.Status != model.BookingStatusPending {
		return nil, fmt.Errorf("%w: booking is %s, not pending", ErrInvalidState, booking.Status)
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	err = s.tx.InTx(ctx, func(q base.Querier) error {
		if err := s.bookingRepo.UpdateStatus(ctx, q, bookingID, model.BookingStatusCancelled, reasonPtr, &actorID,
			[]model.BookingStatus{model.BookingStatusPending}); err != nil {
			if base.IsNotFound(err) {
				return fmt.Errorf("%w: booking %d is no longer pending", ErrInvalidState, bookingID)
			}
			return err
		}

		if booking.StartTime.After(s.now()) {
			restored := &model.Availability{
				TeacherID: booking.TeacherID,
				BatchID:   uuid.New(),
				StartTime: booking.StartTime,
				EndTime:   booking.EndTime,
			}
			if err := s.availRepo.CreateBatch(ctx, q, []*model.Availability{restored}); err != nil {
				return fmt.Errorf("restore availability: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	booking.Status = model.BookingStatusCancelled
	booking.CancellationReason = reasonPtr
	booking.CancelledBy = &actorID

	s.logger.Info("Booking declined",
		zap.Int64("booking_id", bookingID),
		zap.Int64("actor_id", actorID),
	)

	msg := fmt.Sprintf("Запись на курс «%s» %s отклонена", booking.CourseTitle,
		booking.StartTime.Format("02.01.2006 15:04"))
	if reason != "" {
		msg += ". Причина: " + reason
	}
	s.notifyQuiet(ctx, booking.StudentID, msg, bookingLink(bookingID))

	return booking, nil
}

// ManualBook — административный обход: создаёт подтверждённое
// бронирование на произвольное время без публикации слота.
// Конфликт по времени не блокирует операцию, но попадает в лог.
func (s *BookingService) ManualBook(ctx context.Context, actorID, studentID, courseID int64, start time.Time, deadline *time.Time) (*model.Booking, error) {
	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("get actor: %w", err)
	}
	if actor == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, actorID)
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: manual booking is admin-only", ErrPermission)
	}

	student, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, studentID)
	}

	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	if course == nil {
		return nil, fmt.Errorf("%w: course %d", ErrNotFound, courseID)
	}

	if start.IsZero() {
		return nil, fmt.Errorf("%w: start time is required", ErrValidation)
	}

	conflict, err := s.bookingRepo.ExistsConfirmedAt(ctx, course.TeacherID, start)
	if err != nil {
		return nil, fmt.Errorf("check booking conflict: %w", err)
	}
	if conflict {
		s.logger.Warn("Manual booking overlaps an existing confirmed booking",
			zap.Int64("teacher_id", course.TeacherID),
			zap.Time("start_time", start),
		)
	}

	booking := &model.Booking{
		StudentID:            studentID,
		StudentName:          student.Name,
		TeacherID:            course.TeacherID,
		CourseID:             courseID,
		CourseTitle:          course.Title,
		StartTime:            start,
		EndTime:              start.Add(schedule.LessonDuration),
		Status:               model.BookingStatusConfirmed,
		CancellationDeadline: deadline,
	}

	err = s.tx.InTx(ctx, func(q base.Querier) error {
		return s.bookingRepo.Create(ctx, q, booking)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Manual booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("actor_id", actorID),
		zap.Int64("student_id", studentID),
		zap.Time("start_time", start),
	)

	when := start.Format("02.01.2006 15:04")
	s.notifyQuiet(ctx, studentID,
		fmt.Sprintf("Вы записаны на курс «%s», %s", course.Title, when),
		bookingLink(booking.ID))
	s.notifyQuiet(ctx, course.TeacherID,
		fmt.Sprintf("Новая запись: %s, курс «%s», %s", student.Name, course.Title, when),
		bookingLink(booking.ID))

	return booking, nil
}

// LeaveFeedback прикрепляет отзыв учителя к завершённому занятию
func (s *BookingService) LeaveFeedback(ctx context.Context, bookingID, actorID int64, rating int, comment string) (*model.Booking, error) {
	booking, actor, err := s.loadBookingAndActor(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}

	if actorID != booking.TeacherID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only the teacher or an admin may leave feedback", ErrPermission)
	}

	if booking.Status != model.BookingStatusCompleted {
		return nil, fmt.Errorf("%w: feedback is allowed only on completed bookings", ErrInvalidState)
	}

	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be in 1..5", ErrValidation)
	}

	if err := s.bookingRepo.SetFeedback(ctx, bookingID, rating, comment); err != nil {
		if base.IsNotFound(err) {
			return nil, fmt.Errorf("%w: booking %d", ErrNotFound, bookingID)
		}
		return nil, fmt.Errorf("set feedback: %w", err)
	}

	booking.Feedback = &model.Feedback{Rating: rating, Comment: comment}

	s.logger.Info("Feedback left",
		zap.Int64("booking_id", bookingID),
		zap.Int("rating", rating),
	)

	return booking, nil
}

// ListStudentBookings получает все бронирования студента
func (s *BookingService) ListStudentBookings(ctx context.Context, studentID int64) ([]*model.Booking, error) {
	return s.bookingRepo.ListByStudent(ctx, studentID)
}

// ListTeacherBookings получает все бронирования учителя
func (s *BookingService) ListTeacherBookings(ctx context.Context, teacherID int64) ([]*model.Booking, error) {
	return s.bookingRepo.ListByTeacher(ctx, teacherID)
}

// GetByID получает бронирование по ID
func (s *BookingService) GetByID(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %d", ErrNotFound, bookingID)
	}
	return booking, nil
}

// checkCancellationWindow применяет правило окна отмены для студента.
// Сохранённый дедлайн авторитетен; без него действует запас по умолчанию.
func (s *BookingService) checkCancellationWindow(booking *model.Booking) error {
	now := s.now()

	if booking.CancellationDeadline != nil {
		if !now.Before(*booking.CancellationDeadline) {
			return fmt.Errorf("%w: cancellation deadline has passed", ErrInvalidState)
		}
		return nil
	}

	if booking.StartTime.Sub(now) <= DefaultCancellationWindow {
		return fmt.Errorf("%w: less than %s before the class starts", ErrInvalidState, DefaultCancellationWindow)
	}

	return nil
}

func (s *BookingService) loadBookingAndActor(ctx context.Context, bookingID, actorID int64) (*model.Booking, *model.User, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, nil, fmt.Errorf("%w: booking %d", ErrNotFound, bookingID)
	}

	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return nil, nil, fmt.Errorf("get actor: %w", err)
	}
	if actor == nil {
		return nil, nil, fmt.Errorf("%w: user %d", ErrNotFound, actorID)
	}

	return booking, actor, nil
}

// notifyQuiet отправляет уведомление и подавляет ошибку доставки:
// сбой нотификации не должен провалить уже закоммиченную операцию.
func (s *BookingService) notifyQuiet(ctx context.Context, userID int64, message, link string) {
	if err := s.notifier.Notify(ctx, userID, message, link); err != nil {
		s.logger.Warn("Failed to deliver notification",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}

func bookingLink(id int64) string {
	return fmt.Sprintf("/bookings/%d", id)
}
