package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tutorhub/classbooking/internal/model"
	"github.com/tutorhub/classbooking/internal/repository/base"
)

type BookingRepository struct {
	pool base.Querier
}

func NewBookingRepository(pool base.Querier) *BookingRepository {
	return &BookingRepository{pool: pool}
}

const bookingColumns = `id, student_id, student_name, teacher_id, course_id, course_title,
		start_time, end_time, status, feedback_rating, feedback_comment,
		cancellation_deadline, cancellation_reason, cancelled_by, reminder_sent,
		created_at, updated_at`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	var rating *int
	var comment *string

	err := row.Scan(
		&b.ID,
		&b.StudentID,
		&b.StudentName,
		&b.TeacherID,
		&b.CourseID,
		&b.CourseTitle,
		&b.StartTime,
		&b.EndTime,
		&b.Status,
		&rating,
		&comment,
		&b.CancellationDeadline,
		&b.CancellationReason,
		&b.CancelledBy,
		&b.ReminderSent,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rating != nil {
		fb := model.Feedback{Rating: *rating}
		if comment != nil {
			fb.Comment = *comment
		}
		b.Feedback = &fb
	}

	return &b, nil
}

// Create создаёт новое бронирование
func (r *BookingRepository) Create(ctx context.Context, q base.Querier, booking *model.Booking) error {
	query := `
		INSERT INTO bookings (student_id, student_name, teacher_id, course_id, course_title,
			start_time, end_time, status, cancellation_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(
		ctx, query,
		booking.StudentID,
		booking.StudentName,
		booking.TeacherID,
		booking.CourseID,
		booking.CourseTitle,
		booking.StartTime,
		booking.EndTime,
		booking.Status,
		booking.CancellationDeadline,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// ListByStudent получает все бронирования студента
func (r *BookingRepository) ListByStudent(ctx context.Context, studentID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE student_id = $1
		ORDER BY start_time DESC
	`

	return r.list(ctx, query, studentID)
}

// ListByTeacher получает все бронирования учителя
func (r *BookingRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE teacher_id = $1
		ORDER BY start_time DESC
	`

	return r.list(ctx, query, teacherID)
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, nil
}

// UpdateStatus обновляет статус бронирования вместе с данными об отмене.
// Переход применяется только из одного из статусов allowedFrom: проверка
// состояния встроена в сам UPDATE, поэтому конкурентная смена статуса
// между чтением записи и записью перехода даёт 0 затронутых строк
// (pgx.ErrNoRows), а не затирание терминального статуса.
func (r *BookingRepository) UpdateStatus(ctx context.Context, q base.Querier, id int64, status model.BookingStatus, reason *string, cancelledBy *int64, allowedFrom []model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, cancellation_reason = $2, cancelled_by = $3, updated_at = now()
		WHERE id = $4 AND status = ANY($5)
	`

	from := make([]string, len(allowedFrom))
	for i, st := range allowedFrom {
		from[i] = string(st)
	}

	result, err := q.Exec(ctx, query, status, reason, cancelledBy, id, from)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

// SetFeedback прикрепляет отзыв учителя к завершённому бронированию
func (r *BookingRepository) SetFeedback(ctx context.Context, id int64, rating int, comment string) error {
	query := `
		UPDATE bookings
		SET feedback_rating = $1, feedback_comment = $2, updated_at = now()
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, rating, comment, id)
	if err != nil {
		return fmt.Errorf("set feedback: %w", err)
	}

	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

// ExistsConfirmedAt проверяет есть ли у учителя подтверждённое
// бронирование на указанное время начала
func (r *BookingRepository) ExistsConfirmedAt(ctx context.Context, teacherID int64, start time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE teacher_id = $1 AND start_time = $2 AND status = 'confirmed'
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, teacherID, start).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check confirmed booking exists: %w", err)
	}

	return exists, nil
}

// MarkCompleted переводит подтверждённые бронирования с прошедшим
// временем окончания в completed, возвращает количество обновлённых
func (r *BookingRepository) MarkCompleted(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE bookings
		SET status = 'completed', updated_at = now()
		WHERE status = 'confirmed' AND end_time < $1
	`

	result, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("mark bookings completed: %w", err)
	}

	return result.RowsAffected(), nil
}

// ClaimDueReminders атомарно помечает напоминания отправленными и
// возвращает затронутые бронирования. Один UPDATE с RETURNING
// гарантирует, что при конкурентных проходах каждое бронирование
// достанется ровно одному из них.
func (r *BookingRepository) ClaimDueReminders(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	query := `
		UPDATE bookings
		SET reminder_sent = TRUE, updated_at = now()
		WHERE status = 'confirmed'
		  AND reminder_sent = FALSE
		  AND start_time >= $1
		  AND start_time < $2
		RETURNING ` + bookingColumns

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("claim due reminders: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, nil
}
