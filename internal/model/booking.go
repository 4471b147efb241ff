package model

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"   // Ожидает одобрения учителя
	BookingStatusConfirmed BookingStatus = "confirmed" // Подтверждено
	BookingStatusCompleted BookingStatus = "completed" // Завершено
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено
)

// CanTransitionTo проверяет допустимость перехода статуса.
// completed и cancelled — терминальные состояния.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusCancelled || next == BookingStatusCompleted
	default:
		return false
	}
}

// IsActive сообщает, занимает ли бронирование слот (ещё не завершено и не отменено).
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// Feedback — отзыв учителя после завершённого занятия.
type Feedback struct {
	Rating  int    `json:"rating"` // 1-5
	Comment string `json:"comment"`
}

// Booking связывает студента, учителя, курс и временной интервал.
// Запись никогда не удаляется — отмена только меняет статус.
type Booking struct {
	ID                   int64         `json:"id"`
	StudentID            int64         `json:"student_id"`
	StudentName          string        `json:"student_name"`
	TeacherID            int64         `json:"teacher_id"`
	CourseID             int64         `json:"course_id"`
	CourseTitle          string        `json:"course_title"`
	StartTime            time.Time     `json:"start_time"`
	EndTime              time.Time     `json:"end_time"`
	Status               BookingStatus `json:"status"`
	Feedback             *Feedback     `json:"feedback,omitempty"`
	CancellationDeadline *time.Time    `json:"cancellation_deadline,omitempty"`
	CancellationReason   *string       `json:"cancellation_reason,omitempty"`
	CancelledBy          *int64        `json:"cancelled_by,omitempty"`
	ReminderSent         bool          `json:"reminder_sent"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}
