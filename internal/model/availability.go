package model

import (
	"time"

	"github.com/google/uuid"
)

// Availability — свободный часовой слот учителя.
// Запись существует только пока слот не забронирован: бронирование
// удаляет её в той же транзакции, в которой создаётся Booking.
type Availability struct {
	ID        int64     `json:"id"`
	TeacherID int64     `json:"teacher_id"`
	BatchID   uuid.UUID `json:"batch_id"` // идентификатор партии публикации
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}
