package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/classbooking/internal/model"
	"github.com/tutorhub/classbooking/internal/repository/base"
)

// Интерфейсы зависимостей сервисов. Реализации живут в repository
// и notify; тесты подставляют testify-моки.

type AvailabilityRepository interface {
	CreateBatch(ctx context.Context, q base.Querier, slots []*model.Availability) error
	GetByID(ctx context.Context, id int64) (*model.Availability, error)
	ListOpen(ctx context.Context, teacherID int64, from time.Time) ([]*model.Availability, error)
	ConsumeOpen(ctx context.Context, q base.Querier, id int64) (*model.Availability, error)
	Delete(ctx context.Context, id int64) error
	DeleteBatch(ctx context.Context, teacherID int64, batchID uuid.UUID) (int64, error)
}

type BookingRepository interface {
	Create(ctx context.Context, q base.Querier, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*model.Booking, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Booking, error)
	UpdateStatus(ctx context.Context, q base.Querier, id int64, status model.BookingStatus, reason *string, cancelledBy *int64, allowedFrom []model.BookingStatus) error
	SetFeedback(ctx context.Context, id int64, rating int, comment string) error
	ExistsConfirmedAt(ctx context.Context, teacherID int64, start time.Time) (bool, error)
	MarkCompleted(ctx context.Context, now time.Time) (int64, error)
	ClaimDueReminders(ctx context.Context, from, to time.Time) ([]*model.Booking, error)
}

type CourseRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Course, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// TxRunner выполняет функцию как одну атомарную единицу работы
// против хранилища.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q base.Querier) error) error
}
