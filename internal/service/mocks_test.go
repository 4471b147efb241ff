package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/tutorhub/classbooking/internal/model"
	"github.com/tutorhub/classbooking/internal/repository/base"
)

// fakeTxRunner выполняет fn напрямую: границы транзакции в юнит-тестах
// не проверяются, проверяется состав записей внутри неё.
type fakeTxRunner struct{}

func (f *fakeTxRunner) InTx(ctx context.Context, fn func(q base.Querier) error) error {
	return fn(nil)
}

type mockAvailRepo struct {
	mock.Mock
}

func (m *mockAvailRepo) CreateBatch(ctx context.Context, q base.Querier, slots []*model.Availability) error {
	return m.Called(ctx, q, slots).Error(0)
}

func (m *mockAvailRepo) GetByID(ctx context.Context, id int64) (*model.Availability, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Availability), args.Error(1)
}

func (m *mockAvailRepo) ListOpen(ctx context.Context, teacherID int64, from time.Time) ([]*model.Availability, error) {
	args := m.Called(ctx, teacherID, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Availability), args.Error(1)
}

func (m *mockAvailRepo) ConsumeOpen(ctx context.Context, q base.Querier, id int64) (*model.Availability, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Availability), args.Error(1)
}

func (m *mockAvailRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAvailRepo) DeleteBatch(ctx context.Context, teacherID int64, batchID uuid.UUID) (int64, error) {
	args := m.Called(ctx, teacherID, batchID)
	return args.Get(0).(int64), args.Error(1)
}

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) Create(ctx context.Context, q base.Querier, booking *model.Booking) error {
	args := m.Called(ctx, q, booking)
	if args.Error(0) == nil {
		booking.ID = 100
	}
	return args.Error(0)
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *mockBookingRepo) ListByStudent(ctx context.Context, studentID int64) ([]*model.Booking, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Booking), args.Error(1)
}

func (m *mockBookingRepo) ListByTeacher(ctx context.Context, teacherID int64) ([]*model.Booking, error) {
	args := m.Called(ctx, teacherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Booking), args.Error(1)
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, q base.Querier, id int64, status model.BookingStatus, reason *string, cancelledBy *int64, allowedFrom []model.BookingStatus) error {
	return m.Called(ctx, q, id, status, reason, cancelledBy, allowedFrom).Error(0)
}

func (m *mockBookingRepo) SetFeedback(ctx context.Context, id int64, rating int, comment string) error {
	return m.Called(ctx, id, rating, comment).Error(0)
}

func (m *mockBookingRepo) ExistsConfirmedAt(ctx context.Context, teacherID int64, start time.Time) (bool, error) {
	args := m.Called(ctx, teacherID, start)
	return args.Bool(0), args.Error(1)
}

func (m *mockBookingRepo) MarkCompleted(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBookingRepo) ClaimDueReminders(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Booking), args.Error(1)
}

type mockCourseRepo struct {
	mock.Mock
}

func (m *mockCourseRepo) GetByID(ctx context.Context, id int64) (*model.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Course), args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID int64, message, link string) error {
	return m.Called(ctx, userID, message, link).Error(0)
}
