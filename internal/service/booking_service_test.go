package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorhub/classbooking/internal/model"
)

type bookingFixture struct {
	svc         *BookingService
	availRepo   *mockAvailRepo
	bookingRepo *mockBookingRepo
	courseRepo  *mockCourseRepo
	userRepo    *mockUserRepo
	notifier    *mockNotifier
	now         time.Time
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	f := &bookingFixture{
		availRepo:   &mockAvailRepo{},
		bookingRepo: &mockBookingRepo{},
		courseRepo:  &mockCourseRepo{},
		userRepo:    &mockUserRepo{},
		notifier:    &mockNotifier{},
		now:         time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC),
	}

	f.svc = NewBookingService(
		&fakeTxRunner{},
		f.availRepo,
		f.bookingRepo,
		f.courseRepo,
		f.userRepo,
		f.notifier,
		zap.NewNop(),
	)
	f.svc.now = func() time.Time { return f.now }

	return f
}

func (f *bookingFixture) student() *model.User {
	return &model.User{ID: 1, Name: "Ivan Petrov", Role: model.RoleStudent}
}

func (f *bookingFixture) teacher() *model.User {
	return &model.User{ID: 2, Name: "Anna Smirnova", Role: model.RoleTeacher}
}

func (f *bookingFixture) admin() *model.User {
	return &model.User{ID: 3, Name: "Admin", Role: model.RoleAdmin}
}

func (f *bookingFixture) course() *model.Course {
	return &model.Course{
		ID:         10,
		Title:      "Алгебра",
		TeacherID:  2,
		StudentIDs: []int64{1},
	}
}

func (f *bookingFixture) slot(start time.Time) *model.Availability {
	return &model.Availability{
		ID:        50,
		TeacherID: 2,
		BatchID:   uuid.New(),
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}
}

func TestBook_Success(t *testing.T) {
	f := newBookingFixture(t)
	start := f.now.Add(48 * time.Hour)

	f.userRepo.On("GetByID", mock.Anything, int64(1)).Return(f.student(), nil)
	f.courseRepo.On("GetByID", mock.Anything, int64(10)).Return(f.course(), nil)
	f.availRepo.On("ConsumeOpen", mock.Anything, nil, int64(50)).Return(f.slot(start), nil)
	f.bookingRepo.On("Create", mock.Anything, nil, mock.AnythingOfType("*model.Booking")).Return(nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	booking, err := f.svc.Book(context.Background(), 1, 10, 50)
	require.NoError(t, err)

	assert.Equal(t, model.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, start, booking.StartTime)
	assert.Equal(t, start.Add(time.Hour), booking.EndTime)
	assert.Equal(t, "Ivan Petrov", booking.StudentName)
	assert.Equal(t, "Алгебра", booking.CourseTitle)
	assert.Equal(t, int64(2), booking.TeacherID)

	f.notifier.AssertNumberOfCalls(t, "Notify", 2)
}

func TestBook_SlotUnavailable(t *testing.T) {
	f := newBookingFixture(t)

	f.userRepo.On("GetByID", mock.Anything, int64(1)).Return(f.student(), nil)
	f.courseRepo.On("GetByID", mock.Anything, int64(10)).Return(f.course(), nil)
	// Слот уже потреблён конкурентным бронированием
	f.availRepo.On("ConsumeOpen", mock.Anything, nil, int64(50)).Return(nil, nil)

	_, err := f.svc.Book(context.Background(), 1, 10, 50)
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	f.bookingRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBook_StudentNotEnrolled(t *testing.T) {
	f := newBookingFixture(t)
	course := f.course()
	course.StudentIDs = []int64{99}

	f.userRepo.On("GetByID", mock.Anything, int64(1)).Return(f.student(), nil)
	f.courseRepo.On("GetByID", mock.Anything, int64(10)).Return(course, nil)

	_, err := f.svc.Book(context.Background(), 1, 10, 50)
	assert.ErrorIs(t, err, ErrPermission)

	f.availRepo.AssertNotCalled(t, "ConsumeOpen", mock.Anything, mock.Anything, mock.Anything)
}

func TestBook_CourseNotFound(t *testing.T) {
	f := newBookingFixture(t)

	f.userRepo.On("GetByID", mock.Anything, int64(1)).Return(f.student(), nil)
	f.courseRepo.On("GetByID", mock.Anything, int64(10)).Return(nil, nil)

	_, err := f.svc.Book(context.Background(), 1, 10, 50)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBook_PendingWhenCourseRequiresApproval(t *testing.T) {
	f := newBookingFixture(t)
	course := f.course()
	course.RequiresApproval = true
	start := f.now.Add(48 * time.Hour)

	f.userRepo.On("GetByID", mock.Anything, int64(1)).Return(f.student(), nil)
	f.courseRepo.On("GetByID", mock.Anything, int64(10)).Return(course, nil)
	f.availRepo.On("ConsumeOpen", mock.Anything, nil, int64(50)).Return(f.slot(start), nil)
	f.bookingRepo.On("Create", mock.Anything, nil, mock.AnythingOfType("*model.Booking")).Return(nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	booking, err := f.svc.Book(context.Background(), 1, 10, 50)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, booking.Status)
}

func TestBook_SlotBelongsToAnotherTeacher(t *testing.T) {
	f := newBookingFixture(t)
	slot := f.slot(f.now.Add(48 * time.Hour))
	slot.TeacherID = 77

	f.userRepo.On("GetByID", mock.Anything, int64(1)).Return(f.student(), nil)
	f.courseRepo.On("GetByID", mock.Anything, int64(10)).Return(f.course(), nil)
	f.availRepo.On("ConsumeOpen", mock.Anything, nil, int64(50)).Return(slot, nil)

	_, err := f.svc.Book(context.Background(), 1, 10, 50)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBook_NotificationFailureDoesNotFailBooking(t *testing.T) {
	f := newBookingFixture(t)
	start := f.now.Add(48 * time.Hour)

	f.userRepo.On("GetByID", mock.Anything, int64(1)).Return(f.student(), nil)
	f.courseRepo.On("GetByID", mock.Anything, int64(10)).Return(f.course(), nil)
	f.availRepo.On("ConsumeOpen", mock.Anything, nil, int64(50)).Return(f.slot(start), nil)
	f.bookingRepo.On("Create", mock.Anything, nil, mock.AnythingOfType("*model.Booking")).Return(nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	booking, err := f.svc.Book(context.Background(), 1, 10, 50)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, booking.Status)
}

func confirmedBooking(start time.Time) *model.Booking {
	return &model.Booking{
		ID:          100,
		StudentID:   1,
		StudentName: "Ivan Petrov",
		TeacherID:   2,
		CourseID:    10,
		CourseTitle: "Алгебра",
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
		Status:      model.BookingStatusConfirmed,
	}
}

func TestCancel_StudentOutsideWindow(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(25 * time.Hour))

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(1)).Return(f.student(), nil)
	f.bookingRepo.On("UpdateStatus", mock.Anything, nil, int64(100), model.BookingStatusCancelled,
		mock.Anything, mock.Anything,
		[]model.BookingStatus{model.BookingStatusPending, model.BookingStatusConfirmed}).Return(nil)
	f.availRepo.On("CreateBatch", mock.Anything, nil, mock.AnythingOfType("[]*model.Availability")).Return(nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	cancelled, err := f.svc.Cancel(context.Background(), 100, 1, "заболел")
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, "заболел", *cancelled.CancellationReason)

	// Будущий слот возвращается в продажу новой записью
	f.availRepo.AssertCalled(t, "CreateBatch", mock.Anything, nil, mock.MatchedBy(func(slots []*model.Availability) bool {
		return len(slots) == 1 &&
			slots[0].TeacherID == booking.TeacherID &&
			slots[0].StartTime.Equal(booking.StartTime) &&
			slots[0].EndTime.Equal(booking.EndTime)
	}))
}

func TestCancel_StudentInsideWindow(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(23 * time.Hour))

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(1)).Return(f.student(), nil)

	_, err := f.svc.Cancel(context.Background(), 100, 1, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	f.bookingRepo.AssertNotCalled(t, "UpdateStatus",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_StoredDeadlineIsAuthoritative(t *testing.T) {
	f := newBookingFixture(t)

	// Дедлайн прошёл, хотя до начала ещё 48 часов — отмена запрещена
	passed := f.now.Add(-time.Hour)
	booking := confirmedBooking(f.now.Add(48 * time.Hour))
	booking.CancellationDeadline = &passed

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(1)).Return(f.student(), nil)

	_, err := f.svc.Cancel(context.Background(), 100, 1, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	// Дедлайн впереди, хотя до начала меньше суток — отмена разрешена
	f2 := newBookingFixture(t)
	future := f2.now.Add(2 * time.Hour)
	booking2 := confirmedBooking(f2.now.Add(10 * time.Hour))
	booking2.CancellationDeadline = &future

	f2.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking2, nil)
	f2.userRepo.On("GetByID", mock.Anything, int64(1)).Return(f2.student(), nil)
	f2.bookingRepo.On("UpdateStatus", mock.Anything, nil, int64(100), model.BookingStatusCancelled,
		mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f2.availRepo.On("CreateBatch", mock.Anything, nil, mock.Anything).Return(nil)
	f2.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err = f2.svc.Cancel(context.Background(), 100, 1, "")
	assert.NoError(t, err)
}

func TestCancel_TeacherBypassesWindow(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(time.Hour))

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(2)).Return(f.teacher(), nil)
	f.bookingRepo.On("UpdateStatus", mock.Anything, nil, int64(100), model.BookingStatusCancelled,
		mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.availRepo.On("CreateBatch", mock.Anything, nil, mock.Anything).Return(nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Cancel(context.Background(), 100, 2, "форс-мажор")
	assert.NoError(t, err)
}

func TestCancel_PastBookingDoesNotRestoreSlot(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(-2 * time.Hour))

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(2)).Return(f.teacher(), nil)
	f.bookingRepo.On("UpdateStatus", mock.Anything, nil, int64(100), model.BookingStatusCancelled,
		mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Cancel(context.Background(), 100, 2, "")
	require.NoError(t, err)

	f.availRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_SecondCallIsInvalidState(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(48 * time.Hour))
	booking.Status = model.BookingStatusCancelled

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)

	_, err := f.svc.Cancel(context.Background(), 100, 1, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancel_ConcurrentStatusChangeDoesNotRestoreSlot(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(48 * time.Hour))

	// Запись прочитана как confirmed, но к моменту UPDATE статус уже
	// сменила конкурентная отмена: guard в UPDATE не находит строку
	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(2)).Return(f.teacher(), nil)
	f.bookingRepo.On("UpdateStatus", mock.Anything, nil, int64(100), model.BookingStatusCancelled,
		mock.Anything, mock.Anything,
		[]model.BookingStatus{model.BookingStatusPending, model.BookingStatusConfirmed}).Return(pgx.ErrNoRows)

	_, err := f.svc.Cancel(context.Background(), 100, 2, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	// Слот не публикуется заново вторым отменяющим
	f.availRepo.AssertNotCalled(t, "CreateBatch", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_CompletedIsInvalidState(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(-48 * time.Hour))
	booking.Status = model.BookingStatusCompleted

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)

	_, err := f.svc.Cancel(context.Background(), 100, 2, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancel_StrangerForbidden(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(48 * time.Hour))
	stranger := &model.User{ID: 42, Name: "Stranger", Role: model.RoleStudent}

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(42)).Return(stranger, nil)

	_, err := f.svc.Cancel(context.Background(), 100, 42, "")
	assert.ErrorIs(t, err, ErrPermission)
}

func TestCancel_NotFound(t *testing.T) {
	f := newBookingFixture(t)

	f.bookingRepo.On("GetByID", mock.Anything, int64(404)).Return(nil, nil)

	_, err := f.svc.Cancel(context.Background(), 404, 1, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirm_PendingBecomesConfirmed(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(48 * time.Hour))
	booking.Status = model.BookingStatusPending

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(2)).Return(f.teacher(), nil)
	f.bookingRepo.On("UpdateStatus", mock.Anything, nil, int64(100), model.BookingStatusConfirmed,
		(*string)(nil), (*int64)(nil),
		[]model.BookingStatus{model.BookingStatusPending}).Return(nil)
	f.notifier.On("Notify", mock.Anything, int64(1), mock.Anything, mock.Anything).Return(nil)

	confirmed, err := f.svc.Confirm(context.Background(), 100, 2)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, confirmed.Status)
}

func TestConfirm_AlreadyConfirmed(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(48 * time.Hour))

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(2)).Return(f.teacher(), nil)

	_, err := f.svc.Confirm(context.Background(), 100, 2)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirm_RacingCancelDoesNotRevive(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(48 * time.Hour))
	booking.Status = model.BookingStatusPending

	// Между чтением и UPDATE бронирование успели отклонить:
	// guard по pending не находит строку, cancelled остаётся терминальным
	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(2)).Return(f.teacher(), nil)
	f.bookingRepo.On("UpdateStatus", mock.Anything, nil, int64(100), model.BookingStatusConfirmed,
		(*string)(nil), (*int64)(nil),
		[]model.BookingStatus{model.BookingStatusPending}).Return(pgx.ErrNoRows)

	_, err := f.svc.Confirm(context.Background(), 100, 2)
	assert.ErrorIs(t, err, ErrInvalidState)

	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirm_StudentForbidden(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(48 * time.Hour))
	booking.Status = model.BookingStatusPending

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(1)).Return(f.student(), nil)

	_, err := f.svc.Confirm(context.Background(), 100, 1)
	assert.ErrorIs(t, err, ErrPermission)
}

func TestDecline_RestoresSlot(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(48 * time.Hour))
	booking.Status = model.BookingStatusPending

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(2)).Return(f.teacher(), nil)
	f.bookingRepo.On("UpdateStatus", mock.Anything, nil, int64(100), model.BookingStatusCancelled,
		mock.Anything, mock.Anything,
		[]model.BookingStatus{model.BookingStatusPending}).Return(nil)
	f.availRepo.On("CreateBatch", mock.Anything, nil, mock.Anything).Return(nil)
	f.notifier.On("Notify", mock.Anything, int64(1), mock.Anything, mock.Anything).Return(nil)

	declined, err := f.svc.Decline(context.Background(), 100, 2, "время занято")
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, declined.Status)

	f.availRepo.AssertCalled(t, "CreateBatch", mock.Anything, nil, mock.Anything)
}

func TestDecline_ConfirmedIsInvalidState(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(48 * time.Hour))

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(2)).Return(f.teacher(), nil)

	_, err := f.svc.Decline(context.Background(), 100, 2, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestManualBook_Success(t *testing.T) {
	f := newBookingFixture(t)
	start := f.now.Add(72 * time.Hour)

	f.userRepo.On("GetByID", mock.Anything, int64(3)).Return(f.admin(), nil)
	f.userRepo.On("GetByID", mock.Anything, int64(1)).Return(f.student(), nil)
	f.courseRepo.On("GetByID", mock.Anything, int64(10)).Return(f.course(), nil)
	f.bookingRepo.On("ExistsConfirmedAt", mock.Anything, int64(2), start).Return(false, nil)
	f.bookingRepo.On("Create", mock.Anything, nil, mock.AnythingOfType("*model.Booking")).Return(nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	booking, err := f.svc.ManualBook(context.Background(), 3, 1, 10, start, nil)
	require.NoError(t, err)

	assert.Equal(t, model.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, start, booking.StartTime)
	assert.Equal(t, start.Add(time.Hour), booking.EndTime)

	// Хранилище слотов не затрагивается вовсе
	f.availRepo.AssertNotCalled(t, "ConsumeOpen", mock.Anything, mock.Anything, mock.Anything)
	f.availRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestManualBook_AdminOnly(t *testing.T) {
	f := newBookingFixture(t)

	f.userRepo.On("GetByID", mock.Anything, int64(2)).Return(f.teacher(), nil)

	_, err := f.svc.ManualBook(context.Background(), 2, 1, 10, f.now.Add(time.Hour), nil)
	assert.ErrorIs(t, err, ErrPermission)
}

func TestManualBook_ConflictIsLoggedNotBlocked(t *testing.T) {
	f := newBookingFixture(t)
	start := f.now.Add(72 * time.Hour)

	f.userRepo.On("GetByID", mock.Anything, int64(3)).Return(f.admin(), nil)
	f.userRepo.On("GetByID", mock.Anything, int64(1)).Return(f.student(), nil)
	f.courseRepo.On("GetByID", mock.Anything, int64(10)).Return(f.course(), nil)
	f.bookingRepo.On("ExistsConfirmedAt", mock.Anything, int64(2), start).Return(true, nil)
	f.bookingRepo.On("Create", mock.Anything, nil, mock.AnythingOfType("*model.Booking")).Return(nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.ManualBook(context.Background(), 3, 1, 10, start, nil)
	assert.NoError(t, err)
}

func TestLeaveFeedback_Success(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(-48 * time.Hour))
	booking.Status = model.BookingStatusCompleted

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(2)).Return(f.teacher(), nil)
	f.bookingRepo.On("SetFeedback", mock.Anything, int64(100), 5, "отличная работа").Return(nil)

	updated, err := f.svc.LeaveFeedback(context.Background(), 100, 2, 5, "отличная работа")
	require.NoError(t, err)
	require.NotNil(t, updated.Feedback)
	assert.Equal(t, 5, updated.Feedback.Rating)
}

func TestLeaveFeedback_NotCompleted(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(48 * time.Hour))

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(2)).Return(f.teacher(), nil)

	_, err := f.svc.LeaveFeedback(context.Background(), 100, 2, 5, "")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestLeaveFeedback_RatingValidation(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(-48 * time.Hour))
	booking.Status = model.BookingStatusCompleted

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(2)).Return(f.teacher(), nil)

	_, err := f.svc.LeaveFeedback(context.Background(), 100, 2, 0, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.LeaveFeedback(context.Background(), 100, 2, 6, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLeaveFeedback_StudentForbidden(t *testing.T) {
	f := newBookingFixture(t)
	booking := confirmedBooking(f.now.Add(-48 * time.Hour))
	booking.Status = model.BookingStatusCompleted

	f.bookingRepo.On("GetByID", mock.Anything, int64(100)).Return(booking, nil)
	f.userRepo.On("GetByID", mock.Anything, int64(1)).Return(f.student(), nil)

	_, err := f.svc.LeaveFeedback(context.Background(), 100, 1, 5, "")
	assert.ErrorIs(t, err, ErrPermission)
}
