package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tutorhub/classbooking/internal/model"
	"github.com/tutorhub/classbooking/internal/schedule"
	"github.com/tutorhub/classbooking/internal/service"
)

// Handler переводит HTTP-запросы в вызовы сервисного слоя.
// Аутентификация живёт снаружи: личность вызывающего приходит
// в заголовке X-User-ID.
type Handler struct {
	availability *service.AvailabilityService
	bookings     *service.BookingService
	logger       *zap.Logger
}

func NewHandler(
	availability *service.AvailabilityService,
	bookings *service.BookingService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		availability: availability,
		bookings:     bookings,
		logger:       logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, service.ErrValidation):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrPermission):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrSlotUnavailable):
		// Штатная проигранная гонка: клиент должен перечитать слоты
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrInvalidState):
		status, msg = http.StatusConflict, err.Error()
	default:
		h.logger.Error("Request failed", zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func actorID(r *http.Request) (int64, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return 0, errors.New("missing X-User-ID header")
	}
	return strconv.ParseInt(raw, 10, 64)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

type timeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type publishRequest struct {
	Slots []timeRange `json:"slots"`
}

// PublishAvailability handles POST /teachers/{teacherID}/availability
func (h *Handler) PublishAvailability(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	teacherID, err := pathID(r, "teacherID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid teacher id"})
		return
	}

	var req publishRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	ranges := make([]schedule.Slot, 0, len(req.Slots))
	for _, s := range req.Slots {
		ranges = append(ranges, schedule.Slot{Start: s.Start, End: s.End})
	}

	batchID, err := h.availability.Publish(r.Context(), actor, teacherID, ranges)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"batch_id": batchID,
		"count":    len(ranges),
	})
}

type recurringRequest struct {
	DaysOfWeek  []int     `json:"days_of_week"` // 0 = Sunday, 6 = Saturday
	StartHour   int       `json:"start_hour"`
	StartMinute int       `json:"start_minute"`
	RangeStart  time.Time `json:"range_start"`
	RangeEnd    time.Time `json:"range_end"`
}

// PublishRecurring handles POST /teachers/{teacherID}/availability/recurring
func (h *Handler) PublishRecurring(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	teacherID, err := pathID(r, "teacherID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid teacher id"})
		return
	}

	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	days := make([]time.Weekday, 0, len(req.DaysOfWeek))
	for _, d := range req.DaysOfWeek {
		days = append(days, time.Weekday(d))
	}

	rule := schedule.Rule{
		DaysOfWeek:  days,
		StartHour:   req.StartHour,
		StartMinute: req.StartMinute,
		RangeStart:  req.RangeStart,
		RangeEnd:    req.RangeEnd,
	}

	batchID, count, err := h.availability.PublishRecurring(r.Context(), actor, teacherID, rule)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"batch_id": batchID,
		"count":    count,
	})
}

// ListOpenSlots handles GET /teachers/{teacherID}/availability
func (h *Handler) ListOpenSlots(w http.ResponseWriter, r *http.Request) {
	teacherID, err := pathID(r, "teacherID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid teacher id"})
		return
	}

	slots, err := h.availability.ListOpen(r.Context(), teacherID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if slots == nil {
		slots = []*model.Availability{}
	}

	writeJSON(w, http.StatusOK, slots)
}

// RemoveAvailability handles DELETE /availability/{id}
func (h *Handler) RemoveAvailability(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid availability id"})
		return
	}

	if err := h.availability.Remove(r.Context(), actor, id); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveAvailabilityBatch handles DELETE /teachers/{teacherID}/availability/batches/{batchID}
func (h *Handler) RemoveAvailabilityBatch(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	teacherID, err := pathID(r, "teacherID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid teacher id"})
		return
	}

	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid batch id"})
		return
	}

	removed, err := h.availability.RemoveBatch(r.Context(), actor, teacherID, batchID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

type bookRequest struct {
	CourseID       int64 `json:"course_id"`
	AvailabilityID int64 `json:"availability_id"`
}

// Book handles POST /bookings — прямой студенческий путь
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	studentID, err := actorID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	booking, err := h.bookings.Book(r.Context(), studentID, req.CourseID, req.AvailabilityID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

type manualBookRequest struct {
	StudentID            int64      `json:"student_id"`
	CourseID             int64      `json:"course_id"`
	StartTime            time.Time  `json:"start_time"`
	CancellationDeadline *time.Time `json:"cancellation_deadline,omitempty"`
}

// ManualBook handles POST /bookings/manual — административный обход
func (h *Handler) ManualBook(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	var req manualBookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	booking, err := h.bookings.ManualBook(r.Context(), actor, req.StudentID, req.CourseID, req.StartTime, req.CancellationDeadline)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// CancelBooking handles POST /bookings/{id}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid booking id"})
		return
	}

	var req reasonRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
	}

	booking, err := h.bookings.Cancel(r.Context(), id, actor, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// ConfirmBooking handles POST /bookings/{id}/confirm
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid booking id"})
		return
	}

	booking, err := h.bookings.Confirm(r.Context(), id, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// DeclineBooking handles POST /bookings/{id}/decline
func (h *Handler) DeclineBooking(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid booking id"})
		return
	}

	var req reasonRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
			return
		}
	}

	booking, err := h.bookings.Decline(r.Context(), id, actor, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

type feedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// LeaveFeedback handles POST /bookings/{id}/feedback
func (h *Handler) LeaveFeedback(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid booking id"})
		return
	}

	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	booking, err := h.bookings.LeaveFeedback(r.Context(), id, actor, req.Rating, req.Comment)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// GetBooking handles GET /bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid booking id"})
		return
	}

	booking, err := h.bookings.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

// ListStudentBookings handles GET /students/{studentID}/bookings
func (h *Handler) ListStudentBookings(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "studentID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid student id"})
		return
	}

	bookings, err := h.bookings.ListStudentBookings(r.Context(), studentID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if bookings == nil {
		bookings = []*model.Booking{}
	}

	writeJSON(w, http.StatusOK, bookings)
}

// ListTeacherBookings handles GET /teachers/{teacherID}/bookings
func (h *Handler) ListTeacherBookings(w http.ResponseWriter, r *http.Request) {
	teacherID, err := pathID(r, "teacherID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid teacher id"})
		return
	}

	bookings, err := h.bookings.ListTeacherBookings(r.Context(), teacherID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if bookings == nil {
		bookings = []*model.Booking{}
	}

	writeJSON(w, http.StatusOK, bookings)
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
