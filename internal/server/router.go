package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter собирает все маршруты HTTP API.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", HealthCheck)

	r.Route("/teachers/{teacherID}", func(r chi.Router) {
		r.Get("/availability", h.ListOpenSlots)
		r.Post("/availability", h.PublishAvailability)
		r.Post("/availability/recurring", h.PublishRecurring)
		r.Delete("/availability/batches/{batchID}", h.RemoveAvailabilityBatch)
		r.Get("/bookings", h.ListTeacherBookings)
	})

	r.Delete("/availability/{id}", h.RemoveAvailability)

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", h.Book)
		r.Post("/manual", h.ManualBook)
		r.Get("/{id}", h.GetBooking)
		r.Post("/{id}/cancel", h.CancelBooking)
		r.Post("/{id}/confirm", h.ConfirmBooking)
		r.Post("/{id}/decline", h.DeclineBooking)
		r.Post("/{id}/feedback", h.LeaveFeedback)
	})

	r.Get("/students/{studentID}/bookings", h.ListStudentBookings)

	return r
}
