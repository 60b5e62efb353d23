package handler

import (
	"net/http"
	"time"

	"github.com/EpicMandM/room-booking/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes sets up the router with all endpoints.
func (h *APIHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", h.ListRooms)
		r.Get("/bookings", h.ListBookings)
		r.Delete("/bookings/{id}", h.CancelBooking)

		r.Get("/draft", h.GetDraft)
		r.Patch("/draft", h.UpdateDraft)
		r.Post("/draft/submit", h.SubmitDraft)
	})

	return r
}

func (h *APIHandler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("HTTP request",
			logger.F("METHOD", r.Method),
			logger.F("PATH", r.URL.Path),
			logger.Status(http.StatusText(ww.Status())),
			logger.F("CODE", ww.Status()),
			logger.F("REQUEST_ID", middleware.GetReqID(r.Context())),
			logger.F("DURATION_MS", time.Since(start).Milliseconds()))
	})
}
