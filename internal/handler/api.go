package handler

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/EpicMandM/room-booking/internal/logger"
	"github.com/EpicMandM/room-booking/internal/models"
	"github.com/EpicMandM/room-booking/internal/reconciler"
	"github.com/EpicMandM/room-booking/internal/service"
	"github.com/go-chi/chi/v5"
)

// APIHandler serves the reconciled booking state over HTTP.
type APIHandler struct {
	rec    *reconciler.Reconciler
	logger *logger.Logger
}

func NewAPIHandler(rec *reconciler.Reconciler, log *logger.Logger) *APIHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &APIHandler{
		rec:    rec,
		logger: log,
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Loaded   bool   `json:"loaded"`
	Bookings int    `json:"bookings"`
	Error    string `json:"error,omitempty"`
}

// Health handles GET /health
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.rec.Status()
	resp := healthResponse{Status: "up", Loaded: st.Loaded, Bookings: st.Count}
	if st.LastError != nil {
		resp.Error = service.UserMessage(st.LastError, service.FallbackLoadMessage)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ListRooms handles GET /api/rooms
func (h *APIHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, models.Rooms)
}

// ListBookings handles GET /api/bookings
func (h *APIHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.rec.Bookings())
}

// GetDraft handles GET /api/draft
func (h *APIHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.rec.Draft())
}

// UpdateDraft handles PATCH /api/draft. The body maps field names to values.
// Either every field is applied or none is.
func (h *APIHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	check := h.rec.Draft()
	for _, name := range names {
		if err := check.Set(name, fields[name]); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	for _, name := range names {
		if err := h.rec.SetDraftField(name, fields[name]); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	h.writeJSON(w, http.StatusOK, h.rec.Draft())
}

// SubmitDraft handles POST /api/draft/submit
func (h *APIHandler) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.rec.Submit(r.Context()); err != nil {
		h.writeError(w, http.StatusBadGateway, service.UserMessage(err, service.FallbackSubmitMessage))
		return
	}
	h.writeJSON(w, http.StatusCreated, h.rec.Bookings())
}

// CancelBooking handles DELETE /api/bookings/{id}
func (h *APIHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseBookingID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.rec.Cancel(r.Context(), id); err != nil {
		h.writeError(w, http.StatusBadGateway, service.UserMessage(err, service.FallbackCancelMessage))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
