package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/EpicMandM/room-booking/internal/logger"
	"github.com/EpicMandM/room-booking/internal/models"
	"github.com/EpicMandM/room-booking/internal/reconciler"
	"github.com/EpicMandM/room-booking/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBookingAPI is a mock implementation of service.BookingAPI
type MockBookingAPI struct {
	mock.Mock
}

func (m *MockBookingAPI) ListBookings(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *MockBookingAPI) CreateBooking(ctx context.Context, d models.Draft) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockBookingAPI) CancelBooking(ctx context.Context, id models.BookingID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestHandler(t *testing.T, api *MockBookingAPI) (*reconciler.Reconciler, http.Handler) {
	t.Helper()
	rec := reconciler.New(api)
	return rec, NewAPIHandler(rec, nil).Routes()
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["error"]
}

func TestHealth(t *testing.T) {
	api := new(MockBookingAPI)
	api.On("ListBookings", mock.Anything).Return([]models.Booking{{ID: models.NumberID(1)}, {ID: models.NumberID(2)}}, nil)
	rec, h := newTestHandler(t, api)

	rr := serve(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"up","loaded":false,"bookings":0}`, rr.Body.String())

	require.NoError(t, rec.Load(context.Background()))
	rr = serve(t, h, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"up","loaded":true,"bookings":2}`, rr.Body.String())
}

func TestHealth_ReportsLoadError(t *testing.T) {
	api := new(MockBookingAPI)
	rec, h := newTestHandler(t, api)
	rec.RecordLoadError(errors.New("connection refused"))

	rr := serve(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), service.FallbackLoadMessage)
}

func TestListRooms(t *testing.T) {
	_, h := newTestHandler(t, new(MockBookingAPI))

	rr := serve(t, h, http.MethodGet, "/api/rooms", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var rooms []string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rooms))
	assert.Equal(t, models.Rooms, rooms)
}

func TestListBookings_ArrivalOrder(t *testing.T) {
	api := new(MockBookingAPI)
	api.On("ListBookings", mock.Anything).Return([]models.Booking{{ID: models.NumberID(1), RoomName: models.RoomAgni}}, nil)
	rec, h := newTestHandler(t, api)
	require.NoError(t, rec.Load(context.Background()))
	rec.ApplyAdded(models.Booking{ID: models.NumberID(7), RoomName: models.RoomVayu})

	rr := serve(t, h, http.MethodGet, "/api/bookings", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got []models.Booking
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, models.NumberID(1), got[0].ID)
	assert.Equal(t, models.NumberID(7), got[1].ID)
}

func TestListBookings_EmptyIsArray(t *testing.T) {
	_, h := newTestHandler(t, new(MockBookingAPI))
	rr := serve(t, h, http.MethodGet, "/api/bookings", "")
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestDraft_GetAndPatch(t *testing.T) {
	rec, h := newTestHandler(t, new(MockBookingAPI))

	rr := serve(t, h, http.MethodGet, "/api/draft", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"room_name":"Akasha"`)

	rr = serve(t, h, http.MethodPatch, "/api/draft", `{"room_name":"Vayu","user_name":"Asha","start_time":"10:00"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	d := rec.Draft()
	assert.Equal(t, models.RoomVayu, d.RoomName)
	assert.Equal(t, "Asha", d.UserName)
	assert.Equal(t, "10:00", d.StartTime)
}

func TestDraft_PatchRejectsBadFieldAtomically(t *testing.T) {
	rec, h := newTestHandler(t, new(MockBookingAPI))

	rr := serve(t, h, http.MethodPatch, "/api/draft", `{"user_name":"Asha","room_name":"Basement"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.NotEmpty(t, decodeError(t, rr))
	assert.Equal(t, models.NewDraft(), rec.Draft())
}

func TestDraft_PatchInvalidJSON(t *testing.T) {
	_, h := newTestHandler(t, new(MockBookingAPI))
	rr := serve(t, h, http.MethodPatch, "/api/draft", `{`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid JSON body", decodeError(t, rr))
}

func TestSubmitDraft_Success(t *testing.T) {
	api := new(MockBookingAPI)
	rec, h := newTestHandler(t, api)
	require.NoError(t, rec.SetDraftField(models.FieldUserName, "Asha"))

	want := models.NewDraft()
	want.UserName = "Asha"
	api.On("CreateBooking", mock.Anything, want).Return(nil)
	api.On("ListBookings", mock.Anything).Return([]models.Booking{{ID: models.NumberID(3), UserName: "Asha", RoomName: models.RoomAkasha}}, nil)

	rr := serve(t, h, http.MethodPost, "/api/draft/submit", "")
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Contains(t, rr.Body.String(), `"user_name":"Asha"`)
	assert.Equal(t, models.NewDraft(), rec.Draft())
	api.AssertExpectations(t)
}

func TestSubmitDraft_ServiceMessage(t *testing.T) {
	api := new(MockBookingAPI)
	api.On("CreateBooking", mock.Anything, mock.AnythingOfType("models.Draft")).
		Return(&service.APIError{StatusCode: http.StatusConflict, Message: "Room already booked for this slot"})
	rec, h := newTestHandler(t, api)
	require.NoError(t, rec.SetDraftField(models.FieldPurpose, "standup"))

	rr := serve(t, h, http.MethodPost, "/api/draft/submit", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "Room already booked for this slot", decodeError(t, rr))
	assert.Equal(t, "standup", rec.Draft().Purpose)
	api.AssertNotCalled(t, "ListBookings", mock.Anything)
}

func TestSubmitDraft_Fallback(t *testing.T) {
	api := new(MockBookingAPI)
	api.On("CreateBooking", mock.Anything, mock.Anything).Return(errors.New("dial tcp: refused"))
	_, h := newTestHandler(t, api)

	rr := serve(t, h, http.MethodPost, "/api/draft/submit", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, service.FallbackSubmitMessage, decodeError(t, rr))
}

func TestCancelBooking(t *testing.T) {
	api := new(MockBookingAPI)
	api.On("ListBookings", mock.Anything).Return([]models.Booking{{ID: models.NumberID(5)}}, nil)
	api.On("CancelBooking", mock.Anything, models.NumberID(5)).Return(nil)
	rec, h := newTestHandler(t, api)
	require.NoError(t, rec.Load(context.Background()))

	rr := serve(t, h, http.MethodDelete, "/api/bookings/5", "")
	assert.Equal(t, http.StatusAccepted, rr.Code)
	// Removal waits for the push event.
	assert.Len(t, rec.Bookings(), 1)
	api.AssertExpectations(t)
}

func TestCancelBooking_StringIDKeepsIssuedForm(t *testing.T) {
	api := new(MockBookingAPI)
	api.On("ListBookings", mock.Anything).Return([]models.Booking{{ID: models.TextID("007")}}, nil)
	api.On("CancelBooking", mock.Anything, models.TextID("007")).Return(nil)
	rec, h := newTestHandler(t, api)
	require.NoError(t, rec.Load(context.Background()))

	rr := serve(t, h, http.MethodDelete, "/api/bookings/007", "")
	assert.Equal(t, http.StatusAccepted, rr.Code)
	api.AssertExpectations(t)
}

func TestCancelBooking_Failure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"service message", &service.APIError{StatusCode: http.StatusNotFound, Message: "Booking not found"}, "Booking not found"},
		{"fallback", errors.New("timeout"), service.FallbackCancelMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(MockBookingAPI)
			api.On("CancelBooking", mock.Anything, models.TextID("9")).Return(tt.err)
			_, h := newTestHandler(t, api)

			rr := serve(t, h, http.MethodDelete, "/api/bookings/9", "")
			assert.Equal(t, http.StatusBadGateway, rr.Code)
			assert.Equal(t, tt.want, decodeError(t, rr))
		})
	}
}

func TestFailedActionsLoggedOnce(t *testing.T) {
	api := new(MockBookingAPI)
	api.On("CreateBooking", mock.Anything, mock.Anything).Return(errors.New("refused"))
	api.On("CancelBooking", mock.Anything, mock.Anything).Return(errors.New("refused"))

	var buf bytes.Buffer
	log := logger.NewWithLevel(&buf, "info")
	rec := reconciler.New(api, reconciler.WithLogger(log))
	h := NewAPIHandler(rec, log).Routes()

	serve(t, h, http.MethodPost, "/api/draft/submit", "")
	serve(t, h, http.MethodDelete, "/api/bookings/3", "")

	assert.Equal(t, 1, strings.Count(buf.String(), "Booking submission failed"))
	assert.Equal(t, 1, strings.Count(buf.String(), "Booking cancellation failed"))
	assert.Equal(t, 2, strings.Count(buf.String(), `"LEVEL":"WARN"`))
}

func TestUnknownRoute(t *testing.T) {
	_, h := newTestHandler(t, new(MockBookingAPI))
	rr := serve(t, h, http.MethodGet, "/api/vms", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
