package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/EpicMandM/room-booking/internal/models"
	"github.com/google/uuid"
)

const (
	listPath   = "/slots"
	bookPath   = "/book"
	cancelPath = "/cancel"

	maxErrorBody = 64 << 10
)

// HTTPBookingClient talks to the booking service over REST.
type HTTPBookingClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPBookingClient returns a client for baseURL. A nil httpClient uses
// http.DefaultClient; timeout bounds each call when positive.
func NewHTTPBookingClient(baseURL string, timeout time.Duration, httpClient *http.Client) *HTTPBookingClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPBookingClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  httpClient,
	}
}

// ListBookings fetches the full current booking set.
func (c *HTTPBookingClient) ListBookings(ctx context.Context) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := c.do(ctx, http.MethodGet, listPath, nil, &bookings); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}

// CreateBooking submits a draft.
func (c *HTTPBookingClient) CreateBooking(ctx context.Context, draft models.Draft) error {
	if err := c.do(ctx, http.MethodPost, bookPath, draft, nil); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// CancelBooking asks the service to cancel id.
func (c *HTTPBookingClient) CancelBooking(ctx context.Context, id models.BookingID) error {
	body := struct {
		ID models.BookingID `json:"id"`
	}{ID: id}
	if err := c.do(ctx, http.MethodPost, cancelPath, body, nil); err != nil {
		return fmt.Errorf("cancel booking %s: %w", id, err)
	}
	return nil
}

func (c *HTTPBookingClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return parseAPIError(resp.StatusCode, data)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
