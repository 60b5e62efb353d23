package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Fallback messages shown when the service gives no message of its own.
const (
	FallbackSubmitMessage = "Error booking slot"
	FallbackCancelMessage = "Error canceling booking"
	FallbackLoadMessage   = "Error loading bookings"
)

var ErrNotConnected = errors.New("push channel not connected")

// APIError is a structured failure returned by the booking service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("booking service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("booking service returned status %d: %s", e.StatusCode, e.Message)
}

// UserMessage returns the service-provided message carried by err, or
// fallback for transport failures and errors without a message.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// parseAPIError builds an APIError from a non-2xx response body. The service
// replies {"error": "..."}; plain-text bodies are used as the message.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
		return apiErr
	}
	text := strings.TrimSpace(string(body))
	if text != "" && !strings.HasPrefix(text, "<") {
		apiErr.Message = text
	}
	return apiErr
}
