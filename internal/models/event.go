package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EventKind names a server-initiated push event.
type EventKind string

const (
	EventBookingAdded     EventKind = "new_booking"
	EventBookingCancelled EventKind = "cancel_booking"
)

// ErrUnknownEvent is returned by DecodePushEvent for event names the client
// does not handle. The returned event still carries the name.
var ErrUnknownEvent = errors.New("unknown push event")

// PushEvent is one decoded push notification. Booking is set for
// EventBookingAdded, ID for EventBookingCancelled.
type PushEvent struct {
	Kind    EventKind
	Booking Booking
	ID      BookingID
}

// BookingAdded builds an add event.
func BookingAdded(b Booking) PushEvent {
	return PushEvent{Kind: EventBookingAdded, Booking: b, ID: b.ID}
}

// BookingCancelled builds a remove event.
func BookingCancelled(id BookingID) PushEvent {
	return PushEvent{Kind: EventBookingCancelled, ID: id}
}

type eventEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DecodePushEvent parses one frame. Two shapes are accepted:
//
//	{"event": "new_booking", "data": {...}}
//	["new_booking", {...}]
func DecodePushEvent(frame []byte) (PushEvent, error) {
	frame = bytes.TrimSpace(frame)
	if len(frame) == 0 {
		return PushEvent{}, errors.New("empty push frame")
	}

	var env eventEnvelope
	if frame[0] == '[' {
		var parts []json.RawMessage
		if err := json.Unmarshal(frame, &parts); err != nil {
			return PushEvent{}, fmt.Errorf("decode push frame: %w", err)
		}
		if len(parts) < 2 {
			return PushEvent{}, fmt.Errorf("push frame has %d elements, want 2", len(parts))
		}
		if err := json.Unmarshal(parts[0], &env.Event); err != nil {
			return PushEvent{}, fmt.Errorf("decode push event name: %w", err)
		}
		env.Data = parts[1]
	} else if err := json.Unmarshal(frame, &env); err != nil {
		return PushEvent{}, fmt.Errorf("decode push frame: %w", err)
	}

	switch EventKind(env.Event) {
	case EventBookingAdded:
		var b Booking
		if err := json.Unmarshal(env.Data, &b); err != nil {
			return PushEvent{}, fmt.Errorf("decode %s payload: %w", env.Event, err)
		}
		if b.ID.IsZero() {
			return PushEvent{}, fmt.Errorf("%s payload has no id", env.Event)
		}
		return BookingAdded(b), nil
	case EventBookingCancelled:
		id, err := decodeCancelledID(env.Data)
		if err != nil {
			return PushEvent{}, fmt.Errorf("decode %s payload: %w", env.Event, err)
		}
		return BookingCancelled(id), nil
	default:
		return PushEvent{Kind: EventKind(env.Event)}, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

// decodeCancelledID accepts a bare id or an object carrying one.
func decodeCancelledID(data json.RawMessage) (BookingID, error) {
	data = bytes.TrimSpace(data)
	var id BookingID
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			ID BookingID `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return BookingID{}, err
		}
		id = obj.ID
	} else if err := json.Unmarshal(data, &id); err != nil {
		return BookingID{}, err
	}
	if id.IsZero() {
		return BookingID{}, errors.New("missing id")
	}
	return id, nil
}
