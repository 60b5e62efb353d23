package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Room names accepted by the booking service.
const (
	RoomAkasha             = "Akasha"
	RoomVayu               = "Vayu"
	RoomAgni               = "Agni"
	RoomMainConferenceHall = "Main Conference Hall"
	DefaultRoom            = RoomAkasha
	DateLayout             = "2006-01-02"
	TimeLayout             = "15:04"
	timeLayoutWithSeconds  = "15:04:05"
)

// Rooms lists the bookable rooms in display order.
var Rooms = []string{RoomAkasha, RoomVayu, RoomAgni, RoomMainConferenceHall}

var (
	ErrUnknownRoom  = errors.New("unknown room")
	ErrInvalidDate  = errors.New("invalid booking date")
	ErrInvalidTime  = errors.New("invalid time of day")
	ErrUnknownField = errors.New("unknown draft field")
)

// IsKnownRoom reports whether name is one of Rooms.
func IsKnownRoom(name string) bool {
	for _, r := range Rooms {
		if r == name {
			return true
		}
	}
	return false
}

// BookingID is the backend-assigned identifier. It is opaque: the text is
// kept exactly as issued, together with whether the service sent it as a
// JSON number or a JSON string, so it can be sent back in the same form.
// Ids are matched by their text (see Key).
type BookingID struct {
	text   string
	number bool
}

// TextID returns an id the service issued as a JSON string.
func TextID(s string) BookingID {
	return BookingID{text: s}
}

// NumberID returns an id the service issued as a JSON number.
func NumberID(n int64) BookingID {
	return BookingID{text: strconv.FormatInt(n, 10), number: true}
}

// ParseBookingID trims s and rejects empty ids. The result carries no wire
// form of its own; callers resolve it against known bookings before sending
// it (see reconciler.Reconciler.Resolve).
func ParseBookingID(s string) (BookingID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return BookingID{}, errors.New("booking id is required")
	}
	return TextID(s), nil
}

func (id BookingID) String() string { return id.text }

// Key is the matching key: two ids with the same text name the same booking.
func (id BookingID) Key() string { return id.text }

// IsNumber reports whether the id was issued as a JSON number.
func (id BookingID) IsNumber() bool { return id.number }

func (id BookingID) IsZero() bool { return id.text == "" }

// UnmarshalJSON accepts a JSON string or number and remembers which.
func (id *BookingID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = BookingID{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TextID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("booking id must be a string or number: %w", err)
	}
	*id = BookingID{text: n.String(), number: true}
	return nil
}

// MarshalJSON writes the id in the form it was issued.
func (id BookingID) MarshalJSON() ([]byte, error) {
	if id.number && json.Valid([]byte(id.text)) {
		return []byte(id.text), nil
	}
	return json.Marshal(id.text)
}

// Booking is the client's read-only projection of a confirmed reservation.
type Booking struct {
	ID          BookingID `json:"id"`
	RoomName    string    `json:"room_name"`
	UserName    string    `json:"user_name"`
	Purpose     string    `json:"purpose"`
	BookingDate string    `json:"booking_date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`
}

// Draft is the unsaved booking form. It has the Booking shape minus the id.
type Draft struct {
	RoomName    string `json:"room_name"`
	UserName    string `json:"user_name"`
	Purpose     string `json:"purpose"`
	BookingDate string `json:"booking_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// Draft field names, matching the JSON tags.
const (
	FieldRoomName    = "room_name"
	FieldUserName    = "user_name"
	FieldPurpose     = "purpose"
	FieldBookingDate = "booking_date"
	FieldStartTime   = "start_time"
	FieldEndTime     = "end_time"
)

// NewDraft returns a draft with the default room and every other field empty.
func NewDraft() Draft {
	return Draft{RoomName: DefaultRoom}
}

// Reset restores the defaults.
func (d *Draft) Reset() {
	*d = NewDraft()
}

// Set updates a single field by its JSON name. Values are coerced the way
// form widgets would: the room must be known, the date and times must parse.
// Empty date/time values clear the field. On error the draft is unchanged.
func (d *Draft) Set(field, value string) error {
	switch field {
	case FieldRoomName:
		if !IsKnownRoom(value) {
			return fmt.Errorf("%w: %q", ErrUnknownRoom, value)
		}
		d.RoomName = value
	case FieldUserName:
		d.UserName = value
	case FieldPurpose:
		d.Purpose = value
	case FieldBookingDate:
		if value != "" {
			if _, err := time.Parse(DateLayout, value); err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidDate, value)
			}
		}
		d.BookingDate = value
	case FieldStartTime:
		if err := checkTimeOfDay(value); err != nil {
			return err
		}
		d.StartTime = value
	case FieldEndTime:
		if err := checkTimeOfDay(value); err != nil {
			return err
		}
		d.EndTime = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

func checkTimeOfDay(value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(TimeLayout, value); err == nil {
		return nil
	}
	if _, err := time.Parse(timeLayoutWithSeconds, value); err == nil {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidTime, value)
}
