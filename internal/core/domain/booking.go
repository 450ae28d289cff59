package domain

import "strings"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingPaid      BookingStatus = "paid"
	BookingCancelled BookingStatus = "cancelled"
)

// Normalize folds the server's "active" alias into paid.
func (s BookingStatus) Normalize() BookingStatus {
	switch BookingStatus(strings.ToLower(string(s))) {
	case "active", BookingPaid:
		return BookingPaid
	case BookingCancelled, "canceled":
		return BookingCancelled
	case BookingPending:
		return BookingPending
	}
	return s
}

// Booking is a transient copy of a server-owned reservation.
type Booking struct {
	ID         int64         `json:"id"`
	RoomID     int64         `json:"roomId"`
	UserID     int64         `json:"userId"`
	Hours      float64       `json:"hours"`
	TotalPrice float64       `json:"totalPrice"`
	Status     BookingStatus `json:"status"`
}

// BookingRequest is the create payload. RoomName is only carried into the
// broadcast event and never sent to the server.
type BookingRequest struct {
	RoomID     int64   `json:"roomId"`
	UserID     int64   `json:"userId"`
	Hours      float64 `json:"hours"`
	TotalPrice float64 `json:"totalPrice"`
	RoomName   string  `json:"-"`
}

func (r BookingRequest) Validate() error {
	switch {
	case r.RoomID <= 0:
		return NewValidationError("roomId is required")
	case r.UserID <= 0:
		return NewValidationError("userId is required")
	case r.Hours <= 0:
		return NewValidationError("hours must be positive")
	}
	return nil
}

// UsageRecord is an administrator-created record of a room being used.
type UsageRecord struct {
	RecordID   int64   `json:"recordId,omitempty"`
	RoomID     int64   `json:"roomId"`
	UserID     int64   `json:"userId"`
	StoreID    int64   `json:"storeId,omitempty"`
	Hours      float64 `json:"hours"`
	TotalPrice float64 `json:"totalPrice"`
	Status     string  `json:"status"`
}
