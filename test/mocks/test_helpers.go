package mocks

import (
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
)

// TestLabels is the default room status label table.
func TestLabels() *domain.Labels {
	labels, err := domain.NewLabels([]domain.LabelEntry{
		{Status: domain.RoomFree, Localized: "空闲", Normalized: "available"},
		{Status: domain.RoomOccupied, Localized: "使用中", Normalized: "occupied"},
	})
	if err != nil {
		panic(err)
	}
	return labels
}

// CreateTestBookingRequest creates a valid booking request for room 7.
func CreateTestBookingRequest() domain.BookingRequest {
	return domain.BookingRequest{
		RoomID:     7,
		UserID:     3,
		Hours:      2,
		TotalPrice: 60,
		RoomName:   "Room A",
	}
}

// CreateTestRooms returns a small page of rooms in server (localized) form.
func CreateTestRooms() []domain.Room {
	return []domain.Room{
		{RoomID: 7, RoomName: "Room A", StoreID: 1, Price: 30, Status: "空闲"},
		{RoomID: 8, RoomName: "Room B", StoreID: 1, Price: 45, Status: "使用中"},
		{RoomID: 9, RoomName: "Room C", StoreID: 2, Price: 25, Status: "空闲"},
	}
}

// CreateTestEvent creates a room status event with a fixed timestamp.
func CreateTestEvent(roomID int64, status domain.RoomStatus, ts int64) domain.RoomStatusChanged {
	evt := domain.NewRoomStatusChanged(roomID, status, "")
	evt.Timestamp = ts
	return evt
}
