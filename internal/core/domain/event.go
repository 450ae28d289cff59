package domain

const RoomStatusEventType = "ROOM_STATUS_UPDATE"

// RoomStatusChanged is broadcast whenever a room's occupancy changes.
// Timestamp is epoch milliseconds.
type RoomStatusChanged struct {
	Type      string     `json:"type"`
	RoomID    int64      `json:"roomId"`
	Status    RoomStatus `json:"status"`
	RoomName  string     `json:"roomName,omitempty"`
	Timestamp int64      `json:"timestamp"`
}

func NewRoomStatusChanged(roomID int64, status RoomStatus, roomName string) RoomStatusChanged {
	return RoomStatusChanged{
		Type:     RoomStatusEventType,
		RoomID:   roomID,
		Status:   status,
		RoomName: roomName,
	}
}
