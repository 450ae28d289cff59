package ports

import (
	"context"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
)

type BookingAPI interface {
	CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
	CancelBooking(ctx context.Context, id int64) (*domain.Booking, error)
	ListUserBookings(ctx context.Context, userID int64) ([]domain.Booking, error)
}

type RoomAPI interface {
	// SetRoomStatus sends the server's localized label.
	SetRoomStatus(ctx context.Context, roomID int64, label string) error
	// UpdateRoom replaces a room, signed with adminToken when it is set.
	UpdateRoom(ctx context.Context, room domain.Room, adminToken string) error
	ListRooms(ctx context.Context, page domain.Page) ([]domain.Room, error)
	ListAvailableRooms(ctx context.Context, page domain.Page) ([]domain.Room, error)
	ListRoomsByStore(ctx context.Context, storeID string, page domain.Page) ([]domain.Room, error)
	AddRoom(ctx context.Context, room domain.Room, adminToken string) (*domain.Room, error)
	DeleteRoom(ctx context.Context, roomID int64, adminToken string) error
}

type AuthAPI interface {
	UserLogin(ctx context.Context, username, password string) (string, error)
	// UserInfo signs with token when it is non-empty.
	UserInfo(ctx context.Context, username, token string) (*domain.UserProfile, error)
	// UserLogout is sent unsigned when token is empty.
	UserLogout(ctx context.Context, username, token string) error
	AdminLogin(ctx context.Context, username, password string) (string, error)
	AdminInfo(ctx context.Context, username, adminToken string) (*domain.AdminProfile, error)
	AdminLogout(ctx context.Context, adminID int64, adminToken string) error
}

type UsageRecordAPI interface {
	CreateUsageRecord(ctx context.Context, rec domain.UsageRecord, adminToken string) (*domain.UsageRecord, error)
	// ListUsageRecords signs with token; a user token is expected when q.Own
	// is set.
	ListUsageRecords(ctx context.Context, q domain.UsageQuery, token string) ([]domain.UsageRecord, error)
	Profit(ctx context.Context, q domain.ProfitQuery, adminToken string) ([]domain.ProfitEntry, error)
}

type StoreAPI interface {
	ListStores(ctx context.Context, adminToken string) ([]domain.Store, error)
	GetStore(ctx context.Context, storeID int64, adminToken string) (*domain.Store, error)
	AddStore(ctx context.Context, store domain.Store, adminToken string) (*domain.Store, error)
	UpdateStore(ctx context.Context, store domain.Store, adminToken string) error
	DeleteStore(ctx context.Context, storeID int64, adminToken string) error
}

// RecoveryAPI drives password recovery. Its calls never carry credentials.
type RecoveryAPI interface {
	// CheckUsername returns the account with its phone number masked.
	CheckUsername(ctx context.Context, username string) (*domain.UserProfile, error)
	VerifyPhone(ctx context.Context, username, phone string) error
	ResetPassword(ctx context.Context, username, newPassword string) error
}
