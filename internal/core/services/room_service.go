package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

type RoomFilter string

const (
	FilterAll       RoomFilter = "all"
	FilterAvailable RoomFilter = "available"

	roomCacheListener = "room-cache"
)

// RoomCache is the session's cached room list.
type RoomCache interface {
	Labels() *domain.Labels
	Credential(scope domain.Scope) domain.Credential
	SetRooms(rooms []domain.Room, total int)
	Rooms() []domain.Room
	ApplyRoomStatus(evt domain.RoomStatusChanged) bool
}

// Subscriber registers room status listeners.
type Subscriber interface {
	Subscribe(id string, fn func(domain.RoomStatusChanged))
}

type RoomService struct {
	api       ports.RoomAPI
	usage     ports.UsageRecordAPI
	cache     RoomCache
	publisher ports.RoomEventPublisher
	logger    *slog.Logger
}

func NewRoomService(api ports.RoomAPI, usage ports.UsageRecordAPI, cache RoomCache, publisher ports.RoomEventPublisher, logger *slog.Logger) *RoomService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoomService{api: api, usage: usage, cache: cache, publisher: publisher, logger: logger}
}

func (s *RoomService) list(ctx context.Context, filter RoomFilter, page domain.Page) ([]domain.Room, error) {
	switch filter {
	case FilterAll, "":
		return s.api.ListRooms(ctx, page)
	case FilterAvailable:
		return s.api.ListAvailableRooms(ctx, page)
	}
	return nil, domain.NewValidationError(fmt.Sprintf("unknown room filter %q", filter))
}

// FetchRooms replaces the cached room list with one page from the server.
// The total is the size of the returned page.
func (s *RoomService) FetchRooms(ctx context.Context, filter RoomFilter, page domain.Page) ([]domain.Room, error) {
	rooms, err := s.list(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	s.cache.SetRooms(rooms, len(rooms))
	return s.cache.Rooms(), nil
}

// FetchRoomsSilently is for polling. It never touches the cache and returns
// an empty list instead of an error.
func (s *RoomService) FetchRoomsSilently(ctx context.Context, filter RoomFilter, page domain.Page) []domain.Room {
	rooms, err := s.list(ctx, filter, page)
	if err != nil {
		s.logger.Warn("rooms: silent fetch failed", "filter", filter, "error", err)
		return []domain.Room{}
	}
	return rooms
}

func (s *RoomService) RoomsByStore(ctx context.Context, storeID string, page domain.Page) ([]domain.Room, error) {
	if storeID == "" {
		return nil, domain.NewValidationError("storeId is required")
	}
	return s.api.ListRoomsByStore(ctx, storeID, page)
}

// AdminSetRoomStatus rewrites a room with a new status using the admin
// token, then broadcasts the change.
func (s *RoomService) AdminSetRoomStatus(ctx context.Context, roomID int64, status domain.RoomStatus) error {
	if roomID <= 0 {
		return domain.NewValidationError("roomId is required")
	}
	label := s.cache.Labels().Localized(status)
	if label == "" {
		return domain.NewValidationError(fmt.Sprintf("unknown room status %q", status))
	}
	admin := s.cache.Credential(domain.ScopeAdmin)
	if !admin.Active() {
		return domain.NewValidationError("admin login required")
	}

	room := domain.Room{RoomID: roomID}
	for _, r := range s.cache.Rooms() {
		if r.RoomID == roomID {
			room = r
			break
		}
	}
	room.Status = label

	if err := s.api.UpdateRoom(ctx, room, admin.Token); err != nil {
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, domain.NewRoomStatusChanged(roomID, status, room.RoomName)); err != nil {
			s.logger.Warn("rooms: failed to broadcast room status", "room_id", roomID, "error", err)
		}
	}
	return nil
}

// RecordUsage creates a paid usage record with the admin token. The user
// defaults to the logged-in user.
func (s *RoomService) RecordUsage(ctx context.Context, rec domain.UsageRecord) (*domain.UsageRecord, error) {
	if rec.RoomID <= 0 {
		return nil, domain.NewValidationError("roomId is required")
	}
	if rec.UserID == 0 {
		rec.UserID = s.cache.Credential(domain.ScopeUser).ID
	}
	if rec.UserID == 0 {
		return nil, domain.NewValidationError("userId is required")
	}
	admin := s.cache.Credential(domain.ScopeAdmin)
	if !admin.Active() {
		return nil, domain.NewValidationError("admin login required")
	}
	rec.Status = string(domain.BookingPaid)
	return s.usage.CreateUsageRecord(ctx, rec, admin.Token)
}

// AddRoom creates a room with the admin token. A room without a status
// starts free.
func (s *RoomService) AddRoom(ctx context.Context, room domain.Room) (*domain.Room, error) {
	if room.RoomName == "" {
		return nil, domain.NewValidationError("roomName is required")
	}
	if room.StoreID <= 0 {
		return nil, domain.NewValidationError("storeId is required")
	}
	token, err := adminToken(s.cache)
	if err != nil {
		return nil, err
	}
	if room.Status == "" {
		room.Status = s.cache.Labels().Localized(domain.RoomFree)
	} else if status, ok := s.cache.Labels().Parse(room.Status); ok {
		room.Status = s.cache.Labels().Localized(status)
	} else {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown room status %q", room.Status))
	}
	return s.api.AddRoom(ctx, room, token)
}

// DeleteRoom removes a room with the admin token and drops it from the
// cached list.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID int64) error {
	if roomID <= 0 {
		return domain.NewValidationError("roomId is required")
	}
	token, err := adminToken(s.cache)
	if err != nil {
		return err
	}
	if err := s.api.DeleteRoom(ctx, roomID, token); err != nil {
		return err
	}

	cached := s.cache.Rooms()
	kept := make([]domain.Room, 0, len(cached))
	for _, r := range cached {
		if r.RoomID != roomID {
			kept = append(kept, r)
		}
	}
	if len(kept) != len(cached) {
		s.cache.SetRooms(kept, len(kept))
	}
	return nil
}

// UsageRecords lists usage records. Own queries are signed with the user
// token, the rest with the admin token.
func (s *RoomService) UsageRecords(ctx context.Context, q domain.UsageQuery) ([]domain.UsageRecord, error) {
	if q.Month < 0 || q.Month > 12 {
		return nil, domain.NewValidationError("month must be between 1 and 12")
	}
	if q.Own {
		user := s.cache.Credential(domain.ScopeUser)
		if !user.Active() {
			return nil, domain.NewValidationError("user login required")
		}
		return s.usage.ListUsageRecords(ctx, q, user.Token)
	}
	token, err := adminToken(s.cache)
	if err != nil {
		return nil, err
	}
	return s.usage.ListUsageRecords(ctx, q, token)
}

// Profit loads a profit report with the admin token.
func (s *RoomService) Profit(ctx context.Context, q domain.ProfitQuery) ([]domain.ProfitEntry, error) {
	if _, err := domain.ParseProfitPeriod(string(q.Period)); err != nil {
		return nil, err
	}
	token, err := adminToken(s.cache)
	if err != nil {
		return nil, err
	}
	return s.usage.Profit(ctx, q, token)
}

func adminToken(creds CredentialReader) (string, error) {
	admin := creds.Credential(domain.ScopeAdmin)
	if !admin.Active() {
		return "", domain.NewValidationError("admin login required")
	}
	return admin.Token, nil
}

// BindCache keeps the cached room list in step with broadcast events.
func (s *RoomService) BindCache(bus Subscriber) {
	bus.Subscribe(roomCacheListener, func(evt domain.RoomStatusChanged) {
		if s.cache.ApplyRoomStatus(evt) {
			s.logger.Debug("rooms: cache updated", "room_id", evt.RoomID, "status", evt.Status)
		}
	})
}
