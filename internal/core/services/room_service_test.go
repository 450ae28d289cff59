package services_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/roombook/booking-client/internal/adapters/storage"
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/services"
	"github.com/AchilleasB/roombook/booking-client/internal/session"
	"github.com/AchilleasB/roombook/booking-client/test/mocks"
)

type roomFixture struct {
	service   *services.RoomService
	api       *mocks.MockRoomAPI
	usage     *mocks.MockUsageRecordAPI
	publisher *mocks.MockRoomEventPublisher
	sess      *session.Session
}

func newRoomFixture(t *testing.T) *roomFixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	sess, err := session.New(context.Background(), storage.NewHub(logger).Open(), nil, mocks.TestLabels(), logger)
	require.NoError(t, err)

	f := &roomFixture{
		api:       mocks.NewMockRoomAPI(),
		usage:     mocks.NewMockUsageRecordAPI(),
		publisher: mocks.NewMockRoomEventPublisher(),
		sess:      sess,
	}
	f.api.Rooms = mocks.CreateTestRooms()
	f.api.AvailableRooms = []domain.Room{mocks.CreateTestRooms()[0], mocks.CreateTestRooms()[2]}
	f.service = services.NewRoomService(f.api, f.usage, sess, f.publisher, logger)
	return f
}

func (f *roomFixture) loginAdmin(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.sess.SetAdminToken(ctx, "admin-tok", "root"))
	require.NoError(t, f.sess.SetAdminProfile(ctx, domain.AdminProfile{AdminID: 11, StoreID: "5"}))
}

// subscriberFunc captures the listener BindCache registers.
type subscriberFunc func(id string, fn func(domain.RoomStatusChanged))

func (s subscriberFunc) Subscribe(id string, fn func(domain.RoomStatusChanged)) {
	s(id, fn)
}

func TestRoomService_FetchRooms(t *testing.T) {
	tests := []struct {
		name      string
		filter    services.RoomFilter
		wantCount int
	}{
		{name: "all", filter: services.FilterAll, wantCount: 3},
		{name: "default_is_all", filter: "", wantCount: 3},
		{name: "available", filter: services.FilterAvailable, wantCount: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRoomFixture(t)

			rooms, err := f.service.FetchRooms(context.Background(), tt.filter, domain.Page{})
			require.NoError(t, err)
			assert.Len(t, rooms, tt.wantCount)
			assert.Equal(t, tt.wantCount, f.sess.TotalRooms())
			for _, r := range rooms {
				assert.Contains(t, []string{"available", "occupied"}, r.Status)
			}
		})
	}
}

func TestRoomService_FetchRoomsRejectsUnknownFilter(t *testing.T) {
	f := newRoomFixture(t)

	_, err := f.service.FetchRooms(context.Background(), "booked", domain.Page{})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Empty(t, f.api.ListCalls)
}

func TestRoomService_FetchRoomsSilently(t *testing.T) {
	f := newRoomFixture(t)
	f.sess.SetRooms(mocks.CreateTestRooms()[:1], 1)

	rooms := f.service.FetchRoomsSilently(context.Background(), services.FilterAll, domain.Page{})
	assert.Len(t, rooms, 3)
	assert.Len(t, f.sess.Rooms(), 1, "silent fetch must not touch the cache")

	f.api.ListError = domain.NewTransportError("network error", errors.New("timeout"))
	rooms = f.service.FetchRoomsSilently(context.Background(), services.FilterAll, domain.Page{})
	assert.NotNil(t, rooms)
	assert.Empty(t, rooms)
	assert.Len(t, f.sess.Rooms(), 1)
}

func TestRoomService_RoomsByStore(t *testing.T) {
	f := newRoomFixture(t)

	_, err := f.service.RoomsByStore(context.Background(), "", domain.Page{})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Empty(t, f.api.ListByStoreCalls)

	rooms, err := f.service.RoomsByStore(context.Background(), "5", domain.Page{})
	require.NoError(t, err)
	assert.Len(t, rooms, 3)
	assert.Equal(t, []string{"5"}, f.api.ListByStoreCalls)
}

func TestRoomService_AdminSetRoomStatus(t *testing.T) {
	f := newRoomFixture(t)
	f.loginAdmin(t)
	f.sess.SetRooms(mocks.CreateTestRooms(), 3)

	require.NoError(t, f.service.AdminSetRoomStatus(context.Background(), 7, domain.RoomOccupied))

	require.Len(t, f.api.UpdateCalls, 1)
	call := f.api.UpdateCalls[0]
	assert.Equal(t, "admin-tok", call.AdminToken)
	assert.Equal(t, "使用中", call.Room.Status)
	assert.Equal(t, "Room A", call.Room.RoomName)

	events := f.publisher.GetPublishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, domain.RoomOccupied, events[0].Status)
	assert.Equal(t, "Room A", events[0].RoomName)
}

func TestRoomService_AdminSetRoomStatusFailures(t *testing.T) {
	tests := []struct {
		name     string
		admin    bool
		roomID   int64
		status   domain.RoomStatus
		apiErr   error
		wantKind error
	}{
		{name: "requires_admin", admin: false, roomID: 7, status: domain.RoomFree, wantKind: domain.ErrValidation},
		{name: "unknown_status", admin: true, roomID: 7, status: "cleaning", wantKind: domain.ErrValidation},
		{name: "missing_room", admin: true, roomID: 0, status: domain.RoomFree, wantKind: domain.ErrValidation},
		{name: "server_rejects", admin: true, roomID: 7, status: domain.RoomFree, apiErr: domain.NewAuthError(403, "forbidden"), wantKind: domain.ErrAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRoomFixture(t)
			if tt.admin {
				f.loginAdmin(t)
			}
			f.api.UpdateError = tt.apiErr

			err := f.service.AdminSetRoomStatus(context.Background(), tt.roomID, tt.status)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind))
			assert.Zero(t, f.publisher.GetPublishCount())
		})
	}
}

func TestRoomService_RecordUsage(t *testing.T) {
	f := newRoomFixture(t)
	f.loginAdmin(t)
	require.NoError(t, f.sess.SetUser(context.Background(), "user-tok", "alice"))
	f.sess.SetUserProfile(domain.UserProfile{UserID: 3})

	_, err := f.service.RecordUsage(context.Background(), domain.UsageRecord{RoomID: 7, Hours: 2, TotalPrice: 60, Status: "pending"})
	require.NoError(t, err)

	require.Len(t, f.usage.Calls, 1)
	call := f.usage.Calls[0]
	assert.Equal(t, "admin-tok", call.AdminToken)
	assert.Equal(t, int64(3), call.Record.UserID)
	assert.Equal(t, "paid", call.Record.Status)
}

func TestRoomService_RecordUsageRequiresAdmin(t *testing.T) {
	f := newRoomFixture(t)

	_, err := f.service.RecordUsage(context.Background(), domain.UsageRecord{RoomID: 7, UserID: 3})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Empty(t, f.usage.Calls)
}

func TestRoomService_AddRoom(t *testing.T) {
	f := newRoomFixture(t)
	f.loginAdmin(t)

	room, err := f.service.AddRoom(context.Background(), domain.Room{RoomName: "Room D", StoreID: 1, Price: 50, Status: "occupied"})
	require.NoError(t, err)
	assert.NotZero(t, room.RoomID)

	require.Len(t, f.api.AddCalls, 1)
	call := f.api.AddCalls[0]
	assert.Equal(t, "admin-tok", call.AdminToken)
	assert.Equal(t, "使用中", call.Room.Status)

	_, err = f.service.AddRoom(context.Background(), domain.Room{RoomName: "Room E", StoreID: 1})
	require.NoError(t, err)
	assert.Equal(t, "空闲", f.api.AddCalls[1].Room.Status)
}

func TestRoomService_AddRoomValidation(t *testing.T) {
	tests := []struct {
		name  string
		room  domain.Room
		admin bool
	}{
		{name: "missing_name", room: domain.Room{StoreID: 1}, admin: true},
		{name: "missing_store", room: domain.Room{RoomName: "Room D"}, admin: true},
		{name: "unknown_status", room: domain.Room{RoomName: "Room D", StoreID: 1, Status: "cleaning"}, admin: true},
		{name: "no_admin", room: domain.Room{RoomName: "Room D", StoreID: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRoomFixture(t)
			if tt.admin {
				f.loginAdmin(t)
			}
			_, err := f.service.AddRoom(context.Background(), tt.room)
			assert.True(t, errors.Is(err, domain.ErrValidation))
			assert.Empty(t, f.api.AddCalls)
		})
	}
}

func TestRoomService_DeleteRoomDropsItFromCache(t *testing.T) {
	f := newRoomFixture(t)
	f.loginAdmin(t)
	f.sess.SetRooms(mocks.CreateTestRooms(), 3)

	require.NoError(t, f.service.DeleteRoom(context.Background(), 8))
	require.Len(t, f.api.DeleteCalls, 1)
	assert.Equal(t, mocks.TokenCall{ID: 8, Token: "admin-tok"}, f.api.DeleteCalls[0])

	assert.Len(t, f.sess.Rooms(), 2)
	assert.Equal(t, 2, f.sess.TotalRooms())
	for _, r := range f.sess.Rooms() {
		assert.NotEqual(t, int64(8), r.RoomID)
	}
}

func TestRoomService_DeleteRoomFailureKeepsCache(t *testing.T) {
	f := newRoomFixture(t)
	f.loginAdmin(t)
	f.sess.SetRooms(mocks.CreateTestRooms(), 3)
	f.api.DeleteError = domain.NewBusinessError(404, 404, "room not found")

	err := f.service.DeleteRoom(context.Background(), 8)
	assert.True(t, errors.Is(err, domain.ErrBusiness))
	assert.Len(t, f.sess.Rooms(), 3)
}

func TestRoomService_UsageRecordsSignsByQuery(t *testing.T) {
	f := newRoomFixture(t)
	f.loginAdmin(t)
	require.NoError(t, f.sess.SetUser(context.Background(), "user-tok", "alice"))
	f.usage.Records = []domain.UsageRecord{{RecordID: 1, RoomID: 7, UserID: 3}}

	records, err := f.service.UsageRecords(context.Background(), domain.UsageQuery{Own: true, Year: 2026, Month: 5})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = f.service.UsageRecords(context.Background(), domain.UsageQuery{StoreID: 5})
	require.NoError(t, err)

	require.Len(t, f.usage.ListCalls, 2)
	assert.Equal(t, "user-tok", f.usage.ListCalls[0].Token)
	assert.Equal(t, "admin-tok", f.usage.ListCalls[1].Token)
	assert.Equal(t, int64(5), f.usage.ListCalls[1].Query.StoreID)
}

func TestRoomService_UsageRecordsValidation(t *testing.T) {
	f := newRoomFixture(t)

	_, err := f.service.UsageRecords(context.Background(), domain.UsageQuery{Own: true})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, err = f.service.UsageRecords(context.Background(), domain.UsageQuery{})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	_, err = f.service.UsageRecords(context.Background(), domain.UsageQuery{Own: true, Month: 13})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Empty(t, f.usage.ListCalls)
}

func TestRoomService_Profit(t *testing.T) {
	f := newRoomFixture(t)
	f.loginAdmin(t)
	f.usage.Entries = []domain.ProfitEntry{{Period: "2026-05", Profit: 120, Count: 3}}

	entries, err := f.service.Profit(context.Background(), domain.ProfitQuery{Period: domain.ProfitMonthly, Year: 2026})
	require.NoError(t, err)
	assert.Equal(t, f.usage.Entries, entries)
	require.Len(t, f.usage.ProfitCalls, 1)
	assert.Equal(t, "admin-tok", f.usage.ProfitCalls[0].AdminToken)

	_, err = f.service.Profit(context.Background(), domain.ProfitQuery{Period: "weekly"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Len(t, f.usage.ProfitCalls, 1)
}

func TestRoomService_BindCache(t *testing.T) {
	f := newRoomFixture(t)
	f.sess.SetRooms(mocks.CreateTestRooms(), 3)

	var registered string
	var listener func(domain.RoomStatusChanged)
	f.service.BindCache(subscriberFunc(func(id string, fn func(domain.RoomStatusChanged)) {
		registered = id
		listener = fn
	}))
	require.NotNil(t, listener)
	assert.Equal(t, "room-cache", registered)

	listener(mocks.CreateTestEvent(7, domain.RoomOccupied, 100))
	listener(mocks.CreateTestEvent(7, domain.RoomFree, 50))

	rooms := f.sess.Rooms()
	assert.Equal(t, "occupied", rooms[0].Status, "older event must be ignored")
}
