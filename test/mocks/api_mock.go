// Package mocks provides mock implementations of port interfaces for testing.
// Services depend on the ports; tests inject these in-memory versions with
// call tracking and error injection in place of the HTTP adapters.
package mocks

import (
	"context"
	"sync"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

// Journal records calls across several mocks in the order they happened.
// A nil Journal ignores records.
type Journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *Journal) Record(call string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, call)
}

func (j *Journal) Calls() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.calls))
	copy(out, j.calls)
	return out
}

// MockBookingAPI implements ports.BookingAPI with an in-memory booking table.
type MockBookingAPI struct {
	mu       sync.RWMutex
	bookings map[int64]*domain.Booking
	nextID   int64

	// Call tracking
	CreateCalls []domain.BookingRequest
	GetCalls    []int64
	DeleteCalls []int64
	CancelCalls []int64

	// Error injection
	CreateError error
	GetError    error
	DeleteError error
	CancelError error
	ListError   error

	Journal *Journal
}

var _ ports.BookingAPI = (*MockBookingAPI)(nil)

func NewMockBookingAPI() *MockBookingAPI {
	return &MockBookingAPI{bookings: make(map[int64]*domain.Booking), nextID: 1}
}

// SetNextID fixes the id the next created booking receives.
func (m *MockBookingAPI) SetNextID(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = id
}

// AddBooking seeds a booking.
func (m *MockBookingAPI) AddBooking(b domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.ID] = &b
}

func (m *MockBookingAPI) Booking(id int64) (domain.Booking, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.Booking{}, false
	}
	return *b, true
}

func (m *MockBookingAPI) CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls = append(m.CreateCalls, req)
	m.Journal.Record("create")
	if m.CreateError != nil {
		return nil, m.CreateError
	}

	b := &domain.Booking{
		ID:         m.nextID,
		RoomID:     req.RoomID,
		UserID:     req.UserID,
		Hours:      req.Hours,
		TotalPrice: req.TotalPrice,
		Status:     domain.BookingPending,
	}
	m.nextID++
	m.bookings[b.ID] = b
	cp := *b
	return &cp, nil
}

func (m *MockBookingAPI) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, id)
	m.Journal.Record("get")
	if m.GetError != nil {
		return nil, m.GetError
	}
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.NewBusinessError(404, 404, "booking not found")
	}
	cp := *b
	return &cp, nil
}

func (m *MockBookingAPI) DeleteBooking(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, id)
	m.Journal.Record("delete")
	if m.DeleteError != nil {
		return m.DeleteError
	}
	delete(m.bookings, id)
	return nil
}

func (m *MockBookingAPI) CancelBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CancelCalls = append(m.CancelCalls, id)
	m.Journal.Record("cancel")
	if m.CancelError != nil {
		return nil, m.CancelError
	}
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.NewBusinessError(404, 404, "booking not found")
	}
	b.Status = domain.BookingCancelled
	cp := *b
	return &cp, nil
}

func (m *MockBookingAPI) ListUserBookings(ctx context.Context, userID int64) ([]domain.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListError != nil {
		return nil, m.ListError
	}
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

// RoomStatusCall records one SetRoomStatus invocation.
type RoomStatusCall struct {
	RoomID int64
	Label  string
}

// RoomUpdateCall records one UpdateRoom invocation.
type RoomUpdateCall struct {
	Room       domain.Room
	AdminToken string
}

// MockRoomAPI implements ports.RoomAPI.
type MockRoomAPI struct {
	mu sync.RWMutex

	// Returned by the list operations
	Rooms          []domain.Room
	AvailableRooms []domain.Room

	// Call tracking
	SetStatusCalls   []RoomStatusCall
	UpdateCalls      []RoomUpdateCall
	AddCalls         []RoomUpdateCall
	DeleteCalls      []TokenCall
	ListCalls        []domain.Page
	ListByStoreCalls []string

	// Error injection
	SetStatusError error
	UpdateError    error
	AddError       error
	DeleteError    error
	ListError      error

	Journal *Journal
}

var _ ports.RoomAPI = (*MockRoomAPI)(nil)

func NewMockRoomAPI() *MockRoomAPI {
	return &MockRoomAPI{}
}

func (m *MockRoomAPI) SetRoomStatus(ctx context.Context, roomID int64, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetStatusCalls = append(m.SetStatusCalls, RoomStatusCall{RoomID: roomID, Label: label})
	m.Journal.Record("status:" + label)
	return m.SetStatusError
}

func (m *MockRoomAPI) UpdateRoom(ctx context.Context, room domain.Room, adminToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCalls = append(m.UpdateCalls, RoomUpdateCall{Room: room, AdminToken: adminToken})
	m.Journal.Record("update")
	return m.UpdateError
}

func (m *MockRoomAPI) AddRoom(ctx context.Context, room domain.Room, adminToken string) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AddCalls = append(m.AddCalls, RoomUpdateCall{Room: room, AdminToken: adminToken})
	if m.AddError != nil {
		return nil, m.AddError
	}
	if room.RoomID == 0 {
		room.RoomID = int64(100 + len(m.AddCalls))
	}
	m.Rooms = append(m.Rooms, room)
	return &room, nil
}

func (m *MockRoomAPI) DeleteRoom(ctx context.Context, roomID int64, adminToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, TokenCall{ID: roomID, Token: adminToken})
	return m.DeleteError
}

func (m *MockRoomAPI) ListRooms(ctx context.Context, page domain.Page) ([]domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListCalls = append(m.ListCalls, page)
	if m.ListError != nil {
		return nil, m.ListError
	}
	return append([]domain.Room(nil), m.Rooms...), nil
}

func (m *MockRoomAPI) ListAvailableRooms(ctx context.Context, page domain.Page) ([]domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListCalls = append(m.ListCalls, page)
	if m.ListError != nil {
		return nil, m.ListError
	}
	return append([]domain.Room(nil), m.AvailableRooms...), nil
}

func (m *MockRoomAPI) ListRoomsByStore(ctx context.Context, storeID string, page domain.Page) ([]domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListByStoreCalls = append(m.ListByStoreCalls, storeID)
	if m.ListError != nil {
		return nil, m.ListError
	}
	return append([]domain.Room(nil), m.Rooms...), nil
}

// TokenCall records a call that carried a username or id and a token.
type TokenCall struct {
	Subject string
	ID      int64
	Token   string
}

// MockAuthAPI implements ports.AuthAPI.
type MockAuthAPI struct {
	mu sync.RWMutex

	// Responses
	UserToken    string
	Profile      *domain.UserProfile
	AdminToken   string
	AdminProfile *domain.AdminProfile

	// Call tracking
	UserLoginCalls   []string
	UserLogoutCalls  []TokenCall
	AdminLoginCalls  []string
	AdminInfoCalls   []TokenCall
	AdminLogoutCalls []TokenCall

	// Error injection
	UserLoginError   error
	UserInfoError    error
	UserLogoutError  error
	AdminLoginError  error
	AdminInfoError   error
	AdminLogoutError error
}

var _ ports.AuthAPI = (*MockAuthAPI)(nil)

func NewMockAuthAPI() *MockAuthAPI {
	return &MockAuthAPI{}
}

func (m *MockAuthAPI) UserLogin(ctx context.Context, username, password string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UserLoginCalls = append(m.UserLoginCalls, username)
	if m.UserLoginError != nil {
		return "", m.UserLoginError
	}
	return m.UserToken, nil
}

func (m *MockAuthAPI) UserInfo(ctx context.Context, username, token string) (*domain.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.UserInfoError != nil {
		return nil, m.UserInfoError
	}
	if m.Profile == nil {
		return &domain.UserProfile{Username: username}, nil
	}
	p := *m.Profile
	return &p, nil
}

func (m *MockAuthAPI) UserLogout(ctx context.Context, username, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UserLogoutCalls = append(m.UserLogoutCalls, TokenCall{Subject: username, Token: token})
	return m.UserLogoutError
}

func (m *MockAuthAPI) AdminLogin(ctx context.Context, username, password string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AdminLoginCalls = append(m.AdminLoginCalls, username)
	if m.AdminLoginError != nil {
		return "", m.AdminLoginError
	}
	return m.AdminToken, nil
}

func (m *MockAuthAPI) AdminInfo(ctx context.Context, username, adminToken string) (*domain.AdminProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AdminInfoCalls = append(m.AdminInfoCalls, TokenCall{Subject: username, Token: adminToken})
	if m.AdminInfoError != nil {
		return nil, m.AdminInfoError
	}
	if m.AdminProfile == nil {
		return &domain.AdminProfile{}, nil
	}
	p := *m.AdminProfile
	return &p, nil
}

func (m *MockAuthAPI) AdminLogout(ctx context.Context, adminID int64, adminToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AdminLogoutCalls = append(m.AdminLogoutCalls, TokenCall{ID: adminID, Token: adminToken})
	return m.AdminLogoutError
}

// UsageCall records one CreateUsageRecord invocation.
type UsageCall struct {
	Record     domain.UsageRecord
	AdminToken string
}

// UsageListCall records one ListUsageRecords invocation.
type UsageListCall struct {
	Query domain.UsageQuery
	Token string
}

// ProfitCall records one Profit invocation.
type ProfitCall struct {
	Query      domain.ProfitQuery
	AdminToken string
}

// MockUsageRecordAPI implements ports.UsageRecordAPI.
type MockUsageRecordAPI struct {
	mu     sync.RWMutex
	nextID int64

	// Responses
	Records []domain.UsageRecord
	Entries []domain.ProfitEntry

	Calls       []UsageCall
	ListCalls   []UsageListCall
	ProfitCalls []ProfitCall

	CreateError error
	ListError   error
}

var _ ports.UsageRecordAPI = (*MockUsageRecordAPI)(nil)

func NewMockUsageRecordAPI() *MockUsageRecordAPI {
	return &MockUsageRecordAPI{nextID: 1}
}

func (m *MockUsageRecordAPI) CreateUsageRecord(ctx context.Context, rec domain.UsageRecord, adminToken string) (*domain.UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, UsageCall{Record: rec, AdminToken: adminToken})
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	rec.RecordID = m.nextID
	m.nextID++
	return &rec, nil
}

func (m *MockUsageRecordAPI) ListUsageRecords(ctx context.Context, q domain.UsageQuery, token string) ([]domain.UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListCalls = append(m.ListCalls, UsageListCall{Query: q, Token: token})
	if m.ListError != nil {
		return nil, m.ListError
	}
	return append([]domain.UsageRecord(nil), m.Records...), nil
}

func (m *MockUsageRecordAPI) Profit(ctx context.Context, q domain.ProfitQuery, adminToken string) ([]domain.ProfitEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ProfitCalls = append(m.ProfitCalls, ProfitCall{Query: q, AdminToken: adminToken})
	if m.ListError != nil {
		return nil, m.ListError
	}
	return append([]domain.ProfitEntry(nil), m.Entries...), nil
}

// StoreCall records a store write and the token that signed it.
type StoreCall struct {
	Op         string
	Store      domain.Store
	AdminToken string
}

// MockStoreAPI implements ports.StoreAPI with an in-memory store table.
type MockStoreAPI struct {
	mu     sync.RWMutex
	stores map[int64]domain.Store
	nextID int64

	Calls []StoreCall
	Error error
}

var _ ports.StoreAPI = (*MockStoreAPI)(nil)

func NewMockStoreAPI() *MockStoreAPI {
	return &MockStoreAPI{stores: make(map[int64]domain.Store), nextID: 1}
}

func (m *MockStoreAPI) record(op string, store domain.Store, adminToken string) error {
	m.Calls = append(m.Calls, StoreCall{Op: op, Store: store, AdminToken: adminToken})
	return m.Error
}

func (m *MockStoreAPI) ListStores(ctx context.Context, adminToken string) ([]domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("list", domain.Store{}, adminToken); err != nil {
		return nil, err
	}
	out := make([]domain.Store, 0, len(m.stores))
	for i := int64(1); i < m.nextID; i++ {
		if st, ok := m.stores[i]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (m *MockStoreAPI) GetStore(ctx context.Context, storeID int64, adminToken string) (*domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("get", domain.Store{StoreID: storeID}, adminToken); err != nil {
		return nil, err
	}
	st, ok := m.stores[storeID]
	if !ok {
		return nil, domain.NewBusinessError(404, 404, "store not found")
	}
	return &st, nil
}

func (m *MockStoreAPI) AddStore(ctx context.Context, store domain.Store, adminToken string) (*domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("add", store, adminToken); err != nil {
		return nil, err
	}
	store.StoreID = m.nextID
	m.nextID++
	m.stores[store.StoreID] = store
	return &store, nil
}

func (m *MockStoreAPI) UpdateStore(ctx context.Context, store domain.Store, adminToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("update", store, adminToken); err != nil {
		return err
	}
	m.stores[store.StoreID] = store
	return nil
}

func (m *MockStoreAPI) DeleteStore(ctx context.Context, storeID int64, adminToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.record("delete", domain.Store{StoreID: storeID}, adminToken); err != nil {
		return err
	}
	delete(m.stores, storeID)
	return nil
}

// MockRecoveryAPI implements ports.RecoveryAPI for one account.
type MockRecoveryAPI struct {
	mu sync.Mutex

	Username string
	Phone    string
	Password string

	// Steps lists the calls in order, e.g. "verify:alice".
	Steps []string

	CheckError error
	ResetError error

	verified bool
}

var _ ports.RecoveryAPI = (*MockRecoveryAPI)(nil)

func (m *MockRecoveryAPI) CheckUsername(ctx context.Context, username string) (*domain.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Steps = append(m.Steps, "check:"+username)
	if m.CheckError != nil {
		return nil, m.CheckError
	}
	if username != m.Username {
		return nil, domain.NewBusinessError(200, 500, "username does not exist")
	}
	return &domain.UserProfile{Username: username, Phone: "***"}, nil
}

func (m *MockRecoveryAPI) VerifyPhone(ctx context.Context, username, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Steps = append(m.Steps, "verify:"+username)
	if username != m.Username || phone != m.Phone {
		return domain.NewBusinessError(200, 500, "phone number does not match")
	}
	m.verified = true
	return nil
}

func (m *MockRecoveryAPI) ResetPassword(ctx context.Context, username, newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Steps = append(m.Steps, "reset:"+username)
	if m.ResetError != nil {
		return m.ResetError
	}
	if !m.verified {
		return domain.NewBusinessError(200, 500, "verification expired")
	}
	m.Password = newPassword
	m.verified = false
	return nil
}
