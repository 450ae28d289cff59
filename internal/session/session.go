package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

// Session is the single authoritative holder of both credential scopes and
// the room cache. Credential writes go through to durable storage before
// they return.
type Session struct {
	mu     sync.RWMutex
	store  ports.KVStore
	jar    ports.CookieJar
	labels *domain.Labels
	logger *slog.Logger

	user  domain.Credential
	admin domain.Credential

	rooms       []domain.Room
	totalRooms  int
	lastApplied map[int64]int64
}

// New restores both scopes from durable storage.
func New(ctx context.Context, store ports.KVStore, jar ports.CookieJar, labels *domain.Labels, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		store:       store,
		jar:         jar,
		labels:      labels,
		logger:      logger,
		user:        domain.Credential{Scope: domain.ScopeUser},
		admin:       domain.Credential{Scope: domain.ScopeAdmin},
		lastApplied: make(map[int64]int64),
	}

	var err error
	if s.user.Token, err = s.load(ctx, ports.KeyUserToken); err != nil {
		return nil, err
	}
	if s.user.Name, err = s.load(ctx, ports.KeyUsername); err != nil {
		return nil, err
	}
	if s.admin.Token, err = s.load(ctx, ports.KeyAdminToken); err != nil {
		return nil, err
	}
	if s.admin.StoreID, err = s.load(ctx, ports.KeyStoreID); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) load(ctx context.Context, key string) (string, error) {
	v, _, err := s.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("restore session key %s: %w", key, err)
	}
	return v, nil
}

func (s *Session) Labels() *domain.Labels {
	return s.labels
}

// Credential returns a copy of the scope's credential.
func (s *Session) Credential(scope domain.Scope) domain.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if scope == domain.ScopeAdmin {
		return s.admin
	}
	return s.user
}

func (s *Session) Token(scope domain.Scope) string {
	return s.Credential(scope).Token
}

// SetUser persists a freshly issued user token and its username.
func (s *Session) SetUser(ctx context.Context, token, username string) error {
	if token == "" {
		return domain.NewValidationError("empty user token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(ctx, ports.KeyUserToken, token); err != nil {
		return err
	}
	if err := s.store.Set(ctx, ports.KeyUsername, username); err != nil {
		s.restore(ctx, ports.KeyUserToken, s.user.Token)
		return err
	}
	s.user.Token = token
	s.user.Name = username
	return nil
}

// SetUserProfile records the profile fetched after login. It is not
// persisted.
func (s *Session) SetUserProfile(p domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user.ID = p.UserID
	if p.Username != "" {
		s.user.Name = p.Username
	}
}

// SetAdminToken persists a freshly issued admin token.
func (s *Session) SetAdminToken(ctx context.Context, token, username string) error {
	if token == "" {
		return domain.NewValidationError("empty admin token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(ctx, ports.KeyAdminToken, token); err != nil {
		return err
	}
	s.admin.Token = token
	s.admin.Name = username
	return nil
}

// SetAdminProfile completes the admin scope. The store id is persisted only
// when the server reported one.
func (s *Session) SetAdminProfile(ctx context.Context, p domain.AdminProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.StoreID != "" {
		if err := s.store.Set(ctx, ports.KeyStoreID, p.StoreID); err != nil {
			return err
		}
		s.admin.StoreID = p.StoreID
	}
	s.admin.ID = p.AdminID
	s.admin.Role = p.Role
	return nil
}

// ClearScope destroys a scope: durable keys, memory and cookies. It reports
// whether a live token was cleared, so concurrent callers can tell which of
// them performed the invalidation. Durable keys are removed even when memory
// holds nothing; if that fails the scope is left untouched.
func (s *Session) ClearScope(ctx context.Context, scope domain.Scope) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := []string{ports.KeyUserToken, ports.KeyUsername}
	if scope == domain.ScopeAdmin {
		keys = []string{ports.KeyAdminToken, ports.KeyStoreID}
	}
	if err := s.store.Delete(ctx, keys...); err != nil {
		s.logger.Error("session: failed to delete durable keys, scope kept", "scope", scope, "error", err)
		return false, fmt.Errorf("clear %s scope: %w", scope, err)
	}

	var had bool
	if scope == domain.ScopeAdmin {
		had = s.admin.Active()
		s.admin = domain.Credential{Scope: domain.ScopeAdmin}
	} else {
		had = s.user.Active()
		s.user = domain.Credential{Scope: domain.ScopeUser}
	}
	if s.jar != nil {
		s.jar.Reset()
	}
	if had {
		s.logger.Info("session: scope cleared", "scope", scope)
	}
	return had, nil
}

// restore puts a durable key back to the in-memory value after a partial
// write. An empty value removes the key.
func (s *Session) restore(ctx context.Context, key, value string) {
	var err error
	if value == "" {
		err = s.store.Delete(ctx, key)
	} else {
		err = s.store.Set(ctx, key, value)
	}
	if err != nil {
		s.logger.Error("session: failed to roll back partial write", "key", key, "error", err)
	}
}

// SetRooms replaces the cached room list. Known status labels are
// normalized.
func (s *Session) SetRooms(rooms []domain.Room, total int) {
	cp := make([]domain.Room, len(rooms))
	copy(cp, rooms)
	for i := range cp {
		if st, ok := s.labels.Parse(cp[i].Status); ok {
			cp[i].Status = s.labels.Normalized(st)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = cp
	s.totalRooms = total
}

func (s *Session) Rooms() []domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]domain.Room, len(s.rooms))
	copy(cp, s.rooms)
	return cp
}

func (s *Session) TotalRooms() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalRooms
}

var errStaleEvent = errors.New("stale room status event")

// ApplyRoomStatus updates one cached room from an event. Events older than
// the last one applied to the same room are ignored. It reports whether the
// cache changed.
func (s *Session) ApplyRoomStatus(evt domain.RoomStatusChanged) bool {
	label := s.labels.Normalized(evt.Status)
	if label == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFresh(evt); err != nil {
		s.logger.Debug("session: ignoring room status event", "room_id", evt.RoomID, "timestamp", evt.Timestamp, "error", err)
		return false
	}
	s.lastApplied[evt.RoomID] = evt.Timestamp

	for i := range s.rooms {
		if s.rooms[i].RoomID == evt.RoomID {
			s.rooms[i].Status = label
			return true
		}
	}
	return false
}

func (s *Session) checkFresh(evt domain.RoomStatusChanged) error {
	if last, ok := s.lastApplied[evt.RoomID]; ok && evt.Timestamp < last {
		return errStaleEvent
	}
	return nil
}
