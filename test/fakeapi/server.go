// Package fakeapi is an in-memory booking API used by client tests. It speaks
// the same {code, message, data} envelope and bearer-token rules as the real
// server and lets tests inject failures per endpoint.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
)

const (
	LabelFree     = "空闲"
	LabelOccupied = "使用中"
)

type account struct {
	id       int64
	password string
	phone    string
	role     string
	storeID  string
}

// Failure makes the next matching requests answer with Status and, when
// Code is set, a 200 envelope carrying Code instead.
type Failure struct {
	Status  int
	Code    int
	Message string
	Times   int
}

type Server struct {
	mu       sync.Mutex
	auth     *AuthMiddleware
	gen      int
	users    map[string]*account
	admins   map[string]*account
	rooms    map[int64]*domain.Room
	stores   map[int64]*domain.Store
	bookings map[int64]*domain.Booking
	// recovery holds the step each username has reached: "checked" or
	// "verified".
	recovery map[string]string
	usage    []domain.UsageRecord
	nextID   int64
	failures map[string]*Failure
	requests []string
	logger   *slog.Logger

	httpServer *httptest.Server
}

// New starts a server seeded with user alice/secret (id 3, phone
// 13800138000), admin root/secret (id 11, store 5), stores 5 and 6 and
// rooms 7, 8 and 9.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		users: map[string]*account{
			"alice": {id: 3, password: "secret", phone: "13800138000", role: RoleUser},
		},
		admins: map[string]*account{
			"root": {id: 11, password: "secret", role: RoleAdmin, storeID: "5"},
		},
		rooms: map[int64]*domain.Room{
			7: {RoomID: 7, RoomName: "Room A", StoreID: 5, Price: 30, Status: LabelFree},
			8: {RoomID: 8, RoomName: "Room B", StoreID: 5, Price: 40, Status: LabelOccupied},
			9: {RoomID: 9, RoomName: "Room C", StoreID: 6, Price: 50, Status: LabelFree},
		},
		stores: map[int64]*domain.Store{
			5: {StoreID: 5, StoreName: "Downtown", Address: "1 Main St"},
			6: {StoreID: 6, StoreName: "Riverside", Address: "9 River Rd"},
		},
		bookings: make(map[int64]*domain.Booking),
		recovery: make(map[string]string),
		nextID:   100,
		failures: make(map[string]*Failure),
		logger:   logger,
	}
	s.auth = &AuthMiddleware{
		secret: []byte("fakeapi-test-secret"),
		gen:    s.generation,
		logger: logger,
	}
	s.httpServer = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	anyRole := s.auth.RequireRole(RoleUser, RoleAdmin)
	adminOnly := s.auth.RequireRole(RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/login", s.userLogin)
		r.Post("/user/logout", s.userLogout)
		r.Get("/user/check-username", s.checkUsername)
		r.Post("/user/verify-phone", s.verifyPhone)
		r.Post("/user/reset-password", s.resetPassword)
		r.With(anyRole).Get("/user/info", s.userInfo)

		r.Post("/admins/login", s.adminLogin)
		r.With(adminOnly).Get("/admins/info", s.adminInfo)
		r.With(adminOnly).Post("/admins/logout/{id}", s.adminLogout)

		r.Group(func(r chi.Router) {
			r.Use(anyRole)
			r.Get("/rooms", s.listRooms(false))
			r.Get("/rooms/available", s.listRooms(true))
			r.Get("/rooms/store/{storeId}", s.roomsByStore)
			r.Patch("/rooms/{id}/status", s.setRoomStatus)

			r.Post("/bookings", s.createBooking)
			r.Get("/bookings/{id}", s.getBooking)
			r.Delete("/bookings/{id}", s.deleteBooking)
			r.Put("/bookings/{id}/cancel", s.cancelBooking)
			r.Get("/users/{id}/bookings", s.userBookings)
		})

		r.With(anyRole).Get("/usage-records/self", s.ownUsageRecords)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/rooms", s.addRoom)
			r.Put("/rooms/{id}", s.updateRoom)
			r.Delete("/rooms/{id}", s.deleteRoom)

			r.Get("/stores", s.listStores)
			r.Post("/stores", s.addStore)
			r.Get("/stores/{id}", s.getStore)
			r.Put("/stores/{id}", s.updateStore)
			r.Delete("/stores/{id}", s.deleteStore)

			r.Get("/usage-records", s.listUsageRecords)
			r.Post("/usage-records", s.createUsageRecord)
			r.Get("/usage-records/store/{storeId}", s.storeUsageRecords)
			r.Get("/usage-records/{period}-profit", s.profit)
		})
	})
	return r
}

func (s *Server) URL() string {
	return s.httpServer.URL
}

func (s *Server) Close() {
	s.httpServer.Close()
}

// Fail registers a failure for route, written as "METHOD /path/pattern",
// e.g. "PATCH /api/rooms/{id}/status".
func (s *Server) Fail(route string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Times == 0 {
		f.Times = -1
	}
	if f.Status == 0 && f.Code == 0 {
		f.Status = http.StatusInternalServerError
	}
	s.failures[route] = &f
}

// Revoke invalidates every token issued so far.
func (s *Server) Revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
}

// UserToken issues a valid token for username without a login call.
func (s *Server) UserToken(username string) string {
	return s.auth.issue(username, RoleUser, s.generation())
}

func (s *Server) AdminToken(username string) string {
	return s.auth.issue(username, RoleAdmin, s.generation())
}

// Requests returns the "METHOD path" of every request received.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) Room(id int64) domain.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		return *r
	}
	return domain.Room{}
}

func (s *Server) Booking(id int64) (domain.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, false
	}
	return *b, true
}

func (s *Server) BookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *Server) UsageRecords() []domain.UsageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.UsageRecord(nil), s.usage...)
}

func (s *Server) generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// injected answers with a registered failure for the matched route.
func (s *Server) injected(w http.ResponseWriter, r *http.Request) bool {
	route := r.Method + " " + chi.RouteContext(r.Context()).RoutePattern()

	s.mu.Lock()
	f, ok := s.failures[route]
	if ok {
		if f.Times > 0 {
			f.Times--
		}
		if f.Times == 0 {
			delete(s.failures, route)
		}
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	msg := f.Message
	if msg == "" {
		msg = "injected failure"
	}
	if f.Code != 0 {
		writeEnvelope(w, http.StatusOK, f.Code, msg, nil)
		return true
	}
	writeEnvelope(w, f.Status, f.Status, msg, nil)
	return true
}

func writeEnvelope(w http.ResponseWriter, status, code int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    code,
		"message": message,
		"data":    data,
	})
}

func ok(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, 200, "success", data)
}

func badRequest(w http.ResponseWriter, message string) {
	writeEnvelope(w, http.StatusOK, 400, message, nil)
}

func notFound(w http.ResponseWriter, what string) {
	writeEnvelope(w, http.StatusNotFound, 404, what+" not found", nil)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, accounts map[string]*account) (string, *account, bool) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		badRequest(w, "invalid request body")
		return "", nil, false
	}
	s.mu.Lock()
	acc, found := accounts[c.Username]
	s.mu.Unlock()
	if !found || acc.password != c.Password {
		badRequest(w, "invalid username or password")
		return "", nil, false
	}
	return c.Username, acc, true
}

func (s *Server) userLogin(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	username, acc, valid := s.login(w, r, s.users)
	if !valid {
		return
	}
	ok(w, map[string]string{"token": s.auth.issue(username, acc.role, s.generation())})
}

func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	username, acc, valid := s.login(w, r, s.admins)
	if !valid {
		return
	}
	// Admin login answers with the bare token as data.
	ok(w, s.auth.issue(username, acc.role, s.generation()))
}

func (s *Server) userInfo(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	username := r.URL.Query().Get("username")
	s.mu.Lock()
	acc, found := s.users[username]
	s.mu.Unlock()
	if !found {
		notFound(w, "user")
		return
	}
	ok(w, domain.UserProfile{UserID: acc.id, Username: username, Phone: acc.phone})
}

func (s *Server) userLogout(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	if r.URL.Query().Get("username") == "" {
		badRequest(w, "username is required")
		return
	}
	ok(w, nil)
}

func (s *Server) adminInfo(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	username := r.URL.Query().Get("username")
	s.mu.Lock()
	acc, found := s.admins[username]
	s.mu.Unlock()
	if !found {
		notFound(w, "admin")
		return
	}
	ok(w, domain.AdminProfile{AdminID: acc.id, Role: "manager", StoreID: acc.storeID})
}

func (s *Server) adminLogout(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	if _, valid := pathID(r); !valid {
		badRequest(w, "invalid admin id")
		return
	}
	ok(w, nil)
}

func (s *Server) sortedRooms(keep func(domain.Room) bool) []domain.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if keep(*room) {
			out = append(out, *room)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

func (s *Server) listRooms(availableOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.injected(w, r) {
			return
		}
		ok(w, s.sortedRooms(func(room domain.Room) bool {
			return !availableOnly || room.Status == LabelFree
		}))
	}
}

func (s *Server) roomsByStore(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	storeID, err := strconv.ParseInt(chi.URLParam(r, "storeId"), 10, 64)
	if err != nil {
		badRequest(w, "invalid store id")
		return
	}
	ok(w, s.sortedRooms(func(room domain.Room) bool { return room.StoreID == storeID }))
}

func (s *Server) setRoomStatus(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	id, _ := pathID(r)
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if body.Status != LabelFree && body.Status != LabelOccupied {
		badRequest(w, fmt.Sprintf("unknown room status %q", body.Status))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	room, found := s.rooms[id]
	if !found {
		notFound(w, "room")
		return
	}
	room.Status = body.Status
	ok(w, nil)
}

func (s *Server) updateRoom(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	id, _ := pathID(r)
	var room domain.Room
	if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.rooms[id]; !found {
		notFound(w, "room")
		return
	}
	room.RoomID = id
	s.rooms[id] = &room
	ok(w, room)
}

func (s *Server) createBooking(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	var req domain.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	s.mu.Lock()
	if _, found := s.rooms[req.RoomID]; !found {
		s.mu.Unlock()
		badRequest(w, "room does not exist")
		return
	}
	s.nextID++
	b := &domain.Booking{
		ID:         s.nextID,
		RoomID:     req.RoomID,
		UserID:     req.UserID,
		Hours:      req.Hours,
		TotalPrice: req.TotalPrice,
		Status:     "active",
	}
	s.bookings[b.ID] = b
	out := *b
	s.mu.Unlock()

	writeEnvelope(w, http.StatusCreated, 201, "created", out)
}

func (s *Server) getBooking(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	id, _ := pathID(r)
	b, found := s.Booking(id)
	if !found {
		notFound(w, "booking")
		return
	}
	ok(w, b)
}

func (s *Server) deleteBooking(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	id, _ := pathID(r)
	s.mu.Lock()
	_, found := s.bookings[id]
	delete(s.bookings, id)
	s.mu.Unlock()
	if !found {
		notFound(w, "booking")
		return
	}
	ok(w, nil)
}

func (s *Server) cancelBooking(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	id, _ := pathID(r)
	s.mu.Lock()
	b, found := s.bookings[id]
	if found {
		b.Status = domain.BookingCancelled
	}
	s.mu.Unlock()
	if !found {
		notFound(w, "booking")
		return
	}
	// The cancel endpoint answers without a body, like the real server.
	ok(w, nil)
}

func (s *Server) userBookings(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	userID, _ := pathID(r)
	s.mu.Lock()
	out := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	ok(w, out)
}

func (s *Server) createUsageRecord(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	var rec domain.UsageRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	s.mu.Lock()
	s.nextID++
	rec.RecordID = s.nextID
	s.usage = append(s.usage, rec)
	s.mu.Unlock()
	ok(w, rec)
}
