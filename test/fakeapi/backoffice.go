package fakeapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
)

func (s *Server) Store(id int64) (domain.Store, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stores[id]
	if !ok {
		return domain.Store{}, false
	}
	return *st, true
}

// rejectSigned refuses recovery calls that carry credentials.
func rejectSigned(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") == "" {
		return false
	}
	writeEnvelope(w, http.StatusBadRequest, 400, "unexpected credentials", nil)
	return true
}

func maskPhone(phone string) string {
	if len(phone) < 5 {
		return phone
	}
	return phone[:3] + "****" + phone[len(phone)-2:]
}

func (s *Server) checkUsername(w http.ResponseWriter, r *http.Request) {
	if rejectSigned(w, r) || s.injected(w, r) {
		return
	}
	username := r.URL.Query().Get("username")
	s.mu.Lock()
	acc, found := s.users[username]
	if found {
		s.recovery[username] = "checked"
	}
	s.mu.Unlock()
	if !found {
		badRequest(w, "username does not exist")
		return
	}
	ok(w, domain.UserProfile{Username: username, Phone: maskPhone(acc.phone)})
}

func (s *Server) verifyPhone(w http.ResponseWriter, r *http.Request) {
	if rejectSigned(w, r) || s.injected(w, r) {
		return
	}
	var body struct {
		Username string `json:"username"`
		Phone    string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" || body.Phone == "" {
		badRequest(w, "incomplete parameters")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recovery[body.Username] == "" {
		badRequest(w, "verification expired, start again")
		return
	}
	if acc := s.users[body.Username]; acc == nil || acc.phone != body.Phone {
		badRequest(w, "phone number does not match")
		return
	}
	s.recovery[body.Username] = "verified"
	ok(w, nil)
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	if rejectSigned(w, r) || s.injected(w, r) {
		return
	}
	var body struct {
		Username    string `json:"username"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" || body.NewPassword == "" {
		badRequest(w, "incomplete parameters")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recovery[body.Username] != "verified" {
		badRequest(w, "verification expired, start again")
		return
	}
	s.users[body.Username].password = body.NewPassword
	delete(s.recovery, body.Username)
	ok(w, nil)
}

func (s *Server) addRoom(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	var room domain.Room
	if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	room.RoomID = s.nextID
	s.rooms[room.RoomID] = &room
	ok(w, room)
}

func (s *Server) deleteRoom(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	id, _ := pathID(r)
	s.mu.Lock()
	_, found := s.rooms[id]
	delete(s.rooms, id)
	s.mu.Unlock()
	if !found {
		notFound(w, "room")
		return
	}
	ok(w, nil)
}

func (s *Server) listStores(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	s.mu.Lock()
	out := make([]domain.Store, 0, len(s.stores))
	for _, st := range s.stores {
		out = append(out, *st)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StoreID < out[j].StoreID })
	ok(w, out)
}

func (s *Server) getStore(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	id, _ := pathID(r)
	st, found := s.Store(id)
	if !found {
		notFound(w, "store")
		return
	}
	ok(w, st)
}

func (s *Server) addStore(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	var st domain.Store
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	s.mu.Lock()
	s.nextID++
	st.StoreID = s.nextID
	s.stores[st.StoreID] = &st
	s.mu.Unlock()
	// Like the real server, a created store is acknowledged without data.
	ok(w, nil)
}

func (s *Server) updateStore(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	id, _ := pathID(r)
	var st domain.Store
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.stores[id]; !found {
		notFound(w, "store")
		return
	}
	st.StoreID = id
	s.stores[id] = &st
	ok(w, nil)
}

func (s *Server) deleteStore(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	id, _ := pathID(r)
	s.mu.Lock()
	_, found := s.stores[id]
	delete(s.stores, id)
	s.mu.Unlock()
	if !found {
		notFound(w, "store")
		return
	}
	ok(w, nil)
}

func (s *Server) usageWhere(keep func(domain.UsageRecord) bool) []domain.UsageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UsageRecord, 0, len(s.usage))
	for _, rec := range s.usage {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (s *Server) listUsageRecords(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	ok(w, s.usageWhere(func(domain.UsageRecord) bool { return true }))
}

func (s *Server) storeUsageRecords(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	storeID, err := strconv.ParseInt(chi.URLParam(r, "storeId"), 10, 64)
	if err != nil {
		badRequest(w, "invalid store id")
		return
	}
	ok(w, s.usageWhere(func(rec domain.UsageRecord) bool { return rec.StoreID == storeID }))
}

func (s *Server) ownUsageRecords(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	subject, _ := r.Context().Value(SubjectKey).(string)
	s.mu.Lock()
	acc := s.users[subject]
	s.mu.Unlock()
	if acc == nil {
		notFound(w, "user")
		return
	}
	ok(w, s.usageWhere(func(rec domain.UsageRecord) bool { return rec.UserID == acc.id }))
}

// profit answers with a single bucket holding every matching record.
func (s *Server) profit(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, r) {
		return
	}
	period, err := domain.ParseProfitPeriod(chi.URLParam(r, "period"))
	if err != nil {
		notFound(w, "report")
		return
	}
	storeID, _ := strconv.ParseInt(r.URL.Query().Get("storeId"), 10, 64)
	records := s.usageWhere(func(rec domain.UsageRecord) bool { return storeID == 0 || rec.StoreID == storeID })

	entry := domain.ProfitEntry{Period: string(period), Count: len(records)}
	for _, rec := range records {
		entry.Profit += rec.TotalPrice
	}
	ok(w, []domain.ProfitEntry{entry})
}
