package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/AchilleasB/roombook/booking-client/internal/adapters/gateway"
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

type RoomClient struct {
	gw Caller
}

var _ ports.RoomAPI = (*RoomClient)(nil)

func NewRoomClient(gw Caller) *RoomClient {
	return &RoomClient{gw: gw}
}

func (c *RoomClient) SetRoomStatus(ctx context.Context, roomID int64, label string) error {
	return c.gw.Call(ctx, gateway.Request{
		Method: http.MethodPatch,
		Path:   "/api/rooms/" + id(roomID) + "/status",
		Body:   map[string]string{"status": label},
	}, nil)
}

func (c *RoomClient) UpdateRoom(ctx context.Context, room domain.Room, adminToken string) error {
	return c.gw.Call(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   "/api/rooms/" + id(room.RoomID),
		Body:   room,
		Header: signedWith(adminToken),
	}, nil)
}

// AddRoom returns the created room, or room itself when the server answers
// without data.
func (c *RoomClient) AddRoom(ctx context.Context, room domain.Room, adminToken string) (*domain.Room, error) {
	out := room
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/api/rooms",
		Body:   room,
		Header: signedWith(adminToken),
	}, &out)
	if err != nil && !errors.Is(err, gateway.ErrNoData) {
		return nil, err
	}
	return &out, nil
}

func (c *RoomClient) DeleteRoom(ctx context.Context, roomID int64, adminToken string) error {
	return c.gw.Call(ctx, gateway.Request{
		Method: http.MethodDelete,
		Path:   "/api/rooms/" + id(roomID),
		Header: signedWith(adminToken),
	}, nil)
}

func (c *RoomClient) ListRooms(ctx context.Context, page domain.Page) ([]domain.Room, error) {
	return c.list(ctx, "/api/rooms", pageQuery(page))
}

func (c *RoomClient) ListAvailableRooms(ctx context.Context, page domain.Page) ([]domain.Room, error) {
	return c.list(ctx, "/api/rooms/available", pageQuery(page))
}

func (c *RoomClient) ListRoomsByStore(ctx context.Context, storeID string, page domain.Page) ([]domain.Room, error) {
	if storeID == "" {
		return nil, domain.NewValidationError("storeId is required")
	}
	return c.list(ctx, "/api/rooms/store/"+url.PathEscape(storeID), pageQuery(page))
}

// list tolerates data that is not an array by returning no rooms.
func (c *RoomClient) list(ctx context.Context, path string, q url.Values) ([]domain.Room, error) {
	var rooms []domain.Room
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  q,
	}, &rooms)
	if errors.Is(err, gateway.ErrNoData) {
		return []domain.Room{}, nil
	}
	if err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []domain.Room{}
	}
	return rooms, nil
}
