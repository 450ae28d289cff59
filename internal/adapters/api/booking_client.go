package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/AchilleasB/roombook/booking-client/internal/adapters/gateway"
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

type BookingClient struct {
	gw Caller
}

var _ ports.BookingAPI = (*BookingClient)(nil)

func NewBookingClient(gw Caller) *BookingClient {
	return &BookingClient{gw: gw}
}

func (c *BookingClient) CreateBooking(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	var b domain.Booking
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/api/bookings",
		Body:   req,
	}, &b)
	if err != nil {
		return nil, err
	}
	b.Status = b.Status.Normalize()
	return &b, nil
}

func (c *BookingClient) GetBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	var b domain.Booking
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/api/bookings/" + id(bookingID),
	}, &b)
	if err != nil {
		return nil, err
	}
	b.Status = b.Status.Normalize()
	return &b, nil
}

func (c *BookingClient) DeleteBooking(ctx context.Context, bookingID int64) error {
	return c.gw.Call(ctx, gateway.Request{
		Method: http.MethodDelete,
		Path:   "/api/bookings/" + id(bookingID),
	}, nil)
}

// CancelBooking returns the server's updated record, or a minimal cancelled
// record when the server answers without one.
func (c *BookingClient) CancelBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	var b domain.Booking
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   "/api/bookings/" + id(bookingID) + "/cancel",
	}, &b)
	if err != nil {
		if errors.Is(err, gateway.ErrNoData) {
			return &domain.Booking{ID: bookingID, Status: domain.BookingCancelled}, nil
		}
		return nil, err
	}
	if b.ID == 0 {
		b.ID = bookingID
	}
	if b.Status == "" {
		b.Status = domain.BookingCancelled
	}
	b.Status = b.Status.Normalize()
	return &b, nil
}

func (c *BookingClient) ListUserBookings(ctx context.Context, userID int64) ([]domain.Booking, error) {
	var list []domain.Booking
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/api/users/" + id(userID) + "/bookings",
	}, &list)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Status = list[i].Status.Normalize()
	}
	return list, nil
}
