package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/AchilleasB/roombook/booking-client/internal/adapters/gateway"
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

// RecoveryClient calls the password recovery endpoints. They are listed as
// exempt paths, so the gate sends them unsigned even while a scope is active.
type RecoveryClient struct {
	gw Caller
}

var _ ports.RecoveryAPI = (*RecoveryClient)(nil)

func NewRecoveryClient(gw Caller) *RecoveryClient {
	return &RecoveryClient{gw: gw}
}

func (c *RecoveryClient) CheckUsername(ctx context.Context, username string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/api/user/check-username",
		Query:  url.Values{"username": {username}},
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *RecoveryClient) VerifyPhone(ctx context.Context, username, phone string) error {
	return c.gw.Call(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/api/user/verify-phone",
		Body:   map[string]string{"username": username, "phone": phone},
	}, nil)
}

func (c *RecoveryClient) ResetPassword(ctx context.Context, username, newPassword string) error {
	return c.gw.Call(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/api/user/reset-password",
		Body:   map[string]string{"username": username, "newPassword": newPassword},
	}, nil)
}
