package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/AchilleasB/roombook/booking-client/internal/adapters/gateway"
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

type AuthClient struct {
	gw Caller
}

var _ ports.AuthAPI = (*AuthClient)(nil)

func NewAuthClient(gw Caller) *AuthClient {
	return &AuthClient{gw: gw}
}

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *AuthClient) UserLogin(ctx context.Context, username, password string) (string, error) {
	return c.login(ctx, "/api/user/login", username, password)
}

func (c *AuthClient) UserInfo(ctx context.Context, username, token string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/api/user/info",
		Query:  url.Values{"username": {username}},
		Header: signedWith(token),
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *AuthClient) UserLogout(ctx context.Context, username, token string) error {
	return c.gw.Call(ctx, gateway.Request{
		Method:    http.MethodPost,
		Path:      "/api/user/logout",
		Query:     url.Values{"username": {username}},
		Header:    signedWith(token),
		Anonymous: token == "",
	}, nil)
}

func (c *AuthClient) AdminLogin(ctx context.Context, username, password string) (string, error) {
	return c.login(ctx, "/api/admins/login", username, password)
}

func (c *AuthClient) AdminInfo(ctx context.Context, username, adminToken string) (*domain.AdminProfile, error) {
	var p domain.AdminProfile
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/api/admins/info",
		Query:  url.Values{"username": {username}},
		Header: signedWith(adminToken),
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *AuthClient) AdminLogout(ctx context.Context, adminID int64, adminToken string) error {
	return c.gw.Call(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/api/admins/logout/" + id(adminID),
		Header: signedWith(adminToken),
	}, nil)
}

// login returns the issued token, found either as data.token or as data
// itself.
func (c *AuthClient) login(ctx context.Context, path, username, password string) (string, error) {
	var data json.RawMessage
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   credentialsBody{Username: username, Password: password},
	}, &data)
	if err != nil {
		return "", err
	}

	var token string
	if json.Unmarshal(data, &token) == nil && token != "" {
		return token, nil
	}
	var wrapped struct {
		Token string `json:"token"`
	}
	if json.Unmarshal(data, &wrapped) == nil && wrapped.Token != "" {
		return wrapped.Token, nil
	}
	return "", domain.NewBusinessError(http.StatusOK, 0, "login failed: no token in response")
}
