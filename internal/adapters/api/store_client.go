package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/AchilleasB/roombook/booking-client/internal/adapters/gateway"
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

type StoreClient struct {
	gw Caller
}

var _ ports.StoreAPI = (*StoreClient)(nil)

func NewStoreClient(gw Caller) *StoreClient {
	return &StoreClient{gw: gw}
}

func (c *StoreClient) ListStores(ctx context.Context, adminToken string) ([]domain.Store, error) {
	var stores []domain.Store
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/api/stores",
		Header: signedWith(adminToken),
	}, &stores)
	if err != nil && !errors.Is(err, gateway.ErrNoData) {
		return nil, err
	}
	if stores == nil {
		stores = []domain.Store{}
	}
	return stores, nil
}

func (c *StoreClient) GetStore(ctx context.Context, storeID int64, adminToken string) (*domain.Store, error) {
	var store domain.Store
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/api/stores/" + id(storeID),
		Header: signedWith(adminToken),
	}, &store)
	if err != nil {
		return nil, err
	}
	return &store, nil
}

// AddStore returns the stored record, or store itself when the server
// answers without data.
func (c *StoreClient) AddStore(ctx context.Context, store domain.Store, adminToken string) (*domain.Store, error) {
	out := store
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/api/stores",
		Body:   store,
		Header: signedWith(adminToken),
	}, &out)
	if err != nil && !errors.Is(err, gateway.ErrNoData) {
		return nil, err
	}
	return &out, nil
}

func (c *StoreClient) UpdateStore(ctx context.Context, store domain.Store, adminToken string) error {
	return c.gw.Call(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   "/api/stores/" + id(store.StoreID),
		Body:   store,
		Header: signedWith(adminToken),
	}, nil)
}

func (c *StoreClient) DeleteStore(ctx context.Context, storeID int64, adminToken string) error {
	return c.gw.Call(ctx, gateway.Request{
		Method: http.MethodDelete,
		Path:   "/api/stores/" + id(storeID),
		Header: signedWith(adminToken),
	}, nil)
}
