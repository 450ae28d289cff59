package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/AchilleasB/roombook/booking-client/internal/adapters/gateway"
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

type UsageRecordClient struct {
	gw Caller
}

var _ ports.UsageRecordAPI = (*UsageRecordClient)(nil)

func NewUsageRecordClient(gw Caller) *UsageRecordClient {
	return &UsageRecordClient{gw: gw}
}

func (c *UsageRecordClient) CreateUsageRecord(ctx context.Context, rec domain.UsageRecord, adminToken string) (*domain.UsageRecord, error) {
	out := rec
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/api/usage-records",
		Body:   rec,
		Header: signedWith(adminToken),
	}, &out)
	if err != nil && !errors.Is(err, gateway.ErrNoData) {
		return nil, err
	}
	return &out, nil
}

// ListUsageRecords picks the endpoint from q: the caller's own records, one
// store's records, or all of them.
func (c *UsageRecordClient) ListUsageRecords(ctx context.Context, q domain.UsageQuery, token string) ([]domain.UsageRecord, error) {
	path := "/api/usage-records"
	query := url.Values{}
	switch {
	case q.Own:
		path += "/self"
		if q.Year > 0 {
			query.Set("year", strconv.Itoa(q.Year))
		}
		if q.Month > 0 {
			query.Set("month", strconv.Itoa(q.Month))
		}
	case q.StoreID > 0:
		path += "/store/" + id(q.StoreID)
	}

	var records []domain.UsageRecord
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   path,
		Query:  query,
		Header: signedWith(token),
	}, &records)
	if err != nil && !errors.Is(err, gateway.ErrNoData) {
		return nil, err
	}
	if records == nil {
		records = []domain.UsageRecord{}
	}
	return records, nil
}

func (c *UsageRecordClient) Profit(ctx context.Context, q domain.ProfitQuery, adminToken string) ([]domain.ProfitEntry, error) {
	var entries []domain.ProfitEntry
	err := c.gw.Call(ctx, gateway.Request{
		Method: http.MethodGet,
		Path:   "/api/usage-records/" + string(q.Period) + "-profit",
		Query:  q.Values(),
		Header: signedWith(adminToken),
	}, &entries)
	if err != nil && !errors.Is(err, gateway.ErrNoData) {
		return nil, err
	}
	if entries == nil {
		entries = []domain.ProfitEntry{}
	}
	return entries, nil
}
