package services_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/roombook/booking-client/internal/adapters/storage"
	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/services"
	"github.com/AchilleasB/roombook/booking-client/internal/session"
	"github.com/AchilleasB/roombook/booking-client/test/mocks"
)

func newStoreService(t *testing.T, admin bool) (*services.StoreService, *mocks.MockStoreAPI) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	sess, err := session.New(context.Background(), storage.NewHub(logger).Open(), nil, mocks.TestLabels(), logger)
	require.NoError(t, err)
	if admin {
		require.NoError(t, sess.SetAdminToken(context.Background(), "admin-tok", "root"))
	}
	api := mocks.NewMockStoreAPI()
	return services.NewStoreService(api, sess, logger), api
}

func TestStoreService_Lifecycle(t *testing.T) {
	service, api := newStoreService(t, true)
	ctx := context.Background()

	added, err := service.AddStore(ctx, domain.Store{StoreName: "Downtown", Address: "1 Main St"})
	require.NoError(t, err)
	require.Equal(t, int64(1), added.StoreID)

	require.NoError(t, service.UpdateStore(ctx, domain.Store{StoreID: added.StoreID, StoreName: "Downtown East"}))
	got, err := service.GetStore(ctx, added.StoreID)
	require.NoError(t, err)
	assert.Equal(t, "Downtown East", got.StoreName)

	stores, err := service.ListStores(ctx)
	require.NoError(t, err)
	assert.Len(t, stores, 1)

	require.NoError(t, service.DeleteStore(ctx, added.StoreID))
	stores, err = service.ListStores(ctx)
	require.NoError(t, err)
	assert.Empty(t, stores)

	for _, call := range api.Calls {
		assert.Equal(t, "admin-tok", call.AdminToken, call.Op)
	}
}

func TestStoreService_Validation(t *testing.T) {
	tests := []struct {
		name  string
		admin bool
		call  func(*services.StoreService) error
	}{
		{name: "add_without_name", admin: true, call: func(s *services.StoreService) error {
			_, err := s.AddStore(context.Background(), domain.Store{Address: "1 Main St"})
			return err
		}},
		{name: "update_without_id", admin: true, call: func(s *services.StoreService) error {
			return s.UpdateStore(context.Background(), domain.Store{StoreName: "Downtown"})
		}},
		{name: "get_without_id", admin: true, call: func(s *services.StoreService) error {
			_, err := s.GetStore(context.Background(), 0)
			return err
		}},
		{name: "delete_without_id", admin: true, call: func(s *services.StoreService) error {
			return s.DeleteStore(context.Background(), 0)
		}},
		{name: "list_without_admin", call: func(s *services.StoreService) error {
			_, err := s.ListStores(context.Background())
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, api := newStoreService(t, tt.admin)
			err := tt.call(service)
			assert.True(t, errors.Is(err, domain.ErrValidation))
			assert.Empty(t, api.Calls)
		})
	}
}

func TestStoreService_PropagatesServerError(t *testing.T) {
	service, api := newStoreService(t, true)
	api.Error = domain.NewBusinessError(500, 500, "store service down")

	err := service.DeleteStore(context.Background(), 5)
	assert.True(t, errors.Is(err, domain.ErrBusiness))
	assert.Equal(t, "store service down", err.Error())
}
