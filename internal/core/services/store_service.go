package services

import (
	"context"
	"log/slog"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

// CredentialReader exposes the live credential scopes.
type CredentialReader interface {
	Credential(scope domain.Scope) domain.Credential
}

// StoreService manages stores. Every call is signed with the admin token.
type StoreService struct {
	api    ports.StoreAPI
	creds  CredentialReader
	logger *slog.Logger
}

func NewStoreService(api ports.StoreAPI, creds CredentialReader, logger *slog.Logger) *StoreService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreService{api: api, creds: creds, logger: logger}
}

func (s *StoreService) ListStores(ctx context.Context) ([]domain.Store, error) {
	token, err := adminToken(s.creds)
	if err != nil {
		return nil, err
	}
	return s.api.ListStores(ctx, token)
}

func (s *StoreService) GetStore(ctx context.Context, storeID int64) (*domain.Store, error) {
	if storeID <= 0 {
		return nil, domain.NewValidationError("storeId is required")
	}
	token, err := adminToken(s.creds)
	if err != nil {
		return nil, err
	}
	return s.api.GetStore(ctx, storeID, token)
}

func (s *StoreService) AddStore(ctx context.Context, store domain.Store) (*domain.Store, error) {
	if store.StoreName == "" {
		return nil, domain.NewValidationError("storeName is required")
	}
	token, err := adminToken(s.creds)
	if err != nil {
		return nil, err
	}
	out, err := s.api.AddStore(ctx, store, token)
	if err != nil {
		return nil, err
	}
	s.logger.Info("stores: store added", "store_id", out.StoreID, "name", out.StoreName)
	return out, nil
}

func (s *StoreService) UpdateStore(ctx context.Context, store domain.Store) error {
	if store.StoreID <= 0 {
		return domain.NewValidationError("storeId is required")
	}
	if store.StoreName == "" {
		return domain.NewValidationError("storeName is required")
	}
	token, err := adminToken(s.creds)
	if err != nil {
		return err
	}
	return s.api.UpdateStore(ctx, store, token)
}

func (s *StoreService) DeleteStore(ctx context.Context, storeID int64) error {
	if storeID <= 0 {
		return domain.NewValidationError("storeId is required")
	}
	token, err := adminToken(s.creds)
	if err != nil {
		return err
	}
	if err := s.api.DeleteStore(ctx, storeID, token); err != nil {
		return err
	}
	s.logger.Info("stores: store deleted", "store_id", storeID)
	return nil
}
