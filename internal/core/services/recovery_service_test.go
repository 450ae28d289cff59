package services_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/services"
	"github.com/AchilleasB/roombook/booking-client/test/mocks"
)

func newRecovery() (*services.RecoveryService, *mocks.MockRecoveryAPI) {
	api := &mocks.MockRecoveryAPI{Username: "alice", Phone: "13800138000", Password: "secret"}
	return services.NewRecoveryService(api, slog.New(slog.DiscardHandler)), api
}

func TestRecoveryService_LookupAccount(t *testing.T) {
	service, api := newRecovery()

	account, err := service.LookupAccount(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", account.Username)
	assert.Equal(t, []string{"check:alice"}, api.Steps)

	_, err = service.LookupAccount(context.Background(), "")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestRecoveryService_ResetPassword(t *testing.T) {
	service, api := newRecovery()

	require.NoError(t, service.ResetPassword(context.Background(), "alice", "13800138000", "n3w-secret"))
	assert.Equal(t, []string{"check:alice", "verify:alice", "reset:alice"}, api.Steps)
	assert.Equal(t, "n3w-secret", api.Password)
}

func TestRecoveryService_ResetPasswordStopsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name      string
		username  string
		phone     string
		password  string
		wantKind  error
		wantSteps []string
	}{
		{name: "short_password", username: "alice", phone: "13800138000", password: "abc", wantKind: domain.ErrValidation},
		{name: "missing_phone", username: "alice", password: "n3w-secret", wantKind: domain.ErrValidation},
		{name: "unknown_user", username: "bob", phone: "13800138000", password: "n3w-secret", wantKind: domain.ErrBusiness, wantSteps: []string{"check:bob"}},
		{name: "wrong_phone", username: "alice", phone: "13800000000", password: "n3w-secret", wantKind: domain.ErrBusiness, wantSteps: []string{"check:alice", "verify:alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, api := newRecovery()

			err := service.ResetPassword(context.Background(), tt.username, tt.phone, tt.password)
			assert.True(t, errors.Is(err, tt.wantKind))
			assert.Equal(t, tt.wantSteps, api.Steps)
			assert.Equal(t, "secret", api.Password)
		})
	}
}
