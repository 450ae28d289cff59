package services

import (
	"context"
	"log/slog"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

const minPasswordLength = 6

// RecoveryService resets a forgotten password. It works without any login
// and leaves the session untouched.
type RecoveryService struct {
	api    ports.RecoveryAPI
	logger *slog.Logger
}

func NewRecoveryService(api ports.RecoveryAPI, logger *slog.Logger) *RecoveryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryService{api: api, logger: logger}
}

// LookupAccount returns the account's masked phone number, which the user
// must complete in ResetPassword.
func (s *RecoveryService) LookupAccount(ctx context.Context, username string) (*domain.UserProfile, error) {
	if username == "" {
		return nil, domain.NewValidationError("username is required")
	}
	return s.api.CheckUsername(ctx, username)
}

// ResetPassword looks the account up, verifies the full phone number and
// then sets the new password. The server only accepts the reset shortly
// after a successful verification.
func (s *RecoveryService) ResetPassword(ctx context.Context, username, phone, newPassword string) error {
	if username == "" || phone == "" {
		return domain.NewValidationError("username and phone are required")
	}
	if len(newPassword) < minPasswordLength {
		return domain.NewValidationError("password must be at least 6 characters")
	}
	if _, err := s.api.CheckUsername(ctx, username); err != nil {
		return err
	}
	if err := s.api.VerifyPhone(ctx, username, phone); err != nil {
		return err
	}
	if err := s.api.ResetPassword(ctx, username, newPassword); err != nil {
		return err
	}
	s.logger.Info("recovery: password reset", "username", username)
	return nil
}
