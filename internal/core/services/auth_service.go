package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AchilleasB/roombook/booking-client/internal/core/domain"
	"github.com/AchilleasB/roombook/booking-client/internal/core/ports"
)

const defaultAdminRole = "admin"

// CredentialStore is the part of the session the auth flows mutate.
type CredentialStore interface {
	Credential(scope domain.Scope) domain.Credential
	SetUser(ctx context.Context, token, username string) error
	SetUserProfile(p domain.UserProfile)
	SetAdminToken(ctx context.Context, token, username string) error
	SetAdminProfile(ctx context.Context, p domain.AdminProfile) error
	ClearScope(ctx context.Context, scope domain.Scope) (bool, error)
}

type AuthService struct {
	api    ports.AuthAPI
	creds  CredentialStore
	logger *slog.Logger
}

func NewAuthService(api ports.AuthAPI, creds CredentialStore, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{api: api, creds: creds, logger: logger}
}

// UserLogin exchanges credentials for a user token and stores it with the
// username.
func (s *AuthService) UserLogin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return domain.NewValidationError("username and password are required")
	}
	token, err := s.api.UserLogin(ctx, username, password)
	if err != nil {
		return err
	}
	if err := s.creds.SetUser(ctx, token, username); err != nil {
		return fmt.Errorf("store user session: %w", err)
	}
	s.logger.Info("auth: user logged in", "username", username)
	return nil
}

// FetchUserInfo loads the logged-in user's profile into the session.
func (s *AuthService) FetchUserInfo(ctx context.Context) (*domain.UserProfile, error) {
	cred := s.creds.Credential(domain.ScopeUser)
	if cred.Name == "" {
		return nil, domain.NewValidationError("no user is logged in")
	}
	p, err := s.api.UserInfo(ctx, cred.Name, cred.Token)
	if err != nil {
		return nil, err
	}
	s.creds.SetUserProfile(*p)
	return p, nil
}

// UserLogout tells the server and then clears the user scope. The token is
// only attached when it is a well-formed JWT.
func (s *AuthService) UserLogout(ctx context.Context) error {
	cred := s.creds.Credential(domain.ScopeUser)
	if cred.Name == "" {
		return domain.NewValidationError("logout failed: username unavailable")
	}

	token := cred.Token
	if !isJWT(token) {
		token = ""
	}
	if err := s.api.UserLogout(ctx, cred.Name, token); err != nil {
		return err
	}

	if _, err := s.creds.ClearScope(ctx, domain.ScopeUser); err != nil {
		return fmt.Errorf("clear user session: %w", err)
	}
	s.logger.Info("auth: user logged out", "username", cred.Name)
	return nil
}

// AdminLogin stores the admin token, then completes the scope from the
// admin profile. The scope is cleared again if the profile cannot be read.
func (s *AuthService) AdminLogin(ctx context.Context, username, password string) (*domain.AdminProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.NewValidationError("username and password are required")
	}

	token, err := s.api.AdminLogin(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if err := s.creds.SetAdminToken(ctx, token, username); err != nil {
		return nil, fmt.Errorf("store admin session: %w", err)
	}

	p, err := s.api.AdminInfo(ctx, username, token)
	if err != nil {
		s.clearAdmin(ctx)
		return nil, fmt.Errorf("fetch admin info: %w", err)
	}
	if p.AdminID == 0 {
		s.clearAdmin(ctx)
		return nil, domain.NewBusinessError(0, 0, "admin info incomplete: missing adminId")
	}
	if p.Role == "" {
		p.Role = defaultAdminRole
	}
	if err := s.creds.SetAdminProfile(ctx, *p); err != nil {
		s.clearAdmin(ctx)
		return nil, fmt.Errorf("store admin profile: %w", err)
	}

	s.logger.Info("auth: admin logged in", "username", username, "admin_id", p.AdminID, "store_id", p.StoreID)
	return p, nil
}

// AdminLogout always ends with the admin scope cleared. It fails when the
// admin id is unknown or the server rejects the logout.
func (s *AuthService) AdminLogout(ctx context.Context) error {
	cred := s.creds.Credential(domain.ScopeAdmin)
	if !cred.Active() {
		s.clearAdmin(ctx)
		return nil
	}
	if cred.ID == 0 {
		s.clearAdmin(ctx)
		return domain.NewValidationError("logout failed: admin id unavailable")
	}

	err := s.api.AdminLogout(ctx, cred.ID, cred.Token)
	s.clearAdmin(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("auth: admin logged out", "admin_id", cred.ID)
	return nil
}

func (s *AuthService) clearAdmin(ctx context.Context) {
	if _, err := s.creds.ClearScope(ctx, domain.ScopeAdmin); err != nil {
		s.logger.Error("auth: failed to clear admin session", "error", err)
	}
}

// isJWT reports whether token parses as a JWT. The signature is not checked.
func isJWT(token string) bool {
	if token == "" {
		return false
	}
	_, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	return err == nil
}
