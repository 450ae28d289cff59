package fakeapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	SubjectKey contextKey = "subject"
	RoleKey    contextKey = "role"

	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AuthMiddleware validates HS256 bearer tokens issued by the fake server.
// Tokens minted before the last Revoke are rejected.
type AuthMiddleware struct {
	secret []byte
	gen    func() int
	logger *slog.Logger
}

func (m *AuthMiddleware) issue(subject, role string, gen int) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"gen":  gen,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (m *AuthMiddleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				m.logger.Debug("fakeapi: missing authorization header")
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}

			token, err := jwt.Parse(parts[1], func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return m.secret, nil
			})
			if err != nil || !token.Valid {
				m.logger.Debug("fakeapi: token rejected", "error", err)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				http.Error(w, "invalid token claims", http.StatusUnauthorized)
				return
			}

			if gen, _ := claims["gen"].(float64); int(gen) != m.gen() {
				http.Error(w, "token revoked", http.StatusUnauthorized)
				return
			}

			subject, _ := claims["sub"].(string)
			role, _ := claims["role"].(string)
			if subject == "" || role == "" {
				http.Error(w, "invalid token: missing claims", http.StatusUnauthorized)
				return
			}

			allowed := false
			for _, want := range roles {
				if role == want {
					allowed = true
					break
				}
			}
			if !allowed {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), SubjectKey, subject)
			ctx = context.WithValue(ctx, RoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
