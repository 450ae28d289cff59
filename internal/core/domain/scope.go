package domain

import "strings"

// Scope identifies one of the two independent credential contexts a session
// may hold.
type Scope string

const (
	ScopeUser  Scope = "USER"
	ScopeAdmin Scope = "ADMIN"
)

const (
	UserLoginPath  = "/login"
	AdminLoginPath = "/adminlogin"
	adminPrefix    = "/admin"
)

// LoginPath is the navigation entry point a scope is sent to after
// invalidation.
func (s Scope) LoginPath() string {
	if s == ScopeAdmin {
		return AdminLoginPath
	}
	return UserLoginPath
}

// ScopeForPath reports which scope is acting for a navigation path. Any
// admin-prefixed path implies the Admin scope.
func ScopeForPath(path string) Scope {
	if strings.HasPrefix(path, adminPrefix) {
		return ScopeAdmin
	}
	return ScopeUser
}

// Credential is a live credential scope.
type Credential struct {
	Scope   Scope  `json:"scope"`
	Token   string `json:"-"`
	Name    string `json:"name"`
	ID      int64  `json:"id,omitempty"`
	StoreID string `json:"store_id,omitempty"`
	Role    string `json:"role,omitempty"`
}

// Active reports whether the scope holds a token usable for signing.
func (c Credential) Active() bool {
	return c.Token != ""
}

type UserProfile struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Phone    string `json:"phone,omitempty"`
}

type AdminProfile struct {
	AdminID int64  `json:"adminId"`
	Role    string `json:"role"`
	StoreID string `json:"storeId,omitempty"`
}
