package auth

import (
	"time"
)

// Role is the privilege level carried by an API token.
type Role string

// Token roles.
const (
	// RoleOperator may change the selection state and force blends.
	RoleOperator Role = "operator"
	// RoleViewer may only read status, queue and pool.
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOperator || r == RoleViewer
}

// CanMutate reports whether the role may change state.
func (r Role) CanMutate() bool {
	return r == RoleOperator
}

// Claims represents the claims stored in an admin API token.
// These are encrypted in v4.local tokens, so they're not readable without the key.
type Claims struct {
	Role Role `json:"role"`

	// Standard PASETO claims
	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}
