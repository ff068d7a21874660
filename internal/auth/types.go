package auth

import "errors"

// Role controls what a token holder may do through the HTTP API.
type Role string

// Roles.
const (
	// RoleOperator may read state and invoke tools.
	RoleOperator Role = "operator"

	// RoleViewer may only read registry, history, audit, and events.
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleOperator || r == RoleViewer
}

// CanInvokeTools reports whether r may call tools.
func (r Role) CanInvokeTools() bool {
	return r == RoleOperator
}

// Domain errors for the auth package.
var (
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrInvalidRole  = errors.New("auth: invalid role")
	ErrForbidden    = errors.New("auth: insufficient permissions")
	ErrNoSecret     = errors.New("auth: no signing secret configured")
)
