// ABOUTME: Canonical identity types shared by the registry, routers, and auth layer
// ABOUTME: Defines Identity, Role, and the code normalization applied at every boundary

package identity

import "strings"

// Role distinguishes the two kinds of wallboard users.
type Role string

const (
	RoleAgent      Role = "agent"
	RoleSupervisor Role = "supervisor"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAgent || r == RoleSupervisor
}

// Identity is a validated wallboard identity. It is established once per
// connection (by the auth layer) and never mutated afterwards.
type Identity struct {
	Code   string
	Role   Role
	TeamID *int
}

// NormalizeCode canonicalizes an agent or supervisor code: trimmed and
// upper-cased. All lookups and registry keys use the normalized form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
