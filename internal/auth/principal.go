// Package auth issues and resolves the signed credentials that carry a
// caller's identity, role and tenant.
package auth

import (
	"akppos/internal/model"

	"github.com/google/uuid"
)

// Principal is the authenticated caller every tenant-scoped operation runs as.
type Principal struct {
	UserID   uuid.UUID  `json:"id"`
	Email    string     `json:"email"`
	Role     model.Role `json:"role"`
	TenantID uuid.UUID  `json:"tenantId"`
}

// IsAdmin reports whether the principal holds the ADMIN role.
func (p Principal) IsAdmin() bool { return p.Role == model.RoleAdmin }

// HasRole reports whether the principal holds any of roles.
func (p Principal) HasRole(roles ...model.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// PrincipalFor builds the principal a freshly authenticated user acts as.
func PrincipalFor(u *model.User) Principal {
	return Principal{UserID: u.ID, Email: u.Email, Role: u.Role, TenantID: u.TenantID}
}
