package tenant

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"financeplanner/internal/apperr"
)

// MaxNameLength matches the tenants.name column width.
const MaxNameLength = 255

var (
	ErrInvalidName = apperr.New(apperr.Validation, "tenant name must be between 1 and 255 characters")
	ErrInvalidRole = apperr.New(apperr.Validation, "invalid role")
)

// Tenant is an isolated workspace that owns accounts and transactions.
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role is a member's privilege level within one tenant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

var roleRank = map[Role]int{
	RoleOwner:  4,
	RoleAdmin:  3,
	RoleMember: 2,
	RoleViewer: 1,
}

// Rank orders roles: owner > admin > member > viewer. Unknown roles rank 0.
func (r Role) Rank() int {
	return roleRank[r]
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// AtLeast reports whether r grants at least the privileges of min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r.Rank() >= min.Rank()
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Membership links a user to a tenant with a role.
// There is at most one membership per (tenant, user).
type Membership struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	UserID    int64     `json:"user_id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is a membership enriched with the member's external identity.
type Member struct {
	Membership
	AuthUserID string `json:"auth_user_id"`
}

// Summary is a tenant as seen by one of its members.
type Summary struct {
	Tenant
	Role Role `json:"role"`
}

// NormalizeName trims a tenant name and checks its length.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}
