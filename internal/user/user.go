package user

import (
	"context"
	"strings"
	"time"

	userDatamodel "github.com/frahmantamala/plant-operations/internal/core/datamodel/user"
	"github.com/frahmantamala/plant-operations/internal/permission"
)

type Role string

const (
	RoleSuperAdmin      Role = "Super Admin"
	RoleAdmin           Role = "Admin"
	RoleAdminTonasa2    Role = "Admin Tonasa 2"
	RoleAdminTonasa3    Role = "Admin Tonasa 3"
	RoleAdminTonasa4    Role = "Admin Tonasa 4"
	RoleOperator        Role = "Operator"
	RoleOperatorTonasa2 Role = "Operator Tonasa 2"
	RoleOperatorTonasa3 Role = "Operator Tonasa 3"
	RoleOperatorTonasa4 Role = "Operator Tonasa 4"
	RoleGuest           Role = "Guest"
)

var roles = []Role{
	RoleSuperAdmin,
	RoleAdmin,
	RoleAdminTonasa2,
	RoleAdminTonasa3,
	RoleAdminTonasa4,
	RoleOperator,
	RoleOperatorTonasa2,
	RoleOperatorTonasa3,
	RoleOperatorTonasa4,
	RoleGuest,
}

func Roles() []Role {
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// ParseRole matches case-insensitively and returns the canonical spelling.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimSpace(s)
	for _, r := range roles {
		if strings.EqualFold(string(r), s) {
			return r, true
		}
	}
	return "", false
}

func (r Role) IsAdmin() bool {
	return strings.Contains(strings.ToLower(string(r)), "admin")
}

func (r Role) IsSuperAdmin() bool {
	return r == RoleSuperAdmin
}

type User struct {
	ID           int64             `json:"id"`
	Username     string            `json:"username"`
	FullName     string            `json:"full_name"`
	Email        string            `json:"email,omitempty"`
	PasswordHash string            `json:"-"`
	Role         Role              `json:"role"`
	IsActive     bool              `json:"is_active"`
	Permissions  permission.Matrix `json:"permissions"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// PermissionMatrix returns a copy of the attached matrix. A nil user yields the default-deny matrix.
func (u *User) PermissionMatrix() permission.Matrix {
	if u == nil {
		return permission.NewMatrix()
	}
	return u.Permissions.Clone()
}

func (u *User) Checker() *permission.Checker {
	return permission.CheckerFor(u)
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role.IsAdmin()
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Permissions = u.Permissions.Clone()
	return &c
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Username:     u.Username,
		FullName:     u.FullName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// FromDataModel keeps the stored role string even when it is not a known Role.
func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Username:     u.Username,
		FullName:     u.FullName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         Role(u.Role),
		IsActive:     u.IsActive,
		Permissions:  permission.NewMatrix(),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

type ctxKey struct{}

func NewContext(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*User)
	return u, ok && u != nil
}
