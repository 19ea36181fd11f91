package domain

import "time"

// RoleName identifies a role by its unique name.
type RoleName string

const (
	RoleUser    RoleName = "USER"
	RoleManager RoleName = "MANAGER"
	RoleAdmin   RoleName = "ADMIN"
)

// Role is a named permission set assigned to users.
type Role struct {
	ID   int64
	Name RoleName
}

// User is an account allowed to call the API.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Enabled      bool
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(name RoleName) bool {
	for _, role := range u.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

// RoleNames lists the user's role names in assignment order.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, string(role.Name))
	}
	return names
}
