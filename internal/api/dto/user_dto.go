package dto

import "time"

// UserCreateRequest payload for new accounts.
type UserCreateRequest struct {
	Username string `json:"username" validate:"notblank,min=3,max=50"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// AssignRoleRequest payload for PATCH /users/assign-role.
type AssignRoleRequest struct {
	UserID   *int64 `json:"userId" validate:"required"`
	RoleName string `json:"roleName" validate:"notblank"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Roles     []string  `json:"roles"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Timestamp int64  `json:"timestamp"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}
