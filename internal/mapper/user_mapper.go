package mapper

import (
	"github.com/spec-kit/store-management/internal/api/dto"
	"github.com/spec-kit/store-management/internal/domain"
)

// UserToResponse converts a user to its public view; the password hash never leaves the service.
func UserToResponse(u domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Enabled:   u.Enabled,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		Roles:     u.RoleNames(),
	}
}
