package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/store-management/internal/api/dto"
	"github.com/spec-kit/store-management/pkg/errorutil"
)

// UserService is the account workflow surface used by the handler.
type UserService interface {
	Create(ctx context.Context, req dto.UserCreateRequest) (*dto.UserResponse, error)
	AssignRole(ctx context.Context, req dto.AssignRoleRequest) (*dto.UserResponse, error)
}

// UsersHandler exposes account endpoints.
type UsersHandler struct {
	users UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Register handles POST /users.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.Wrap(errorutil.ValidationError, err, malformedBody(err))
	}

	user, err := h.users.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(user)
}

// AssignRole handles PATCH /users/assign-role.
func (h *UsersHandler) AssignRole(c *fiber.Ctx) error {
	var req dto.AssignRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.Wrap(errorutil.ValidationError, err, malformedBody(err))
	}

	user, err := h.users.AssignRole(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.JSON(user)
}
