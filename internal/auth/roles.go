package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/store-management/internal/domain"
	"github.com/spec-kit/store-management/pkg/errorutil"
)

// RequireAnyRole ensures the principal holds at least one of the allowed roles.
func RequireAnyRole(allowed ...domain.RoleName) fiber.Handler {
	names := make([]string, 0, len(allowed))
	for _, role := range allowed {
		names = append(names, string(role))
	}
	required := strings.Join(names, " or ")

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return errorutil.New(errorutil.Unauthorized, "no authenticated principal")
		}
		for _, role := range allowed {
			if principal.User.HasRole(role) {
				return c.Next()
			}
		}
		return errorutil.New(errorutil.Forbidden, "requires role "+required)
	}
}
