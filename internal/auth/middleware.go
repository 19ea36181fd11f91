package auth

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/store-management/internal/domain"
	"github.com/spec-kit/store-management/pkg/errorutil"
)

const principalKey = "auth_principal"

// Scheme names the credential type a request was authenticated with.
type Scheme string

const (
	SchemeBasic  Scheme = "basic"
	SchemeBearer Scheme = "bearer"
)

// Principal represents the authenticated caller.
type Principal struct {
	User   *domain.User
	Scheme Scheme
}

// UserLookup resolves credentials to enabled users.
type UserLookup interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	FindActive(ctx context.Context, username string) (*domain.User, error)
}

// AuthMiddleware accepts HTTP Basic credentials or HS256 bearer tokens.
type AuthMiddleware struct {
	users  UserLookup
	tokens *TokenVerifier
	realm  string
}

// NewAuthMiddleware constructs middleware. A nil verifier rejects bearer tokens.
func NewAuthMiddleware(users UserLookup, tokens *TokenVerifier, realm string) *AuthMiddleware {
	return &AuthMiddleware{users: users, tokens: tokens, realm: realm}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	principal, err := m.authenticate(c)
	if err != nil {
		if errorutil.IsKind(err, errorutil.Unauthorized) {
			c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="`+m.realm+`"`)
		}
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx) (*Principal, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return nil, errorutil.New(errorutil.Unauthorized, "missing authorization header")
	}

	scheme, credentials, ok := strings.Cut(header, " ")
	if !ok || credentials == "" {
		return nil, errorutil.New(errorutil.Unauthorized, "invalid authorization header")
	}

	ctx := c.UserContext()
	switch Scheme(strings.ToLower(scheme)) {
	case SchemeBasic:
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(credentials))
		if err != nil {
			return nil, errorutil.New(errorutil.Unauthorized, "invalid basic credentials")
		}
		username, password, ok := strings.Cut(string(raw), ":")
		if !ok {
			return nil, errorutil.New(errorutil.Unauthorized, "invalid basic credentials")
		}
		user, err := m.users.Authenticate(ctx, username, password)
		if err != nil {
			return nil, err
		}
		return &Principal{User: user, Scheme: SchemeBasic}, nil
	case SchemeBearer:
		if m.tokens == nil {
			return nil, errorutil.New(errorutil.Unauthorized, "bearer tokens are not accepted")
		}
		claims, err := m.tokens.Verify(strings.TrimSpace(credentials))
		if err != nil {
			return nil, errorutil.Wrap(errorutil.Unauthorized, err, "invalid token")
		}
		user, err := m.users.FindActive(ctx, claims.Subject)
		if err != nil {
			return nil, err
		}
		return &Principal{User: user, Scheme: SchemeBearer}, nil
	default:
		return nil, errorutil.New(errorutil.Unauthorized, "unsupported authorization scheme")
	}
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
