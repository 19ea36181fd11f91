package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/store-management/internal/domain"
	"github.com/spec-kit/store-management/pkg/errorutil"
)

const testSecret = "test-secret"

type fakeUsers struct {
	users map[string]*domain.User
}

func (f *fakeUsers) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := f.FindActive(ctx, username)
	if err != nil {
		return nil, err
	}
	if ComparePassword(user.PasswordHash, password) != nil {
		return nil, errorutil.New(errorutil.Unauthorized, "invalid credentials")
	}
	return user, nil
}

func (f *fakeUsers) FindActive(_ context.Context, username string) (*domain.User, error) {
	user, ok := f.users[username]
	if !ok {
		return nil, errorutil.New(errorutil.Unauthorized, "invalid credentials")
	}
	return user, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	hash, err := HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)

	users := &fakeUsers{users: map[string]*domain.User{
		"alice": {ID: 1, Username: "alice", PasswordHash: hash, Enabled: true, Roles: []domain.Role{{Name: domain.RoleUser}}},
		"boss":  {ID: 2, Username: "boss", PasswordHash: hash, Enabled: true, Roles: []domain.Role{{Name: domain.RoleUser}, {Name: domain.RoleManager}}},
	}}
	mw := NewAuthMiddleware(users, NewTokenVerifier(testSecret), "store")

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			appErr, ok := errorutil.Of(err)
			if !ok {
				return c.SendStatus(http.StatusInternalServerError)
			}
			switch appErr.Kind.Class {
			case errorutil.ClassUnauthorized:
				return c.Status(http.StatusUnauthorized).SendString(appErr.Message)
			case errorutil.ClassForbidden:
				return c.Status(http.StatusForbidden).SendString(appErr.Message)
			default:
				return c.SendStatus(http.StatusInternalServerError)
			}
		},
	})
	app.Get("/managed", mw.Handle, RequireAnyRole(domain.RoleManager, domain.RoleAdmin), func(c *fiber.Ctx) error {
		principal, _ := PrincipalFromContext(c)
		return c.SendString(principal.User.Username + ":" + string(principal.Scheme))
	})
	return app
}

func basic(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func bearer(t *testing.T, subject string, secret string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestAuthMiddleware(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "no credentials", header: "", status: http.StatusUnauthorized},
		{name: "basic manager", header: basic("boss", "s3cret"), status: http.StatusOK},
		{name: "basic wrong password", header: basic("boss", "nope"), status: http.StatusUnauthorized},
		{name: "basic lacks role", header: basic("alice", "s3cret"), status: http.StatusForbidden},
		{name: "basic garbage", header: "Basic !!!", status: http.StatusUnauthorized},
		{name: "bearer manager", header: bearer(t, "boss", testSecret, time.Minute), status: http.StatusOK},
		{name: "bearer expired", header: bearer(t, "boss", testSecret, -time.Minute), status: http.StatusUnauthorized},
		{name: "bearer bad signature", header: bearer(t, "boss", "other", time.Minute), status: http.StatusUnauthorized},
		{name: "bearer unknown user", header: bearer(t, "ghost", testSecret, time.Minute), status: http.StatusUnauthorized},
		{name: "unknown scheme", header: "Digest abc", status: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/managed", nil)
			if tc.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
			if tc.status == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="store"`, resp.Header.Get(fiber.HeaderWWWAuthenticate))
			}
		})
	}
}

func TestTokenVerifier_DisabledWithoutSecret(t *testing.T) {
	assert.Nil(t, NewTokenVerifier(""))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("pw", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "pw"))
	assert.ErrorIs(t, ComparePassword(hash, "other"), ErrPasswordMismatch)

	hash, err = HashPassword("pw", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
