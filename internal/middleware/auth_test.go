package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"apparel-checkout/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims middleware.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(perms ...string) middleware.Claims {
	return middleware.Claims{
		Email:       "ana@example.com",
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "cust-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func run(t *testing.T, token string, mws ...echo.MiddlewareFunc) (int, *middleware.Identity) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *middleware.Identity
	h := func(c echo.Context) error {
		seen = middleware.CurrentIdentity(c)
		return c.NoContent(http.StatusNoContent)
	}
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}

	if err := h(c); err != nil {
		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		return he.Code, seen
	}
	return rec.Code, seen
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("valid token", func(t *testing.T) {
		code, id := run(t, sign(t, jwt.SigningMethodHS256, secret, validClaims()), middleware.AuthMiddleware(secret))
		assert.Equal(t, http.StatusNoContent, code)
		require.NotNil(t, id)
		assert.Equal(t, "cust-1", id.UserID)
		assert.Equal(t, "ana@example.com", id.Email)
	})

	t.Run("missing token", func(t *testing.T) {
		code, _ := run(t, "", middleware.AuthMiddleware(secret))
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		code, _ := run(t, sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims()), middleware.AuthMiddleware(secret))
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("expired", func(t *testing.T) {
		c := validClaims()
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		code, _ := run(t, sign(t, jwt.SigningMethodHS256, secret, c), middleware.AuthMiddleware(secret))
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("no expiry", func(t *testing.T) {
		c := validClaims()
		c.ExpiresAt = nil
		code, _ := run(t, sign(t, jwt.SigningMethodHS256, secret, c), middleware.AuthMiddleware(secret))
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("other algorithm", func(t *testing.T) {
		code, _ := run(t, sign(t, jwt.SigningMethodHS512, secret, validClaims()), middleware.AuthMiddleware(secret))
		assert.Equal(t, http.StatusUnauthorized, code)
	})
}

func TestRequirePermission(t *testing.T) {
	t.Parallel()

	admin := sign(t, jwt.SigningMethodHS256, secret, validClaims(middleware.PermissionOrdersManage))
	customer := sign(t, jwt.SigningMethodHS256, secret, validClaims())

	code, _ := run(t, admin, middleware.AuthMiddleware(secret), middleware.RequirePermission(middleware.PermissionOrdersManage))
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = run(t, customer, middleware.AuthMiddleware(secret), middleware.RequirePermission(middleware.PermissionOrdersManage))
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = run(t, "", middleware.RequirePermission(middleware.PermissionOrdersManage))
	assert.Equal(t, http.StatusUnauthorized, code)
}
