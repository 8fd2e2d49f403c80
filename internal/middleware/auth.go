package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const identityKey = "identity"

const (
	PermissionOrdersRead   = "orders.read"
	PermissionOrdersManage = "orders.manage"
)

// Claims is the token payload issued by the storefront's auth service.
type Claims struct {
	Email       string   `json:"email"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller.
type Identity struct {
	UserID      string
	Email       string
	Permissions []string
}

func (i *Identity) Has(permission string) bool {
	return slices.Contains(i.Permissions, permission)
}

// AuthMiddleware requires a valid HS256 bearer token and stores the caller's Identity on the context.
func AuthMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, err := parseBearer(c.Request().Header.Get(echo.HeaderAuthorization), secret)
			if err != nil {
				c.Logger().Debugf("auth rejected: %v", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}

			c.Set(identityKey, identity)
			return next(c)
		}
	}
}

func parseBearer(header string, secret []byte) (*Identity, error) {
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return nil, errors.New("missing bearer token")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return &Identity{
		UserID:      claims.Subject,
		Email:       claims.Email,
		Permissions: claims.Permissions,
	}, nil
}

// CurrentIdentity returns the caller set by AuthMiddleware, or nil on unauthenticated routes.
func CurrentIdentity(c echo.Context) *Identity {
	identity, _ := c.Get(identityKey).(*Identity)
	return identity
}

// RequirePermission must run after AuthMiddleware.
func RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := CurrentIdentity(c)
			if identity == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
			}
			if !identity.Has(permission) {
				return echo.NewHTTPError(http.StatusForbidden, "missing permission "+permission)
			}
			return next(c)
		}
	}
}
