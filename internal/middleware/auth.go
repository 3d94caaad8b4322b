package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/rbac"
	"github.com/Skotchmaster/auth_service/internal/service"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

const (
	CtxUserID = "user_id"
	CtxClaims = "claims"

	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*tokens.Claims, error)
}

// AccessToken reads the bearer token from the Authorization header and falls back to the access cookie.
func AccessToken(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if ck, err := c.Cookie(AccessCookie); err == nil {
		return ck.Value
	}
	return ""
}

func Bearer(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			token := AccessToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}

			claims, err := a.Authenticate(ctx, token)
			if err != nil {
				if errors.Is(err, service.ErrTransient) {
					logging.FromContext(ctx).Error("auth_unavailable", "error", err)
					return echo.NewHTTPError(http.StatusServiceUnavailable, "service temporarily unavailable")
				}
				logging.FromContext(ctx).Info("auth_rejected", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(CtxUserID, claims.Subject)
			c.Set(CtxClaims, claims)
			l := logging.FromContext(ctx).With("user_id", claims.Subject)
			c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, l)))
			return next(c)
		}
	}
}

func ClaimsFrom(c echo.Context) (*tokens.Claims, bool) {
	claims, ok := c.Get(CtxClaims).(*tokens.Claims)
	return claims, ok && claims != nil
}

// RequirePermissions passes only callers holding every listed permission.
func RequirePermissions(perms ...string) echo.MiddlewareFunc {
	return requirePermissions(rbac.All, perms)
}

// RequireAnyPermission passes callers holding at least one listed permission.
func RequireAnyPermission(perms ...string) echo.MiddlewareFunc {
	return requirePermissions(rbac.Any, perms)
}

func requirePermissions(mode rbac.Mode, perms []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}
			if err := rbac.Authorize(claims.Permissions, mode, perms...); err != nil {
				logging.FromContext(c.Request().Context()).Info("access_denied", "required", perms, "error", err)
				return echo.NewHTTPError(http.StatusForbidden, "you don't have enough rights")
			}
			return next(c)
		}
	}
}
