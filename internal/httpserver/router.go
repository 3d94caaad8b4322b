package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/middleware"
	"github.com/Skotchmaster/auth_service/internal/rbac"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

type Deps struct {
	AuthHandler   *AuthHTTP
	Authenticator middleware.Authenticator
	Metrics       *middleware.Metrics
	RateLimit     echo.MiddlewareFunc
	CSRF          echo.MiddlewareFunc
	Ready         map[string]Pinger
}

func Register(e *echo.Echo, d *Deps) {
	health := func(c echo.Context) error { return c.JSON(http.StatusOK, echo.Map{"status": "ok"}) }
	e.GET("/health", health)
	e.GET("/health/live", health)
	e.GET("/health/ready", ready(d.Ready))
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	api := e.Group("")
	if d.RateLimit != nil {
		api.Use(d.RateLimit)
	}
	if d.CSRF != nil {
		api.Use(d.CSRF)
	}

	h := d.AuthHandler
	bearer := middleware.Bearer(d.Authenticator)

	auth := api.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.LogOut)
	auth.POST("/password-reset/request", h.RequestPasswordReset)
	auth.POST("/password-reset/confirm", h.ConfirmPasswordReset)
	auth.GET("/me", h.Me, bearer, middleware.RequirePermissions(rbac.AuthProfileRead))
	auth.PUT("/me", h.UpdateMe, bearer, middleware.RequirePermissions(rbac.AuthProfileUpdate))

	private := api.Group("", bearer)
	private.GET("/roles", h.ListRoles, middleware.RequireAnyPermission(rbac.RolesList, rbac.RolesRead))
	private.GET("/permissions", h.ListPermissions, middleware.RequireAnyPermission(rbac.PermissionsList, rbac.PermissionsRead))
	private.PUT("/users/:id/role", h.AssignRole, middleware.RequirePermissions(rbac.RolesUpdate))
}

func ready(checks map[string]Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "checks": failed})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	}
}
