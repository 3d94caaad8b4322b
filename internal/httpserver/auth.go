package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/middleware"
	"github.com/Skotchmaster/auth_service/internal/service"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	Metrics      *middleware.Metrics
	SecureCookie bool
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	AccessExp    time.Time `json:"access_exp"`
	RefreshExp   time.Time `json:"refresh_exp"`
}

func (h *AuthHTTP) writeTokens(c echo.Context, res *service.LoginResult) error {
	c.SetCookie(createCookie(middleware.AccessCookie, res.AccessToken, res.AccessExp, h.SecureCookie))
	c.SetCookie(createCookie(middleware.RefreshCookie, res.RefreshToken, res.RefreshExp, h.SecureCookie))

	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(h.Svc.Tokens.AccessTTL().Seconds()),
		AccessExp:    res.AccessExp,
		RefreshExp:   res.RefreshExp,
	})
}

func (h *AuthHTTP) clearTokens(c echo.Context) {
	c.SetCookie(deleteCookie(middleware.AccessCookie, h.SecureCookie))
	c.SetCookie(deleteCookie(middleware.RefreshCookie, h.SecureCookie))
}

// fail records the outcome and converts err for the client.
func (h *AuthHTTP) fail(c echo.Context, op string, err error) error {
	h.Metrics.Outcome(op, outcome(err))
	he := httpError(err)
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_"+op)
	if he.Code >= http.StatusInternalServerError {
		l.Error(op+"_error", "status", he.Code, "error", err)
	} else {
		l.Info(op+"_error", "status", he.Code, "error", err)
	}
	return he
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	profile, err := h.Svc.Register(ctx, service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		return h.fail(c, "register", err)
	}
	h.Metrics.Outcome("register", "ok")
	return c.JSON(http.StatusCreated, profile)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return h.fail(c, "login", err)
	}
	h.Metrics.Outcome("login", "ok")
	return h.writeTokens(c, res)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	token := req.RefreshToken
	if token == "" {
		if ck, err := c.Cookie(middleware.RefreshCookie); err == nil {
			token = ck.Value
		}
	}
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}

	res, err := h.Svc.RefreshToken(ctx, token)
	if err != nil {
		h.clearTokens(c)
		return h.fail(c, "refresh", err)
	}
	h.Metrics.Outcome("refresh", "ok")
	return h.writeTokens(c, res)
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.Bind(&req)

	access := middleware.AccessToken(c)
	if access == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}
	refresh := req.RefreshToken
	if refresh == "" {
		if ck, err := c.Cookie(middleware.RefreshCookie); err == nil {
			refresh = ck.Value
		}
	}

	if err := h.Svc.Logout(ctx, access, refresh); err != nil {
		return h.fail(c, "logout", err)
	}
	h.clearTokens(c)
	h.Metrics.Outcome("logout", "ok")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) Me(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}
	profile, err := h.Svc.GetUserProfile(c.Request().Context(), claims.Subject)
	if err != nil {
		return h.fail(c, "profile", err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *AuthHTTP) UpdateMe(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}
	var req struct {
		FullName *string `json:"full_name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	profile, err := h.Svc.UpdateUserProfile(c.Request().Context(), claims.Subject, service.ProfilePatch{FullName: req.FullName})
	if err != nil {
		return h.fail(c, "update_profile", err)
	}
	h.Metrics.Outcome("update_profile", "ok")
	return c.JSON(http.StatusOK, profile)
}

func (h *AuthHTTP) RequestPasswordReset(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := h.Svc.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return h.fail(c, "password_reset_request", err)
	}
	h.Metrics.Outcome("password_reset_request", "ok")
	return c.JSON(http.StatusAccepted, echo.Map{
		"message": "if the account exists, password reset instructions have been sent",
	})
}

func (h *AuthHTTP) ConfirmPasswordReset(c echo.Context) error {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := h.Svc.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return h.fail(c, "password_reset", err)
	}
	h.Metrics.Outcome("password_reset", "ok")
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

func (h *AuthHTTP) ListRoles(c echo.Context) error {
	roles, err := h.Svc.ListRoles(c.Request().Context())
	if err != nil {
		return h.fail(c, "list_roles", err)
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *AuthHTTP) ListPermissions(c echo.Context) error {
	perms, err := h.Svc.ListPermissions(c.Request().Context())
	if err != nil {
		return h.fail(c, "list_permissions", err)
	}
	return c.JSON(http.StatusOK, perms)
}

func (h *AuthHTTP) AssignRole(c echo.Context) error {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	profile, err := h.Svc.AssignRole(c.Request().Context(), c.Param("id"), req.Role)
	if err != nil {
		return h.fail(c, "assign_role", err)
	}
	h.Metrics.Outcome("assign_role", "ok")
	return c.JSON(http.StatusOK, profile)
}
