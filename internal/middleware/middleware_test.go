package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/auth_service/internal/config"
	"github.com/Skotchmaster/auth_service/internal/rbac"
	"github.com/Skotchmaster/auth_service/internal/service"
	"github.com/Skotchmaster/auth_service/internal/tokens"
)

type stubAuth struct {
	claims *tokens.Claims
	err    error
	got    string
}

func (s *stubAuth) Authenticate(_ context.Context, token string) (*tokens.Claims, error) {
	s.got = token
	return s.claims, s.err
}

func claimsWith(perms ...string) *tokens.Claims {
	return &tokens.Claims{
		Permissions:      perms,
		Type:             tokens.Access,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ID: "jti-1"},
	}
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestAccessToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		cookie string
		want   string
	}{
		{name: "bearer header", header: "Bearer abc", want: "abc"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "basic scheme", header: "Basic abc", want: ""},
		{name: "cookie fallback", cookie: "from-cookie", want: "from-cookie"},
		{name: "header wins", header: "Bearer abc", cookie: "from-cookie", want: "abc"},
		{name: "nothing", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AccessCookie, Value: tt.cookie})
			}
			c := echo.New().NewContext(req, httptest.NewRecorder())
			assert.Equal(t, tt.want, AccessToken(c))
		})
	}
}

func TestBearer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		auth   *stubAuth
		header string
		code   int
	}{
		{name: "valid", auth: &stubAuth{claims: claimsWith()}, header: "Bearer good", code: http.StatusOK},
		{name: "missing", auth: &stubAuth{}, code: http.StatusUnauthorized},
		{name: "rejected", auth: &stubAuth{err: service.ErrInvalidToken}, header: "Bearer bad", code: http.StatusUnauthorized},
		{name: "store down", auth: &stubAuth{err: service.ErrTransient}, header: "Bearer good", code: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := echo.New()
			e.GET("/", func(c echo.Context) error {
				claims, found := ClaimsFrom(c)
				require.True(t, found)
				assert.Equal(t, "user-1", c.Get(CtxUserID))
				assert.Equal(t, "user-1", claims.Subject)
				return ok(c)
			}, Bearer(tt.auth))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			assert.Equal(t, tt.code, serve(e, req).Code)
		})
	}
}

func TestRequirePermissions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		granted []string
		mw      echo.MiddlewareFunc
		code    int
	}{
		{name: "all held", granted: []string{rbac.UsersRead, rbac.UsersList}, mw: RequirePermissions(rbac.UsersRead, rbac.UsersList), code: http.StatusOK},
		{name: "all missing one", granted: []string{rbac.UsersRead}, mw: RequirePermissions(rbac.UsersRead, rbac.UsersList), code: http.StatusForbidden},
		{name: "any held", granted: []string{rbac.UsersList}, mw: RequireAnyPermission(rbac.UsersRead, rbac.UsersList), code: http.StatusOK},
		{name: "any none", granted: []string{rbac.AuthLogin}, mw: RequireAnyPermission(rbac.UsersRead, rbac.UsersList), code: http.StatusForbidden},
		{name: "wildcard", granted: []string{rbac.Wildcard}, mw: RequirePermissions(rbac.RolesUpdate), code: http.StatusOK},
		{name: "empty any without wildcard", granted: []string{rbac.UsersRead}, mw: RequireAnyPermission(), code: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := echo.New()
			e.GET("/", ok, Bearer(&stubAuth{claims: claimsWith(tt.granted...)}), tt.mw)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(echo.HeaderAuthorization, "Bearer t")
			assert.Equal(t, tt.code, serve(e, req).Code)
		})
	}
}

func TestRequirePermissions_WithoutBearer(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.GET("/", ok, RequirePermissions(rbac.UsersRead))
	assert.Equal(t, http.StatusUnauthorized, serve(e, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestRateLimit_LocalFallback(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.GET("/", ok, RateLimit(config.RateLimitConfig{Enabled: true, Requests: 3, Window: time.Hour, Prefix: "rl"}, nil))

	for range 3 {
		assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "198.51.100.7:1234"
	assert.Equal(t, http.StatusOK, serve(e, other).Code, "buckets are per client")
}

func TestRateLimit_BucketSpansRoutes(t *testing.T) {
	t.Parallel()

	e := echo.New()
	rl := RateLimit(config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Hour, Prefix: "rl"}, nil)
	e.GET("/a", ok, rl)
	e.POST("/b", ok, rl)

	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/a", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodPost, "/b", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, httptest.NewRequest(http.MethodGet, "/a", nil)).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, httptest.NewRequest(http.MethodPost, "/b", nil)).Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.GET("/", ok, RateLimit(config.RateLimitConfig{Enabled: false, Requests: 1, Window: time.Hour}, nil))
	for range 5 {
		assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestCSRF(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.POST("/", ok, CSRF(DefaultCSRFConfig()))

	t.Run("no auth cookie passes", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodPost, "/", nil)).Code)
	})

	t.Run("bearer header passes", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer t")
		req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "t"})
		assert.Equal(t, http.StatusOK, serve(e, req).Code)
	})

	t.Run("cookie without token is rejected", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Origin", "http://example.com")
		req.AddCookie(&http.Cookie{Name: RefreshCookie, Value: "t"})
		assert.Equal(t, http.StatusForbidden, serve(e, req).Code)
	})

	t.Run("cross origin is rejected", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Origin", "http://evil.test")
		req.Header.Set("X-CSRF-Token", "tok")
		req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "t"})
		req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "tok"})
		assert.Equal(t, http.StatusForbidden, serve(e, req).Code)
	})

	t.Run("double submit passes", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Origin", "http://example.com")
		req.Header.Set("X-CSRF-Token", "tok")
		req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "t"})
		req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "tok"})
		assert.Equal(t, http.StatusOK, serve(e, req).Code)
	})
}

func TestCommon_LogsWithRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	e := echo.New()
	for _, m := range Common(base) {
		e.Use(m)
	}
	e.GET("/boom", func(echo.Context) error { return errors.New("boom") })
	e.GET("/panic", func(echo.Context) error { panic("kaboom") })

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	rid := rec.Header().Get(echo.HeaderXRequestID)
	assert.Len(t, rid, 26)
	assert.Contains(t, buf.String(), rid)
	assert.Contains(t, buf.String(), `"status":500`)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNewRequestID_Monotonic(t *testing.T) {
	t.Parallel()

	a, b := NewRequestID(), NewRequestID()
	assert.Less(t, a, b)
}
