package authclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeAuth(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		if req["password"] != "correct-horse" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid email or password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"a1","refresh_token":"r1","token_type":"bearer","expires_in":1800}`))
	})
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		if req["refresh_token"] != "r1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"invalid or expired token"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"a2","refresh_token":"r2","token_type":"bearer","expires_in":1800}`))
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("Authorization") {
		case "Bearer a1":
			_, _ = w.Write([]byte(`{"id":"u1","email":"a@x.com","role":"user","permissions":["auth:profile:read"]}`))
		case "Bearer limited":
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"you don't have enough rights"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"missing access token"}`))
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_LoginRefreshMe(t *testing.T) {
	t.Parallel()

	srv := newFakeAuth(t)
	c := NewClient(srv.URL + "/")
	ctx := context.Background()

	tok, err := c.Login(ctx, "a@x.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "a1", tok.AccessToken)
	assert.Equal(t, "bearer", tok.TokenType)

	next, err := c.Refresh(ctx, tok.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "r2", next.RefreshToken)

	me, err := c.Me(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", me.Email)
	assert.Equal(t, []string{"auth:profile:read"}, me.Permissions)
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()

	srv := newFakeAuth(t)
	c := NewClient(srv.URL)
	ctx := context.Background()

	_, err := c.Login(ctx, "a@x.com", "wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "invalid email or password", se.Message)

	_, err = c.Refresh(ctx, "stale")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Me(ctx, "limited")
	assert.ErrorIs(t, err, ErrForbidden)
}
