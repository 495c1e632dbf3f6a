package sessions_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-auth/aegis/internal/sessions"
	_ "github.com/aegis-auth/aegis/testing"
)

func newTestServer(t *testing.T) (*httptest.Server, *sessions.Service) {
	t.Helper()
	svc, _ := newService(t, sessions.Config{
		TTL:           time.Hour,
		MaxAttempts:   3,
		AttemptWindow: time.Hour,
	})
	r := chi.NewRouter()
	sessions.NewHandler(nil, svc).MountRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, svc
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestLoginEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/login", `{"email":"alice@example.com","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["token"])
}

func TestLoginEndpointBadCredentials(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/login", `{"email":"alice@example.com","password":"wrong password"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}

func TestLoginEndpointLockout(t *testing.T) {
	srv, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp := postJSON(t, srv.URL+"/login", `{"email":"alice@example.com","password":"wrong password"}`)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp := postJSON(t, srv.URL+"/login", `{"email":"alice@example.com","password":"correct horse"}`)
	assert.Equal(t, http.StatusLocked, resp.StatusCode)
}

func TestLoginEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/login", `{"email":"not-an-email","password":"short"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSessionEndpoint(t *testing.T) {
	srv, svc := newTestServer(t)
	token, err := svc.Login(context.Background(), "alice@example.com", "correct horse")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/session", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(7), body["user_id"])
}

func TestSessionEndpointWithoutToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/session")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutEndpoint(t *testing.T) {
	srv, svc := newTestServer(t)
	token, err := svc.Login(context.Background(), "alice@example.com", "correct horse")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/logout", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The closed session no longer resolves.
	_, err = svc.Validate(context.Background(), token)
	assert.Error(t, err)
}
