package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerAndLogin(t *testing.T, s *Server, email, password string) string {
	t.Helper()
	creds := credentialsRequest{Email: email, Password: password}

	rec := doJSON(t, s, http.MethodPost, "/auth/register", creds, "")
	require.Equal(t, http.StatusCreated, rec.Code, "register: %s", rec.Body.String())

	rec = doJSON(t, s, http.MethodPost, "/auth/login", creds, "")
	require.Equal(t, http.StatusOK, rec.Code, "login: %s", rec.Body.String())
	return decodeBody[map[string]string](t, rec)["token"]
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodPost, "/auth/register",
		credentialsRequest{Email: "analyst@example.com", Password: "short"}, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})
	registerAndLogin(t, s, "analyst@example.com", "correct horse battery")

	rec := doJSON(t, s, http.MethodPost, "/auth/login",
		credentialsRequest{Email: "analyst@example.com", Password: "wrong password"}, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})
	token := registerAndLogin(t, s, "analyst@example.com", "correct horse battery")

	rec := doJSON(t, s, http.MethodGet, "/auth/me", nil, token)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "analyst@example.com", body["email"])
}

func TestMeWithoutToken(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/auth/me", nil, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeWithGarbageToken(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodGet, "/auth/me", nil, "not-a-jwt")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFavoritesLifecycle(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})
	token := registerAndLogin(t, s, "analyst@example.com", "correct horse battery")

	rec := doJSON(t, s, http.MethodGet, "/favorites", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String(), "an empty list serializes as [], not null")

	rec = doJSON(t, s, http.MethodPost, "/favorites", map[string]string{"company": "AlphaChem"}, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/favorites", map[string]string{"company": "AlphaChem"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "duplicate favorites are rejected")

	rec = doJSON(t, s, http.MethodGet, "/favorites", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"AlphaChem"}, decodeBody[[]string](t, rec))

	rec = doJSON(t, s, http.MethodDelete, "/favorites/AlphaChem", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/favorites", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]string](t, rec))
}

func TestAddFavoriteRequiresCompany(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})
	token := registerAndLogin(t, s, "analyst@example.com", "correct horse battery")

	rec := doJSON(t, s, http.MethodPost, "/favorites", map[string]string{}, token)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFavoritesRequireAuth(t *testing.T) {
	s := newTestServer(t, seededStore(), &mockMarket{})

	rec := doJSON(t, s, http.MethodPost, "/favorites", map[string]string{"company": "AlphaChem"}, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
