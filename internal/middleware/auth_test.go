package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verbindung/mitgliederamt/internal/auth"
)

func signToken(t *testing.T, secret string, roles []string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":                "user-1",
		"preferred_username": "anna",
		"roles":              roles,
		"exp":                time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func protectedEcho(t *testing.T) http.Handler {
	return AuthMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := auth.GetUserClaims(r.Context())
		require.NotNil(t, claims)
		assert.Equal(t, "user-1", claims.UserID())
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthMiddleware_ValidTokenWithRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MITGLIEDER_ROLE", "mitgliederverwaltung")

	req := httptest.NewRequest("GET", "/api/v1/mitglieder", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", []string{"mitgliederverwaltung"}))
	rec := httptest.NewRecorder()

	protectedEcho(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_MissingRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MITGLIEDER_ROLE", "mitgliederverwaltung")

	req := httptest.NewRequest("GET", "/api/v1/mitglieder", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "test-secret", []string{"andere-rolle"}))
	rec := httptest.NewRecorder()

	protectedEcho(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthMiddleware_BadSignature(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	req := httptest.NewRequest("GET", "/api/v1/mitglieder", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "wrong-secret", []string{"mitgliederverwaltung"}))
	rec := httptest.NewRecorder()

	protectedEcho(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	req := httptest.NewRequest("GET", "/api/v1/mitglieder", nil)
	rec := httptest.NewRecorder()

	protectedEcho(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
