package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func newTestMiddleware(t *testing.T) *Middleware {
	t.Helper()
	validator, err := NewJWKSValidator(&JWKSConfig{EnableVerification: false})
	require.NoError(t, err)
	return NewMiddleware(validator, zaptest.NewLogger(t))
}

func TestRequireOwnerInjectsIdentity(t *testing.T) {
	m := newTestMiddleware(t)
	owner := uuid.New()

	var gotOwner uuid.UUID
	handler := m.RequireOwner(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetOwnerID(r.Context())
		require.True(t, ok)
		gotOwner = id

		claims, ok := GetClaims(r.Context())
		require.True(t, ok)
		assert.Equal(t, owner.String(), claims.Subject)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/data-sources", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, owner.String()))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, owner, gotOwner)
}

func TestRequireOwnerRejectsMissingHeader(t *testing.T) {
	m := newTestMiddleware(t)

	handler := m.RequireOwner(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/data-sources", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unauthorized")
}

func TestRequireOwnerRejectsNonUUIDSubject(t *testing.T) {
	m := newTestMiddleware(t)

	handler := m.RequireOwner(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/data-sources", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "service-account"))
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireOwnerRejectsGarbageToken(t *testing.T) {
	m := newTestMiddleware(t)

	handler := m.RequireOwner(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/data-sources", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
