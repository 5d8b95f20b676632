package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alcadeta/portfolio-goteam/pkg/auth"
	"github.com/alcadeta/portfolio-goteam/pkg/contextkeys"
	"github.com/alcadeta/portfolio-goteam/pkg/storage/storagetest"
)

func TestAuth(t *testing.T) {
	store := storagetest.New()
	team := store.AddTeam("invite-code")
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	store.AddUser("bob", team.ID, true, hash)
	token, err := auth.GenerateToken("bob", hash)
	require.NoError(t, err)

	var seen auth.Identity
	handler := Auth(auth.NewVerifier(store), nil)(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			identity, ok := contextkeys.GetIdentity(r.Context())
			require.True(t, ok)
			seen = identity
			w.WriteHeader(http.StatusOK)
		},
	))

	t.Run("valid credentials pass through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/boards", nil)
		req.Header.Set(HeaderAuthUser, "bob")
		req.Header.Set(HeaderAuthToken, token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "bob", seen.Username)
		assert.True(t, seen.IsAdmin)
	})

	t.Run("missing headers fail", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/boards", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var payload map[string]map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, "Authentication failure.", payload["auth"]["message"])
		assert.Equal(t, "not_authenticated", payload["auth"]["code"])
	})

	t.Run("bad token fails", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/boards", nil)
		req.Header.Set(HeaderAuthUser, "bob")
		req.Header.Set(HeaderAuthToken, "wrong")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequestID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, contextkeys.GetRequestID(r.Context()))
	}))

	t.Run("generates when absent", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, id)
		assert.Equal(t, id, rec.Body.String())
	})

	t.Run("honors client-supplied ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	})
}

func TestRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := Recovery(logger)(http.HandlerFunc(
		func(http.ResponseWriter, *http.Request) { panic("boom") },
	))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}
