package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alcadeta/portfolio-goteam/pkg/auth"
	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
	"github.com/alcadeta/portfolio-goteam/pkg/middleware"
	"github.com/alcadeta/portfolio-goteam/pkg/observability"
	"github.com/alcadeta/portfolio-goteam/pkg/storage/storagetest"
)

// fixture is a server over an in-memory store seeded with one team, an
// admin ("bob") and a member ("alice"), with valid tokens for both.
type fixture struct {
	server *Server
	store  *storagetest.Store
	team   *kanban.Team
	tokens map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storagetest.New()
	team := store.AddTeam("invite-code")

	tokens := make(map[string]string)
	for username, isAdmin := range map[string]bool{"bob": true, "alice": false} {
		hash, err := bcrypt.GenerateFromPassword([]byte(username+"-pw"), bcrypt.MinCost)
		require.NoError(t, err)
		store.AddUser(username, team.ID, isAdmin, hash)

		token, err := auth.GenerateToken(username, hash)
		require.NoError(t, err)
		tokens[username] = token
	}

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return &fixture{
		server: NewServer(store, logger, nil),
		store:  store,
		team:   team,
		tokens: tokens,
	}
}

// do sends a request as the given user. An empty username sends no
// credential headers. A non-nil body is JSON-encoded.
func (f *fixture) do(t *testing.T, method, target, username string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, reader)
	if username != "" {
		req.Header.Set(middleware.HeaderAuthUser, username)
		req.Header.Set(middleware.HeaderAuthToken, f.tokens[username])
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

// fieldError decodes a `{<field>: {message, code}}` payload.
func fieldError(t *testing.T, rec *httptest.ResponseRecorder, field string) (message, code string) {
	t.Helper()
	var payload map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	require.Contains(t, payload, field, rec.Body.String())
	return payload[field]["message"], payload[field]["code"]
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, rec.Code, rec.Body.String())
}
