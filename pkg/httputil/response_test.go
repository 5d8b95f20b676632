package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alcadeta/portfolio-goteam/pkg/auth"
	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
)

func decodeFieldPayload(t *testing.T, rec *httptest.ResponseRecorder) map[string]map[string]string {
	t.Helper()
	var payload map[string]map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestWriteFieldError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteFieldError(rec, kanban.NewFieldError(
		"team_id", "Team ID cannot be empty.", kanban.CodeBlank,
	))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	payload := decodeFieldPayload(t, rec)
	assert.Equal(t, "Team ID cannot be empty.", payload["team_id"]["message"])
	assert.Equal(t, "blank", payload["team_id"]["code"])
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantField  string
		wantCode   string
	}{
		{
			"wrapped authentication failure",
			fmt.Errorf("verify: %w", auth.ErrNotAuthenticated),
			http.StatusUnauthorized, "auth", "not_authenticated",
		},
		{
			"wrapped authorization failure",
			fmt.Errorf("check: %w", auth.ErrNotAuthorized),
			http.StatusForbidden, "username", "not_authorized",
		},
		{
			"field error passes through",
			kanban.NewFieldError("board_id", "Board not found.", kanban.CodeNotFound),
			http.StatusNotFound, "board_id", "not_found",
		},
		{
			"unknown error is a 500",
			errors.New("db down"),
			http.StatusInternalServerError, "", "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, "username", tc.err)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantField == "" {
				assert.NotContains(t, rec.Body.String(), "db down")
				return
			}
			payload := decodeFieldPayload(t, rec)
			assert.Equal(t, tc.wantCode, payload[tc.wantField]["code"])
		})
	}
}
