package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
	"github.com/alcadeta/portfolio-goteam/pkg/storage"
	"github.com/alcadeta/portfolio-goteam/pkg/storage/storagetest"
)

func TestAuthorize(t *testing.T) {
	admin := Identity{Username: "bob", TeamID: 1, IsAdmin: true}
	member := Identity{Username: "alice", TeamID: 1, IsAdmin: false}
	ownBoard := &kanban.Board{ID: 10, Name: "Sprint", TeamID: 1}
	otherBoard := &kanban.Board{ID: 20, Name: "Theirs", TeamID: 2}

	authorizer := NewAuthorizer(storagetest.New())

	tests := []struct {
		name     string
		identity Identity
		action   Action
		board    *kanban.Board
		wantErr  error
	}{
		{"member accesses own board", member, ActionAccessBoard, ownBoard, nil},
		{"admin accesses own board", admin, ActionAccessBoard, ownBoard, nil},
		{"member accesses other team's board", member, ActionAccessBoard, otherBoard, ErrNotAuthorized},
		{"admin accesses other team's board", admin, ActionAccessBoard, otherBoard, ErrNotAuthorized},
		{"admin creates board", admin, ActionCreateBoard, nil, nil},
		{"member creates board", member, ActionCreateBoard, nil, ErrNotAuthorized},
		{"admin mutates own columns", admin, ActionMutateColumns, ownBoard, nil},
		{"member mutates own columns", member, ActionMutateColumns, ownBoard, ErrNotAuthorized},
		{"admin mutates other team's columns", admin, ActionMutateColumns, otherBoard, ErrNotAuthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := authorizer.Authorize(tc.identity, tc.action, tc.board)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuthorizeBoardID(t *testing.T) {
	store := storagetest.New()
	team := store.AddTeam("invite-code")
	board := store.AddBoard("Sprint", team.ID, "bob")

	authorizer := NewAuthorizer(store)
	identity := Identity{Username: "bob", TeamID: team.ID, IsAdmin: true}

	t.Run("resolves and authorizes", func(t *testing.T) {
		got, err := authorizer.AuthorizeBoardID(
			context.Background(), identity, ActionAccessBoard, board.ID,
		)
		require.NoError(t, err)
		assert.Equal(t, board.Name, got.Name)
	})

	t.Run("missing board", func(t *testing.T) {
		_, err := authorizer.AuthorizeBoardID(
			context.Background(), identity, ActionAccessBoard, 999,
		)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("wrong team", func(t *testing.T) {
		outsider := Identity{Username: "eve", TeamID: team.ID + 1}
		_, err := authorizer.AuthorizeBoardID(
			context.Background(), outsider, ActionAccessBoard, board.ID,
		)
		assert.ErrorIs(t, err, ErrNotAuthorized)
	})
}
