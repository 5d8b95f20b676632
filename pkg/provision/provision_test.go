package provision

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alcadeta/portfolio-goteam/pkg/auth"
	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
	"github.com/alcadeta/portfolio-goteam/pkg/storage"
	"github.com/alcadeta/portfolio-goteam/pkg/storage/storagetest"
)

func TestEnsureTeamBoards(t *testing.T) {
	t.Run("existing boards pass through", func(t *testing.T) {
		store := storagetest.New()
		team := store.AddTeam("code")
		store.AddBoard("Sprint", team.ID)
		admin := auth.Identity{Username: "bob", TeamID: team.ID, IsAdmin: true}

		boards, created, err := New(store).EnsureTeamBoards(context.Background(), admin, team.ID)
		require.NoError(t, err)
		assert.False(t, created)
		require.Len(t, boards, 1)
		assert.Equal(t, "Sprint", boards[0].Name)
	})

	t.Run("admin triggers creation", func(t *testing.T) {
		store := storagetest.New()
		team := store.AddTeam("code")
		admin := auth.Identity{Username: "bob", TeamID: team.ID, IsAdmin: true}

		boards, created, err := New(store).EnsureTeamBoards(context.Background(), admin, team.ID)
		require.NoError(t, err)
		assert.True(t, created)
		require.Len(t, boards, 1)
		assert.Equal(t, DefaultBoardName, boards[0].Name)

		// The created board carries the default four columns.
		columns, err := store.ColumnsByBoard(context.Background(), boards[0].ID)
		require.NoError(t, err)
		assert.Len(t, columns, kanban.ColumnCount)
	})

	t.Run("non-admin gets not found", func(t *testing.T) {
		store := storagetest.New()
		team := store.AddTeam("code")
		member := auth.Identity{Username: "alice", TeamID: team.ID}

		_, _, err := New(store).EnsureTeamBoards(context.Background(), member, team.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("admin of another team gets not found", func(t *testing.T) {
		store := storagetest.New()
		team := store.AddTeam("code")
		other := store.AddTeam("other")
		admin := auth.Identity{Username: "bob", TeamID: other.ID, IsAdmin: true}

		_, _, err := New(store).EnsureTeamBoards(context.Background(), admin, team.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("concurrent calls create one board", func(t *testing.T) {
		store := storagetest.New()
		team := store.AddTeam("code")
		admin := auth.Identity{Username: "bob", TeamID: team.ID, IsAdmin: true}
		provisioner := New(store)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := provisioner.EnsureTeamBoards(context.Background(), admin, team.ID)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		boards, err := store.BoardsByTeam(context.Background(), team.ID)
		require.NoError(t, err)
		assert.Len(t, boards, 1)
	})
}

func TestEnsureUserBoard(t *testing.T) {
	t.Run("boardless admin gets a board with membership", func(t *testing.T) {
		store := storagetest.New()
		team := store.AddTeam("code")
		store.AddUser("bob", team.ID, true, nil)
		admin := auth.Identity{Username: "bob", TeamID: team.ID, IsAdmin: true}

		boards, err := New(store).EnsureUserBoard(context.Background(), admin)
		require.NoError(t, err)
		require.Len(t, boards, 1)
		assert.Equal(t, DefaultBoardName, boards[0].Name)

		members, err := store.BoardMemberUsernames(context.Background(), boards[0].ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, members)
	})

	t.Run("boardless non-admin gets nothing", func(t *testing.T) {
		store := storagetest.New()
		team := store.AddTeam("code")
		member := auth.Identity{Username: "alice", TeamID: team.ID}

		boards, err := New(store).EnsureUserBoard(context.Background(), member)
		require.NoError(t, err)
		assert.Empty(t, boards)
	})

	t.Run("member of a board passes through", func(t *testing.T) {
		store := storagetest.New()
		team := store.AddTeam("code")
		existing := store.AddBoard("Sprint", team.ID, "bob")
		admin := auth.Identity{Username: "bob", TeamID: team.ID, IsAdmin: true}

		boards, err := New(store).EnsureUserBoard(context.Background(), admin)
		require.NoError(t, err)
		require.Len(t, boards, 1)
		assert.Equal(t, existing.ID, boards[0].ID)
	})
}

func TestEnsureColumns(t *testing.T) {
	t.Run("creates four ordered columns once", func(t *testing.T) {
		store := storagetest.New()
		team := store.AddTeam("code")
		board := store.AddBoardWithoutColumns("Sprint", team.ID)
		provisioner := New(store)

		columns, created, err := provisioner.EnsureColumns(context.Background(), board.ID)
		require.NoError(t, err)
		assert.True(t, created)
		require.Len(t, columns, kanban.ColumnCount)
		for i, column := range columns {
			assert.Equal(t, i, column.Order)
		}

		again, created, err := provisioner.EnsureColumns(context.Background(), board.ID)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Len(t, again, kanban.ColumnCount)
	})

	t.Run("missing board", func(t *testing.T) {
		_, _, err := New(storagetest.New()).EnsureColumns(context.Background(), 999)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
