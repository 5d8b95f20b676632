package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alcadeta/portfolio-goteam/pkg/auth"
	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
	"github.com/alcadeta/portfolio-goteam/pkg/provision"
	"github.com/alcadeta/portfolio-goteam/pkg/storage/storagetest"
)

type fixture struct {
	store     *storagetest.Store
	assembler *Assembler
	team      *kanban.Team
	tokens    map[string]string
}

// newFixture seeds a team with an admin ("bob") and a member ("alice") and
// returns valid tokens for both.
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

	return &fixture{
		store: store,
		assembler: NewAssembler(
			store, auth.NewVerifier(store), provision.New(store),
		),
		team:   team,
		tokens: tokens,
	}
}

func TestClientStateAuthentication(t *testing.T) {
	f := newFixture(t)

	t.Run("bad token", func(t *testing.T) {
		_, err := f.assembler.ClientState(context.Background(), "bob", "wrong", 0)
		assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.assembler.ClientState(context.Background(), "mallory", f.tokens["bob"], 0)
		assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	})
}

func TestClientStateProvisionsAdminBoard(t *testing.T) {
	f := newFixture(t)

	snapshot, err := f.assembler.ClientState(context.Background(), "bob", f.tokens["bob"], 0)
	require.NoError(t, err)

	require.Len(t, snapshot.Boards, 1)
	assert.Equal(t, provision.DefaultBoardName, snapshot.Boards[0].Name)
	assert.Equal(t, snapshot.Boards[0].ID, snapshot.ActiveBoard.ID)
	require.Len(t, snapshot.ActiveBoard.Columns, kanban.ColumnCount)
	for i, column := range snapshot.ActiveBoard.Columns {
		assert.Equal(t, i, column.Order)
		assert.Empty(t, column.Tasks)
	}

	assert.Equal(t, "bob", snapshot.User.Username)
	assert.True(t, snapshot.User.IsAdmin)
	assert.True(t, snapshot.User.IsAuthenticated)

	team, ok := snapshot.Team.(kanban.TeamInfo)
	require.True(t, ok, "admin snapshot carries the team block")
	assert.Equal(t, "invite-code", team.InviteCode)
}

func TestClientStateBoardlessMember(t *testing.T) {
	f := newFixture(t)

	_, err := f.assembler.ClientState(context.Background(), "alice", f.tokens["alice"], 0)

	var fieldErr *kanban.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "board", fieldErr.Field)
	assert.Equal(t, kanban.CodeInvalid, fieldErr.Code)
	assert.Contains(t, fieldErr.Message, "team admin")
}

func TestClientStateMemberSnapshot(t *testing.T) {
	f := newFixture(t)
	board := f.store.AddBoard("Sprint", f.team.ID, "alice")

	snapshot, err := f.assembler.ClientState(context.Background(), "alice", f.tokens["alice"], 0)
	require.NoError(t, err)

	assert.Equal(t, false, snapshot.Team, "non-admin snapshot hides the team")
	assert.Equal(t, board.ID, snapshot.ActiveBoard.ID)

	// Admins first, then the rest, each flagged by board membership.
	require.Len(t, snapshot.Members, 2)
	assert.Equal(t, kanban.Member{Username: "bob", IsActive: false, IsAdmin: true}, snapshot.Members[0])
	assert.Equal(t, kanban.Member{Username: "alice", IsActive: true, IsAdmin: false}, snapshot.Members[1])
}

func TestClientStateActiveBoardSelection(t *testing.T) {
	f := newFixture(t)
	first := f.store.AddBoard("First", f.team.ID, "bob")
	second := f.store.AddBoard("Second", f.team.ID, "bob")

	t.Run("defaults to first board", func(t *testing.T) {
		snapshot, err := f.assembler.ClientState(context.Background(), "bob", f.tokens["bob"], 0)
		require.NoError(t, err)
		assert.Equal(t, first.ID, snapshot.ActiveBoard.ID)
	})

	t.Run("honors requested board", func(t *testing.T) {
		snapshot, err := f.assembler.ClientState(context.Background(), "bob", f.tokens["bob"], second.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, snapshot.ActiveBoard.ID)
		assert.Len(t, snapshot.Boards, 2)
	})

	t.Run("rejects a board the user is not on", func(t *testing.T) {
		outside := f.store.AddBoard("Outside", f.team.ID)

		_, err := f.assembler.ClientState(context.Background(), "bob", f.tokens["bob"], outside.ID)
		assert.ErrorIs(t, err, auth.ErrNotAuthorized)
	})
}

func TestClientStateTaskTree(t *testing.T) {
	f := newFixture(t)
	board := f.store.AddBoard("Sprint", f.team.ID, "bob")
	columns, err := f.store.ColumnsByBoard(context.Background(), board.ID)
	require.NoError(t, err)

	// Insert out of order; the snapshot must come back order-ascending.
	second := f.store.AddTask(columns[1].ID, "Ship it", "", 1, "")
	first := f.store.AddTask(columns[1].ID, "Write tests", "all of them", 0, "alice")
	f.store.AddSubtask(first.ID, "unit", 0, true)
	f.store.AddSubtask(first.ID, "integration", 1, false)

	snapshot, err := f.assembler.ClientState(context.Background(), "bob", f.tokens["bob"], 0)
	require.NoError(t, err)

	tasks := snapshot.ActiveBoard.Columns[1].Tasks
	require.Len(t, tasks, 2)
	assert.Equal(t, first.ID, tasks[0].ID)
	assert.Equal(t, "alice", tasks[0].User)
	assert.Equal(t, second.ID, tasks[1].ID)

	subtasks := tasks[0].Subtasks
	require.Len(t, subtasks, 2)
	assert.Equal(t, "unit", subtasks[0].Title)
	assert.True(t, subtasks[0].Done)
	assert.Equal(t, "integration", subtasks[1].Title)

	assert.Empty(t, tasks[1].Subtasks)
	assert.Empty(t, snapshot.ActiveBoard.Columns[0].Tasks)
}
