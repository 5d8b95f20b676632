package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
	"github.com/alcadeta/portfolio-goteam/pkg/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestCreateTeam(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO teams").
		WithArgs("code-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	team := &kanban.Team{InviteCode: "code-1"}
	require.NoError(t, store.CreateTeam(context.Background(), team))
	assert.Equal(t, int64(7), team.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeamByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery("SELECT (.+) FROM teams").
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "invite_code"}).
				AddRow(int64(3), "code-3"))

		team, err := store.TeamByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, "code-3", team.InviteCode)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery("SELECT (.+) FROM teams").
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "invite_code"}))

		_, err := store.TeamByID(context.Background(), 99)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateUserDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.CreateUser(context.Background(), &kanban.User{
		Username: "bob", PasswordHash: []byte("hash"), TeamID: 1,
	})
	assert.ErrorIs(t, err, storage.ErrExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBoard(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO boards").
		WithArgs("Roadmap", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	for order := 0; order < kanban.ColumnCount; order++ {
		mock.ExpectExec("INSERT INTO columns").
			WithArgs(int64(5), order).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec("INSERT INTO board_members").
		WithArgs(int64(5), "bob").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	board := &kanban.Board{Name: "Roadmap", TeamID: 1}
	require.NoError(t, store.CreateBoard(context.Background(), board, "bob"))
	assert.Equal(t, int64(5), board.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBoardIfTeamBoardless(t *testing.T) {
	t.Run("creates when team has no boards", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM teams").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
		mock.ExpectQuery("SELECT COUNT").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("INSERT INTO boards").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
		for order := 0; order < kanban.ColumnCount; order++ {
			mock.ExpectExec("INSERT INTO columns").
				WillReturnResult(sqlmock.NewResult(0, 1))
		}
		mock.ExpectCommit()

		board := &kanban.Board{Name: "New Board", TeamID: 1}
		created, err := store.CreateBoardIfTeamBoardless(context.Background(), board)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, int64(9), board.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips when a board already exists", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM teams").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
		mock.ExpectQuery("SELECT COUNT").
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectRollback()

		board := &kanban.Board{Name: "New Board", TeamID: 1}
		created, err := store.CreateBoardIfTeamBoardless(context.Background(), board)
		require.NoError(t, err)
		assert.False(t, created)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing team", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM teams").
			WithArgs(int64(404)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		board := &kanban.Board{Name: "New Board", TeamID: 404}
		_, err := store.CreateBoardIfTeamBoardless(context.Background(), board)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateColumnsIfAbsentExisting(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM boards").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
	rows := sqlmock.NewRows([]string{"id", "board_id", "order"})
	for order := 0; order < kanban.ColumnCount; order++ {
		rows.AddRow(int64(20+order), int64(5), order)
	}
	mock.ExpectQuery("SELECT (.+) FROM columns").
		WithArgs(int64(5)).
		WillReturnRows(rows)
	mock.ExpectRollback()

	columns, created, err := store.CreateColumnsIfAbsent(context.Background(), 5)
	require.NoError(t, err)
	assert.False(t, created)
	require.Len(t, columns, kanban.ColumnCount)
	assert.Equal(t, int64(20), columns[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBoardsByUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM boards").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "team_id"}).
			AddRow(int64(1), "Roadmap", int64(1)).
			AddRow(int64(2), "Backlog", int64(1)))

	boards, err := store.BoardsByUser(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, boards, 2)
	assert.Equal(t, "Backlog", boards[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetBoardMembership(t *testing.T) {
	t.Run("add", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectExec("INSERT INTO board_members").
			WithArgs(int64(5), "alice").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.SetBoardMembership(context.Background(), 5, "alice", true)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("remove", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectExec("DELETE FROM board_members").
			WithArgs(int64(5), "alice").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.SetBoardMembership(context.Background(), 5, "alice", false)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateColumnTasks(t *testing.T) {
	t.Run("moves and retitles a task", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM tasks").
			WithArgs(int64(11)).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "column_id", "title", "description", "order", "username",
			}).AddRow(int64(11), int64(2), "Old", "desc", 0, "bob"))
		mock.ExpectExec("UPDATE tasks").
			WithArgs(int64(3), "New", "desc", 1, "bob", int64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		title := "New"
		order := 1
		err := store.UpdateColumnTasks(context.Background(), 3, []kanban.TaskPatch{
			{ID: 11, Title: &title, Order: &order},
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown task rolls back", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM tasks").
			WithArgs(int64(404)).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "column_id", "title", "description", "order", "username",
			}))
		mock.ExpectRollback()

		err := store.UpdateColumnTasks(context.Background(), 3, []kanban.TaskPatch{
			{ID: 404},
		})
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("clears assignee", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM tasks").
			WithArgs(int64(11)).
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "column_id", "title", "description", "order", "username",
			}).AddRow(int64(11), int64(2), "Task", "", 0, "bob"))
		mock.ExpectExec("UPDATE tasks").
			WithArgs(int64(2), "Task", "", 0, nil, int64(11)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		empty := ""
		err := store.UpdateColumnTasks(context.Background(), 2, []kanban.TaskPatch{
			{ID: 11, Assignee: &empty},
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSetup(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS teams").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Setup(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}