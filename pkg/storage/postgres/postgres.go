// Package postgres implements the storage.Store interface on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
	"github.com/alcadeta/portfolio-goteam/pkg/storage"
)

// Store implements storage.Store using PostgreSQL.
type Store struct {
	db     *sql.DB
	config storage.Config
}

// New creates a new PostgreSQL-backed store.
func New(config storage.Config) (*Store, error) {
	db, err := sql.Open("postgres", config.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(config.PostgresMaxConns)
	db.SetMaxIdleConns(config.PostgresMinConns)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), config.PostgresTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &Store{db: db, config: config}, nil
}

// NewWithDB wraps an existing database handle. Used by tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Setup creates the schema if it does not exist.
func (s *Store) Setup(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS teams (
	id          BIGSERIAL PRIMARY KEY,
	invite_code TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	password_hash BYTEA NOT NULL,
	team_id       BIGINT NOT NULL REFERENCES teams (id) ON DELETE CASCADE,
	is_admin      BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS boards (
	id      BIGSERIAL PRIMARY KEY,
	name    TEXT NOT NULL,
	team_id BIGINT NOT NULL REFERENCES teams (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS board_members (
	board_id BIGINT NOT NULL REFERENCES boards (id) ON DELETE CASCADE,
	username TEXT NOT NULL REFERENCES users (username) ON DELETE CASCADE,
	PRIMARY KEY (board_id, username)
);

CREATE TABLE IF NOT EXISTS columns (
	id       BIGSERIAL PRIMARY KEY,
	board_id BIGINT NOT NULL REFERENCES boards (id) ON DELETE CASCADE,
	"order"  INT NOT NULL,
	UNIQUE (board_id, "order")
);

CREATE TABLE IF NOT EXISTS tasks (
	id          BIGSERIAL PRIMARY KEY,
	column_id   BIGINT NOT NULL REFERENCES columns (id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	"order"     INT NOT NULL,
	username    TEXT REFERENCES users (username) ON DELETE SET NULL,
	UNIQUE (column_id, "order") DEFERRABLE INITIALLY DEFERRED
);

CREATE TABLE IF NOT EXISTS subtasks (
	id      BIGSERIAL PRIMARY KEY,
	task_id BIGINT NOT NULL REFERENCES tasks (id) ON DELETE CASCADE,
	title   TEXT NOT NULL,
	"order" INT NOT NULL,
	done    BOOLEAN NOT NULL DEFAULT FALSE
);
`

// mapErr converts driver-level errors into storage sentinels.
func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return storage.ErrExists
	}
	return err
}

func (s *Store) CreateTeam(ctx context.Context, team *kanban.Team) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO teams (invite_code) VALUES ($1) RETURNING id`,
		team.InviteCode,
	).Scan(&team.ID)
	if err != nil {
		return fmt.Errorf("failed to create team: %w", mapErr(err))
	}
	return nil
}

func (s *Store) TeamByID(ctx context.Context, id int64) (*kanban.Team, error) {
	team := &kanban.Team{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, invite_code FROM teams WHERE id = $1`, id,
	).Scan(&team.ID, &team.InviteCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", mapErr(err))
	}
	return team, nil
}

func (s *Store) TeamByInviteCode(ctx context.Context, code string) (*kanban.Team, error) {
	team := &kanban.Team{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, invite_code FROM teams WHERE invite_code = $1`, code,
	).Scan(&team.ID, &team.InviteCode)
	if err != nil {
		return nil, fmt.Errorf("failed to get team by invite code: %w", mapErr(err))
	}
	return team, nil
}

func (s *Store) CreateUser(ctx context.Context, user *kanban.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, team_id, is_admin)
		 VALUES ($1, $2, $3, $4)`,
		user.Username, user.PasswordHash, user.TeamID, user.IsAdmin,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapErr(err))
	}
	return nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*kanban.User, error) {
	user := &kanban.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash, team_id, is_admin
		 FROM users WHERE username = $1`, username,
	).Scan(&user.Username, &user.PasswordHash, &user.TeamID, &user.IsAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", mapErr(err))
	}
	return user, nil
}

func (s *Store) TeamMembers(ctx context.Context, teamID int64) ([]*kanban.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, password_hash, team_id, is_admin
		 FROM users WHERE team_id = $1 ORDER BY username`, teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	defer rows.Close()

	var users []*kanban.User
	for rows.Next() {
		user := &kanban.User{}
		if err := rows.Scan(
			&user.Username, &user.PasswordHash, &user.TeamID, &user.IsAdmin,
		); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// insertBoard creates a board, its four columns and the given memberships
// inside the supplied transaction.
func insertBoard(ctx context.Context, tx *sql.Tx, board *kanban.Board, members []string) error {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO boards (name, team_id) VALUES ($1, $2) RETURNING id`,
		board.Name, board.TeamID,
	).Scan(&board.ID)
	if err != nil {
		return fmt.Errorf("failed to insert board: %w", mapErr(err))
	}

	for order := 0; order < kanban.ColumnCount; order++ {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO columns (board_id, "order") VALUES ($1, $2)`,
			board.ID, order,
		); err != nil {
			return fmt.Errorf("failed to insert column %d: %w", order, mapErr(err))
		}
	}

	for _, member := range members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO board_members (board_id, username) VALUES ($1, $2)`,
			board.ID, member,
		); err != nil {
			return fmt.Errorf("failed to insert board member: %w", mapErr(err))
		}
	}
	return nil
}

func (s *Store) CreateBoard(ctx context.Context, board *kanban.Board, members ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertBoard(ctx, tx, board, members); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit board creation: %w", err)
	}
	return nil
}

func (s *Store) CreateBoardIfTeamBoardless(ctx context.Context, board *kanban.Board) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock the team row so concurrent first-access requests serialize here.
	// The recount below then sees any board a parallel transaction committed.
	var teamID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM teams WHERE id = $1 FOR UPDATE`, board.TeamID,
	).Scan(&teamID)
	if err != nil {
		return false, fmt.Errorf("failed to lock team: %w", mapErr(err))
	}

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM boards WHERE team_id = $1`, board.TeamID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count team boards: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if err := insertBoard(ctx, tx, board, nil); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit board creation: %w", err)
	}
	return true, nil
}

func (s *Store) CreateBoardIfUserBoardless(ctx context.Context, board *kanban.Board, username string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked string
	err = tx.QueryRowContext(ctx,
		`SELECT username FROM users WHERE username = $1 FOR UPDATE`, username,
	).Scan(&locked)
	if err != nil {
		return false, fmt.Errorf("failed to lock user: %w", mapErr(err))
	}

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM board_members WHERE username = $1`, username,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count user boards: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if err := insertBoard(ctx, tx, board, []string{username}); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit board creation: %w", err)
	}
	return true, nil
}

func (s *Store) BoardByID(ctx context.Context, id int64) (*kanban.Board, error) {
	board := &kanban.Board{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, team_id FROM boards WHERE id = $1`, id,
	).Scan(&board.ID, &board.Name, &board.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get board: %w", mapErr(err))
	}
	return board, nil
}

func (s *Store) BoardsByTeam(ctx context.Context, teamID int64) ([]*kanban.Board, error) {
	return s.queryBoards(ctx,
		`SELECT id, name, team_id FROM boards WHERE team_id = $1 ORDER BY id`,
		teamID,
	)
}

func (s *Store) BoardsByUser(ctx context.Context, username string) ([]*kanban.Board, error) {
	return s.queryBoards(ctx,
		`SELECT b.id, b.name, b.team_id
		 FROM boards b
		 JOIN board_members m ON m.board_id = b.id
		 WHERE m.username = $1
		 ORDER BY b.id`,
		username,
	)
}

func (s *Store) queryBoards(ctx context.Context, query string, args ...interface{}) ([]*kanban.Board, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	var boards []*kanban.Board
	for rows.Next() {
		board := &kanban.Board{}
		if err := rows.Scan(&board.ID, &board.Name, &board.TeamID); err != nil {
			return nil, fmt.Errorf("failed to scan board: %w", err)
		}
		boards = append(boards, board)
	}
	return boards, rows.Err()
}

func (s *Store) BoardMemberUsernames(ctx context.Context, boardID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username FROM board_members WHERE board_id = $1 ORDER BY username`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list board members: %w", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("failed to scan board member: %w", err)
		}
		usernames = append(usernames, username)
	}
	return usernames, rows.Err()
}

func (s *Store) SetBoardMembership(ctx context.Context, boardID int64, username string, active bool) error {
	var err error
	if active {
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO board_members (board_id, username) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			boardID, username,
		)
	} else {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM board_members WHERE board_id = $1 AND username = $2`,
			boardID, username,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to set board membership: %w", mapErr(err))
	}
	return nil
}

func (s *Store) ColumnByID(ctx context.Context, id int64) (*kanban.Column, error) {
	column := &kanban.Column{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, board_id, "order" FROM columns WHERE id = $1`, id,
	).Scan(&column.ID, &column.BoardID, &column.Order)
	if err != nil {
		return nil, fmt.Errorf("failed to get column: %w", mapErr(err))
	}
	return column, nil
}

func (s *Store) ColumnsByBoard(ctx context.Context, boardID int64) ([]*kanban.Column, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, board_id, "order" FROM columns
		 WHERE board_id = $1 ORDER BY "order"`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	defer rows.Close()
	return scanColumns(rows)
}

func scanColumns(rows *sql.Rows) ([]*kanban.Column, error) {
	var columns []*kanban.Column
	for rows.Next() {
		column := &kanban.Column{}
		if err := rows.Scan(&column.ID, &column.BoardID, &column.Order); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, column)
	}
	return columns, rows.Err()
}

func (s *Store) CreateColumnsIfAbsent(ctx context.Context, boardID int64) ([]*kanban.Column, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM boards WHERE id = $1 FOR UPDATE`, boardID,
	).Scan(&locked)
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock board: %w", mapErr(err))
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, board_id, "order" FROM columns
		 WHERE board_id = $1 ORDER BY "order"`,
		boardID,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list columns: %w", err)
	}
	columns, err := scanColumns(rows)
	rows.Close()
	if err != nil {
		return nil, false, err
	}
	if len(columns) > 0 {
		return columns, false, nil
	}

	for order := 0; order < kanban.ColumnCount; order++ {
		column := &kanban.Column{BoardID: boardID, Order: order}
		err := tx.QueryRowContext(ctx,
			`INSERT INTO columns (board_id, "order") VALUES ($1, $2) RETURNING id`,
			boardID, order,
		).Scan(&column.ID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to insert column %d: %w", order, mapErr(err))
		}
		columns = append(columns, column)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit column creation: %w", err)
	}
	return columns, true, nil
}

func (s *Store) TasksByBoard(ctx context.Context, boardID int64) ([]*kanban.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.id, t.column_id, t.title, t.description, t."order",
		        COALESCE(t.username, '')
		 FROM tasks t
		 JOIN columns c ON c.id = t.column_id
		 WHERE c.board_id = $1
		 ORDER BY t."order"`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*kanban.Task
	for rows.Next() {
		task := &kanban.Task{}
		if err := rows.Scan(
			&task.ID, &task.ColumnID, &task.Title, &task.Description,
			&task.Order, &task.Assignee,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (s *Store) SubtasksByBoard(ctx context.Context, boardID int64) ([]*kanban.Subtask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT st.id, st.task_id, st.title, st."order", st.done
		 FROM subtasks st
		 JOIN tasks t ON t.id = st.task_id
		 JOIN columns c ON c.id = t.column_id
		 WHERE c.board_id = $1
		 ORDER BY st."order"`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	defer rows.Close()

	var subtasks []*kanban.Subtask
	for rows.Next() {
		subtask := &kanban.Subtask{}
		if err := rows.Scan(
			&subtask.ID, &subtask.TaskID, &subtask.Title, &subtask.Order,
			&subtask.Done,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subtask: %w", err)
		}
		subtasks = append(subtasks, subtask)
	}
	return subtasks, rows.Err()
}

func (s *Store) UpdateColumnTasks(ctx context.Context, columnID int64, patches []kanban.TaskPatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, patch := range patches {
		task := &kanban.Task{}
		err := tx.QueryRowContext(ctx,
			`SELECT id, column_id, title, description, "order",
			        COALESCE(username, '')
			 FROM tasks WHERE id = $1 FOR UPDATE`,
			patch.ID,
		).Scan(
			&task.ID, &task.ColumnID, &task.Title, &task.Description,
			&task.Order, &task.Assignee,
		)
		if err != nil {
			return fmt.Errorf("failed to get task %d: %w", patch.ID, mapErr(err))
		}

		patch.Apply(task)

		var assignee interface{}
		if task.Assignee != "" {
			assignee = task.Assignee
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks
			 SET column_id = $1, title = $2, description = $3, "order" = $4,
			     username = $5
			 WHERE id = $6`,
			columnID, task.Title, task.Description, task.Order, assignee,
			task.ID,
		); err != nil {
			return fmt.Errorf("failed to update task %d: %w", patch.ID, mapErr(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit task updates: %w", err)
	}
	return nil
}
