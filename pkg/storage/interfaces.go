// Package storage defines the repository interface over the relational
// store. Every read returns a materialized collection; handlers never reach
// into live relations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrExists is returned when an insert collides with a uniqueness constraint.
var ErrExists = errors.New("record already exists")

// Store is the persistence interface shared by all backends.
type Store interface {
	// Teams and users
	CreateTeam(ctx context.Context, team *kanban.Team) error
	TeamByID(ctx context.Context, id int64) (*kanban.Team, error)
	TeamByInviteCode(ctx context.Context, code string) (*kanban.Team, error)
	CreateUser(ctx context.Context, user *kanban.User) error
	UserByUsername(ctx context.Context, username string) (*kanban.User, error)
	TeamMembers(ctx context.Context, teamID int64) ([]*kanban.User, error)

	// Boards. Creation always includes the board's four columns and the
	// given members, committed or rolled back as a unit. The IfAbsent
	// variants are transactional create-if-absent guards: they lock the
	// parent row, re-check the emptiness condition, and only then insert.
	CreateBoard(ctx context.Context, board *kanban.Board, members ...string) error
	CreateBoardIfTeamBoardless(ctx context.Context, board *kanban.Board) (bool, error)
	CreateBoardIfUserBoardless(ctx context.Context, board *kanban.Board, username string) (bool, error)
	BoardByID(ctx context.Context, id int64) (*kanban.Board, error)
	BoardsByTeam(ctx context.Context, teamID int64) ([]*kanban.Board, error)
	BoardsByUser(ctx context.Context, username string) ([]*kanban.Board, error)

	// Board membership
	BoardMemberUsernames(ctx context.Context, boardID int64) ([]string, error)
	SetBoardMembership(ctx context.Context, boardID int64, username string, active bool) error

	// Columns
	ColumnByID(ctx context.Context, id int64) (*kanban.Column, error)
	ColumnsByBoard(ctx context.Context, boardID int64) ([]*kanban.Column, error)
	CreateColumnsIfAbsent(ctx context.Context, boardID int64) ([]*kanban.Column, bool, error)

	// Tasks and subtasks, fetched per board for snapshot assembly.
	TasksByBoard(ctx context.Context, boardID int64) ([]*kanban.Task, error)
	SubtasksByBoard(ctx context.Context, boardID int64) ([]*kanban.Subtask, error)

	// UpdateColumnTasks applies the patches and moves every patched task
	// into the column, all in one transaction. A missing task fails the
	// whole batch with ErrNotFound.
	UpdateColumnTasks(ctx context.Context, columnID int64, patches []kanban.TaskPatch) error

	Close() error
}

// Config selects and tunes a storage backend.
type Config struct {
	Type string `yaml:"type"` // "postgres" or "sqlite"

	// PostgreSQL config
	PostgresURL      string        `yaml:"postgres_url"`
	PostgresMaxConns int           `yaml:"postgres_max_conns"`
	PostgresMinConns int           `yaml:"postgres_min_conns"`
	PostgresTimeout  time.Duration `yaml:"postgres_timeout"`

	// SQLite config (local development)
	SQLitePath string `yaml:"sqlite_path"`

	// Redis cache config
	CacheEnabled  bool   `yaml:"cache_enabled"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		Type:             "postgres",
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		SQLitePath:       "goteam.db",
		RedisDB:          0,
	}
}
