// Package provision lazily creates default kanban resources on first
// access: a team's first board and a board's initial set of columns.
package provision

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/alcadeta/portfolio-goteam/pkg/auth"
	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
	"github.com/alcadeta/portfolio-goteam/pkg/storage"
)

// DefaultBoardName is the name given to auto-created boards.
const DefaultBoardName = "New Board"

// Provisioner implements create-if-absent for boards and columns. Two
// layers close the concurrent-first-access race: a singleflight group
// collapses concurrent in-process callers onto one storage call, and the
// storage create-if-absent operations are transactional, so concurrent
// processes cannot double-create either.
type Provisioner struct {
	store   storage.Store
	boards  singleflight.Group
	columns singleflight.Group
}

// New returns a Provisioner backed by the given store.
func New(store storage.Store) *Provisioner {
	return &Provisioner{store: store}
}

type boardsResult struct {
	boards  []*kanban.Board
	created bool
}

// EnsureTeamBoards returns the team's boards, creating one when the team
// has none and the caller is an admin. The returned bool is true when a
// board was created by this call. A boardless team queried by a non-admin
// fails with storage.ErrNotFound: only admins may trigger creation, and
// reporting "no boards" is accurate for everyone else.
func (p *Provisioner) EnsureTeamBoards(ctx context.Context, identity auth.Identity, teamID int64) ([]*kanban.Board, bool, error) {
	boards, err := p.store.BoardsByTeam(ctx, teamID)
	if err != nil {
		return nil, false, fmt.Errorf("list team %d boards: %w", teamID, err)
	}
	if len(boards) > 0 {
		return boards, false, nil
	}
	if !identity.IsAdmin || identity.TeamID != teamID {
		return nil, false, fmt.Errorf("team %d has no boards: %w", teamID, storage.ErrNotFound)
	}

	key := strconv.FormatInt(teamID, 10)
	res, err, _ := p.boards.Do(key, func() (interface{}, error) {
		board := &kanban.Board{Name: DefaultBoardName, TeamID: teamID}
		created, err := p.store.CreateBoardIfTeamBoardless(ctx, board)
		if err != nil {
			return nil, err
		}
		boards, err := p.store.BoardsByTeam(ctx, teamID)
		if err != nil {
			return nil, err
		}
		return boardsResult{boards: boards, created: created}, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("provision board for team %d: %w", teamID, err)
	}
	r := res.(boardsResult)
	return r.boards, r.created, nil
}

// EnsureUserBoard creates a board for the user when they belong to none.
// Only admins get one; the board is created with the user as its sole
// member. Returns the user's boards after the check.
func (p *Provisioner) EnsureUserBoard(ctx context.Context, identity auth.Identity) ([]*kanban.Board, error) {
	boards, err := p.store.BoardsByUser(ctx, identity.Username)
	if err != nil {
		return nil, fmt.Errorf("list %s's boards: %w", identity.Username, err)
	}
	if len(boards) > 0 || !identity.IsAdmin {
		return boards, nil
	}

	key := "user:" + identity.Username
	res, err, _ := p.boards.Do(key, func() (interface{}, error) {
		board := &kanban.Board{Name: DefaultBoardName, TeamID: identity.TeamID}
		if _, err := p.store.CreateBoardIfUserBoardless(ctx, board, identity.Username); err != nil {
			return nil, err
		}
		return p.store.BoardsByUser(ctx, identity.Username)
	})
	if err != nil {
		return nil, fmt.Errorf("provision board for %s: %w", identity.Username, err)
	}
	return res.([]*kanban.Board), nil
}

// EnsureColumns returns the board's columns, creating the default set of
// four (orders 0 through 3, as a unit) when the board has none. The
// returned bool is true when this call created them.
func (p *Provisioner) EnsureColumns(ctx context.Context, boardID int64) ([]*kanban.Column, bool, error) {
	columns, err := p.store.ColumnsByBoard(ctx, boardID)
	if err != nil {
		return nil, false, fmt.Errorf("list board %d columns: %w", boardID, err)
	}
	if len(columns) > 0 {
		return columns, false, nil
	}

	key := strconv.FormatInt(boardID, 10)
	type columnsResult struct {
		columns []*kanban.Column
		created bool
	}
	res, err, _ := p.columns.Do(key, func() (interface{}, error) {
		columns, created, err := p.store.CreateColumnsIfAbsent(ctx, boardID)
		if err != nil {
			return nil, err
		}
		return columnsResult{columns: columns, created: created}, nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("provision columns for board %d: %w", boardID, err)
	}
	r := res.(columnsResult)
	return r.columns, r.created, nil
}
