package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
	"github.com/alcadeta/portfolio-goteam/pkg/storage"
)

// Action is a guarded operation on board resources.
type Action int

const (
	// ActionAccessBoard reads a board and its contents. Requires the board
	// to belong to the caller's team.
	ActionAccessBoard Action = iota

	// ActionCreateBoard creates a board for the caller's team. Admin only.
	ActionCreateBoard

	// ActionMutateColumns moves or edits tasks within a board's columns.
	// Admin only, and the board must belong to the caller's team.
	ActionMutateColumns
)

func (a Action) String() string {
	switch a {
	case ActionAccessBoard:
		return "access-board"
	case ActionCreateBoard:
		return "create-board"
	case ActionMutateColumns:
		return "mutate-columns"
	default:
		return "unknown"
	}
}

// adminOnly reports whether the action requires the admin role.
func (a Action) adminOnly() bool {
	return a == ActionCreateBoard || a == ActionMutateColumns
}

// Authorizer enforces role and team-scope rules on actions.
type Authorizer struct {
	store storage.Store
}

// NewAuthorizer returns an Authorizer backed by the given store.
func NewAuthorizer(store storage.Store) *Authorizer {
	return &Authorizer{store: store}
}

// Authorize checks that identity may perform action. ActionCreateBoard
// takes no board; the other actions are checked against the given board's
// team. A board outside the caller's team fails with ErrNotAuthorized.
func (a *Authorizer) Authorize(identity Identity, action Action, board *kanban.Board) error {
	if action.adminOnly() && !identity.IsAdmin {
		return fmt.Errorf("%s requires admin: %w", action, ErrNotAuthorized)
	}
	if board != nil && board.TeamID != identity.TeamID {
		return fmt.Errorf("board %d is outside team %d: %w", board.ID, identity.TeamID, ErrNotAuthorized)
	}
	return nil
}

// AuthorizeBoardID resolves the board then applies Authorize. A missing
// board surfaces as storage.ErrNotFound so callers can distinguish it from
// a scope violation.
func (a *Authorizer) AuthorizeBoardID(ctx context.Context, identity Identity, action Action, boardID int64) (*kanban.Board, error) {
	board, err := a.store.BoardByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("authorize board %d: %w", boardID, err)
	}
	if err := a.Authorize(identity, action, board); err != nil {
		return nil, err
	}
	return board, nil
}
