// Package state assembles the nested client-state snapshot the frontend
// loads on startup: user profile, team, board list, the active board's
// full column tree, and the team roster.
package state

import (
	"context"
	"fmt"
	"sort"

	"github.com/alcadeta/portfolio-goteam/pkg/auth"
	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
	"github.com/alcadeta/portfolio-goteam/pkg/provision"
	"github.com/alcadeta/portfolio-goteam/pkg/storage"
)

// noBoardMessage is shown to users who belong to no board and cannot have
// one auto-created for them.
const noBoardMessage = "Please ask your team admin to add you to a board " +
	"and try again."

// Assembler builds Snapshot values. Re-verifying the caller's token is
// part of assembly: the snapshot endpoint is the client's login check, so
// it never trusts an identity established elsewhere.
type Assembler struct {
	store       storage.Store
	verifier    *auth.Verifier
	provisioner *provision.Provisioner
}

// NewAssembler returns an Assembler over the given store.
func NewAssembler(store storage.Store, verifier *auth.Verifier, provisioner *provision.Provisioner) *Assembler {
	return &Assembler{store: store, verifier: verifier, provisioner: provisioner}
}

// ClientState verifies the caller and builds their snapshot. boardID
// selects the active board; zero means the user's first board. A boardID
// outside the caller's boards fails with auth.ErrNotAuthorized. A user
// with no board at all (and no way to auto-create one) fails with a
// *kanban.FieldError on the "board" field.
func (a *Assembler) ClientState(ctx context.Context, username, token string, boardID int64) (*kanban.Snapshot, error) {
	identity, err := a.verifier.Verify(ctx, username, token)
	if err != nil {
		return nil, err
	}

	// Admins with no board get one created here; everyone else just gets
	// their board list back.
	boards, err := a.provisioner.EnsureUserBoard(ctx, identity)
	if err != nil {
		return nil, err
	}

	active, err := resolveActiveBoard(boards, boardID)
	if err != nil {
		return nil, err
	}
	if active.TeamID != identity.TeamID {
		return nil, fmt.Errorf("board %d is outside team %d: %w",
			active.ID, identity.TeamID, auth.ErrNotAuthorized)
	}

	snapshot := &kanban.Snapshot{
		User: kanban.SnapshotUser{
			Username:        identity.Username,
			TeamID:          identity.TeamID,
			IsAdmin:         identity.IsAdmin,
			IsAuthenticated: true,
		},
		Team:   false,
		Boards: make([]kanban.BoardInfo, 0, len(boards)),
	}
	for _, board := range boards {
		snapshot.Boards = append(snapshot.Boards, kanban.BoardInfo{
			ID:   board.ID,
			Name: board.Name,
		})
	}

	if identity.IsAdmin {
		team, err := a.store.TeamByID(ctx, identity.TeamID)
		if err != nil {
			return nil, fmt.Errorf("load team %d: %w", identity.TeamID, err)
		}
		snapshot.Team = kanban.TeamInfo{ID: team.ID, InviteCode: team.InviteCode}
	}

	snapshot.ActiveBoard, err = a.boardTree(ctx, active.ID)
	if err != nil {
		return nil, err
	}

	snapshot.Members, err = a.roster(ctx, identity.TeamID, active.ID)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// resolveActiveBoard picks the snapshot's active board from the user's
// board list.
func resolveActiveBoard(boards []*kanban.Board, boardID int64) (*kanban.Board, error) {
	if len(boards) == 0 {
		return nil, kanban.NewFieldError("board", noBoardMessage, kanban.CodeInvalid)
	}
	if boardID == 0 {
		return boards[0], nil
	}
	for _, board := range boards {
		if board.ID == boardID {
			return board, nil
		}
	}
	return nil, fmt.Errorf("board %d is not one of the user's boards: %w",
		boardID, auth.ErrNotAuthorized)
}

// boardTree loads the active board's columns, tasks, and subtasks and
// stitches them into an ordered tree. Columns are provisioned on the way
// so even a board created out-of-band renders with its four lanes.
func (a *Assembler) boardTree(ctx context.Context, boardID int64) (kanban.ActiveBoard, error) {
	columns, _, err := a.provisioner.EnsureColumns(ctx, boardID)
	if err != nil {
		return kanban.ActiveBoard{}, err
	}
	tasks, err := a.store.TasksByBoard(ctx, boardID)
	if err != nil {
		return kanban.ActiveBoard{}, fmt.Errorf("load board %d tasks: %w", boardID, err)
	}
	subtasks, err := a.store.SubtasksByBoard(ctx, boardID)
	if err != nil {
		return kanban.ActiveBoard{}, fmt.Errorf("load board %d subtasks: %w", boardID, err)
	}

	subtasksByTask := make(map[int64][]kanban.SubtaskView)
	for _, subtask := range subtasks {
		subtasksByTask[subtask.TaskID] = append(subtasksByTask[subtask.TaskID], kanban.SubtaskView{
			ID:    subtask.ID,
			Title: subtask.Title,
			Order: subtask.Order,
			Done:  subtask.Done,
		})
	}

	tasksByColumn := make(map[int64][]kanban.TaskTree)
	for _, task := range tasks {
		view := kanban.TaskTree{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			Order:       task.Order,
			User:        task.Assignee,
			Subtasks:    subtasksByTask[task.ID],
		}
		if view.Subtasks == nil {
			view.Subtasks = []kanban.SubtaskView{}
		}
		tasksByColumn[task.ColumnID] = append(tasksByColumn[task.ColumnID], view)
	}

	tree := kanban.ActiveBoard{ID: boardID, Columns: make([]kanban.ColumnTree, 0, len(columns))}
	for _, column := range columns {
		columnTasks := tasksByColumn[column.ID]
		if columnTasks == nil {
			columnTasks = []kanban.TaskTree{}
		}
		tree.Columns = append(tree.Columns, kanban.ColumnTree{
			ID:    column.ID,
			Order: column.Order,
			Tasks: columnTasks,
		})
	}
	return tree, nil
}

// roster builds the team member list, flagged with active-board membership
// and sorted admins first. The sort is stable so members keep the store's
// username ordering within each group.
func (a *Assembler) roster(ctx context.Context, teamID, activeBoardID int64) ([]kanban.Member, error) {
	users, err := a.store.TeamMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("load team %d members: %w", teamID, err)
	}
	activeUsernames, err := a.store.BoardMemberUsernames(ctx, activeBoardID)
	if err != nil {
		return nil, fmt.Errorf("load board %d members: %w", activeBoardID, err)
	}
	active := make(map[string]bool, len(activeUsernames))
	for _, username := range activeUsernames {
		active[username] = true
	}

	members := make([]kanban.Member, 0, len(users))
	for _, user := range users {
		members = append(members, kanban.Member{
			Username: user.Username,
			IsActive: active[user.Username],
			IsAdmin:  user.IsAdmin,
		})
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].IsAdmin && !members[j].IsAdmin
	})
	return members, nil
}
