// Package storagetest provides an in-memory storage.Store for unit tests.
package storagetest

import (
	"context"
	"sort"
	"sync"

	"github.com/alcadeta/portfolio-goteam/pkg/kanban"
	"github.com/alcadeta/portfolio-goteam/pkg/storage"
)

// Store is a map-backed storage.Store. Zero value is not usable; create
// with New. Err, when set, is returned by every method, which lets tests
// exercise storage-failure paths.
type Store struct {
	mu sync.Mutex

	Err error

	teams        map[int64]*kanban.Team
	users        map[string]*kanban.User
	boards       map[int64]*kanban.Board
	members      map[int64]map[string]bool // board ID -> usernames
	columns      map[int64]*kanban.Column
	tasks        map[int64]*kanban.Task
	subtasks     map[int64]*kanban.Subtask
	nextID       int64
	CreateCalls  int // board-creating calls that actually inserted
	UpdateBatches [][]kanban.TaskPatch
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		teams:    make(map[int64]*kanban.Team),
		users:    make(map[string]*kanban.User),
		boards:   make(map[int64]*kanban.Board),
		members:  make(map[int64]map[string]bool),
		columns:  make(map[int64]*kanban.Column),
		tasks:    make(map[int64]*kanban.Task),
		subtasks: make(map[int64]*kanban.Subtask),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Seed helpers. These bypass error injection.

// AddTeam inserts a team and returns it.
func (s *Store) AddTeam(inviteCode string) *kanban.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	team := &kanban.Team{ID: s.id(), InviteCode: inviteCode}
	s.teams[team.ID] = team
	return team
}

// AddUser inserts a user.
func (s *Store) AddUser(username string, teamID int64, isAdmin bool, passwordHash []byte) *kanban.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := &kanban.User{
		Username:     username,
		PasswordHash: passwordHash,
		TeamID:       teamID,
		IsAdmin:      isAdmin,
	}
	s.users[username] = user
	return user
}

// AddBoard inserts a board with its four columns and members.
func (s *Store) AddBoard(name string, teamID int64, members ...string) *kanban.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addBoard(name, teamID, members)
}

func (s *Store) addBoard(name string, teamID int64, members []string) *kanban.Board {
	board := &kanban.Board{ID: s.id(), Name: name, TeamID: teamID}
	s.boards[board.ID] = board
	s.members[board.ID] = make(map[string]bool)
	for _, member := range members {
		s.members[board.ID][member] = true
	}
	for order := 0; order < kanban.ColumnCount; order++ {
		column := &kanban.Column{ID: s.id(), BoardID: board.ID, Order: order}
		s.columns[column.ID] = column
	}
	s.CreateCalls++
	return board
}

// AddBoardWithoutColumns inserts a bare board, as external provisioning
// might. Used to exercise lazy column creation.
func (s *Store) AddBoardWithoutColumns(name string, teamID int64, members ...string) *kanban.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	board := &kanban.Board{ID: s.id(), Name: name, TeamID: teamID}
	s.boards[board.ID] = board
	s.members[board.ID] = make(map[string]bool)
	for _, member := range members {
		s.members[board.ID][member] = true
	}
	return board
}

// AddTask inserts a task into a column.
func (s *Store) AddTask(columnID int64, title, description string, order int, assignee string) *kanban.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &kanban.Task{
		ID:          s.id(),
		ColumnID:    columnID,
		Title:       title,
		Description: description,
		Order:       order,
		Assignee:    assignee,
	}
	s.tasks[task.ID] = task
	return task
}

// AddSubtask inserts a subtask into a task.
func (s *Store) AddSubtask(taskID int64, title string, order int, done bool) *kanban.Subtask {
	s.mu.Lock()
	defer s.mu.Unlock()
	subtask := &kanban.Subtask{
		ID:     s.id(),
		TaskID: taskID,
		Title:  title,
		Order:  order,
		Done:   done,
	}
	s.subtasks[subtask.ID] = subtask
	return subtask
}

// storage.Store implementation

func (s *Store) CreateTeam(_ context.Context, team *kanban.Team) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.teams {
		if existing.InviteCode == team.InviteCode {
			return storage.ErrExists
		}
	}
	team.ID = s.id()
	s.teams[team.ID] = team
	return nil
}

func (s *Store) TeamByID(_ context.Context, id int64) (*kanban.Team, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return team, nil
}

func (s *Store) TeamByInviteCode(_ context.Context, code string) (*kanban.Team, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, team := range s.teams {
		if team.InviteCode == code {
			return team, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, user *kanban.User) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return storage.ErrExists
	}
	s.users[user.Username] = user
	return nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (*kanban.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return user, nil
}

func (s *Store) TeamMembers(_ context.Context, teamID int64) ([]*kanban.User, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []*kanban.User
	for _, user := range s.users {
		if user.TeamID == teamID {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}

func (s *Store) CreateBoard(_ context.Context, board *kanban.Board, members ...string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	created := s.addBoard(board.Name, board.TeamID, members)
	board.ID = created.ID
	return nil
}

func (s *Store) CreateBoardIfTeamBoardless(_ context.Context, board *kanban.Board) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.boards {
		if existing.TeamID == board.TeamID {
			return false, nil
		}
	}
	created := s.addBoard(board.Name, board.TeamID, nil)
	board.ID = created.ID
	return true, nil
}

func (s *Store) CreateBoardIfUserBoardless(_ context.Context, board *kanban.Board, username string) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, members := range s.members {
		if members[username] {
			return false, nil
		}
	}
	created := s.addBoard(board.Name, board.TeamID, []string{username})
	board.ID = created.ID
	return true, nil
}

func (s *Store) BoardByID(_ context.Context, id int64) (*kanban.Board, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	board, ok := s.boards[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return board, nil
}

func (s *Store) BoardsByTeam(_ context.Context, teamID int64) ([]*kanban.Board, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var boards []*kanban.Board
	for _, board := range s.boards {
		if board.TeamID == teamID {
			boards = append(boards, board)
		}
	}
	sortBoards(boards)
	return boards, nil
}

func (s *Store) BoardsByUser(_ context.Context, username string) ([]*kanban.Board, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var boards []*kanban.Board
	for boardID, members := range s.members {
		if members[username] {
			boards = append(boards, s.boards[boardID])
		}
	}
	sortBoards(boards)
	return boards, nil
}

func sortBoards(boards []*kanban.Board) {
	sort.Slice(boards, func(i, j int) bool { return boards[i].ID < boards[j].ID })
}

func (s *Store) BoardMemberUsernames(_ context.Context, boardID int64) ([]string, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var usernames []string
	for username := range s.members[boardID] {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)
	return usernames, nil
}

func (s *Store) SetBoardMembership(_ context.Context, boardID int64, username string, active bool) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.members[boardID]
	if !ok {
		return storage.ErrNotFound
	}
	if active {
		members[username] = true
	} else {
		delete(members, username)
	}
	return nil
}

func (s *Store) ColumnByID(_ context.Context, id int64) (*kanban.Column, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	column, ok := s.columns[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return column, nil
}

func (s *Store) ColumnsByBoard(_ context.Context, boardID int64) ([]*kanban.Column, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boardColumns(boardID), nil
}

func (s *Store) boardColumns(boardID int64) []*kanban.Column {
	var columns []*kanban.Column
	for _, column := range s.columns {
		if column.BoardID == boardID {
			columns = append(columns, column)
		}
	}
	sort.Slice(columns, func(i, j int) bool {
		return columns[i].Order < columns[j].Order
	})
	return columns
}

func (s *Store) CreateColumnsIfAbsent(_ context.Context, boardID int64) ([]*kanban.Column, bool, error) {
	if s.Err != nil {
		return nil, false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[boardID]; !ok {
		return nil, false, storage.ErrNotFound
	}
	if columns := s.boardColumns(boardID); len(columns) > 0 {
		return columns, false, nil
	}
	for order := 0; order < kanban.ColumnCount; order++ {
		column := &kanban.Column{ID: s.id(), BoardID: boardID, Order: order}
		s.columns[column.ID] = column
	}
	return s.boardColumns(boardID), true, nil
}

func (s *Store) TasksByBoard(_ context.Context, boardID int64) ([]*kanban.Task, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	columnIDs := make(map[int64]bool)
	for _, column := range s.boardColumns(boardID) {
		columnIDs[column.ID] = true
	}
	var tasks []*kanban.Task
	for _, task := range s.tasks {
		if columnIDs[task.ColumnID] {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Order < tasks[j].Order })
	return tasks, nil
}

func (s *Store) SubtasksByBoard(ctx context.Context, boardID int64) ([]*kanban.Subtask, error) {
	tasks, err := s.TasksByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	taskIDs := make(map[int64]bool)
	for _, task := range tasks {
		taskIDs[task.ID] = true
	}
	var subtasks []*kanban.Subtask
	for _, subtask := range s.subtasks {
		if taskIDs[subtask.TaskID] {
			subtasks = append(subtasks, subtask)
		}
	}
	sort.Slice(subtasks, func(i, j int) bool {
		return subtasks[i].Order < subtasks[j].Order
	})
	return subtasks, nil
}

func (s *Store) UpdateColumnTasks(_ context.Context, columnID int64, patches []kanban.TaskPatch) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// All-or-nothing: verify every task exists before touching any.
	for _, patch := range patches {
		if _, ok := s.tasks[patch.ID]; !ok {
			return storage.ErrNotFound
		}
	}
	for _, patch := range patches {
		task := s.tasks[patch.ID]
		patch.Apply(task)
		task.ColumnID = columnID
	}
	s.UpdateBatches = append(s.UpdateBatches, patches)
	return nil
}

func (s *Store) Close() error { return nil }
