// Package kanban defines the domain types shared across the service: teams,
// users, boards, columns, tasks, subtasks, and the client-state snapshot.
package kanban

// Team is the top-level tenant grouping users and boards.
type Team struct {
	ID         int64  `json:"id"`
	InviteCode string `json:"invite_code"`
}

// User is a registered account. Username is the primary key; the password
// hash is a bcrypt digest and never leaves the process.
type User struct {
	Username     string `json:"username"`
	PasswordHash []byte `json:"-"`
	TeamID       int64  `json:"team_id"`
	IsAdmin      bool   `json:"is_admin"`
}

// Board belongs to exactly one team and has a many-to-many member set of
// users, independent of team membership.
type Board struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	TeamID int64  `json:"team_id"`
}

// ColumnCount is the number of columns every provisioned board gets,
// with orders 0..ColumnCount-1.
const ColumnCount = 4

// Column is an ordered lane inside a board.
type Column struct {
	ID      int64 `json:"id"`
	BoardID int64 `json:"board_id"`
	Order   int   `json:"order"`
}

// Task belongs to exactly one column. Assignee is a username, empty when
// the task is unassigned.
type Task struct {
	ID          int64  `json:"id"`
	ColumnID    int64  `json:"column_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
	Assignee    string `json:"user"`
}

// Subtask belongs to exactly one task.
type Subtask struct {
	ID     int64  `json:"id"`
	TaskID int64  `json:"task_id"`
	Title  string `json:"title"`
	Order  int    `json:"order"`
	Done   bool   `json:"done"`
}
