package kanban

// Snapshot is the full client state loaded by the frontend on startup.
// Key names are a stable contract with the client.
type Snapshot struct {
	User        SnapshotUser `json:"user"`
	Team        interface{}  `json:"team"` // TeamInfo for admins, false otherwise
	Boards      []BoardInfo  `json:"boards"`
	ActiveBoard ActiveBoard  `json:"activeBoard"`
	Members     []Member     `json:"members"`
}

// SnapshotUser is the authenticated user's profile inside the snapshot.
type SnapshotUser struct {
	Username        string `json:"username"`
	TeamID          int64  `json:"teamId"`
	IsAdmin         bool   `json:"isAdmin"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// TeamInfo is the team block, only present for admins.
type TeamInfo struct {
	ID         int64  `json:"id"`
	InviteCode string `json:"inviteCode"`
}

// BoardInfo is a board summary in the user's board list.
type BoardInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ActiveBoard is the selected board's full column tree.
type ActiveBoard struct {
	ID      int64        `json:"id"`
	Columns []ColumnTree `json:"columns"`
}

// ColumnTree is a column with its tasks, ordered ascending.
type ColumnTree struct {
	ID    int64      `json:"id"`
	Order int        `json:"order"`
	Tasks []TaskTree `json:"tasks"`
}

// TaskTree is a task with its subtasks, ordered ascending.
type TaskTree struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Order       int           `json:"order"`
	User        string        `json:"user"`
	Subtasks    []SubtaskView `json:"subtasks"`
}

// SubtaskView is a subtask inside the snapshot tree.
type SubtaskView struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
	Done  bool   `json:"done"`
}

// Member is a team roster entry annotated with the active-board flag.
type Member struct {
	Username string `json:"username"`
	IsActive bool   `json:"isActive"`
	IsAdmin  bool   `json:"isAdmin"`
}
