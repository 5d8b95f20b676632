package kanban

// TaskPatch is a partial update for a task. Nil fields are left unchanged;
// the target column is carried separately by the update operation.
type TaskPatch struct {
	ID          int64
	Title       *string
	Description *string
	Order       *int
	Assignee    *string
}

// Apply merges the patch into the task. The task's column is not touched
// here; moving a task between columns is the storage layer's concern.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
}
