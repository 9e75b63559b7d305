package domain

import "time"

// Notification is an in-app message created as a side effect of task
// mutations (assignment, completion) or an explicit send. Only the read flag
// is ever mutated, and only from false to true.
type Notification struct {
	ID        int64
	UserID    int64
	TaskID    int64
	Message   string
	Read      bool
	CreatedAt time.Time
}
