package domain

import "time"

// TaskStatus tracks an analysis task through its lifecycle. Tasks move
// pending -> processing -> completed or failed; the last two are terminal.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is the unit of work the coordinator tracks. Progress runs 0-100
// and never decreases while the task is live.
type Task struct {
	ID          string     `json:"task_id"`
	Query       string     `json:"query"`
	Status      TaskStatus `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
