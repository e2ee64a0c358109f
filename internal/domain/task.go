package domain

import (
	"context"
	"time"
)

// Task is a unit of work on the priority matrix that Pomodoro sessions count towards.
type Task struct {
	ID                 int64
	UserID             int64
	Title              string
	EstimatedPomodoros int
	CompletedPomodoros int
	CreatedAt          time.Time
}

// ProgressPercent returns the completed share of the estimate, 0 when unestimated.
func (t *Task) ProgressPercent() float64 {
	if t.EstimatedPomodoros <= 0 {
		return 0
	}
	return float64(t.CompletedPomodoros) / float64(t.EstimatedPomodoros) * 100
}

type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id, userID int64) (*Task, error)
	IncrementCompleted(ctx context.Context, id int64) (*Task, error)
}
