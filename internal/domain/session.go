package domain

import (
	"context"
	"time"
)

// PomodoroSession records one timed phase run against a task.
type PomodoroSession struct {
	ID        string
	TaskID    int64
	UserID    int64
	Type      string
	Status    string
	StartedAt time.Time
	EndedAt   *time.Time
}

const (
	SessionStatusActive      = "active"
	SessionStatusCompleted   = "completed"
	SessionStatusInterrupted = "interrupted"
	SessionStatusCancelled   = "cancelled"
)

// ValidEndStatus reports whether s may close a session.
func ValidEndStatus(s string) bool {
	switch s {
	case SessionStatusCompleted, SessionStatusInterrupted, SessionStatusCancelled:
		return true
	}
	return false
}

type SessionRepository interface {
	Create(ctx context.Context, session *PomodoroSession) error
	GetByID(ctx context.Context, id string, userID int64) (*PomodoroSession, error)
	End(ctx context.Context, id string, status string, endedAt time.Time) error
	// EndAndCredit ends an active session and optionally credits its task atomically.
	EndAndCredit(ctx context.Context, id string, status string, endedAt time.Time, credit bool) (*Task, error)
	ListRecentByUser(ctx context.Context, userID int64, limit int) ([]PomodoroSession, error)
}
