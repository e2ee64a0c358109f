package session

import (
	"context"
	"errors"

	"focusmatrix/internal/core/model"
)

// ErrRejected indicates the session service answered with success=false.
var ErrRejected = errors.New("session service rejected request")

// Outcome is the status a session is closed with.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeCancelled Outcome = "cancelled"
)

// StartRequest opens a session for a task and phase.
type StartRequest struct {
	TaskID string
	Phase  model.Phase
}

// StartResponse is the service's confirmation of an opened session.
type StartResponse struct {
	SessionID string
	Message   string
}

// EndRequest closes a previously opened session.
type EndRequest struct {
	SessionID string
	Outcome   Outcome
}

// EndResponse is the service's confirmation of a closed session.
// Progress is nil unless the close advanced the task's Pomodoro count.
type EndResponse struct {
	Message  string
	Progress *model.TaskProgress
}

// Remote is the session service as seen by the synchronizer.
type Remote interface {
	StartSession(ctx context.Context, request StartRequest) (StartResponse, error)
	EndSession(ctx context.Context, request EndRequest) (EndResponse, error)
}

// Level classifies a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a human readable message for the notification sink.
type Notice struct {
	Level   Level
	Message string
}

// Notifier receives notices. Implementations must not block.
type Notifier interface {
	Notify(notice Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls fn(notice).
func (fn NotifierFunc) Notify(notice Notice) {
	fn(notice)
}

// ProgressSink receives task progress updates for the task board.
type ProgressSink interface {
	UpdateProgress(progress model.TaskProgress)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(model.TaskProgress)

// UpdateProgress calls fn(progress).
func (fn ProgressFunc) UpdateProgress(progress model.TaskProgress) {
	fn(progress)
}
