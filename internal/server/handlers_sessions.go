package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"focusmatrix/internal/core/model"
	"focusmatrix/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type startSessionRequest struct {
	TaskID      string `json:"task_id"`
	SessionType string `json:"session_type"`
}

type endSessionRequest struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type taskProgressResponse struct {
	Completed  int     `json:"completed"`
	Estimated  int     `json:"estimated"`
	Percentage float64 `json:"percentage"`
}

type sessionResponse struct {
	ID          string     `json:"id"`
	TaskID      int64      `json:"task_id"`
	SessionType string     `json:"session_type"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}

// SessionHandler records Pomodoro sessions and credits completed work to tasks.
type SessionHandler struct {
	tasks    domain.TaskRepository
	sessions domain.SessionRepository
	logger   *slog.Logger
}

func NewSessionHandler(tasks domain.TaskRepository, sessions domain.SessionRepository, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{tasks: tasks, sessions: sessions, logger: logger}
}

// Start handles POST /api/sessions/start
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, "invalid request body")
		return
	}

	phase, err := model.ParsePhase(req.SessionType)
	if err != nil {
		writeFailure(w, fmt.Sprintf("unknown session type %q", req.SessionType))
		return
	}
	taskID, err := strconv.ParseInt(req.TaskID, 10, 64)
	if err != nil {
		writeFailure(w, "task not found")
		return
	}

	userID := GetUserID(r)
	ctx := r.Context()
	if _, err := h.tasks.GetByID(ctx, taskID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeFailure(w, "task not found")
			return
		}
		h.logger.Error("lookup task", "task_id", taskID, "error", err)
		writeFailure(w, err.Error())
		return
	}

	session := &domain.PomodoroSession{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		UserID:    userID,
		Type:      string(phase),
		Status:    domain.SessionStatusActive,
		StartedAt: time.Now().UTC(),
	}
	if err := h.sessions.Create(ctx, session); err != nil {
		h.logger.Error("create session", "task_id", taskID, "error", err)
		writeFailure(w, err.Error())
		return
	}

	h.logger.Info("session started", "session_id", session.ID, "task_id", taskID, "type", session.Type)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": session.ID,
		"message":    phase.Label() + " session started",
	})
}

// End handles POST /api/sessions/end
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	var req endSessionRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, "invalid request body")
		return
	}
	if req.Status == "" {
		req.Status = domain.SessionStatusCompleted
	}
	if !domain.ValidEndStatus(req.Status) {
		writeFailure(w, fmt.Sprintf("invalid status %q", req.Status))
		return
	}

	ctx := r.Context()
	session, err := h.sessions.GetByID(ctx, req.SessionID, GetUserID(r))
	if errors.Is(err, domain.ErrNotFound) {
		writeFailure(w, "session not found")
		return
	}
	if err != nil {
		h.logger.Error("lookup session", "session_id", req.SessionID, "error", err)
		writeFailure(w, err.Error())
		return
	}

	// The end and the credit commit together; only an active row can be ended,
	// so a task is credited at most once per session.
	credit := session.Type == string(model.PhaseWork) && req.Status == domain.SessionStatusCompleted
	task, err := h.sessions.EndAndCredit(ctx, session.ID, req.Status, time.Now(), credit)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyEnded) {
			writeFailure(w, "session already ended")
			return
		}
		h.logger.Error("end session", "session_id", session.ID, "credit", credit, "error", err)
		writeFailure(w, err.Error())
		return
	}

	var progress *taskProgressResponse
	if task != nil {
		progress = &taskProgressResponse{
			Completed:  task.CompletedPomodoros,
			Estimated:  task.EstimatedPomodoros,
			Percentage: task.ProgressPercent(),
		}
	}

	h.logger.Info("session ended", "session_id", session.ID, "status", req.Status)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Session ended",
		"task_progress": progress,
	})
}

// List handles GET /api/sessions
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	sessions, err := h.sessions.ListRecentByUser(r.Context(), GetUserID(r), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list sessions: "+err.Error())
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:          s.ID,
			TaskID:      s.TaskID,
			SessionType: s.Type,
			Status:      s.Status,
			StartedAt:   s.StartedAt,
			EndedAt:     s.EndedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}
