package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"focusmatrix/internal/domain"
)

type createTaskRequest struct {
	Title              string `json:"title"`
	EstimatedPomodoros int    `json:"estimated_pomodoros"`
}

type taskResponse struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Completed  int     `json:"completed"`
	Estimated  int     `json:"estimated"`
	Percentage float64 `json:"percentage"`
}

func newTaskResponse(task *domain.Task) taskResponse {
	return taskResponse{
		ID:         task.ID,
		Title:      task.Title,
		Completed:  task.CompletedPomodoros,
		Estimated:  task.EstimatedPomodoros,
		Percentage: task.ProgressPercent(),
	}
}

// TaskHandler serves the minimal task endpoints sessions are recorded against.
type TaskHandler struct {
	tasks domain.TaskRepository
}

func NewTaskHandler(tasks domain.TaskRepository) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// Create handles POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.EstimatedPomodoros <= 0 {
		req.EstimatedPomodoros = 1
	}

	task := &domain.Task{
		UserID:             GetUserID(r),
		Title:              req.Title,
		EstimatedPomodoros: req.EstimatedPomodoros,
	}
	if err := h.tasks.Create(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, "create task: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, newTaskResponse(task))
}

// Get handles GET /api/tasks/{id}
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := h.tasks.GetByID(r.Context(), id, GetUserID(r))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get task: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newTaskResponse(task))
}
