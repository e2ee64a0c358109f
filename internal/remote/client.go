// Package remote talks to the session service over HTTP.
// Wire types mirror the service's JSON without importing server packages.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"focusmatrix/internal/core/model"
	"focusmatrix/internal/core/session"
)

type startSessionRequest struct {
	TaskID      string `json:"task_id"`
	SessionType string `json:"session_type"`
}

type startSessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
}

type endSessionRequest struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type endSessionResponse struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	Error        string        `json:"error,omitempty"`
	TaskProgress *taskProgress `json:"task_progress,omitempty"`
}

type taskProgress struct {
	Completed  int     `json:"completed"`
	Estimated  int     `json:"estimated"`
	Percentage float64 `json:"percentage"`
}

// Task is the task summary returned by GET /api/tasks/{id}.
type Task struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Completed  int     `json:"completed"`
	Estimated  int     `json:"estimated"`
	Percentage float64 `json:"percentage"`
}

// Progress converts the task summary into model.TaskProgress.
func (task Task) Progress() model.TaskProgress {
	return model.TaskProgress{Completed: task.Completed, Estimated: task.Estimated}
}

// Client implements session.Remote against the session service.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a client targeting the given base URL (e.g. "http://127.0.0.1:8080").
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// StartSession sends POST /api/sessions/start.
func (c *Client) StartSession(ctx context.Context, request session.StartRequest) (session.StartResponse, error) {
	body := startSessionRequest{TaskID: request.TaskID, SessionType: string(request.Phase)}
	var out startSessionResponse
	if err := c.post(ctx, "/api/sessions/start", body, &out); err != nil {
		return session.StartResponse{}, err
	}
	if !out.Success {
		return session.StartResponse{}, rejected(out.Error)
	}
	if out.SessionID == "" {
		return session.StartResponse{}, fmt.Errorf("start session: response carries no session id")
	}
	return session.StartResponse{SessionID: out.SessionID, Message: out.Message}, nil
}

// EndSession sends POST /api/sessions/end.
func (c *Client) EndSession(ctx context.Context, request session.EndRequest) (session.EndResponse, error) {
	body := endSessionRequest{SessionID: request.SessionID, Status: string(request.Outcome)}
	var out endSessionResponse
	if err := c.post(ctx, "/api/sessions/end", body, &out); err != nil {
		return session.EndResponse{}, err
	}
	if !out.Success {
		return session.EndResponse{}, rejected(out.Error)
	}

	response := session.EndResponse{Message: out.Message}
	if out.TaskProgress != nil {
		response.Progress = &model.TaskProgress{
			Completed: out.TaskProgress.Completed,
			Estimated: out.TaskProgress.Estimated,
		}
	}
	return response, nil
}

// GetTask fetches /api/tasks/{id}.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	if err := c.get(ctx, "/api/tasks/"+url.PathEscape(taskID), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func rejected(message string) error {
	if message == "" {
		return session.ErrRejected
	}
	return fmt.Errorf("%w: %s", session.ErrRejected, message)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s: %d %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("POST %s: %d %s", path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
