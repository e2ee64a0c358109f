package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"focusmatrix/internal/core/model"
	"focusmatrix/internal/core/session"
	"focusmatrix/internal/domain"
	"focusmatrix/internal/remote"
	"focusmatrix/internal/server"
	"focusmatrix/internal/store/sqlite"
)

type testEnv struct {
	server *httptest.Server
	db     *sqlite.DB
	auth   *server.Authenticator
}

func newTestEnv(t *testing.T, secret string) *testEnv {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	auth := server.NewAuthenticator(secret)
	router := server.NewRouter(server.Dependencies{
		Tasks:    db.Tasks(),
		Sessions: db.Sessions(),
		Auth:     auth,
		Health:   db,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, db: db, auth: auth}
}

func (env *testEnv) createTask(t *testing.T, userID int64, title string, estimated, completed int) *domain.Task {
	t.Helper()
	task := &domain.Task{UserID: userID, Title: title, EstimatedPomodoros: estimated, CompletedPomodoros: completed}
	if err := env.db.Tasks().Create(context.Background(), task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := doJSON(t, http.MethodGet, env.server.URL+"/health", "", nil)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health = %d %v", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header")
	}
}

func TestCreateAndGetTask(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := doJSON(t, http.MethodPost, env.server.URL+"/api/tasks", "", map[string]any{
		"title": "Write report", "estimated_pomodoros": 4,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d %v", resp.StatusCode, body)
	}
	id := strconv.FormatInt(int64(body["id"].(float64)), 10)

	resp, body = doJSON(t, http.MethodGet, env.server.URL+"/api/tasks/"+id, "", nil)
	if resp.StatusCode != http.StatusOK || body["title"] != "Write report" || body["estimated"] != float64(4) {
		t.Fatalf("get = %d %v", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodGet, env.server.URL+"/api/tasks/999", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing task status = %d", resp.StatusCode)
	}
}

func TestCreateTaskRequiresTitle(t *testing.T) {
	env := newTestEnv(t, "")

	resp, _ := doJSON(t, http.MethodPost, env.server.URL+"/api/tasks", "", map[string]any{"title": "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStartSessionValidation(t *testing.T) {
	env := newTestEnv(t, "")
	task := env.createTask(t, server.AnonymousUserID, "Plan", 2, 0)
	taskID := strconv.FormatInt(task.ID, 10)

	tests := []struct {
		name    string
		body    map[string]any
		wantErr string
	}{
		{"unknown task", map[string]any{"task_id": "999", "session_type": "work"}, "task not found"},
		{"non numeric task", map[string]any{"task_id": "abc", "session_type": "work"}, "task not found"},
		{"bad type", map[string]any{"task_id": taskID, "session_type": "nap"}, `unknown session type "nap"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, http.MethodPost, env.server.URL+"/api/sessions/start", "", tt.body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			if body["success"] != false || body["error"] != tt.wantErr {
				t.Fatalf("body = %v, want error %q", body, tt.wantErr)
			}
		})
	}
}

func TestEndSessionCreditsWorkOnly(t *testing.T) {
	env := newTestEnv(t, "")
	task := env.createTask(t, server.AnonymousUserID, "Read", 5, 2)
	taskID := strconv.FormatInt(task.ID, 10)

	tests := []struct {
		sessionType  string
		status       string
		wantProgress bool
	}{
		{"work", "completed", true},
		{"work", "cancelled", false},
		{"short_break", "completed", false},
		{"long_break", "interrupted", false},
	}

	credited := 2
	for _, tt := range tests {
		t.Run(tt.sessionType+"/"+tt.status, func(t *testing.T) {
			_, started := doJSON(t, http.MethodPost, env.server.URL+"/api/sessions/start", "", map[string]any{
				"task_id": taskID, "session_type": tt.sessionType,
			})
			if started["success"] != true {
				t.Fatalf("start = %v", started)
			}

			_, ended := doJSON(t, http.MethodPost, env.server.URL+"/api/sessions/end", "", map[string]any{
				"session_id": started["session_id"], "status": tt.status,
			})
			if ended["success"] != true {
				t.Fatalf("end = %v", ended)
			}

			progress, _ := ended["task_progress"].(map[string]any)
			if (progress != nil) != tt.wantProgress {
				t.Fatalf("task_progress = %v, want present=%v", ended["task_progress"], tt.wantProgress)
			}
			if tt.wantProgress {
				credited++
				if progress["completed"] != float64(credited) || progress["estimated"] != float64(5) {
					t.Fatalf("progress = %v", progress)
				}
			}
		})
	}

	got, err := env.db.Tasks().GetByID(context.Background(), task.ID, server.AnonymousUserID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.CompletedPomodoros != credited {
		t.Fatalf("completed = %d, want %d", got.CompletedPomodoros, credited)
	}
}

func TestEndSessionTwiceCreditsOnce(t *testing.T) {
	env := newTestEnv(t, "")
	task := env.createTask(t, server.AnonymousUserID, "Read", 4, 0)

	_, started := doJSON(t, http.MethodPost, env.server.URL+"/api/sessions/start", "", map[string]any{
		"task_id": strconv.FormatInt(task.ID, 10), "session_type": "work",
	})
	end := map[string]any{"session_id": started["session_id"], "status": "completed"}

	if _, body := doJSON(t, http.MethodPost, env.server.URL+"/api/sessions/end", "", end); body["success"] != true {
		t.Fatalf("first end = %v", body)
	}
	_, body := doJSON(t, http.MethodPost, env.server.URL+"/api/sessions/end", "", end)
	if body["success"] != false || body["error"] != "session already ended" {
		t.Fatalf("second end = %v", body)
	}

	got, _ := env.db.Tasks().GetByID(context.Background(), task.ID, server.AnonymousUserID)
	if got.CompletedPomodoros != 1 {
		t.Fatalf("completed = %d, want 1", got.CompletedPomodoros)
	}
}

func TestEndSessionKeepsSessionActiveWhenCreditFails(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	task := env.createTask(t, server.AnonymousUserID, "Draft", 3, 0)

	_, started := doJSON(t, http.MethodPost, env.server.URL+"/api/sessions/start", "", map[string]any{
		"task_id": strconv.FormatInt(task.ID, 10), "session_type": "work",
	})
	sessionID, _ := started["session_id"].(string)
	if sessionID == "" {
		t.Fatalf("start = %v", started)
	}

	if _, err := env.db.SqlDB.ExecContext(ctx,
		`CREATE TRIGGER fail_credit BEFORE UPDATE OF completed_pomodoros ON tasks
		 BEGIN SELECT RAISE(ABORT, 'credit rejected'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	end := map[string]any{"session_id": sessionID, "status": "completed"}
	_, failed := doJSON(t, http.MethodPost, env.server.URL+"/api/sessions/end", "", end)
	if failed["success"] != false {
		t.Fatalf("end with failing credit = %v, want failure", failed)
	}
	session, err := env.db.Sessions().GetByID(ctx, sessionID, server.AnonymousUserID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if session.Status != "active" {
		t.Fatalf("status = %q after failed credit, want active", session.Status)
	}

	if _, err := env.db.SqlDB.ExecContext(ctx, "DROP TRIGGER fail_credit"); err != nil {
		t.Fatalf("drop trigger: %v", err)
	}
	_, ended := doJSON(t, http.MethodPost, env.server.URL+"/api/sessions/end", "", end)
	progress, _ := ended["task_progress"].(map[string]any)
	if ended["success"] != true || progress["completed"] != float64(1) {
		t.Fatalf("retried end = %v, want success with one credit", ended)
	}
}

func TestEndSessionRejectsUnknown(t *testing.T) {
	env := newTestEnv(t, "")

	_, body := doJSON(t, http.MethodPost, env.server.URL+"/api/sessions/end", "", map[string]any{"session_id": "nope", "status": "completed"})
	if body["success"] != false || body["error"] != "session not found" {
		t.Fatalf("body = %v", body)
	}
	_, body = doJSON(t, http.MethodPost, env.server.URL+"/api/sessions/end", "", map[string]any{"session_id": "nope", "status": "paused"})
	if body["success"] != false || body["error"] != `invalid status "paused"` {
		t.Fatalf("body = %v", body)
	}
}

func TestListSessions(t *testing.T) {
	env := newTestEnv(t, "")
	task := env.createTask(t, server.AnonymousUserID, "Plan", 2, 0)

	for range 3 {
		doJSON(t, http.MethodPost, env.server.URL+"/api/sessions/start", "", map[string]any{
			"task_id": strconv.FormatInt(task.ID, 10), "session_type": "work",
		})
	}

	resp, body := doJSON(t, http.MethodGet, env.server.URL+"/api/sessions?limit=2", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if sessions := body["sessions"].([]any); len(sessions) != 2 {
		t.Fatalf("sessions = %v, want 2 entries", sessions)
	}

	resp, _ = doJSON(t, http.MethodGet, env.server.URL+"/api/sessions?limit=0", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("limit=0 status = %d, want 400", resp.StatusCode)
	}
}

func TestBearerAuth(t *testing.T) {
	env := newTestEnv(t, "secret")
	mine := env.createTask(t, 7, "Mine", 1, 0)
	theirs := env.createTask(t, 8, "Theirs", 1, 0)

	token, err := env.auth.IssueToken(7, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	resp, _ := doJSON(t, http.MethodGet, env.server.URL+"/api/tasks/"+strconv.FormatInt(mine.ID, 10), "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, env.server.URL+"/api/tasks/"+strconv.FormatInt(mine.ID, 10), "garbage", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad token status = %d, want 401", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, env.server.URL+"/api/tasks/"+strconv.FormatInt(mine.ID, 10), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("own task status = %d, want 200", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, env.server.URL+"/api/tasks/"+strconv.FormatInt(theirs.ID, 10), token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("other user's task status = %d, want 404", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, env.server.URL+"/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health needs no token, got %d", resp.StatusCode)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	auth := server.NewAuthenticator("secret")
	token, err := auth.IssueToken(3, -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := auth.ValidateToken(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}

	other := server.NewAuthenticator("different")
	valid, _ := other.IssueToken(3, time.Hour)
	if _, err := auth.ValidateToken(valid); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("foreign token error = %v, want ErrUnauthorized", err)
	}
}

func TestIssueTokenRequiresSecret(t *testing.T) {
	if _, err := server.NewAuthenticator("").IssueToken(1, time.Hour); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

// The desktop client and the service agree on the wire format.
func TestRemoteClientRoundTrip(t *testing.T) {
	env := newTestEnv(t, "secret")
	task := env.createTask(t, 5, "Ship", 5, 2)
	token, err := env.auth.IssueToken(5, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	client := remote.NewClient(env.server.URL, token)
	ctx := context.Background()
	taskID := strconv.FormatInt(task.ID, 10)

	started, err := client.StartSession(ctx, session.StartRequest{TaskID: taskID, Phase: model.PhaseWork})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if started.Message != "Work session started" {
		t.Fatalf("message = %q", started.Message)
	}

	ended, err := client.EndSession(ctx, session.EndRequest{SessionID: started.SessionID, Outcome: session.OutcomeCompleted})
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if ended.Progress == nil || *ended.Progress != (model.TaskProgress{Completed: 3, Estimated: 5}) {
		t.Fatalf("progress = %+v, want 3/5", ended.Progress)
	}

	summary, err := client.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if summary.Percentage != 60 {
		t.Fatalf("percentage = %v, want 60", summary.Percentage)
	}

	_, err = client.StartSession(ctx, session.StartRequest{TaskID: "999", Phase: model.PhaseWork})
	if !errors.Is(err, session.ErrRejected) {
		t.Fatalf("unknown task error = %v, want ErrRejected", err)
	}
}
