package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"focusmatrix/internal/domain"
	"focusmatrix/internal/store/sqlite"
	"focusmatrix/internal/store/sqlite/migrations"
)

var (
	_ domain.TaskRepository    = (*sqlite.TaskRepository)(nil)
	_ domain.SessionRepository = (*sqlite.SessionRepository)(nil)
)

func openDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestNewEnablesForeignKeys(t *testing.T) {
	db := openDB(t)

	var fkEnabled int
	if err := db.SqlDB.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("check foreign_keys: %v", err)
	}
	if fkEnabled != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fkEnabled)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	pending, err := migrations.Pending(ctx, db.SqlDB)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending = %v, want none", pending)
	}
}

func TestTaskCreateAndGet(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	tasks := db.Tasks()

	task := &domain.Task{UserID: 1, Title: "Write report", EstimatedPomodoros: 4}
	if err := tasks.Create(ctx, task); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("expected task id to be assigned")
	}

	got, err := tasks.GetByID(ctx, task.ID, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Write report" || got.EstimatedPomodoros != 4 || got.CompletedPomodoros != 0 {
		t.Fatalf("task = %+v", got)
	}

	if _, err := tasks.GetByID(ctx, task.ID, 2); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("other user's lookup error = %v, want ErrNotFound", err)
	}
}

func TestTaskIncrementCompleted(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	tasks := db.Tasks()

	task := &domain.Task{UserID: 1, Title: "Read", EstimatedPomodoros: 5, CompletedPomodoros: 2}
	if err := tasks.Create(ctx, task); err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := tasks.IncrementCompleted(ctx, task.ID)
	if err != nil {
		t.Fatalf("IncrementCompleted: %v", err)
	}
	if updated.CompletedPomodoros != 3 || updated.ProgressPercent() != 60 {
		t.Fatalf("updated = %+v", updated)
	}

	if _, err := tasks.IncrementCompleted(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing task error = %v, want ErrNotFound", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	task := &domain.Task{UserID: 1, Title: "Plan", EstimatedPomodoros: 2}
	if err := db.Tasks().Create(ctx, task); err != nil {
		t.Fatalf("Create task: %v", err)
	}

	sessions := db.Sessions()
	s := &domain.PomodoroSession{ID: "abc", TaskID: task.ID, UserID: 1, Type: "work"}
	if err := sessions.Create(ctx, s); err != nil {
		t.Fatalf("Create session: %v", err)
	}

	got, err := sessions.GetByID(ctx, "abc", 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.SessionStatusActive || got.EndedAt != nil {
		t.Fatalf("session = %+v, want active", got)
	}

	if err := sessions.End(ctx, "abc", domain.SessionStatusCompleted, time.Now()); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := sessions.End(ctx, "abc", domain.SessionStatusCancelled, time.Now()); !errors.Is(err, domain.ErrAlreadyEnded) {
		t.Fatalf("second End error = %v, want ErrAlreadyEnded", err)
	}
	if err := sessions.End(ctx, "missing", domain.SessionStatusCancelled, time.Now()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing End error = %v, want ErrNotFound", err)
	}

	got, err = sessions.GetByID(ctx, "abc", 1)
	if err != nil {
		t.Fatalf("GetByID after end: %v", err)
	}
	if got.Status != domain.SessionStatusCompleted || got.EndedAt == nil {
		t.Fatalf("session = %+v, want completed with end time", got)
	}
}

func TestEndAndCreditCommitsTogether(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	task := &domain.Task{UserID: 1, Title: "Write", EstimatedPomodoros: 4, CompletedPomodoros: 1}
	if err := db.Tasks().Create(ctx, task); err != nil {
		t.Fatalf("Create task: %v", err)
	}
	sessions := db.Sessions()
	if err := sessions.Create(ctx, &domain.PomodoroSession{ID: "w1", TaskID: task.ID, UserID: 1, Type: "work"}); err != nil {
		t.Fatalf("Create session: %v", err)
	}

	credited, err := sessions.EndAndCredit(ctx, "w1", domain.SessionStatusCompleted, time.Now(), true)
	if err != nil {
		t.Fatalf("EndAndCredit: %v", err)
	}
	if credited == nil || credited.CompletedPomodoros != 2 {
		t.Fatalf("credited task = %+v, want 2 completed", credited)
	}

	if _, err := sessions.EndAndCredit(ctx, "w1", domain.SessionStatusCompleted, time.Now(), true); !errors.Is(err, domain.ErrAlreadyEnded) {
		t.Fatalf("second EndAndCredit error = %v, want ErrAlreadyEnded", err)
	}
	got, err := db.Tasks().GetByID(ctx, task.ID, 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.CompletedPomodoros != 2 {
		t.Fatalf("completed = %d after repeated end, want 2", got.CompletedPomodoros)
	}
}

func TestEndAndCreditRollsBackWhenCreditFails(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	task := &domain.Task{UserID: 1, Title: "Review", EstimatedPomodoros: 3}
	if err := db.Tasks().Create(ctx, task); err != nil {
		t.Fatalf("Create task: %v", err)
	}
	sessions := db.Sessions()
	if err := sessions.Create(ctx, &domain.PomodoroSession{ID: "w2", TaskID: task.ID, UserID: 1, Type: "work"}); err != nil {
		t.Fatalf("Create session: %v", err)
	}

	_, err := db.SqlDB.ExecContext(ctx,
		`CREATE TRIGGER fail_credit BEFORE UPDATE OF completed_pomodoros ON tasks
		 BEGIN SELECT RAISE(ABORT, 'credit rejected'); END`)
	if err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	if _, err := sessions.EndAndCredit(ctx, "w2", domain.SessionStatusCompleted, time.Now(), true); err == nil {
		t.Fatal("EndAndCredit succeeded, want credit failure")
	}

	got, err := sessions.GetByID(ctx, "w2", 1)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.SessionStatusActive || got.EndedAt != nil {
		t.Fatalf("session = %+v, want still active after failed credit", got)
	}

	if _, err := db.SqlDB.ExecContext(ctx, "DROP TRIGGER fail_credit"); err != nil {
		t.Fatalf("drop trigger: %v", err)
	}
	credited, err := sessions.EndAndCredit(ctx, "w2", domain.SessionStatusCompleted, time.Now(), true)
	if err != nil {
		t.Fatalf("retry EndAndCredit: %v", err)
	}
	if credited.CompletedPomodoros != 1 {
		t.Fatalf("completed = %d after retry, want 1", credited.CompletedPomodoros)
	}
}

func TestSessionRequiresExistingTask(t *testing.T) {
	db := openDB(t)

	s := &domain.PomodoroSession{ID: "orphan", TaskID: 42, UserID: 1, Type: "work"}
	if err := db.Sessions().Create(context.Background(), s); err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestListRecentByUser(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	task := &domain.Task{UserID: 1, Title: "Plan", EstimatedPomodoros: 2}
	if err := db.Tasks().Create(ctx, task); err != nil {
		t.Fatalf("Create task: %v", err)
	}

	base := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		s := &domain.PomodoroSession{ID: id, TaskID: task.ID, UserID: 1, Type: "work", StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := db.Sessions().Create(ctx, s); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}
	other := &domain.PomodoroSession{ID: "x", TaskID: task.ID, UserID: 2, Type: "work"}
	if err := db.Sessions().Create(ctx, other); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	list, err := db.Sessions().ListRecentByUser(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListRecentByUser: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
		t.Fatalf("list = %+v, want c then b", list)
	}
}
