package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"focusmatrix/internal/domain"
)

// TaskRepository implements domain.TaskRepository using SQLite.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new SQLite-backed TaskRepository.
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db.SqlDB}
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, estimated_pomodoros, completed_pomodoros, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		task.UserID, task.Title, task.EstimatedPomodoros, task.CompletedPomodoros, now,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get task id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	return nil
}

// GetByID returns the task only when it belongs to userID.
func (r *TaskRepository) GetByID(ctx context.Context, id, userID int64) (*domain.Task, error) {
	task := &domain.Task{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, estimated_pomodoros, completed_pomodoros, created_at
		 FROM tasks WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&task.ID, &task.UserID, &task.Title, &task.EstimatedPomodoros, &task.CompletedPomodoros, &task.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// IncrementCompleted bumps the completed Pomodoro count and returns the updated task.
func (r *TaskRepository) IncrementCompleted(ctx context.Context, id int64) (*domain.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	task, err := incrementCompleted(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return task, nil
}

func incrementCompleted(ctx context.Context, tx *sql.Tx, id int64) (*domain.Task, error) {
	result, err := tx.ExecContext(ctx,
		"UPDATE tasks SET completed_pomodoros = completed_pomodoros + 1 WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("increment task: %w", err)
	}
	if rows, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if rows == 0 {
		return nil, domain.ErrNotFound
	}

	task := &domain.Task{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, user_id, title, estimated_pomodoros, completed_pomodoros, created_at
		 FROM tasks WHERE id = ?`, id,
	).Scan(&task.ID, &task.UserID, &task.Title, &task.EstimatedPomodoros, &task.CompletedPomodoros, &task.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reload task: %w", err)
	}
	return task, nil
}
