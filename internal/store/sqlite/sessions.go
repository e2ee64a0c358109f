package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"focusmatrix/internal/domain"
)

// SessionRepository implements domain.SessionRepository using SQLite.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SQLite-backed SessionRepository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db.SqlDB}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.PomodoroSession) error {
	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now().UTC()
	}
	if session.Status == "" {
		session.Status = domain.SessionStatusActive
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pomodoro_sessions (id, task_id, user_id, session_type, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.TaskID, session.UserID, session.Type, session.Status, session.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByID returns the session only when it belongs to userID.
func (r *SessionRepository) GetByID(ctx context.Context, id string, userID int64) (*domain.PomodoroSession, error) {
	s := &domain.PomodoroSession{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, task_id, user_id, session_type, status, started_at, ended_at
		 FROM pomodoro_sessions WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&s.ID, &s.TaskID, &s.UserID, &s.Type, &s.Status, &s.StartedAt, &s.EndedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// End moves an active session to a terminal status.
// It returns domain.ErrAlreadyEnded when the session is no longer active.
func (r *SessionRepository) End(ctx context.Context, id string, status string, endedAt time.Time) error {
	_, err := r.EndAndCredit(ctx, id, status, endedAt, false)
	return err
}

// EndAndCredit ends an active session and, when credit is set, increments
// the owning task's completed count in the same transaction. The updated
// task is returned only when credited. If either step fails nothing is
// written and the session stays active.
func (r *SessionRepository) EndAndCredit(ctx context.Context, id string, status string, endedAt time.Time, credit bool) (*domain.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE pomodoro_sessions SET status = ?, ended_at = ?
		 WHERE id = ? AND status = ?`,
		status, endedAt.UTC(), id, domain.SessionStatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM pomodoro_sessions WHERE id = ?", id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("check session: %w", err)
		}
		return nil, domain.ErrAlreadyEnded
	}

	var task *domain.Task
	if credit {
		var taskID int64
		if err := tx.QueryRowContext(ctx, "SELECT task_id FROM pomodoro_sessions WHERE id = ?", id).Scan(&taskID); err != nil {
			return nil, fmt.Errorf("session task: %w", err)
		}
		if task, err = incrementCompleted(ctx, tx, taskID); err != nil {
			return nil, fmt.Errorf("credit task %d: %w", taskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return task, nil
}

// ListRecentByUser returns the user's sessions, newest first.
func (r *SessionRepository) ListRecentByUser(ctx context.Context, userID int64, limit int) ([]domain.PomodoroSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, task_id, user_id, session_type, status, started_at, ended_at
		 FROM pomodoro_sessions WHERE user_id = ?
		 ORDER BY started_at DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.PomodoroSession
	for rows.Next() {
		var s domain.PomodoroSession
		if err := rows.Scan(&s.ID, &s.TaskID, &s.UserID, &s.Type, &s.Status, &s.StartedAt, &s.EndedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
