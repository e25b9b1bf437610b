package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/yangshinyaw/CIACHR/internal/model"
)

const taskColumns = `id, title, deadline, priority, status, created_by, assigned_to, user_id, created_at`

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sqlx.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sqlx.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.GetContext(ctx, &task, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task by ID: %w", err)
	}
	return &task, nil
}

// Create はタスクを作成する。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES (:id, :title, :deadline, :priority, :status, :created_by, :assigned_to, :user_id, :created_at)`,
		task)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// ListForEmail は作成者または担当者が指定メールアドレスのタスクを期限の降順で返す。
func (r *PostgresTaskRepo) ListForEmail(ctx context.Context, email string) ([]model.Task, error) {
	tasks := []model.Task{}
	err := r.db.SelectContext(ctx, &tasks,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE lower(created_by) = lower($1) OR lower(assigned_to) = lower($1)
		 ORDER BY deadline DESC`,
		email)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateStatus は現在の状態がfromである場合に限りtoへ更新する。
func (r *PostgresTaskRepo) UpdateStatus(ctx context.Context, id string, from, to model.TaskStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET status = $3 WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return false, fmt.Errorf("failed to update task status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// UpdateAssignee は担当者を更新する。
func (r *PostgresTaskRepo) UpdateAssignee(ctx context.Context, id, assignee string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE tasks SET assigned_to = $2 WHERE id = $1`, id, assignee)
	if err != nil {
		return fmt.Errorf("failed to update task assignee: %w", err)
	}
	return nil
}

// ListOpenDueBefore は未完了かつ期限がbefore以前のタスクを期限の昇順で返す。
func (r *PostgresTaskRepo) ListOpenDueBefore(ctx context.Context, before time.Time) ([]model.Task, error) {
	tasks := []model.Task{}
	err := r.db.SelectContext(ctx, &tasks,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE status <> 'completed' AND deadline <= $1
		 ORDER BY deadline`,
		before)
	if err != nil {
		return nil, fmt.Errorf("failed to list open tasks due before %s: %w", before.Format(time.RFC3339), err)
	}
	return tasks, nil
}

// DeleteByEmail は作成者または担当者が指定メールアドレスのタスクを削除する。
// コメント・通知・添付はCASCADE削除される。
func (r *PostgresTaskRepo) DeleteByEmail(ctx context.Context, email string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE lower(created_by) = lower($1) OR lower(assigned_to) = lower($1)`,
		email)
	if err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
