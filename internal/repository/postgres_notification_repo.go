package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/yangshinyaw/CIACHR/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sqlx.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sqlx.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Create は通知を作成する。
func (r *PostgresNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO notifications (id, user_id, task_id, title, message, type, status, created_at)
		 VALUES (:id, :user_id, :task_id, :title, :message, :type, :status, :created_at)`,
		n)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// CreateIfAbsentSince は同じタスク・種別の通知がsince以降に存在しない場合に限り作成する。
// 期限接近通知は uq_notifications_deadline_daily でタスクごとUTCの1日1件に制約されており、
// 同時に挿入された場合は一方が ON CONFLICT DO NOTHING で捨てられる。
func (r *PostgresNotificationRepo) CreateIfAbsentSince(ctx context.Context, n *model.Notification, since time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, task_id, title, message, type, status, created_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8
		 WHERE NOT EXISTS (
		     SELECT 1 FROM notifications
		     WHERE task_id = $3 AND type = $6 AND created_at >= $9
		 )
		 ON CONFLICT DO NOTHING`,
		n.ID, n.UserID, n.TaskID, n.Title, n.Message, n.Type, n.Status, n.CreatedAt, since)
	if err != nil {
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected == 1, nil
}

// ListByUser はユーザーの通知を新しい順に返す。
func (r *PostgresNotificationRepo) ListByUser(ctx context.Context, userID string) ([]model.Notification, error) {
	notifications := []model.Notification{}
	err := r.db.SelectContext(ctx, &notifications,
		`SELECT id, user_id, task_id, title, message, type, status, created_at
		 FROM notifications WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// CountUnread はユーザーの未読通知数を返す。
func (r *PostgresNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT count(*) FROM notifications WHERE user_id = $1 AND status = 'unread'`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead は通知を既読にする。既読済みでも該当する通知があればtrueを返す。
func (r *PostgresNotificationRepo) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET status = 'read' WHERE id = $1 AND user_id = $2`,
		id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return affectedOne(result)
}

// MarkAllRead はユーザーの未読通知を全て既読にする。
func (r *PostgresNotificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET status = 'read' WHERE user_id = $1 AND status = 'unread'`,
		userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	return result.RowsAffected()
}

// Delete は通知を削除する。
func (r *PostgresNotificationRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete notification: %w", err)
	}
	return affectedOne(result)
}

// DeleteByUserID はユーザーの通知を全て削除する。
func (r *PostgresNotificationRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return result.RowsAffected()
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func affectedOne(result rowsAffecter) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
