// Package model はドメインモデルを定義する。
package model

import "time"

// Notification はユーザー宛ての通知を表す。
// 通知ルールエンジンからのみ作成され、既読化（一方向）または削除でのみ変更される。
type Notification struct {
	ID        string             `db:"id"`
	UserID    string             `db:"user_id"`
	TaskID    string             `db:"task_id"`
	Title     string             `db:"title"`
	Message   string             `db:"message"`
	Type      NotificationType   `db:"type"`
	Status    NotificationStatus `db:"status"`
	CreatedAt time.Time          `db:"created_at"`
}

// NotificationType は通知の種別を表す。
type NotificationType string

const (
	NotificationTypeDeadline   NotificationType = "deadline"
	NotificationTypeOverdue    NotificationType = "overdue"
	NotificationTypeStatus     NotificationType = "status"
	NotificationTypeCompleted  NotificationType = "completed"
	NotificationTypeAssignment NotificationType = "assignment"
	NotificationTypeMention    NotificationType = "mention"
)

// NotificationStatus は通知の既読状態を表す。
type NotificationStatus string

const (
	// NotificationStatusUnread は未読。
	NotificationStatusUnread NotificationStatus = "unread"
	// NotificationStatusRead は既読。readからunreadへは戻らない。
	NotificationStatusRead NotificationStatus = "read"
)
