// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// Task は従業員に割り当てられるタスクを表す。
// CreatedBy と AssignedTo はメールアドレスで保持する。
type Task struct {
	ID         string     `db:"id"`
	Title      string     `db:"title"`
	Deadline   time.Time  `db:"deadline"`
	Priority   Priority   `db:"priority"`
	Status     TaskStatus `db:"status"`
	CreatedBy  string     `db:"created_by"`
	AssignedTo string     `db:"assigned_to"`
	UserID     string     `db:"user_id"`
	CreatedAt  time.Time  `db:"created_at"`
}

// Priority はタスクの優先度を表す。
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid は定義済みの優先度かどうかを返す。
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// TaskStatus はタスクの進捗状態を表す。
// pending → in-progress → completed → pending の順で1段階ずつ循環する。
type TaskStatus string

const (
	// TaskStatusPending は未着手。
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusInProgress は作業中。
	TaskStatusInProgress TaskStatus = "in-progress"
	// TaskStatusCompleted は完了。
	TaskStatusCompleted TaskStatus = "completed"
)

// Valid は定義済みの状態かどうかを返す。
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// Next は循環上の次の状態を返す。未定義の状態はpendingに戻す。
func (s TaskStatus) Next() TaskStatus {
	switch s {
	case TaskStatusPending:
		return TaskStatusInProgress
	case TaskStatusInProgress:
		return TaskStatusCompleted
	default:
		return TaskStatusPending
	}
}

// AccessibleBy は操作者がタスクを参照・操作できるかを返す。
// 作成者か担当者（メールアドレスは大文字小文字を区別しない）、または管理者のみ。
func (t Task) AccessibleBy(actor Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	if actor.Email == "" {
		return false
	}
	return strings.EqualFold(t.CreatedBy, actor.Email) || strings.EqualFold(t.AssignedTo, actor.Email)
}
