// Package notification はタスクのライフサイクルイベントから通知を生成する。
//
// rules.go は入出力を持たない純粋な判定ルールで、宛先はメールアドレスで表す。
// 宛先のプロフィール解決と永続化は Emitter が担う。
package notification

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yangshinyaw/CIACHR/internal/model"
)

// 通知タイトル
const (
	TitleAssignment = "New Task Assignment"
	TitleStatus     = "Task Status Update"
	TitleDeadline   = "Task Deadline Approaching"
	TitleMention    = "New Mention"
)

// DefaultDeadlineWindowDays は期限接近通知の対象とする残り日数の既定値。
const DefaultDeadlineWindowDays = 2

// Draft は永続化前の通知を表す。宛先はメールアドレスで指定する。
type Draft struct {
	RecipientEmail string
	TaskID         string
	Title          string
	Message        string
	Type           model.NotificationType
}

// TaskCreated はタスク作成時に担当者宛ての割り当て通知を生成する。
func TaskCreated(task model.Task) []Draft {
	return []Draft{{
		RecipientEmail: task.AssignedTo,
		TaskID:         task.ID,
		Title:          TitleAssignment,
		Message:        fmt.Sprintf(`You have been assigned to task "%s" by %s`, task.Title, task.CreatedBy),
		Type:           model.NotificationTypeAssignment,
	}}
}

// Reassigned は担当者変更時に新しい担当者宛ての割り当て通知を生成する。
// 自分自身への割り当てでは通知しない。
func Reassigned(task model.Task, actor model.Actor) []Draft {
	if sameEmail(task.AssignedTo, actor.Email) {
		return nil
	}
	return []Draft{{
		RecipientEmail: task.AssignedTo,
		TaskID:         task.ID,
		Title:          TitleAssignment,
		Message:        fmt.Sprintf(`You have been assigned to task "%s" by %s`, task.Title, actor.Email),
		Type:           model.NotificationTypeAssignment,
	}}
}

// StatusChanged は状態変更後のタスクから通知を生成する。
// taskは変更後の状態を保持していること。pendingへの変更では通知しない。
//
// 宛先: 操作者と異なる担当者、および操作者とも担当者とも異なる作成者。
func StatusChanged(task model.Task, actor model.Actor) []Draft {
	var (
		msg string
		typ model.NotificationType
	)
	switch task.Status {
	case model.TaskStatusCompleted:
		typ = model.NotificationTypeCompleted
		msg = fmt.Sprintf(`Task "%s" has been completed by %s`, task.Title, actor.Email)
	case model.TaskStatusInProgress:
		typ = model.NotificationTypeStatus
		msg = fmt.Sprintf(`Task "%s" is now in progress, updated by %s`, task.Title, actor.Email)
	default:
		return nil
	}

	var recipients []string
	if !sameEmail(task.AssignedTo, actor.Email) {
		recipients = append(recipients, task.AssignedTo)
	}
	if !sameEmail(task.CreatedBy, actor.Email) && !sameEmail(task.CreatedBy, task.AssignedTo) {
		recipients = append(recipients, task.CreatedBy)
	}

	drafts := make([]Draft, 0, len(recipients))
	for _, r := range recipients {
		drafts = append(drafts, Draft{
			RecipientEmail: r,
			TaskID:         task.ID,
			Title:          TitleStatus,
			Message:        msg,
			Type:           typ,
		})
	}
	return drafts
}

// DaysUntil は期限までの残り日数を24時間単位で切り上げて返す。
// 期限を過ぎている場合は0以下になる。
func DaysUntil(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}

// DeadlineApproaching は未完了かつ残り日数がwindowDays以下のタスクについて担当者宛ての通知を生成する。
func DeadlineApproaching(tasks []model.Task, now time.Time, windowDays int) []Draft {
	var drafts []Draft
	for _, task := range tasks {
		if task.Status == model.TaskStatusCompleted {
			continue
		}
		days := DaysUntil(task.Deadline, now)
		if days > windowDays {
			continue
		}
		drafts = append(drafts, Draft{
			RecipientEmail: task.AssignedTo,
			TaskID:         task.ID,
			Title:          TitleDeadline,
			Message:        fmt.Sprintf(`Task "%s" is due in %d days`, task.Title, days),
			Type:           model.NotificationTypeDeadline,
		})
	}
	return drafts
}

// Mentioned はコメントで解決されたメンション先ごとに通知を生成する。
// 同じ相手への重複メンションは1件にまとめる。
func Mentioned(task model.Task, author model.Actor, mentioned []model.Profile) []Draft {
	seen := make(map[string]bool, len(mentioned))
	drafts := make([]Draft, 0, len(mentioned))
	for _, p := range mentioned {
		key := strings.ToLower(p.Email)
		if seen[key] {
			continue
		}
		seen[key] = true
		drafts = append(drafts, Draft{
			RecipientEmail: p.Email,
			TaskID:         task.ID,
			Title:          TitleMention,
			Message:        fmt.Sprintf(`%s mentioned you in a comment on task "%s"`, author.Email, task.Title),
			Type:           model.NotificationTypeMention,
		})
	}
	return drafts
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
