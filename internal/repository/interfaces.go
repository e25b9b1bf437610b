// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yangshinyaw/CIACHR/internal/model"
)

// ErrDuplicate は一意制約違反を表す。
var ErrDuplicate = errors.New("duplicate record")

// ProfileRepository は従業員ディレクトリ（profiles）の永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)

	// FindByEmail はメールアドレス（大文字小文字を区別しない）で検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)

	// FindByEmails は指定メールアドレスのうち登録済みのプロフィールを返す。
	FindByEmails(ctx context.Context, emails []string) ([]model.Profile, error)

	// SearchByNamePrefix は氏名の前方一致（大文字小文字を区別しない）で検索し、氏名順に返す。
	SearchByNamePrefix(ctx context.Context, prefix string, limit int) ([]model.Profile, error)

	// DeleteByID は指定IDのプロフィールを削除する。存在しない場合はエラーを返す。
	DeleteByID(ctx context.Context, id string) error
}

// TaskRepository はタスクの永続化インターフェース。
type TaskRepository interface {
	// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// ListForEmail は作成者または担当者が指定メールアドレスのタスクを期限の降順で返す。
	ListForEmail(ctx context.Context, email string) ([]model.Task, error)

	// UpdateStatus は現在の状態がfromである場合に限りtoへ更新する。
	// 他の更新と競合した場合はfalseを返す。
	UpdateStatus(ctx context.Context, id string, from, to model.TaskStatus) (bool, error)

	// UpdateAssignee は担当者を更新する。
	UpdateAssignee(ctx context.Context, id, assignee string) error

	// ListOpenDueBefore は未完了かつ期限がbefore以前のタスクを返す。
	ListOpenDueBefore(ctx context.Context, before time.Time) ([]model.Task, error)

	// DeleteByEmail は作成者または担当者が指定メールアドレスのタスクを削除する。
	DeleteByEmail(ctx context.Context, email string) error
}

// CommentRepository はコメントの永続化インターフェース。
type CommentRepository interface {
	// Create はコメントを作成する。
	Create(ctx context.Context, comment *model.Comment) error

	// ListByTask はタスクのコメントを新しい順に返す。
	ListByTask(ctx context.Context, taskID string) ([]model.Comment, error)

	// DeleteByUserID は指定ユーザーが投稿したコメントを全て削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// NotificationRepository は通知の永続化インターフェース。
// 参照・更新系はすべてuser_idで所有者を限定する。
type NotificationRepository interface {
	// Create は通知を作成する。
	Create(ctx context.Context, n *model.Notification) error

	// CreateIfAbsentSince は同じタスク・種別の通知がsince以降に存在しない場合に限り作成する。
	// 作成した場合はtrueを返す。
	CreateIfAbsentSince(ctx context.Context, n *model.Notification, since time.Time) (bool, error)

	// ListByUser はユーザーの通知を新しい順に返す。
	ListByUser(ctx context.Context, userID string) ([]model.Notification, error)

	// CountUnread はユーザーの未読通知数を返す。
	CountUnread(ctx context.Context, userID string) (int, error)

	// MarkRead は通知を既読にする。該当する通知がない場合はfalseを返す。
	MarkRead(ctx context.Context, userID, id string) (bool, error)

	// MarkAllRead はユーザーの未読通知を全て既読にし、更新件数を返す。
	MarkAllRead(ctx context.Context, userID string) (int64, error)

	// Delete は通知を削除する。該当する通知がない場合はfalseを返す。
	Delete(ctx context.Context, userID, id string) (bool, error)

	// DeleteByUserID はユーザーの通知を全て削除し、削除件数を返す。
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}

// AllowedIPRepository はIP許可リストの永続化インターフェース。
type AllowedIPRepository interface {
	// Exists はIPアドレスが許可リストに完全一致で存在するかを返す。
	Exists(ctx context.Context, ip string) (bool, error)

	// List は許可リストを登録日時の新しい順に返す。
	List(ctx context.Context) ([]model.AllowedIP, error)

	// Create は許可IPを登録する。既に登録済みの場合はErrDuplicateを返す。
	Create(ctx context.Context, entry *model.AllowedIP) error

	// Delete は許可IPを削除する。該当がない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

// FailedLoginRepository はログイン失敗記録の永続化インターフェース。
type FailedLoginRepository interface {
	// Record はメールアドレス単位で失敗回数を1加算する。記録がなければ回数1で作成する。
	Record(ctx context.Context, email, ip string, at time.Time) (*model.FailedLoginAttempt, error)

	// List は最終失敗日時の新しい順に返す。
	List(ctx context.Context) ([]model.FailedLoginAttempt, error)

	// DeleteOlderThan は最終失敗日時がbeforeより古い記録を削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// PerformanceRepository は従業員評価記録の永続化インターフェース。
type PerformanceRepository interface {
	// DeleteByEmployeeID は従業員の評価記録を全て削除する。
	DeleteByEmployeeID(ctx context.Context, employeeID string) error
}

// DocumentRepository は添付ファイルメタデータの永続化インターフェース。
type DocumentRepository interface {
	// Create はメタデータを登録する。
	Create(ctx context.Context, doc *model.Document) error

	// ListByTask はタスクの添付ファイルを登録順に返す。
	ListByTask(ctx context.Context, taskID string) ([]model.Document, error)
}
