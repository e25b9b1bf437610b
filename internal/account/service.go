// Package account はアカウントの一括削除のドメインロジックを提供する。
package account

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/yangshinyaw/CIACHR/internal/model"
)

// ProfileStore はアカウント本体（プロフィール）の参照と削除。
type ProfileStore interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
	DeleteByID(ctx context.Context, id string) error
}

// NotificationDeleter は通知の一括削除インターフェース。
type NotificationDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}

// TaskDeleter はタスクの一括削除インターフェース。
type TaskDeleter interface {
	DeleteByEmail(ctx context.Context, email string) error
}

// PerformanceDeleter は評価記録の一括削除インターフェース。
type PerformanceDeleter interface {
	DeleteByEmployeeID(ctx context.Context, employeeID string) error
}

// CommentDeleter はコメントの一括削除インターフェース。
type CommentDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// Credentials は一括削除を許可する管理者の資格情報。
type Credentials struct {
	Username string
	Password string
}

// Service はアカウント削除のサービス層。
type Service struct {
	admin         Credentials
	profiles      ProfileStore
	notifications NotificationDeleter
	tasks         TaskDeleter
	performance   PerformanceDeleter
	comments      CommentDeleter
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	admin Credentials,
	profiles ProfileStore,
	notifications NotificationDeleter,
	tasks TaskDeleter,
	performance PerformanceDeleter,
	comments CommentDeleter,
) *Service {
	return &Service{
		admin:         admin,
		profiles:      profiles,
		notifications: notifications,
		tasks:         tasks,
		performance:   performance,
		comments:      comments,
	}
}

// Authorize は管理者の資格情報が設定値と完全一致するかを返す。
// 設定値が空の場合は常に拒否する。
func (s *Service) Authorize(username, password string) bool {
	if s.admin.Username == "" || s.admin.Password == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.admin.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.admin.Password)) == 1
	return userOK && passOK
}

// RemoveAll は指定されたアカウントを順に削除し、失敗したIDごとのメッセージを返す。
// あるIDの途中で失敗しても、それまでに削除したデータは戻さず次のIDへ進む。
func (s *Service) RemoveAll(ctx context.Context, userIDs []string) []string {
	errs := []string{}
	for _, id := range userIDs {
		if err := s.Remove(ctx, id); err != nil {
			slog.Error("アカウントの削除に失敗しました",
				slog.String("user_id", id),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("Failed to delete user %s: %s", id, err.Error()))
		}
	}
	return errs
}

// Remove は1件のアカウントと関連データを削除する。
// 削除順序: notifications → tasks（作成者・担当者のメールアドレス）→ employee_performance → comments → profile
// プロフィールが存在しない場合はタスクの削除を飛ばし、最後のプロフィール削除でエラーになる。
func (s *Service) Remove(ctx context.Context, userID string) error {
	slog.Info("アカウント削除を開始します", slog.String("user_id", userID))

	// 1. 通知を削除
	if _, err := s.notifications.DeleteByUserID(ctx, userID); err != nil {
		return err
	}

	// 2. 作成・担当したタスクを削除
	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if profile != nil {
		if err := s.tasks.DeleteByEmail(ctx, profile.Email); err != nil {
			return err
		}
	}

	// 3. 評価記録を削除
	if err := s.performance.DeleteByEmployeeID(ctx, userID); err != nil {
		return err
	}

	// 4. コメントを削除
	if err := s.comments.DeleteByUserID(ctx, userID); err != nil {
		return err
	}

	// 5. プロフィールを削除
	if err := s.profiles.DeleteByID(ctx, userID); err != nil {
		return err
	}

	slog.Info("アカウント削除が完了しました", slog.String("user_id", userID))
	return nil
}
