package notification

import (
	"context"

	"github.com/yangshinyaw/CIACHR/internal/model"
	"github.com/yangshinyaw/CIACHR/internal/repository"
)

// Inbox はユーザーの通知一覧と既読状態を管理するサービス。
// 既読化は冪等で、readからunreadには戻さない。
// 全操作でuser_id条件をRepository層に渡し、所有者以外の通知には触れない。
type Inbox struct {
	repo repository.NotificationRepository
}

// NewInbox はInboxを生成する。
func NewInbox(repo repository.NotificationRepository) *Inbox {
	return &Inbox{repo: repo}
}

// Summary は通知一覧と未読数。
type Summary struct {
	Notifications []model.Notification
	UnreadCount   int
}

// List はユーザーの通知を新しい順に返す。
func (s *Inbox) List(ctx context.Context, userID string) (*Summary, error) {
	list, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	unread := 0
	for _, n := range list {
		if n.Status == model.NotificationStatusUnread {
			unread++
		}
	}
	return &Summary{Notifications: list, UnreadCount: unread}, nil
}

// UnreadCount は未読通知数を返す。
func (s *Inbox) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead は通知を既読にする。既読済みでもエラーにしない。
// 通知が存在しないか他ユーザーのものの場合はNOTIFICATION_NOT_FOUNDを返す。
func (s *Inbox) MarkRead(ctx context.Context, userID, id string) error {
	found, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !found {
		return model.NewNotificationNotFoundError(id)
	}
	return nil
}

// MarkAllRead はユーザーの未読通知を全て既読にし、更新件数を返す。
func (s *Inbox) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

// Delete は通知を削除する。
func (s *Inbox) Delete(ctx context.Context, userID, id string) error {
	found, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !found {
		return model.NewNotificationNotFoundError(id)
	}
	return nil
}

// DeleteAll はユーザーの通知を全て削除し、削除件数を返す。
func (s *Inbox) DeleteAll(ctx context.Context, userID string) (int64, error) {
	return s.repo.DeleteByUserID(ctx, userID)
}
