// Package comment はタスクへのコメント投稿とメンション通知を提供する。
package comment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/yangshinyaw/CIACHR/internal/mention"
	"github.com/yangshinyaw/CIACHR/internal/metrics"
	"github.com/yangshinyaw/CIACHR/internal/model"
	"github.com/yangshinyaw/CIACHR/internal/repository"
)

// TaskFinder はコメント対象タスクの取得に使う。
type TaskFinder interface {
	FindByID(ctx context.Context, id string) (*model.Task, error)
}

// MentionNotifier はメンション通知の発行先。失敗は呼び出し元へ返さない。
type MentionNotifier interface {
	NotifyMentions(ctx context.Context, task model.Task, author model.Actor, mentioned []model.Profile)
}

// Service はコメントのサービス層。
type Service struct {
	repo      repository.CommentRepository
	tasks     TaskFinder
	directory mention.Directory
	notifier  MentionNotifier
	metrics   metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	repo repository.CommentRepository,
	tasks TaskFinder,
	directory mention.Directory,
	notifier MentionNotifier,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		repo:      repo,
		tasks:     tasks,
		directory: directory,
		notifier:  notifier,
		metrics:   collector,
	}
}

// Post はコメントを投稿する。
// 本文は前後の空白だけを除いたプレーンテキストとして保存し、表示時にエスケープする。
// 登録済みの従業員へのメンションだけを記録・通知する。
// メンションの解決に失敗してもコメントは保存し、通知だけを見送る。
func (s *Service) Post(ctx context.Context, actor model.Actor, taskID, content string) (*model.Comment, error) {
	body := strings.TrimSpace(content)
	if body == "" {
		return nil, model.NewEmptyCommentError()
	}

	task, err := s.accessibleTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}

	mentioned, err := mention.Resolve(ctx, s.directory, mention.Extract(body))
	if err != nil {
		slog.Warn("メンションの解決に失敗しました",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.RecordNotificationFailed(string(model.NotificationTypeMention))
		}
		mentioned = nil
	}
	emails := make(pq.StringArray, 0, len(mentioned))
	for _, p := range mentioned {
		emails = append(emails, p.Email)
	}

	c := &model.Comment{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		UserID:    actor.UserID,
		Content:   body,
		Mentions:  emails,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("コメントの保存に失敗しました: %w", err)
	}

	slog.Info("コメントを投稿しました",
		slog.String("task_id", taskID),
		slog.String("user_id", actor.UserID),
		slog.Int("mentions", len(mentioned)),
	)

	if len(mentioned) > 0 {
		s.notifier.NotifyMentions(ctx, *task, actor, mentioned)
	}
	return c, nil
}

// ListByTask はタスクのコメントを新しい順に返す。
func (s *Service) ListByTask(ctx context.Context, actor model.Actor, taskID string) ([]model.Comment, error) {
	if _, err := s.accessibleTask(ctx, actor, taskID); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("コメント一覧の取得に失敗しました: %w", err)
	}
	return comments, nil
}

// accessibleTask は操作者が参照できるタスクを返す。
// 参照できないタスクは存在しないものとして扱う。
func (s *Service) accessibleTask(ctx context.Context, actor model.Actor, taskID string) (*model.Task, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil || !task.AccessibleBy(actor) {
		return nil, model.NewTaskNotFoundError(taskID)
	}
	return task, nil
}
