// Package task はタスクのライフサイクル（作成・状態遷移・担当者変更）を提供する。
package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yangshinyaw/CIACHR/internal/model"
	"github.com/yangshinyaw/CIACHR/internal/repository"
)

// Notifier はタスクイベントの通知発行先。
// 実装は失敗を内部で処理し、呼び出し元へ返さないこと。
type Notifier interface {
	NotifyTaskCreated(ctx context.Context, task model.Task)
	NotifyStatusChanged(ctx context.Context, task model.Task, actor model.Actor)
	NotifyReassigned(ctx context.Context, task model.Task, actor model.Actor)
}

// Directory は担当者の存在確認に使う従業員ディレクトリ。
type Directory interface {
	FindByEmail(ctx context.Context, email string) (*model.Profile, error)
}

// CreateInput はタスク作成の入力。
type CreateInput struct {
	Title      string
	Deadline   time.Time
	Priority   model.Priority
	AssignedTo string
}

// Service はタスクのサービス層。
type Service struct {
	repo      repository.TaskRepository
	directory Directory
	notifier  Notifier
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.TaskRepository, directory Directory, notifier Notifier) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		notifier:  notifier,
	}
}

// Create はタスクを作成し、担当者へ割り当て通知を発行する。
// 状態は常にpendingで開始し、作成者は操作者のメールアドレスとする。
func (s *Service) Create(ctx context.Context, actor model.Actor, in CreateInput) (*model.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, model.NewInvalidRequestError("タイトルは必須です。")
	}
	if in.Deadline.IsZero() {
		return nil, model.NewInvalidRequestError("期限は必須です。")
	}
	if !in.Priority.Valid() {
		return nil, model.NewInvalidPriorityError(string(in.Priority))
	}
	assignee, err := s.lookupAssignee(ctx, in.AssignedTo)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		ID:         uuid.New().String(),
		Title:      title,
		Deadline:   in.Deadline.UTC(),
		Priority:   in.Priority,
		Status:     model.TaskStatusPending,
		CreatedBy:  actor.Email,
		AssignedTo: assignee.Email,
		UserID:     actor.UserID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}

	slog.Info("タスクを作成しました",
		slog.String("task_id", task.ID),
		slog.String("user_id", actor.UserID),
	)
	s.notifier.NotifyTaskCreated(ctx, *task)
	return task, nil
}

// Get は指定IDのタスクを返す。
// 操作者が作成者・担当者・管理者のいずれでもない場合は存在しないものとして扱う。
func (s *Service) Get(ctx context.Context, actor model.Actor, taskID string) (*model.Task, error) {
	task, err := s.repo.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil || !task.AccessibleBy(actor) {
		return nil, model.NewTaskNotFoundError(taskID)
	}
	return task, nil
}

// ListForUser は操作者が作成したか担当しているタスクを返す。
func (s *Service) ListForUser(ctx context.Context, actor model.Actor) ([]model.Task, error) {
	tasks, err := s.repo.ListForEmail(ctx, actor.Email)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// AdvanceStatus はタスクを循環上の次の状態へ1段階進める。
func (s *Service) AdvanceStatus(ctx context.Context, actor model.Actor, taskID string) (*model.Task, error) {
	task, err := s.Get(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, actor, task, task.Status.Next())
}

// SetStatus はタスクを指定した状態へ変更する。
// 指定できるのは循環上の次の状態のみで、段階を飛ばす変更はINVALID_STATUS_TRANSITIONを返す。
func (s *Service) SetStatus(ctx context.Context, actor model.Actor, taskID string, target model.TaskStatus) (*model.Task, error) {
	if !target.Valid() {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("無効な状態です: %s", target))
	}
	task, err := s.Get(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	if target != task.Status.Next() {
		return nil, model.NewInvalidStatusTransitionError(task.Status, target)
	}
	return s.transition(ctx, actor, task, target)
}

// transition は現在の状態を条件に更新し、成功したら状態変更通知を発行する。
func (s *Service) transition(ctx context.Context, actor model.Actor, task *model.Task, next model.TaskStatus) (*model.Task, error) {
	ok, err := s.repo.UpdateStatus(ctx, task.ID, task.Status, next)
	if err != nil {
		return nil, fmt.Errorf("タスク状態の更新に失敗しました: %w", err)
	}
	if !ok {
		return nil, model.NewTaskConflictError(task.ID)
	}

	slog.Info("タスクの状態を変更しました",
		slog.String("task_id", task.ID),
		slog.String("from", string(task.Status)),
		slog.String("to", string(next)),
		slog.String("user_id", actor.UserID),
	)

	updated := *task
	updated.Status = next
	s.notifier.NotifyStatusChanged(ctx, updated, actor)
	return &updated, nil
}

// Reassign は担当者を変更し、新しい担当者へ割り当て通知を発行する。
func (s *Service) Reassign(ctx context.Context, actor model.Actor, taskID, assigneeEmail string) (*model.Task, error) {
	task, err := s.Get(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	assignee, err := s.lookupAssignee(ctx, assigneeEmail)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(task.AssignedTo, assignee.Email) {
		return task, nil
	}

	if err := s.repo.UpdateAssignee(ctx, task.ID, assignee.Email); err != nil {
		return nil, fmt.Errorf("担当者の変更に失敗しました: %w", err)
	}

	updated := *task
	updated.AssignedTo = assignee.Email
	s.notifier.NotifyReassigned(ctx, updated, actor)
	return &updated, nil
}

func (s *Service) lookupAssignee(ctx context.Context, email string) (*model.Profile, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, model.NewInvalidRequestError("担当者は必須です。")
	}
	profile, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("担当者の確認に失敗しました: %w", err)
	}
	if profile == nil {
		return nil, model.NewUnknownAssigneeError(email)
	}
	return profile, nil
}
