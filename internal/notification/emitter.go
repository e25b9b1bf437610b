package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yangshinyaw/CIACHR/internal/metrics"
	"github.com/yangshinyaw/CIACHR/internal/model"
	"github.com/yangshinyaw/CIACHR/internal/telemetry"
)

// Store は通知の書き込み先。
type Store interface {
	Create(ctx context.Context, n *model.Notification) error
	CreateIfAbsentSince(ctx context.Context, n *model.Notification, since time.Time) (bool, error)
}

// Directory は宛先メールアドレスをプロフィールに解決する。
type Directory interface {
	FindByEmails(ctx context.Context, emails []string) ([]model.Profile, error)
}

// DueTaskLister は期限走査の対象タスクを取得する。
type DueTaskLister interface {
	ListOpenDueBefore(ctx context.Context, before time.Time) ([]model.Task, error)
}

// Emitter は通知ルールの結果を宛先解決して永続化する。
// 通知の失敗は記録するだけで、呼び出し元の操作には影響させない。
type Emitter struct {
	store      Store
	directory  Directory
	tasks      DueTaskLister
	metrics    metrics.MetricsCollector
	windowDays int
	tracer     trace.Tracer
}

// NewEmitter はEmitterを生成する。collectorはnilでもよい。
func NewEmitter(store Store, directory Directory, tasks DueTaskLister, collector metrics.MetricsCollector, windowDays int) *Emitter {
	if windowDays <= 0 {
		windowDays = DefaultDeadlineWindowDays
	}
	return &Emitter{
		store:      store,
		directory:  directory,
		tasks:      tasks,
		metrics:    collector,
		windowDays: windowDays,
		tracer:     telemetry.Tracer("notification"),
	}
}

// NotifyTaskCreated はタスク作成時の割り当て通知を発行する。
func (e *Emitter) NotifyTaskCreated(ctx context.Context, task model.Task) {
	e.emit(ctx, "task_created", TaskCreated(task), time.Time{})
}

// NotifyReassigned は担当者変更時の割り当て通知を発行する。
func (e *Emitter) NotifyReassigned(ctx context.Context, task model.Task, actor model.Actor) {
	e.emit(ctx, "task_reassigned", Reassigned(task, actor), time.Time{})
}

// NotifyStatusChanged は状態変更の通知を発行する。taskは変更後の状態を保持していること。
func (e *Emitter) NotifyStatusChanged(ctx context.Context, task model.Task, actor model.Actor) {
	e.emit(ctx, "status_changed", StatusChanged(task, actor), time.Time{})
}

// NotifyMentions はコメントのメンション通知を発行する。
func (e *Emitter) NotifyMentions(ctx context.Context, task model.Task, author model.Actor, mentioned []model.Profile) {
	e.emit(ctx, "comment_mentions", Mentioned(task, author, mentioned), time.Time{})
}

// RunDeadlineScan は期限が近い未完了タスクを走査し、期限接近通知を発行する。
// 同じタスクへの期限接近通知はUTCの同じ日に1回までに制限する。
// 作成した通知数を返す。対象タスクの取得に失敗した場合のみエラーを返す。
func (e *Emitter) RunDeadlineScan(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()

	horizon := now.Add(time.Duration(e.windowDays) * 24 * time.Hour)
	tasks, err := e.tasks.ListOpenDueBefore(ctx, horizon)
	if err != nil {
		return 0, fmt.Errorf("failed to list tasks for deadline scan: %w", err)
	}

	dayStart := now.UTC().Truncate(24 * time.Hour)
	created := e.emit(ctx, "deadline_scan", DeadlineApproaching(tasks, now, e.windowDays), dayStart)

	if e.metrics != nil {
		e.metrics.RecordDeadlineScan(time.Since(start), created)
	}
	slog.Info("期限走査が完了しました",
		slog.Int("candidates", len(tasks)),
		slog.Int("created", created),
	)
	return created, nil
}

// emit は下書きを宛先解決して保存し、作成件数を返す。
// dedupeSinceがゼロ値でない場合は、同じタスク・種別の通知がそれ以降に存在すれば作成しない。
func (e *Emitter) emit(ctx context.Context, trigger string, drafts []Draft, dedupeSince time.Time) int {
	if len(drafts) == 0 {
		return 0
	}
	// 呼び出し元のリクエストが終了しても通知の書き込みは続ける
	ctx = context.WithoutCancel(ctx)

	ctx, span := e.tracer.Start(ctx, "notification.emit", trace.WithAttributes(
		attribute.String("notification.trigger", trigger),
		attribute.Int("notification.drafts", len(drafts)),
	))
	defer span.End()

	recipients, err := e.resolveRecipients(ctx, drafts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "recipient resolution failed")
		slog.Error("通知の宛先解決に失敗しました",
			slog.String("trigger", trigger),
			slog.String("error", err.Error()),
		)
		for _, d := range drafts {
			e.recordFailed(d.Type)
		}
		return 0
	}

	created := 0
	for _, d := range drafts {
		profile, ok := recipients[strings.ToLower(d.RecipientEmail)]
		if !ok {
			slog.Warn("通知の宛先が従業員ディレクトリに存在しないため破棄しました",
				slog.String("trigger", trigger),
				slog.String("recipient", d.RecipientEmail),
				slog.String("task_id", d.TaskID),
			)
			continue
		}

		n := &model.Notification{
			ID:        uuid.New().String(),
			UserID:    profile.ID,
			TaskID:    d.TaskID,
			Title:     d.Title,
			Message:   d.Message,
			Type:      d.Type,
			Status:    model.NotificationStatusUnread,
			CreatedAt: time.Now().UTC(),
		}

		inserted := true
		if dedupeSince.IsZero() {
			err = e.store.Create(ctx, n)
		} else {
			inserted, err = e.store.CreateIfAbsentSince(ctx, n, dedupeSince)
		}
		if err != nil {
			span.RecordError(err)
			slog.Error("通知の作成に失敗しました",
				slog.String("trigger", trigger),
				slog.String("type", string(d.Type)),
				slog.String("task_id", d.TaskID),
				slog.String("user_id", profile.ID),
				slog.String("error", err.Error()),
			)
			e.recordFailed(d.Type)
			continue
		}
		if !inserted {
			continue
		}

		created++
		if e.metrics != nil {
			e.metrics.RecordNotificationCreated(string(d.Type))
		}
	}

	span.SetAttributes(attribute.Int("notification.created", created))
	return created
}

// resolveRecipients は下書きの宛先メールアドレスを小文字キーでプロフィールに対応付ける。
func (e *Emitter) resolveRecipients(ctx context.Context, drafts []Draft) (map[string]model.Profile, error) {
	emails := make([]string, 0, len(drafts))
	for _, d := range drafts {
		emails = append(emails, d.RecipientEmail)
	}

	profiles, err := e.directory.FindByEmails(ctx, emails)
	if err != nil {
		return nil, err
	}

	byEmail := make(map[string]model.Profile, len(profiles))
	for _, p := range profiles {
		byEmail[strings.ToLower(p.Email)] = p
	}
	return byEmail, nil
}

func (e *Emitter) recordFailed(t model.NotificationType) {
	if e.metrics != nil {
		e.metrics.RecordNotificationFailed(string(t))
	}
}
