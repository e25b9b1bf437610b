package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yangshinyaw/CIACHR/internal/realtime"
)

// streamHeartbeat はSSE接続を維持するためのコメント送信間隔。
const streamHeartbeat = 25 * time.Second

// StreamHandler は一覧の変更をServer-Sent Eventsで配信するハンドラー。
// 接続ごとに独立した購読とビューを持ち、変更通知を受けるたびに一覧全体を再取得して送る。
type StreamHandler struct {
	hub           *realtime.Hub
	tasks         TaskServiceInterface
	notifications NotificationServiceInterface
	comments      CommentServiceInterface
	heartbeat     time.Duration
}

// NewStreamHandler はStreamHandlerを生成する。
func NewStreamHandler(
	hub *realtime.Hub,
	tasks TaskServiceInterface,
	notifications NotificationServiceInterface,
	comments CommentServiceInterface,
) *StreamHandler {
	return &StreamHandler{
		hub:           hub,
		tasks:         tasks,
		notifications: notifications,
		comments:      comments,
		heartbeat:     streamHeartbeat,
	}
}

// StreamTasks は操作者のタスク一覧を配信する。
// GET /api/stream/tasks
func (h *StreamHandler) StreamTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	h.serve(w, r, realtime.Filter{Table: realtime.TableTasks}, func(ctx context.Context) (any, error) {
		tasks, err := h.tasks.ListForUser(ctx, actor)
		if err != nil {
			return nil, err
		}
		return toTaskResponses(tasks), nil
	})
}

// StreamNotifications は操作者の通知一覧を配信する。
// GET /api/stream/notifications
func (h *StreamHandler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	filter := realtime.Filter{Table: realtime.TableNotifications, UserID: actor.UserID}
	h.serve(w, r, filter, func(ctx context.Context) (any, error) {
		summary, err := h.notifications.List(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		return toNotificationListResponse(summary), nil
	})
}

// StreamComments はタスクのコメント一覧を配信する。
// GET /api/tasks/{id}/comments/stream
func (h *StreamHandler) StreamComments(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	taskID := chi.URLParam(r, "id")

	filter := realtime.Filter{Table: realtime.TableComments, TaskID: taskID}
	h.serve(w, r, filter, func(ctx context.Context) (any, error) {
		comments, err := h.comments.ListByTask(ctx, actor, taskID)
		if err != nil {
			return nil, err
		}
		out := make([]commentResponse, len(comments))
		for i := range comments {
			out[i] = toCommentResponse(&comments[i])
		}
		return out, nil
	})
}

// serve は初回取得に成功した場合のみストリームを開始する。
// 購読はリクエストのコンテキスト終了時に解除する。
func (h *StreamHandler) serve(w http.ResponseWriter, r *http.Request, filter realtime.Filter, fetch func(ctx context.Context) (any, error)) {
	ctx := r.Context()

	// 送信待ちは最新のスナップショット1件だけを保持する
	updates := make(chan any, 1)
	view := realtime.NewView(fetch, func(v any) {
		select {
		case <-updates:
		default:
		}
		updates <- v
	})

	if err := view.Refresh(ctx); err != nil {
		handleServiceError(w, err)
		return
	}

	sub := view.Attach(ctx, h.hub, filter)
	defer sub.Cancel()

	rc := http.NewResponseController(w)
	// サーバーのWriteTimeoutでストリームが切られないよう解除する
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case v := <-updates:
			_, seq := view.Snapshot()
			if err := writeEvent(w, "snapshot", seq, v); err != nil {
				slog.Debug("stream closed", slog.String("error", err.Error()))
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

// writeEvent はSSEの1イベントを書き込む。
func writeEvent(w http.ResponseWriter, event string, id uint64, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, event, data)
	return err
}
