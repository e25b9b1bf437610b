// Package realtime はデータベースの変更通知を購読者へ配信する。
//
// 変更はPostgreSQLのトリガーが table_changes チャネルへ送るNOTIFYで受け取る。
// 購読者は差分を適用せず、通知を契機に一覧を再取得する。
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/yangshinyaw/CIACHR/internal/metrics"
)

// Channel はトリガーが通知を送るチャネル名。
const Channel = "table_changes"

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	// pingInterval は通知がない間に接続を確認する間隔。
	pingInterval = 90 * time.Second
)

// 監視対象のテーブル名。
const (
	TableTasks         = "tasks"
	TableNotifications = "notifications"
	TableComments      = "comments"
)

// Event は1件の変更通知。
// Resyncは接続の再確立を表し、全購読者に再取得を促す。
type Event struct {
	Table  string `json:"table"`
	Op     string `json:"op"`
	ID     string `json:"id"`
	TaskID string `json:"task_id"`
	UserID string `json:"user_id"`
	Resync bool   `json:"resync,omitempty"`
}

// Filter は購読する変更の条件。空のフィールドは条件にしない。
type Filter struct {
	Table  string
	TaskID string
	UserID string
}

// Matches はイベントが条件に合うかを返す。Resyncイベントは常に合う。
func (f Filter) Matches(ev Event) bool {
	if ev.Resync {
		return true
	}
	if f.Table != "" && f.Table != ev.Table {
		return false
	}
	if f.TaskID != "" {
		taskID := ev.TaskID
		if ev.Table == TableTasks {
			taskID = ev.ID
		}
		if taskID != f.TaskID {
			return false
		}
	}
	if f.UserID != "" && f.UserID != ev.UserID {
		return false
	}
	return true
}

// Source は変更通知の受信元。*pq.Listener が満たす。
type Source interface {
	NotificationChannel() <-chan *pq.Notification
	Ping() error
	Close() error
}

// NewListener は table_changes を購読するpq.Listenerを生成する。
// 接続が切れた場合はpq.Listenerが自動で再接続する。
func NewListener(databaseURL string) (*pq.Listener, error) {
	report := func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed:
			slog.Warn("変更通知リスナーの接続に失敗しました", slog.String("error", errString(err)))
		case pq.ListenerEventDisconnected:
			slog.Warn("変更通知リスナーが切断されました", slog.String("error", errString(err)))
		case pq.ListenerEventReconnected:
			slog.Info("変更通知リスナーが再接続しました")
		}
	}

	listener := pq.NewListener(databaseURL, minReconnectInterval, maxReconnectInterval, report)
	if err := listener.Listen(Channel); err != nil {
		listener.Close()
		return nil, err
	}
	return listener, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Hub は変更通知を購読者へ振り分ける。
// コールバックはHubのゴルーチンから呼ばれるため、ブロックしないこと。
type Hub struct {
	source  Source
	metrics metrics.MetricsCollector

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
}

// NewHub はHubを生成する。collectorはnilでもよい。
func NewHub(source Source, collector metrics.MetricsCollector) *Hub {
	return &Hub{
		source:  source,
		metrics: collector,
		subs:    make(map[uint64]*Subscription),
	}
}

// Subscription は1つの購読。Cancelで登録を解除する。
type Subscription struct {
	hub    *Hub
	id     uint64
	filter Filter
	fn     func(Event)
	once   sync.Once
}

// Cancel は購読を解除する。複数回呼んでもよい。
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
	})
}

// Subscribe は条件に合う変更ごとにfnを呼ぶ購読を登録する。
func (h *Hub) Subscribe(filter Filter, fn func(Event)) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{hub: h, id: h.nextID, filter: filter, fn: fn}
	h.subs[sub.id] = sub
	return sub
}

// Len は現在の購読数を返す。
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish はイベントを条件に合う購読者へ配信する。
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	targets := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		if s.filter.Matches(ev) {
			targets = append(targets, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.fn(ev)
	}
}

// Run はコンテキストが終了するまで変更通知を受信して配信する。
// 再接続時にpq.Listenerが送るnil通知は、全購読者への再同期イベントとして配信する。
func (h *Hub) Run(ctx context.Context) error {
	ch := h.source.NotificationChannel()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	slog.Info("変更通知の配信を開始しました", slog.String("channel", Channel))

	for {
		select {
		case <-ctx.Done():
			slog.Info("変更通知の配信を停止しました")
			return nil
		case n, ok := <-ch:
			if !ok {
				return errors.New("notification channel closed")
			}
			h.handle(n)
		case <-ticker.C:
			if err := h.source.Ping(); err != nil {
				slog.Warn("変更通知リスナーの疎通確認に失敗しました", slog.String("error", err.Error()))
			}
		}
	}
}

func (h *Hub) handle(n *pq.Notification) {
	if n == nil {
		h.record("resync")
		h.Publish(Event{Resync: true})
		return
	}

	var ev Event
	if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
		slog.Warn("変更通知のペイロードを解析できませんでした",
			slog.String("payload", n.Extra),
			slog.String("error", err.Error()),
		)
		return
	}
	h.record(ev.Table)
	h.Publish(ev)
}

func (h *Hub) record(table string) {
	if h.metrics != nil {
		h.metrics.RecordRealtimeEvent(table)
	}
}

// Close は受信元を閉じる。
func (h *Hub) Close() error {
	return h.source.Close()
}
