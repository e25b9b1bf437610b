package realtime

import (
	"context"
	"sync"
	"sync/atomic"
)

// Fetcher は一覧全体を取得する。
type Fetcher[T any] func(ctx context.Context) (T, error)

// View は最後に取得した一覧のスナップショットを保持する。
// 再取得は全件で行い、差分は適用しない。
// 複数の再取得が並行した場合は、後に開始した取得の結果を優先する。
type View[T any] struct {
	fetch Fetcher[T]

	started atomic.Uint64

	mu      sync.Mutex
	applied uint64
	value   T
	onApply func(T)
}

// NewView はViewを生成する。onApplyは新しいスナップショットを採用したときに呼ばれる（nil可）。
func NewView[T any](fetch func(ctx context.Context) (T, error), onApply func(T)) *View[T] {
	return &View[T]{fetch: fetch, onApply: onApply}
}

// Refresh は一覧を再取得する。
// 後から開始した取得が先に反映済みの場合、この取得結果は破棄する。
// 取得に失敗した場合はスナップショットを変更せずエラーを返す。
func (v *View[T]) Refresh(ctx context.Context) error {
	seq := v.started.Add(1)

	value, err := v.fetch(ctx)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if seq < v.applied {
		return nil
	}
	v.applied = seq
	v.value = value
	if v.onApply != nil {
		v.onApply(value)
	}
	return nil
}

// Snapshot は現在のスナップショットと、それを生んだ取得の通番を返す。
// 一度も取得していない場合の通番は0。
func (v *View[T]) Snapshot() (T, uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.applied
}

// Attach は条件に合う変更ごとに再取得する購読を登録する。
// 再取得はHubのゴルーチンを塞がないよう別ゴルーチンで行う。ctxは再取得に使う。
func (v *View[T]) Attach(ctx context.Context, hub *Hub, filter Filter) *Subscription {
	return hub.Subscribe(filter, func(Event) {
		go func() {
			_ = v.Refresh(ctx)
		}()
	})
}
