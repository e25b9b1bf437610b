package realtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestView_RefreshReplacesSnapshot(t *testing.T) {
	var n atomic.Int32
	var applied []int
	v := NewView(func(ctx context.Context) ([]int, error) {
		k := int(n.Add(1))
		return []int{k}, nil
	}, func(list []int) { applied = append(applied, list[0]) })

	if _, seq := v.Snapshot(); seq != 0 {
		t.Errorf("initial seq = %d, want 0", seq)
	}

	for i := 0; i < 3; i++ {
		if err := v.Refresh(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	got, seq := v.Snapshot()
	if len(got) != 1 || got[0] != 3 || seq != 3 {
		t.Errorf("snapshot = %v (seq %d)", got, seq)
	}
	if len(applied) != 3 {
		t.Errorf("applied = %v", applied)
	}
}

func TestView_StaleFetchIsDiscarded(t *testing.T) {
	slowRelease := make(chan struct{})
	slowStarted := make(chan struct{})
	var calls atomic.Int32

	v := NewView(func(ctx context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(slowStarted)
			<-slowRelease
			return "stale", nil
		}
		return "fresh", nil
	}, nil)

	slowDone := make(chan error, 1)
	go func() { slowDone <- v.Refresh(context.Background()) }()
	<-slowStarted

	// 後から開始した取得が先に完了する
	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(slowRelease)
	if err := <-slowDone; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, seq := v.Snapshot()
	if got != "fresh" || seq != 2 {
		t.Errorf("snapshot = %q (seq %d), want fresh (seq 2)", got, seq)
	}
}

func TestView_FetchErrorKeepsSnapshot(t *testing.T) {
	fail := false
	v := NewView(func(ctx context.Context) (string, error) {
		if fail {
			return "", errors.New("db down")
		}
		return "ok", nil
	}, nil)

	v.Refresh(context.Background())
	fail = true
	if err := v.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got, _ := v.Snapshot(); got != "ok" {
		t.Errorf("snapshot = %q, want ok", got)
	}
}

func TestView_AttachRefreshesOnMatchingEvent(t *testing.T) {
	hub := NewHub(newFakeSource(), nil)
	updates := make(chan string, 4)
	var calls atomic.Int32

	v := NewView(func(ctx context.Context) (int32, error) {
		return calls.Add(1), nil
	}, func(n int32) { updates <- "applied" })

	sub := v.Attach(context.Background(), hub, Filter{Table: TableComments, TaskID: "t1"})

	hub.Publish(Event{Table: TableComments, TaskID: "t2"})
	hub.Publish(Event{Table: TableComments, TaskID: "t1"})

	select {
	case <-updates:
	case <-time.After(2 * time.Second):
		t.Fatal("再取得されませんでした")
	}
	if got, _ := v.Snapshot(); got != 1 {
		t.Errorf("snapshot = %d, want 1", got)
	}

	sub.Cancel()
	hub.Publish(Event{Table: TableComments, TaskID: "t1"})
	select {
	case <-updates:
		t.Error("解除後に再取得されました")
	case <-time.After(50 * time.Millisecond):
	}
	if hub.Len() != 0 {
		t.Errorf("Len() = %d, want 0", hub.Len())
	}
}
