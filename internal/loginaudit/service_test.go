package loginaudit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yangshinyaw/CIACHR/internal/model"
)

// mockFailedLoginRepo はメールアドレス単位で回数を加算するインメモリ実装。
type mockFailedLoginRepo struct {
	byEmail      map[string]*model.FailedLoginAttempt
	recordErr    error
	deleteBefore time.Time
}

func newMockRepo() *mockFailedLoginRepo {
	return &mockFailedLoginRepo{byEmail: map[string]*model.FailedLoginAttempt{}}
}

func (m *mockFailedLoginRepo) Record(ctx context.Context, email, ip string, at time.Time) (*model.FailedLoginAttempt, error) {
	if m.recordErr != nil {
		return nil, m.recordErr
	}
	a, ok := m.byEmail[email]
	if !ok {
		a = &model.FailedLoginAttempt{ID: "id-" + email, Email: email, CreatedAt: at}
		m.byEmail[email] = a
	}
	a.AttemptCount++
	a.IPAddress = ip
	a.LastAttempt = at
	cp := *a
	return &cp, nil
}

func (m *mockFailedLoginRepo) List(ctx context.Context) ([]model.FailedLoginAttempt, error) {
	out := []model.FailedLoginAttempt{}
	for _, a := range m.byEmail {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockFailedLoginRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	m.deleteBefore = before
	var n int64
	for email, a := range m.byEmail {
		if a.LastAttempt.Before(before) {
			delete(m.byEmail, email)
			n++
		}
	}
	return n, nil
}

type countingCollector struct {
	failedLogins int
}

func (c *countingCollector) RecordNotificationCreated(string)      {}
func (c *countingCollector) RecordNotificationFailed(string)       {}
func (c *countingCollector) RecordGateDecision(bool)               {}
func (c *countingCollector) RecordGateFailure()                    {}
func (c *countingCollector) RecordFailedLogin()                    { c.failedLogins++ }
func (c *countingCollector) RecordDeadlineScan(time.Duration, int) {}
func (c *countingCollector) RecordHTTPStatus(int)                  {}
func (c *countingCollector) RecordRealtimeEvent(string)            {}

func TestRecord_IncrementsPerEmail(t *testing.T) {
	repo := newMockRepo()
	collector := &countingCollector{}
	svc := NewService(repo, collector)
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return t0 }

	first, err := svc.Record(context.Background(), "alice@corp.test", "203.0.113.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.AttemptCount != 1 {
		t.Errorf("first count = %d, want 1", first.AttemptCount)
	}

	svc.now = func() time.Time { return t0.Add(time.Minute) }
	second, err := svc.Record(context.Background(), " alice@corp.test ", "198.51.100.9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.AttemptCount != 2 {
		t.Errorf("second count = %d, want 2", second.AttemptCount)
	}
	if second.IPAddress != "198.51.100.9" {
		t.Errorf("ip = %q, want latest ip", second.IPAddress)
	}
	if !second.LastAttempt.Equal(t0.Add(time.Minute)) {
		t.Errorf("last_attempt = %v", second.LastAttempt)
	}

	if _, err := svc.Record(context.Background(), "bob@corp.test", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.byEmail) != 2 {
		t.Errorf("records = %d, want 2", len(repo.byEmail))
	}
	if collector.failedLogins != 3 {
		t.Errorf("failed login metric = %d, want 3", collector.failedLogins)
	}
}

func TestRecord_RequiresEmail(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	_, err := svc.Record(context.Background(), "  ", "203.0.113.5")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("err = %v, want INVALID_REQUEST", err)
	}
}

func TestRecord_RepositoryError(t *testing.T) {
	repo := newMockRepo()
	repo.recordErr = errors.New("db down")
	collector := &countingCollector{}
	svc := NewService(repo, collector)

	if _, err := svc.Record(context.Background(), "alice@corp.test", ""); err == nil {
		t.Fatal("expected error")
	}
	if collector.failedLogins != 0 {
		t.Error("失敗時にメトリクスが加算されました")
	}
}

func TestList_AdminOnly(t *testing.T) {
	svc := NewService(newMockRepo(), nil)

	_, err := svc.List(context.Background(), model.Actor{Role: model.RoleEmployee})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("err = %v, want FORBIDDEN", err)
	}

	attempts, err := svc.List(context.Background(), model.Actor{Role: model.RoleAdmin})
	if err != nil || attempts == nil {
		t.Errorf("admin list = %v, %v", attempts, err)
	}
}

func TestPurge(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	svc.now = func() time.Time { return now.Add(-40 * 24 * time.Hour) }
	svc.Record(context.Background(), "old@corp.test", "")
	svc.now = func() time.Time { return now.Add(-time.Hour) }
	svc.Record(context.Background(), "recent@corp.test", "")
	svc.now = func() time.Time { return now }

	t.Run("保持日数0は削除しない", func(t *testing.T) {
		n, err := svc.Purge(context.Background(), 0)
		if err != nil || n != 0 {
			t.Errorf("Purge(0) = %d, %v", n, err)
		}
		if len(repo.byEmail) != 2 {
			t.Errorf("records = %d, want 2", len(repo.byEmail))
		}
	})

	t.Run("保持日数を過ぎた記録を削除", func(t *testing.T) {
		n, err := svc.Purge(context.Background(), 30)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 1 {
			t.Errorf("deleted = %d, want 1", n)
		}
		if !repo.deleteBefore.Equal(now.Add(-30 * 24 * time.Hour)) {
			t.Errorf("cutoff = %v", repo.deleteBefore)
		}
		if _, ok := repo.byEmail["recent@corp.test"]; !ok {
			t.Error("保持期間内の記録が削除されました")
		}
	})
}
