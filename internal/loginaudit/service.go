// Package loginaudit はログイン失敗の記録と管理者向けの参照を提供する。
// 失敗回数は累積するだけで、アカウントのロックは行わない。
package loginaudit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yangshinyaw/CIACHR/internal/metrics"
	"github.com/yangshinyaw/CIACHR/internal/model"
	"github.com/yangshinyaw/CIACHR/internal/repository"
)

// Service はログイン失敗記録のサービス層。
type Service struct {
	repo    repository.FailedLoginRepository
	metrics metrics.MetricsCollector
	now     func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。collectorはnilでもよい。
func NewService(repo repository.FailedLoginRepository, collector metrics.MetricsCollector) *Service {
	return &Service{
		repo:    repo,
		metrics: collector,
		now:     time.Now,
	}
}

// Record はメールアドレスのログイン失敗を1回分記録する。
func (s *Service) Record(ctx context.Context, email, ip string) (*model.FailedLoginAttempt, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, model.NewInvalidRequestError("メールアドレスは必須です。")
	}

	attempt, err := s.repo.Record(ctx, email, strings.TrimSpace(ip), s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("ログイン失敗の記録に失敗しました: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordFailedLogin()
	}

	slog.Warn("ログイン失敗を記録しました",
		slog.String("email", email),
		slog.String("ip", attempt.IPAddress),
		slog.Int("attempt_count", attempt.AttemptCount),
	)
	return attempt, nil
}

// List はログイン失敗記録を返す。管理者のみ参照できる。
func (s *Service) List(ctx context.Context, actor model.Actor) ([]model.FailedLoginAttempt, error) {
	if !actor.IsAdmin() {
		return nil, model.NewForbiddenError()
	}
	attempts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ログイン失敗記録の取得に失敗しました: %w", err)
	}
	return attempts, nil
}

// Purge は最終失敗日時から保持日数を過ぎた記録を削除する。
// retentionDaysが0以下の場合は何も削除しない。
func (s *Service) Purge(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	before := s.now().UTC().Add(-time.Duration(retentionDays) * 24 * time.Hour)
	n, err := s.repo.DeleteOlderThan(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("ログイン失敗記録の削除に失敗しました: %w", err)
	}
	return n, nil
}
