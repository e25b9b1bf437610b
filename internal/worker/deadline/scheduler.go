// Package deadline は期限接近通知の定期走査ジョブを提供する。
package deadline

import (
	"context"
	"log/slog"
	"time"
)

// Scanner は期限接近通知の走査を1回実行する。
type Scanner interface {
	RunDeadlineScan(ctx context.Context, now time.Time) (int, error)
}

// Scheduler は一定間隔で期限走査を実行する。
// 同じタスクへの通知はScanner側で1日1回に制限されるため、間隔を短くしても重複しない。
type Scheduler struct {
	scanner Scanner
	logger  *slog.Logger
	now     func() time.Time
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(scanner Scanner, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scanner: scanner,
		logger:  logger,
		now:     time.Now,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("期限走査スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	s.runAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("期限走査スケジューラを停止しました")
			return
		case <-ticker.C:
			s.runAndLog(ctx)
		}
	}
}

// RunOnce は期限走査を1回実行し、作成した通知数を返す。
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	return s.scanner.RunDeadlineScan(ctx, s.now())
}

func (s *Scheduler) runAndLog(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("期限走査の実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
