// Package cleanup はログイン失敗記録の保持期間による自動削除ジョブを提供する。
// 保持日数が0の場合は何も削除しない（既定）。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Purger は保持期間を過ぎたログイン失敗記録を削除する。
type Purger interface {
	Purge(ctx context.Context, retentionDays int) (int64, error)
}

// CleanupJob は保持期間を超過したログイン失敗記録の自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	purger        Purger
	logger        *slog.Logger
	RetentionDays int // ログイン失敗記録の保持日数（0: 削除しない）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(purger Purger, logger *slog.Logger, retentionDays int) *CleanupJob {
	return &CleanupJob{
		purger:        purger,
		logger:        logger,
		RetentionDays: retentionDays,
	}
}

// Run は保持期間を超過したログイン失敗記録を削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	if j.RetentionDays <= 0 {
		j.logger.Debug("ログイン失敗記録の保持期間が無期限のためクリーンアップをスキップします")
		return nil
	}

	start := time.Now()

	deletedCount, err := j.purger.Purge(ctx, j.RetentionDays)
	if err != nil {
		j.logger.Error("ログイン失敗記録のクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("ログイン失敗記録のクリーンアップに失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("ログイン失敗記録のクリーンアップが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回、その後intervalごとにRunを実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}
