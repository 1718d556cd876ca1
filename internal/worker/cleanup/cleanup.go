// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// 有効期限を過ぎたsessionsレコードを日次バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionSweeper は期限切れセッションの削除に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionSweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// SweepRecorder は削除件数のメトリクス記録インターフェース。
// metrics.Collectorが実装する。nilの場合は記録しない。
type SweepRecorder interface {
	RecordSessionsSwept(count int64)
}

// defaultInterval はクリーンアップの実行間隔。
const defaultInterval = 24 * time.Hour

// CleanupJob は期限切れセッションの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	sessions SessionSweeper
	logger   *slog.Logger
	metrics  SweepRecorder
	Interval time.Duration // 実行間隔（デフォルト: 24時間）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(sessions SessionSweeper, logger *slog.Logger, metrics SweepRecorder) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		logger:   logger,
		metrics:  metrics,
		Interval: defaultInterval,
	}
}

// Run は期限切れセッションを1回削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("session cleanup failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to sweep expired sessions: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordSessionsSwept(deleted)
	}

	j.logger.Info("session cleanup completed",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start は起動時に1回実行した後、Intervalごとにクリーンアップを繰り返す。
// コンテキストのキャンセルで停止する。
func (j *CleanupJob) Start(ctx context.Context) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("initial session cleanup failed",
			slog.String("error", err.Error()),
		)
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("scheduled session cleanup failed",
					slog.String("error", err.Error()),
				)
			}
		case <-ctx.Done():
			j.logger.Info("session cleanup stopped")
			return
		}
	}
}
