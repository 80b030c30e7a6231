// Package cleanup は処理済みデータの自動削除ジョブを提供する。
// 保持期間（デフォルト90日）を超過した消費済みイベントと既読通知を
// 日次バッチで削除する。未消費イベントと未読通知は削除対象にしない。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は保持期間を超過した処理済みデータの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	RetentionDays int // 消費済みイベントと既読通知の保持日数（デフォルト: 90）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は90日。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		RetentionDays: 90,
	}
}

// Run は保持期間を超過した消費済みイベントと既読通知を削除する。
// 未消費のイベントは再配信の手がかりとして、未読の通知はユーザーが
// まだ確認していないため、経過日数にかかわらず残す。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	interval := fmt.Sprintf("%d days", j.RetentionDays)

	eventQuery := `DELETE FROM analysis_events WHERE consumed = TRUE AND created_at < now() - $1::interval`
	eventResult, err := j.db.ExecContext(ctx, eventQuery, interval)
	if err != nil {
		j.logger.Error("消費済みイベントのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("消費済みイベントのクリーンアップに失敗: %w", err)
	}

	deletedEvents, err := eventResult.RowsAffected()
	if err != nil {
		return fmt.Errorf("イベント削除件数の取得に失敗: %w", err)
	}

	notificationQuery := `DELETE FROM notifications WHERE is_read = TRUE AND created_at < now() - $1::interval`
	notificationResult, err := j.db.ExecContext(ctx, notificationQuery, interval)
	if err != nil {
		j.logger.Error("既読通知のクリーンアップに失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("既読通知のクリーンアップに失敗: %w", err)
	}

	deletedNotifications, err := notificationResult.RowsAffected()
	if err != nil {
		return fmt.Errorf("通知削除件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("deleted_events", deletedEvents),
		slog.Int64("deleted_notifications", deletedNotifications),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
