// Package notification は通知の配信と既読管理を提供する。
// 通知の作成はAI分析用とは独立した専用ワーカープール上で実行される。
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/metrics"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/pool"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/repository"
)

// copyEntry は通知種別ごとのタイトル・本文・ディープリンクの解決規則。
type copyEntry struct {
	title    string
	content  func(experienceTitle string) string
	buildURL func(experienceID string) *string // nilの場合はディープリンクなし
}

// copyTable は通知種別から表示文言への静的テーブル。
var copyTable = map[model.NotificationType]copyEntry{
	model.NotificationTypeAnalysisComplete: {
		title: "AI分析が完了しました",
		content: func(experienceTitle string) string {
			return fmt.Sprintf("「%s」のAI分析が完了しました。結果を確認してください。", experienceTitle)
		},
		buildURL: func(experienceID string) *string {
			u := fmt.Sprintf("/experiences/%s/analysis", experienceID)
			return &u
		},
	},
	model.NotificationTypeAnalysisFailed: {
		title: "AI分析に失敗しました",
		content: func(experienceTitle string) string {
			return fmt.Sprintf("「%s」のAI分析に失敗しました。時間をおいて再度お試しください。", experienceTitle)
		},
		buildURL: func(experienceID string) *string {
			u := fmt.Sprintf("/experiences/%s", experienceID)
			return &u
		},
	},
	model.NotificationTypeNotice: {
		title: "お知らせ",
		content: func(body string) string {
			return body
		},
		buildURL: nil,
	},
}

// Dispatcher は通知イベントを専用プールへ投入し、通知行を永続化する。
type Dispatcher struct {
	notifications repository.NotificationRepository
	pool          *pool.Pool
	metrics       metrics.MetricsCollector
	logger        *slog.Logger
}

// NewDispatcher はDispatcherの新しいインスタンスを生成する。
func NewDispatcher(
	notifications repository.NotificationRepository,
	notifyPool *pool.Pool,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		pool:          notifyPool,
		metrics:       collector,
		logger:        logger,
	}
}

// Dispatch は通知の作成タスクを通知プールへ投入する。
// 投入は呼び出し元をブロックしない。キュー満杯時はログに記録して破棄する。
func (d *Dispatcher) Dispatch(userID string, notificationType model.NotificationType, experienceID, experienceTitle string) {
	err := d.pool.Submit(func(ctx context.Context) {
		if err := d.create(ctx, userID, notificationType, experienceID, experienceTitle); err != nil {
			d.logger.Error("通知の作成に失敗しました",
				slog.String("user_id", userID),
				slog.String("type", string(notificationType)),
				slog.String("error", err.Error()),
			)
		}
	})
	if err != nil {
		if errors.Is(err, pool.ErrQueueFull) {
			d.metrics.RecordDispatchRejected(d.pool.Name())
		}
		d.logger.Error("通知タスクの投入に失敗しました",
			slog.String("user_id", userID),
			slog.String("type", string(notificationType)),
			slog.String("error", err.Error()),
		)
	}
	d.metrics.SetQueueDepth(d.pool.Name(), d.pool.QueueDepth())
}

// create は静的テーブルから文言を解決して通知行を作成する。
func (d *Dispatcher) create(ctx context.Context, userID string, notificationType model.NotificationType, experienceID, experienceTitle string) error {
	entry, ok := copyTable[notificationType]
	if !ok {
		return fmt.Errorf("未知の通知種別です: %s", notificationType)
	}

	var url *string
	if entry.buildURL != nil {
		url = entry.buildURL(experienceID)
	}

	n := &model.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      notificationType,
		Title:     entry.title,
		Content:   entry.content(experienceTitle),
		URL:       url,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	if err := d.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("通知の保存に失敗しました: %w", err)
	}

	d.metrics.RecordNotificationCreated(string(notificationType))
	d.logger.Info("通知を作成しました",
		slog.String("notification_id", n.ID),
		slog.String("user_id", userID),
		slog.String("type", string(notificationType)),
	)
	return nil
}
