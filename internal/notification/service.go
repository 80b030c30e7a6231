package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/repository"
)

// defaultListLimit は通知一覧のデフォルト取得件数。
const defaultListLimit = 50

// Service は通知の参照と既読管理を提供する。
type Service struct {
	notifications repository.NotificationRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(notifications repository.NotificationRepository) *Service {
	return &Service{notifications: notifications}
}

// List はユーザーの通知一覧を作成日時降順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Notification, error) {
	list, err := s.notifications.ListByUserID(ctx, userID, defaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗しました: %w", err)
	}
	return list, nil
}

// MarkRead は通知を既読にする。既読済みの通知への再実行はエラーにならず、
// readAtは現在時刻で上書きされる。
func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	n, err := s.notifications.FindByID(ctx, notificationID)
	if err != nil {
		return fmt.Errorf("通知の取得に失敗しました: %w", err)
	}
	if n == nil {
		return model.NewNotificationNotFoundError(notificationID)
	}
	// 他ユーザーの通知は存在自体を秘匿する
	if n.UserID != userID {
		return model.NewNotificationNotFoundError(notificationID)
	}

	now := time.Now()
	if err := s.notifications.UpdateReadState(ctx, notificationID, true, &now); err != nil {
		return fmt.Errorf("通知の既読更新に失敗しました: %w", err)
	}
	return nil
}
