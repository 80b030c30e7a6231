// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
// セッションの発行はスコープ外のため、検証用の読み取りのみ提供する。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// ExperienceRepository は経験エントリの永続化インターフェース。
type ExperienceRepository interface {
	// FindByID は指定IDの経験エントリをセクション込み（position昇順）で取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Experience, error)

	// UpdateStatus は経験エントリのステータスのみを更新する。
	UpdateStatus(ctx context.Context, id string, status model.ExperienceStatus) error
}

// AnalysisRequestRepository はAI分析リクエスト台帳の永続化インターフェース。
type AnalysisRequestRepository interface {
	// FindByID は指定IDのリクエストを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.AnalysisRequest, error)

	// CreateWithEvent はリクエスト行とoutboxイベント行を同一トランザクションで作成する。
	// トランザクションがロールバックされた場合、どちらの行も残らない。
	CreateWithEvent(ctx context.Context, req *model.AnalysisRequest, evt *model.AnalysisEvent) error

	// Update はリクエストのステータス・プロバイダ情報・トークン数・エラーメッセージを更新する。
	Update(ctx context.Context, req *model.AnalysisRequest) error

	// MarkEventConsumed はoutboxイベント行を消費済みにする。
	MarkEventConsumed(ctx context.Context, eventID string) error

	// CountSuccessInPeriod は期間[start, end)内に作成されたsuccess終端の
	// リクエスト件数を返す。使用量カウンタのground truth。
	CountSuccessInPeriod(ctx context.Context, userID string, resourceType model.ResourceType, start, end time.Time) (int, error)
}

// AnalysisRepository は分析結果の永続化インターフェース。
type AnalysisRepository interface {
	// Create は分析結果ヘッダとセクション別分析行を同一トランザクションで作成する。
	Create(ctx context.Context, analysis *model.Analysis) error

	// FindLatestByExperienceID は経験エントリの最新の分析結果を
	// セクション別分析込み（position昇順）で取得する。見つからない場合はnilを返す。
	FindLatestByExperienceID(ctx context.Context, experienceID string) (*model.Analysis, error)
}

// NotificationRepository は通知データの永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を作成する。
	Create(ctx context.Context, n *model.Notification) error

	// FindByID は指定IDの通知を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Notification, error)

	// ListByUserID はユーザーの通知一覧を作成日時降順で返す。
	ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Notification, error)

	// UpdateReadState は通知の既読状態と既読日時を更新する。
	UpdateReadState(ctx context.Context, id string, isRead bool, readAt *time.Time) error
}
