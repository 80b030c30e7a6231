package model

import "time"

// NotificationType は通知の種別を表す。
// 種別ごとのタイトル・本文・ディープリンクURLは通知ディスパッチャの
// 静的テーブルで解決される。
type NotificationType string

const (
	// NotificationTypeAnalysisComplete はAI分析の完了通知。
	NotificationTypeAnalysisComplete NotificationType = "ai_analysis_complete"
	// NotificationTypeAnalysisFailed はAI分析の失敗通知。
	NotificationTypeAnalysisFailed NotificationType = "ai_analysis_failed"
	// NotificationTypeNotice は運営からのお知らせ通知。ディープリンクを持たない。
	NotificationTypeNotice NotificationType = "notice"
)

// Notification はユーザー向け通知を表す。
// 作成は通知ディスパッチャが、既読状態の更新は通知サービスが行う。
type Notification struct {
	ID        string
	UserID    string
	Type      NotificationType
	Title     string
	Content   string
	URL       *string // ディープリンクURL。種別によっては持たない
	IsRead    bool
	ReadAt    *time.Time
	CreatedAt time.Time
}
