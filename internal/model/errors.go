// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, analysis, quota, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeExperienceNotFound   = "EXPERIENCE_NOT_FOUND"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeExperienceIncomplete = "EXPERIENCE_INCOMPLETE"
	ErrCodeAnalysisInProgress   = "ANALYSIS_IN_PROGRESS"
	ErrCodeAlreadyAnalyzed      = "ALREADY_ANALYZED"
	ErrCodeQuotaExceeded        = "QUOTA_EXCEEDED"
	ErrCodeAnalysisNotFound     = "ANALYSIS_NOT_FOUND"
	ErrCodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
)

// NewExperienceNotFoundError は経験エントリ未検出エラーを生成する。
func NewExperienceNotFoundError(experienceID string) *APIError {
	return &APIError{
		Code:     ErrCodeExperienceNotFound,
		Message:  fmt.Sprintf("指定された経験エントリが見つかりません: %s", experienceID),
		Category: "validation",
		Action:   "経験エントリのIDを確認してください。",
	}
}

// NewForbiddenError は他ユーザーのリソースへのアクセスエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この経験エントリへのアクセス権限がありません。",
		Category: "auth",
		Action:   "自分が作成した経験エントリを指定してください。",
	}
}

// NewExperienceIncompleteError は作成未完了の経験エントリに対する分析リクエストエラーを生成する。
func NewExperienceIncompleteError(score int) *APIError {
	return &APIError{
		Code:     ErrCodeExperienceIncomplete,
		Message:  fmt.Sprintf("経験エントリの作成が完了していません（完成度: %d）。", score),
		Category: "analysis",
		Action:   "各項目を記入して完成度を上げてから、再度分析をリクエストしてください。",
	}
}

// NewAnalysisInProgressError は分析実行中の経験エントリに対する重複リクエストエラーを生成する。
func NewAnalysisInProgressError() *APIError {
	return &APIError{
		Code:     ErrCodeAnalysisInProgress,
		Message:  "この経験エントリは現在AI分析の実行中です。",
		Category: "analysis",
		Action:   "分析の完了通知を待ってから結果を確認してください。",
	}
}

// NewAlreadyAnalyzedError は分析済みの経験エントリに対する再リクエストエラーを生成する。
func NewAlreadyAnalyzedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyAnalyzed,
		Message:  "この経験エントリにはすでにAI分析結果があります。",
		Category: "analysis",
		Action:   "内容を編集すると再度分析をリクエストできます。",
	}
}

// NewQuotaExceededError はプラン上限超過エラーを生成する。
func NewQuotaExceededError(resourceType ResourceType, limit int) *APIError {
	return &APIError{
		Code:     ErrCodeQuotaExceeded,
		Message:  fmt.Sprintf("AI分析の利用回数が上限（%d回）に達しています。", limit),
		Category: "quota",
		Action:   "期間が切り替わってから再度お試しいただくか、プランのアップグレードをご検討ください。",
	}
}

// NewAnalysisNotFoundError は分析結果未検出エラーを生成する。
func NewAnalysisNotFoundError(experienceID string) *APIError {
	return &APIError{
		Code:     ErrCodeAnalysisNotFound,
		Message:  fmt.Sprintf("この経験エントリの分析結果が見つかりません: %s", experienceID),
		Category: "analysis",
		Action:   "先にAI分析をリクエストしてください。",
	}
}

// NewNotificationNotFoundError は通知未検出エラーを生成する。
func NewNotificationNotFoundError(notificationID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotificationNotFound,
		Message:  fmt.Sprintf("指定された通知が見つかりません: %s", notificationID),
		Category: "validation",
		Action:   "通知IDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
