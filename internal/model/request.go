package model

import "time"

// ResourceType はクォータ管理の対象となるリソース種別を表す。
type ResourceType string

const (
	// ResourceTypeAIAnalysis は経験エントリのAI分析リクエスト。日次クォータ。
	ResourceTypeAIAnalysis ResourceType = "ai_analysis"
)

// RequestStatus はAI分析リクエストのライフサイクル状態を表す。
// 遷移は前進のみ: PENDING → PROCESSING → {SUCCESS | FAILURE}。
type RequestStatus string

const (
	// RequestStatusPending は受付済みで実行待ちの状態。
	RequestStatusPending RequestStatus = "pending"
	// RequestStatusProcessing はワーカーが実行中の状態。
	RequestStatusProcessing RequestStatus = "processing"
	// RequestStatusSuccess は分析が成功した終端状態。
	RequestStatusSuccess RequestStatus = "success"
	// RequestStatusFailure は分析が失敗した終端状態。
	RequestStatusFailure RequestStatus = "failure"
)

// AnalysisRequest はAI分析リクエストの台帳エントリを表す。
// 受付フェーズで作成され、以降はAnalysisWorkerのみが更新する。削除はされない。
type AnalysisRequest struct {
	ID               string
	UserID           string
	ResourceType     ResourceType
	Status           RequestStatus
	ExperienceID     string
	ProviderID       string // モデルプロバイダが払い出したレスポンスID
	ModelName        string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	AnalysisID       *string // 成功時に保存されたAnalysisへの参照
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AnalysisEvent は受付トランザクション内で書き込まれるoutboxイベント行を表す。
// コミット成功後にのみワーカープールへ配送され、ワーカーが消費済みにする。
type AnalysisEvent struct {
	ID           string
	RequestID    string
	ExperienceID string
	UserID       string
	Consumed     bool
	CreatedAt    time.Time
	ConsumedAt   *time.Time
}
