// Package model はドメインモデルを定義する。
package model

import "time"

// Experience はユーザーが記録した経験エントリを表す。
// AI分析の対象（Subject）であり、作成・編集はCRUD層が、
// 分析成功時のステータス遷移はAnalysisWorkerが行う。
type Experience struct {
	ID            string
	UserID        string
	Title         string
	Summary       string
	Goal          string
	Achievement   string
	ProgressScore int // 作成完成度スコア（0-100）
	Status        ExperienceStatus
	Sections      []Section
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ExperienceStatus は経験エントリの作成完成度と分析ライフサイクルを表す。
type ExperienceStatus string

const (
	// ExperienceStatusDraft は作成未完了（完成度スコアが閾値未満）の状態。
	ExperienceStatusDraft ExperienceStatus = "draft"
	// ExperienceStatusCompleted は初回の作成完了状態。
	ExperienceStatusCompleted ExperienceStatus = "completed"
	// ExperienceStatusModified は作成完了後に再編集された状態。
	ExperienceStatusModified ExperienceStatus = "modified"
	// ExperienceStatusAnalyzing はAI分析の実行中状態。
	ExperienceStatusAnalyzing ExperienceStatus = "analyzing"
	// ExperienceStatusAnalyzed はAI分析が完了した状態。
	ExperienceStatusAnalyzed ExperienceStatus = "analyzed"
)

// Section は経験エントリ内の順序付きセクション（回顧ブロック）を表す。
type Section struct {
	ID           string
	ExperienceID string
	Heading      string
	Content      string
	Position     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
