package model

import "time"

// Analysis はAI分析の結果ヘッダを表す。
// 成功したAnalysisRequestにつき1件だけ作成され、以降は不変。
type Analysis struct {
	ID                     string
	RequestID              string
	ExperienceID           string
	Summary                string
	Feedback               string
	ClarityScore           int // 明確さ（0-100）
	ConcretenessScore      int // 具体性（0-100）
	ImpactScore            int // 成果インパクト（0-100）
	GrowthScore            int // 成長の示唆（0-100）
	GoalImprovement        string
	AchievementImprovement string
	Keywords               []string
	Sections               []SectionAnalysis
	CreatedAt              time.Time
}

// SectionAnalysis はセクション単位の改善提案を表す。
// 参照するSectionIDは分析時点で対象Experienceに存在するセクションに限る。
type SectionAnalysis struct {
	ID                string
	AnalysisID        string
	SectionID         string
	Method            AnalysisMethod
	Improvement       string
	SuggestedCategory string // セクションの再分類提案。空の場合は現状維持
	Position          int
}

// AnalysisMethod はセクション改善提案のSTAR分類タグを表す。
type AnalysisMethod string

const (
	// AnalysisMethodSituation は状況説明（Situation）の分類。
	AnalysisMethodSituation AnalysisMethod = "situation"
	// AnalysisMethodTask は課題設定（Task）の分類。
	AnalysisMethodTask AnalysisMethod = "task"
	// AnalysisMethodAction は行動（Action）の分類。
	AnalysisMethodAction AnalysisMethod = "action"
	// AnalysisMethodResult は結果（Result）の分類。
	AnalysisMethodResult AnalysisMethod = "result"
)

// ValidAnalysisMethod はmethodタグが既知の分類かどうかを返す。
func ValidAnalysisMethod(m AnalysisMethod) bool {
	switch m {
	case AnalysisMethodSituation, AnalysisMethodTask, AnalysisMethodAction, AnalysisMethodResult:
		return true
	}
	return false
}
