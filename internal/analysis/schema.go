package analysis

import "encoding/json"

// structuredResponse はモデルに要求する構造化レスポンスの形。
type structuredResponse struct {
	Summary                string                      `json:"summary"`
	Feedback               string                      `json:"feedback"`
	ClarityScore           int                         `json:"clarity_score"`
	ConcretenessScore      int                         `json:"concreteness_score"`
	ImpactScore            int                         `json:"impact_score"`
	GrowthScore            int                         `json:"growth_score"`
	GoalImprovement        string                      `json:"goal_improvement"`
	AchievementImprovement string                      `json:"achievement_improvement"`
	Keywords               []string                    `json:"keywords"`
	SectionImprovements    []sectionImprovementResponse `json:"section_improvements"`
}

// sectionImprovementResponse はセクション単位の改善提案。
type sectionImprovementResponse struct {
	SectionID         string `json:"section_id"`
	Method            string `json:"method"`
	Improvement       string `json:"improvement"`
	SuggestedCategory string `json:"suggested_category"`
}

// responseSchemaName は構造化出力のスキーマ名。
const responseSchemaName = "experience_analysis"

// responseSchema はOpenAIのjson_schema形式で表現した構造化出力のスキーマ。
// strictモードのため全プロパティをrequiredに列挙する。
var responseSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "summary": {"type": "string", "description": "経験全体の要約"},
    "feedback": {"type": "string", "description": "経験全体への総合フィードバック"},
    "clarity_score": {"type": "integer", "description": "明確さスコア（0-100）"},
    "concreteness_score": {"type": "integer", "description": "具体性スコア（0-100）"},
    "impact_score": {"type": "integer", "description": "成果インパクトスコア（0-100）"},
    "growth_score": {"type": "integer", "description": "成長の示唆スコア（0-100）"},
    "goal_improvement": {"type": "string", "description": "目標記述の改善提案"},
    "achievement_improvement": {"type": "string", "description": "成果記述の改善提案"},
    "keywords": {
      "type": "array",
      "items": {"type": "string"},
      "description": "経験を特徴づける推奨キーワード"
    },
    "section_improvements": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "section_id": {"type": "string", "description": "対象セクションのID（プロンプトに記載されたもの）"},
          "method": {
            "type": "string",
            "enum": ["situation", "task", "action", "result"],
            "description": "STAR分類タグ"
          },
          "improvement": {"type": "string", "description": "セクション本文の改善提案"},
          "suggested_category": {"type": "string", "description": "セクションの再分類提案。現状維持なら空文字列"}
        },
        "required": ["section_id", "method", "improvement", "suggested_category"],
        "additionalProperties": false
      }
    }
  },
  "required": [
    "summary", "feedback",
    "clarity_score", "concreteness_score", "impact_score", "growth_score",
    "goal_improvement", "achievement_improvement",
    "keywords", "section_improvements"
  ],
  "additionalProperties": false
}`)
