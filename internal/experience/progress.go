// Package experience は経験の進捗スコア算出とステータス遷移を提供する。
package experience

import (
	"unicode/utf8"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
)

const (
	// CompletionThreshold は「記入完了」とみなす進捗スコアの下限。
	CompletionThreshold = 70

	// requiredFieldPoints は必須フィールド1つあたりの加点。
	requiredFieldPoints = 10
	// summaryBonusPoints は概要が十分な長さの場合の加点。
	summaryBonusPoints = 15
	// goalBonusPoints は目標が十分な長さの場合の加点。
	goalBonusPoints = 10
	// achievementBonusPoints は成果が十分な長さの場合の加点。
	achievementBonusPoints = 10
	// sectionBonusPoints はセクション1つあたりの加点。
	sectionBonusPoints = 5

	// summaryMinLength は概要の加点に必要な最低文字数。
	summaryMinLength = 50
	// fieldMinLength は目標・成果の加点に必要な最低文字数。
	fieldMinLength = 30
	// sectionMinLength はセクション本文の加点に必要な最低文字数。
	sectionMinLength = 30
)

// ProgressScore は経験の進捗スコアを0〜100の範囲で算出する。
// 必須フィールドの記入有無と本文の文字数から決定的に計算する。
// フィールドへの追記でスコアが下がることはない。
func ProgressScore(exp *model.Experience) int {
	if exp == nil {
		return 0
	}

	score := 0

	// 必須フィールド: 空でなければ一律加点
	for _, field := range []string{exp.Title, exp.Summary, exp.Goal, exp.Achievement} {
		if field != "" {
			score += requiredFieldPoints
		}
	}

	// 本文が十分な長さの場合のボーナス加点
	if utf8.RuneCountInString(exp.Summary) >= summaryMinLength {
		score += summaryBonusPoints
	}
	if utf8.RuneCountInString(exp.Goal) >= fieldMinLength {
		score += goalBonusPoints
	}
	if utf8.RuneCountInString(exp.Achievement) >= fieldMinLength {
		score += achievementBonusPoints
	}

	// セクションごとの加点（上限100で頭打ち）
	for _, section := range exp.Sections {
		if utf8.RuneCountInString(section.Content) >= sectionMinLength {
			score += sectionBonusPoints
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

// ApplyAuthoringStatus は進捗スコアに応じて記入系ステータスを決定する。
// スコアが閾値未満なら下書き、閾値以上なら初回は完了・編集時は修正済みになる。
// 分析ライフサイクル側のステータス(analyzing/analyzed)はここでは扱わない。
func ApplyAuthoringStatus(exp *model.Experience, isEdit bool) model.ExperienceStatus {
	if ProgressScore(exp) < CompletionThreshold {
		return model.ExperienceStatusDraft
	}
	if isEdit {
		return model.ExperienceStatusModified
	}
	return model.ExperienceStatusCompleted
}
