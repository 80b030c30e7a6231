// Package quota はプラン別の利用上限と使用量カウンタを提供する。
// 使用量はRedisキャッシュを高速パスとし、DB上のsuccess終端リクエスト件数を
// ground truthとする二重構造で管理する。
package quota

import (
	"fmt"
	"time"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
)

// Granularity はクォータ集計期間の粒度を表す。
type Granularity string

const (
	// GranularityDaily は日次粒度。期間は[00:00, 24:00)（UTC）。
	GranularityDaily Granularity = "daily"
	// GranularityMonthly は月次粒度。期間は[月初00:00, 翌月初00:00)（UTC）。
	GranularityMonthly Granularity = "monthly"
)

// granularityTable はリソース種別ごとの集計粒度の静的テーブル。
var granularityTable = map[model.ResourceType]Granularity{
	model.ResourceTypeAIAnalysis: GranularityDaily,
}

// GranularityFor はリソース種別の集計粒度を返す。未定義の種別は日次として扱う。
func GranularityFor(resourceType model.ResourceType) Granularity {
	if g, ok := granularityTable[resourceType]; ok {
		return g
	}
	return GranularityDaily
}

// PeriodWindow は基準時刻が属する集計期間[start, end)をUTCで返す。
func PeriodWindow(g Granularity, now time.Time) (time.Time, time.Time) {
	now = now.UTC()

	switch g {
	case GranularityMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	default:
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 0, 1)
	}
}

// periodLabel はキャッシュキーに埋め込む期間開始のラベルを返す。
func periodLabel(g Granularity, start time.Time) string {
	if g == GranularityMonthly {
		return start.Format("2006-01")
	}
	return start.Format("2006-01-02")
}

// BuildKey は使用量カウンタのキャッシュキーを構築する。
// 形式: cb:usage:<リソース種別>:<期間開始>:<粒度>:<ユーザーID>
// 同一の論理リクエストは必ず同一キーに衝突する決定的な構築を行う。
func BuildKey(resourceType model.ResourceType, g Granularity, start time.Time, userID string) string {
	return fmt.Sprintf("cb:usage:%s:%s:%s:%s", resourceType, periodLabel(g, start), g, userID)
}
