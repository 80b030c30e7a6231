package quota

import (
	"context"
	"time"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
)

// Gate はプラン上限に基づいて分析リクエストの受付可否を判定する。
// 拒否に副作用はない。使用量の加算は成功終端時にのみ行われる（Gateは読むだけ）。
type Gate struct {
	counter UsageCounter
	plans   PlanSource
}

// NewGate はGateを生成する。
func NewGate(counter UsageCounter, plans PlanSource) *Gate {
	return &Gate{
		counter: counter,
		plans:   plans,
	}
}

// Check は基準時刻が属する期間の使用量がプラン上限未満であることを確認する。
// 上限に達している場合はQuotaExceededエラーを返す。
func (g *Gate) Check(ctx context.Context, userID string, resourceType model.ResourceType, now time.Time) error {
	plan, err := g.plans.ResolvePlan(ctx, userID)
	if err != nil {
		return err
	}

	limit := plan.LimitFor(resourceType)
	count, err := g.counter.Count(ctx, userID, resourceType, now)
	if err != nil {
		return err
	}

	if count >= limit {
		return model.NewQuotaExceededError(resourceType, limit)
	}

	return nil
}
