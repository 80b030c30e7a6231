package quota

import (
	"context"
	"fmt"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/repository"
)

// Plan はプラン階層ごとの利用上限と使用モデルを表す。
type Plan struct {
	Tier      model.PlanTier
	ModelName string
	Limits    map[model.ResourceType]int
}

// LimitFor はリソース種別の上限回数を返す。未定義の種別は0（利用不可）。
func (p Plan) LimitFor(resourceType model.ResourceType) int {
	return p.Limits[resourceType]
}

// planTable はプラン階層ごとの静的テーブル。
var planTable = map[model.PlanTier]Plan{
	model.PlanTierFree: {
		Tier:      model.PlanTierFree,
		ModelName: "gpt-4o-mini",
		Limits: map[model.ResourceType]int{
			model.ResourceTypeAIAnalysis: 3,
		},
	},
	model.PlanTierPro: {
		Tier:      model.PlanTierPro,
		ModelName: "gpt-4o",
		Limits: map[model.ResourceType]int{
			model.ResourceTypeAIAnalysis: 30,
		},
	},
}

// PlanFor はプラン階層に対応するPlanを返す。未知の階層はfreeとして扱う。
func PlanFor(tier model.PlanTier) Plan {
	if p, ok := planTable[tier]; ok {
		return p
	}
	return planTable[model.PlanTierFree]
}

// PlanSource はユーザーのプラン解決のインターフェース。
type PlanSource interface {
	// ResolvePlan はユーザーのプランを解決する。
	ResolvePlan(ctx context.Context, userID string) (Plan, error)
}

// PlanResolver はusersテーブルのプラン階層から静的テーブルを引くPlanSource実装。
type PlanResolver struct {
	users repository.UserRepository
}

// NewPlanResolver はPlanResolverを生成する。
func NewPlanResolver(users repository.UserRepository) *PlanResolver {
	return &PlanResolver{users: users}
}

// ResolvePlan はユーザーのプランを解決する。ユーザーが存在しない場合はエラーを返す。
func (r *PlanResolver) ResolvePlan(ctx context.Context, userID string) (Plan, error) {
	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		return Plan{}, fmt.Errorf("プラン解決のためのユーザー取得に失敗しました: %w", err)
	}
	if user == nil {
		return Plan{}, model.NewUserNotFoundError()
	}

	return PlanFor(user.PlanTier), nil
}

// compile-time interface check
var _ PlanSource = (*PlanResolver)(nil)
