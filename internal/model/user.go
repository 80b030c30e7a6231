package model

import "time"

// PlanTier はユーザーの契約プラン階層を表す。
type PlanTier string

const (
	// PlanTierFree は無料プラン。
	PlanTierFree PlanTier = "free"
	// PlanTierPro は有料プラン。
	PlanTierPro PlanTier = "pro"
)

// User は登録ユーザーを表す。
// 認証フロー自体はスコープ外で、本システムはプラン階層の参照元として利用する。
type User struct {
	ID        string
	Email     string
	Nickname  string
	PlanTier  PlanTier
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session は認証済みセッションを表す。
// セッションの発行はスコープ外で、本システムは検証のみ行う。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
