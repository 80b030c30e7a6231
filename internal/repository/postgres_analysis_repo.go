package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
)

// PostgresAnalysisRepo はPostgreSQLを使用した分析結果リポジトリ。
type PostgresAnalysisRepo struct {
	db *sql.DB
}

// NewPostgresAnalysisRepo はPostgresAnalysisRepoを生成する。
func NewPostgresAnalysisRepo(db *sql.DB) *PostgresAnalysisRepo {
	return &PostgresAnalysisRepo{db: db}
}

// Create は分析結果ヘッダとセクション別分析行を同一トランザクションで作成する。
func (r *PostgresAnalysisRepo) Create(ctx context.Context, analysis *model.Analysis) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analyses
		     (id, request_id, experience_id, summary, feedback,
		      clarity_score, concreteness_score, impact_score, growth_score,
		      goal_improvement, achievement_improvement, keywords, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		analysis.ID, analysis.RequestID, analysis.ExperienceID,
		analysis.Summary, analysis.Feedback,
		analysis.ClarityScore, analysis.ConcretenessScore, analysis.ImpactScore, analysis.GrowthScore,
		analysis.GoalImprovement, analysis.AchievementImprovement,
		pq.Array(analysis.Keywords), analysis.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("分析結果の作成に失敗しました: %w", err)
	}

	for _, s := range analysis.Sections {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO section_analyses
			     (id, analysis_id, section_id, method, improvement, suggested_category, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			s.ID, s.AnalysisID, s.SectionID, s.Method, s.Improvement, s.SuggestedCategory, s.Position,
		)
		if err != nil {
			return fmt.Errorf("セクション別分析の作成に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// FindLatestByExperienceID は経験エントリの最新の分析結果を
// セクション別分析込み（position昇順）で取得する。見つからない場合はnilを返す。
func (r *PostgresAnalysisRepo) FindLatestByExperienceID(ctx context.Context, experienceID string) (*model.Analysis, error) {
	analysis := &model.Analysis{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, request_id, experience_id, summary, feedback,
		        clarity_score, concreteness_score, impact_score, growth_score,
		        goal_improvement, achievement_improvement, keywords, created_at
		 FROM analyses WHERE experience_id = $1
		 ORDER BY created_at DESC LIMIT 1`,
		experienceID,
	).Scan(
		&analysis.ID, &analysis.RequestID, &analysis.ExperienceID,
		&analysis.Summary, &analysis.Feedback,
		&analysis.ClarityScore, &analysis.ConcretenessScore, &analysis.ImpactScore, &analysis.GrowthScore,
		&analysis.GoalImprovement, &analysis.AchievementImprovement,
		pq.Array(&analysis.Keywords), &analysis.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("分析結果の取得に失敗しました: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, analysis_id, section_id, method, improvement, suggested_category, position
		 FROM section_analyses WHERE analysis_id = $1 ORDER BY position ASC`,
		analysis.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("セクション別分析の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s model.SectionAnalysis
		if err := rows.Scan(
			&s.ID, &s.AnalysisID, &s.SectionID, &s.Method, &s.Improvement, &s.SuggestedCategory, &s.Position,
		); err != nil {
			return nil, fmt.Errorf("セクション別分析の読み取りに失敗しました: %w", err)
		}
		analysis.Sections = append(analysis.Sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("セクション別分析の走査に失敗しました: %w", err)
	}

	return analysis, nil
}

// compile-time interface check
var _ AnalysisRepository = (*PostgresAnalysisRepo)(nil)
