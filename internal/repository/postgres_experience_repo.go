package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
)

// PostgresExperienceRepo はPostgreSQLを使用した経験エントリリポジトリ。
type PostgresExperienceRepo struct {
	db *sql.DB
}

// NewPostgresExperienceRepo はPostgresExperienceRepoを生成する。
func NewPostgresExperienceRepo(db *sql.DB) *PostgresExperienceRepo {
	return &PostgresExperienceRepo{db: db}
}

// FindByID は指定IDの経験エントリをセクション込み（position昇順）で取得する。
// 見つからない場合はnilを返す。
func (r *PostgresExperienceRepo) FindByID(ctx context.Context, id string) (*model.Experience, error) {
	exp := &model.Experience{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, summary, goal, achievement, progress_score, status, created_at, updated_at
		 FROM experiences WHERE id = $1`,
		id,
	).Scan(
		&exp.ID, &exp.UserID, &exp.Title, &exp.Summary, &exp.Goal, &exp.Achievement,
		&exp.ProgressScore, &exp.Status, &exp.CreatedAt, &exp.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("経験エントリの取得に失敗しました: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, experience_id, heading, content, position, created_at, updated_at
		 FROM experience_sections WHERE experience_id = $1 ORDER BY position ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("セクションの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s model.Section
		if err := rows.Scan(
			&s.ID, &s.ExperienceID, &s.Heading, &s.Content, &s.Position,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("セクションの読み取りに失敗しました: %w", err)
		}
		exp.Sections = append(exp.Sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("セクションの走査に失敗しました: %w", err)
	}

	return exp, nil
}

// UpdateStatus は経験エントリのステータスのみを更新する。
func (r *PostgresExperienceRepo) UpdateStatus(ctx context.Context, id string, status model.ExperienceStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE experiences SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("経験エントリのステータス更新に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ExperienceRepository = (*PostgresExperienceRepo)(nil)
