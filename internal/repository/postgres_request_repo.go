package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
)

// PostgresAnalysisRequestRepo はPostgreSQLを使用したAI分析リクエストリポジトリ。
type PostgresAnalysisRequestRepo struct {
	db *sql.DB
}

// NewPostgresAnalysisRequestRepo はPostgresAnalysisRequestRepoを生成する。
func NewPostgresAnalysisRequestRepo(db *sql.DB) *PostgresAnalysisRequestRepo {
	return &PostgresAnalysisRequestRepo{db: db}
}

// FindByID は指定IDのリクエストを取得する。見つからない場合はnilを返す。
func (r *PostgresAnalysisRequestRepo) FindByID(ctx context.Context, id string) (*model.AnalysisRequest, error) {
	req := &model.AnalysisRequest{}
	var analysisID sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, resource_type, status, experience_id,
		        provider_id, model_name, prompt_tokens, completion_tokens, total_tokens,
		        analysis_id, error_message, created_at, updated_at
		 FROM analysis_requests WHERE id = $1`,
		id,
	).Scan(
		&req.ID, &req.UserID, &req.ResourceType, &req.Status, &req.ExperienceID,
		&req.ProviderID, &req.ModelName, &req.PromptTokens, &req.CompletionTokens, &req.TotalTokens,
		&analysisID, &req.ErrorMessage, &req.CreatedAt, &req.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("分析リクエストの取得に失敗しました: %w", err)
	}

	if analysisID.Valid {
		req.AnalysisID = &analysisID.String
	}

	return req, nil
}

// CreateWithEvent はリクエスト行とoutboxイベント行を同一トランザクションで作成する。
// どちらか一方のINSERTが失敗した場合は両方ロールバックされる。
func (r *PostgresAnalysisRequestRepo) CreateWithEvent(ctx context.Context, req *model.AnalysisRequest, evt *model.AnalysisEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analysis_requests
		     (id, user_id, resource_type, status, experience_id, error_message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID, req.UserID, req.ResourceType, req.Status, req.ExperienceID,
		req.ErrorMessage, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("分析リクエストの作成に失敗しました: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analysis_events (id, request_id, experience_id, user_id, consumed, created_at)
		 VALUES ($1, $2, $3, $4, FALSE, $5)`,
		evt.ID, evt.RequestID, evt.ExperienceID, evt.UserID, evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("分析イベントの作成に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return nil
}

// Update はリクエストのステータス・プロバイダ情報・トークン数・エラーメッセージを更新する。
func (r *PostgresAnalysisRequestRepo) Update(ctx context.Context, req *model.AnalysisRequest) error {
	var analysisID sql.NullString
	if req.AnalysisID != nil {
		analysisID = sql.NullString{String: *req.AnalysisID, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE analysis_requests SET
		     status = $2, provider_id = $3, model_name = $4,
		     prompt_tokens = $5, completion_tokens = $6, total_tokens = $7,
		     analysis_id = $8, error_message = $9, updated_at = now()
		 WHERE id = $1`,
		req.ID, req.Status, req.ProviderID, req.ModelName,
		req.PromptTokens, req.CompletionTokens, req.TotalTokens,
		analysisID, req.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("分析リクエストの更新に失敗しました: %w", err)
	}
	return nil
}

// MarkEventConsumed はoutboxイベント行を消費済みにする。冪等。
func (r *PostgresAnalysisRequestRepo) MarkEventConsumed(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE analysis_events SET consumed = TRUE, consumed_at = now() WHERE id = $1`,
		eventID,
	)
	if err != nil {
		return fmt.Errorf("分析イベントの消費記録に失敗しました: %w", err)
	}
	return nil
}

// CountSuccessInPeriod は期間[start, end)内に作成されたsuccess終端のリクエスト件数を返す。
func (r *PostgresAnalysisRequestRepo) CountSuccessInPeriod(ctx context.Context, userID string, resourceType model.ResourceType, start, end time.Time) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM analysis_requests
		 WHERE user_id = $1 AND resource_type = $2 AND status = $3
		   AND created_at >= $4 AND created_at < $5`,
		userID, resourceType, model.RequestStatusSuccess, start, end,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("成功リクエスト件数の取得に失敗しました: %w", err)
	}

	return count, nil
}

// compile-time interface check
var _ AnalysisRequestRepository = (*PostgresAnalysisRequestRepo)(nil)
