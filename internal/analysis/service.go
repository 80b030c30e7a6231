// Package analysis はAI分析リクエストの受付と実行を提供する。
// 受付（同期・高速）と実行（非同期・低速な外部モデル呼び出し）は
// outboxイベントを介して分離される。
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/experience"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/metrics"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/pool"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/repository"
)

// AdmissionGate は受付時のクォータ判定のインターフェース。
type AdmissionGate interface {
	Check(ctx context.Context, userID string, resourceType model.ResourceType, now time.Time) error
}

// EventRunner はコミット済みoutboxイベントの実行側インターフェース。
type EventRunner interface {
	Run(ctx context.Context, evt *model.AnalysisEvent)
}

// Service はAI分析リクエストの受付フェーズを担う。
// 受付が成功した場合のみリクエスト台帳へのPENDING行とoutboxイベント行が残る。
type Service struct {
	experiences repository.ExperienceRepository
	requests    repository.AnalysisRequestRepository
	analyses    repository.AnalysisRepository
	gate        AdmissionGate
	runner      EventRunner
	aiPool      *pool.Pool
	metrics     metrics.MetricsCollector
	logger      *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	experiences repository.ExperienceRepository,
	requests repository.AnalysisRequestRepository,
	analyses repository.AnalysisRepository,
	gate AdmissionGate,
	runner EventRunner,
	aiPool *pool.Pool,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		experiences: experiences,
		requests:    requests,
		analyses:    analyses,
		gate:        gate,
		runner:      runner,
		aiPool:      aiPool,
		metrics:     collector,
		logger:      logger,
	}
}

// RequestAnalysis はAI分析リクエストを受け付ける。
// 存在確認→所有権→ステータス→クォータの順に検査し、すべて通過した場合のみ
// PENDINGリクエストとoutboxイベントを同一トランザクションで作成する。
// コミット成功後にのみワーカープールへ配送する。受付の成否にかかわらず
// 外部モデルの呼び出しを待つことはない。
func (s *Service) RequestAnalysis(ctx context.Context, userID, experienceID string) error {
	if err := s.admit(ctx, userID, experienceID); err != nil {
		s.recordAdmissionFailure(err)
		return err
	}
	s.metrics.RecordAdmission("accepted")
	return nil
}

func (s *Service) admit(ctx context.Context, userID, experienceID string) error {
	// 存在確認
	exp, err := s.experiences.FindByID(ctx, experienceID)
	if err != nil {
		return fmt.Errorf("経験エントリの取得に失敗しました: %w", err)
	}
	if exp == nil {
		return model.NewExperienceNotFoundError(experienceID)
	}

	// 所有権チェック
	if exp.UserID != userID {
		return model.NewForbiddenError()
	}

	// ステータスチェック（クォータ判定より先に行う）
	switch exp.Status {
	case model.ExperienceStatusDraft:
		// スコアは保存値ではなく現在の本文から再計算して返す
		return model.NewExperienceIncompleteError(experience.ProgressScore(exp))
	case model.ExperienceStatusAnalyzing:
		return model.NewAnalysisInProgressError()
	case model.ExperienceStatusAnalyzed:
		return model.NewAlreadyAnalyzedError()
	case model.ExperienceStatusCompleted, model.ExperienceStatusModified:
		// 分析可能
	default:
		return fmt.Errorf("経験エントリのステータスが不正です: %s", exp.Status)
	}

	// クォータ判定。拒否に副作用はない
	now := time.Now()
	if err := s.gate.Check(ctx, userID, model.ResourceTypeAIAnalysis, now); err != nil {
		return err
	}

	// PENDINGリクエストとoutboxイベントを同一トランザクションで作成。
	// created_atは使用量カウンタの期間判定に使われるため、受付時刻を明示的に刻む
	req := &model.AnalysisRequest{
		ID:           uuid.New().String(),
		UserID:       userID,
		ResourceType: model.ResourceTypeAIAnalysis,
		Status:       model.RequestStatusPending,
		ExperienceID: experienceID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	evt := &model.AnalysisEvent{
		ID:           uuid.New().String(),
		RequestID:    req.ID,
		ExperienceID: experienceID,
		UserID:       userID,
		CreatedAt:    now,
	}
	if err := s.requests.CreateWithEvent(ctx, req, evt); err != nil {
		return fmt.Errorf("分析リクエストの作成に失敗しました: %w", err)
	}

	// コミット成功後の配送。投入失敗はイベント行に残るため受付自体は成功扱い
	s.dispatch(evt)

	s.logger.Info("AI分析リクエストを受け付けました",
		slog.String("request_id", req.ID),
		slog.String("experience_id", experienceID),
		slog.String("user_id", userID),
	)
	return nil
}

// dispatch はコミット済みイベントをai-poolへ投入する。呼び出し元をブロックしない。
func (s *Service) dispatch(evt *model.AnalysisEvent) {
	err := s.aiPool.Submit(func(ctx context.Context) {
		s.runner.Run(ctx, evt)
	})
	if err != nil {
		if errors.Is(err, pool.ErrQueueFull) {
			s.metrics.RecordDispatchRejected(s.aiPool.Name())
		}
		// リクエストはPENDINGのまま残る。再配送の仕組みは持たない
		s.logger.Error("分析タスクの投入に失敗しました",
			slog.String("request_id", evt.RequestID),
			slog.String("event_id", evt.ID),
			slog.String("error", err.Error()),
		)
	}
	s.metrics.SetQueueDepth(s.aiPool.Name(), s.aiPool.QueueDepth())
}

// recordAdmissionFailure は受付失敗の種別をメトリクスに記録する。
func (s *Service) recordAdmissionFailure(err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		s.metrics.RecordAdmission(apiErr.Code)
		return
	}
	s.metrics.RecordAdmission("internal_error")
}

// GetAnalysis は経験エントリの最新の分析結果を返す。
func (s *Service) GetAnalysis(ctx context.Context, userID, experienceID string) (*model.Analysis, error) {
	exp, err := s.experiences.FindByID(ctx, experienceID)
	if err != nil {
		return nil, fmt.Errorf("経験エントリの取得に失敗しました: %w", err)
	}
	if exp == nil {
		return nil, model.NewExperienceNotFoundError(experienceID)
	}
	if exp.UserID != userID {
		return nil, model.NewForbiddenError()
	}

	analysis, err := s.analyses.FindLatestByExperienceID(ctx, experienceID)
	if err != nil {
		return nil, fmt.Errorf("分析結果の取得に失敗しました: %w", err)
	}
	if analysis == nil {
		return nil, model.NewAnalysisNotFoundError(experienceID)
	}
	return analysis, nil
}
