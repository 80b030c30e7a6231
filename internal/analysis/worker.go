package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/llm"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/metrics"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/quota"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/repository"
)

// NotificationDispatcher は分析結果の通知配信のインターフェース。
type NotificationDispatcher interface {
	Dispatch(userID string, notificationType model.NotificationType, experienceID, experienceTitle string)
}

// Worker はキュー経由で受け取った分析イベントを実行する。
// リクエストをPENDING→PROCESSING→{SUCCESS|FAILURE}と遷移させ、
// 実行エラーは呼び出し元へは伝播せずFAILURE終端として永続化する。
type Worker struct {
	requests     repository.AnalysisRequestRepository
	experiences  repository.ExperienceRepository
	analyses     repository.AnalysisRepository
	plans        quota.PlanSource
	counter      quota.UsageCounter
	client       llm.Client
	dispatcher   NotificationDispatcher
	renderer     *promptRenderer
	metrics      metrics.MetricsCollector
	logger       *slog.Logger
	modelTimeout time.Duration
}

// NewWorker はWorkerの新しいインスタンスを生成する。
// modelTimeoutは外部モデル呼び出し1回あたりの上限時間。
func NewWorker(
	requests repository.AnalysisRequestRepository,
	experiences repository.ExperienceRepository,
	analyses repository.AnalysisRepository,
	plans quota.PlanSource,
	counter quota.UsageCounter,
	client llm.Client,
	dispatcher NotificationDispatcher,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	modelTimeout time.Duration,
) *Worker {
	return &Worker{
		requests:     requests,
		experiences:  experiences,
		analyses:     analyses,
		plans:        plans,
		counter:      counter,
		client:       client,
		dispatcher:   dispatcher,
		renderer:     newPromptRenderer(),
		metrics:      collector,
		logger:       logger,
		modelTimeout: modelTimeout,
	}
}

var _ EventRunner = (*Worker)(nil)

// Run はoutboxイベント1件を実行する。ai-poolのワーカー上で呼び出される。
// 受付トランザクションとは時間的にもスコープ的にも完全に分離されている。
func (w *Worker) Run(ctx context.Context, evt *model.AnalysisEvent) {
	start := time.Now()

	// イベントを消費済みにする。失敗しても実行は継続する
	if err := w.requests.MarkEventConsumed(ctx, evt.ID); err != nil {
		w.logger.Error("outboxイベントの消費済み更新に失敗しました",
			slog.String("event_id", evt.ID),
			slog.String("error", err.Error()),
		)
	}

	// リクエスト台帳の取得。見つからない場合は実行できない
	req, err := w.requests.FindByID(ctx, evt.RequestID)
	if err != nil || req == nil {
		w.logger.Error("分析リクエストの取得に失敗しました",
			slog.String("request_id", evt.RequestID),
			slog.String("event_id", evt.ID),
		)
		return
	}

	// PROCESSINGへ即時遷移させ、実行中であることを可視化する
	req.Status = model.RequestStatusProcessing
	if err := w.requests.Update(ctx, req); err != nil {
		w.logger.Error("リクエストのPROCESSING遷移に失敗しました",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()),
		)
	}

	// 対象の経験エントリ。受付後に削除された場合はFAILURE終端
	exp, err := w.experiences.FindByID(ctx, evt.ExperienceID)
	if err != nil {
		w.fail(ctx, req, nil, fmt.Sprintf("経験エントリの取得に失敗しました: %s", err.Error()))
		return
	}
	if exp == nil {
		w.fail(ctx, req, nil, "経験エントリが削除されています")
		return
	}

	// 実行中は経験エントリをANALYZINGにし、失敗時は元のステータスへ戻す
	prevStatus := exp.Status
	if err := w.experiences.UpdateStatus(ctx, exp.ID, model.ExperienceStatusAnalyzing); err != nil {
		w.logger.Error("経験エントリのANALYZING遷移に失敗しました",
			slog.String("experience_id", exp.ID),
			slog.String("error", err.Error()),
		)
	}

	analysisID, err := w.analyze(ctx, req, exp)
	if err != nil {
		w.restoreStatus(ctx, exp.ID, prevStatus)
		w.fail(ctx, req, exp, err.Error())
		return
	}

	// SUCCESS終端。使用量の加算は成功時のみ
	req.Status = model.RequestStatusSuccess
	req.AnalysisID = &analysisID
	if err := w.requests.Update(ctx, req); err != nil {
		w.logger.Error("リクエストのSUCCESS遷移に失敗しました",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := w.experiences.UpdateStatus(ctx, exp.ID, model.ExperienceStatusAnalyzed); err != nil {
		w.logger.Error("経験エントリのANALYZED遷移に失敗しました",
			slog.String("experience_id", exp.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := w.counter.Increment(ctx, req.UserID, req.ResourceType, time.Now()); err != nil {
		w.logger.Warn("使用量カウンタの加算に失敗しました",
			slog.String("user_id", req.UserID),
			slog.String("error", err.Error()),
		)
	}

	w.metrics.RecordAnalysisOutcome("success")
	w.metrics.RecordAnalysisLatency(time.Since(start))
	w.metrics.RecordTokensUsed(req.PromptTokens, req.CompletionTokens)
	w.dispatcher.Dispatch(req.UserID, model.NotificationTypeAnalysisComplete, exp.ID, exp.Title)

	w.logger.Info("AI分析が完了しました",
		slog.String("request_id", req.ID),
		slog.String("experience_id", exp.ID),
		slog.String("analysis_id", analysisID),
		slog.Int("total_tokens", req.TotalTokens),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}

// analyze はモデル呼び出しから分析結果の保存までを行い、AnalysisのIDを返す。
func (w *Worker) analyze(ctx context.Context, req *model.AnalysisRequest, exp *model.Experience) (string, error) {
	// プラン階層から使用モデルを解決する
	plan, err := w.plans.ResolvePlan(ctx, req.UserID)
	if err != nil {
		return "", fmt.Errorf("プランの解決に失敗しました: %w", err)
	}

	// 外部モデル呼び出し。上限時間を明示的に設ける
	callCtx, cancel := context.WithTimeout(ctx, w.modelTimeout)
	defer cancel()

	result, err := w.client.Complete(callCtx, llm.CompletionRequest{
		Model:          plan.ModelName,
		SystemPrompt:   systemPrompt,
		UserPrompt:     w.renderer.Render(exp),
		SchemaName:     responseSchemaName,
		ResponseSchema: responseSchema,
	})
	if err != nil {
		return "", fmt.Errorf("モデル呼び出しに失敗しました: %w", err)
	}

	req.ProviderID = result.ProviderID
	req.ModelName = result.Model
	req.PromptTokens = result.PromptTokens
	req.CompletionTokens = result.CompletionTokens
	req.TotalTokens = result.TotalTokens

	analysis, err := w.parseResponse(req, exp, result.Content)
	if err != nil {
		return "", err
	}

	if err := w.analyses.Create(ctx, analysis); err != nil {
		return "", fmt.Errorf("分析結果の保存に失敗しました: %w", err)
	}
	return analysis.ID, nil
}

// parseResponse は構造化レスポンスを検証してAnalysisへ変換する。
// セクション改善提案が参照するsection_idは対象の経験エントリに
// 実在するものに限る。
func (w *Worker) parseResponse(req *model.AnalysisRequest, exp *model.Experience, content string) (*model.Analysis, error) {
	var parsed structuredResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("モデルレスポンスのパースに失敗しました: %w", err)
	}

	sectionIDs := make(map[string]bool, len(exp.Sections))
	for _, section := range exp.Sections {
		sectionIDs[section.ID] = true
	}

	analysisID := uuid.New().String()
	sections := make([]model.SectionAnalysis, 0, len(parsed.SectionImprovements))
	for i, imp := range parsed.SectionImprovements {
		if !sectionIDs[imp.SectionID] {
			return nil, fmt.Errorf("モデルレスポンスが存在しないセクションを参照しています: %s", imp.SectionID)
		}
		method := model.AnalysisMethod(imp.Method)
		if !model.ValidAnalysisMethod(method) {
			return nil, fmt.Errorf("モデルレスポンスのmethodタグが不正です: %s", imp.Method)
		}
		sections = append(sections, model.SectionAnalysis{
			ID:                uuid.New().String(),
			AnalysisID:        analysisID,
			SectionID:         imp.SectionID,
			Method:            method,
			Improvement:       imp.Improvement,
			SuggestedCategory: imp.SuggestedCategory,
			Position:          i,
		})
	}

	return &model.Analysis{
		ID:                     analysisID,
		RequestID:              req.ID,
		ExperienceID:           exp.ID,
		Summary:                parsed.Summary,
		Feedback:               parsed.Feedback,
		ClarityScore:           parsed.ClarityScore,
		ConcretenessScore:      parsed.ConcretenessScore,
		ImpactScore:            parsed.ImpactScore,
		GrowthScore:            parsed.GrowthScore,
		GoalImprovement:        parsed.GoalImprovement,
		AchievementImprovement: parsed.AchievementImprovement,
		Keywords:               parsed.Keywords,
		Sections:               sections,
		// 最新判定（ORDER BY created_at DESC）に使われるため作成時刻を明示的に刻む
		CreatedAt: time.Now(),
	}, nil
}

// fail はリクエストをFAILURE終端にし、失敗通知を配信する。
// expがnil（経験エントリ消失）の場合も通知は配信する。
func (w *Worker) fail(ctx context.Context, req *model.AnalysisRequest, exp *model.Experience, message string) {
	req.Status = model.RequestStatusFailure
	req.ErrorMessage = message
	if err := w.requests.Update(ctx, req); err != nil {
		w.logger.Error("リクエストのFAILURE遷移に失敗しました",
			slog.String("request_id", req.ID),
			slog.String("error", err.Error()),
		)
	}

	title := ""
	if exp != nil {
		title = exp.Title
	}
	w.metrics.RecordAnalysisOutcome("failure")
	w.dispatcher.Dispatch(req.UserID, model.NotificationTypeAnalysisFailed, req.ExperienceID, title)

	w.logger.Error("AI分析が失敗しました",
		slog.String("request_id", req.ID),
		slog.String("experience_id", req.ExperienceID),
		slog.String("error", message),
	)
}

// restoreStatus は経験エントリのステータスを実行前の値へ戻す。
func (w *Worker) restoreStatus(ctx context.Context, experienceID string, status model.ExperienceStatus) {
	if err := w.experiences.UpdateStatus(ctx, experienceID, status); err != nil {
		w.logger.Error("経験エントリのステータス復元に失敗しました",
			slog.String("experience_id", experienceID),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
	}
}
