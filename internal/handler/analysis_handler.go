// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/middleware"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
)

// AnalysisServiceInterface はAI分析ハンドラーが必要とするサービスインターフェース。
type AnalysisServiceInterface interface {
	// RequestAnalysis はAI分析リクエストを受け付ける。受付完了は分析完了ではない。
	RequestAnalysis(ctx context.Context, userID, experienceID string) error
	// GetAnalysis は経験エントリの最新の分析結果を返す。
	GetAnalysis(ctx context.Context, userID, experienceID string) (*model.Analysis, error)
}

// AnalysisHandler はAI分析のHTTPハンドラー。
type AnalysisHandler struct {
	service AnalysisServiceInterface
}

// NewAnalysisHandler はAnalysisHandlerを生成する。
func NewAnalysisHandler(service AnalysisServiceInterface) *AnalysisHandler {
	return &AnalysisHandler{service: service}
}

// --- レスポンス型 ---

// sectionAnalysisResponse はセクション別分析のレスポンス。
type sectionAnalysisResponse struct {
	SectionID         string `json:"section_id"`
	Method            string `json:"method"`
	Improvement       string `json:"improvement"`
	SuggestedCategory string `json:"suggested_category,omitempty"`
}

// analysisResponse は分析結果のレスポンス。
type analysisResponse struct {
	ID                     string                    `json:"id"`
	ExperienceID           string                    `json:"experience_id"`
	Summary                string                    `json:"summary"`
	Feedback               string                    `json:"feedback"`
	ClarityScore           int                       `json:"clarity_score"`
	ConcretenessScore      int                       `json:"concreteness_score"`
	ImpactScore            int                       `json:"impact_score"`
	GrowthScore            int                       `json:"growth_score"`
	GoalImprovement        string                    `json:"goal_improvement"`
	AchievementImprovement string                    `json:"achievement_improvement"`
	Keywords               []string                  `json:"keywords"`
	Sections               []sectionAnalysisResponse `json:"sections"`
	CreatedAt              time.Time                 `json:"created_at"`
}

// RequestAnalysis はAI分析リクエストを受け付ける。
// POST /api/experiences/:id/analysis
// 受付成功時は202 Accepted（ボディなし）を返す。分析は非同期で実行され、
// 結果は通知で届く。
func (h *AnalysisHandler) RequestAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	experienceID := chi.URLParam(r, "id")

	if err := h.service.RequestAnalysis(r.Context(), userID, experienceID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// GetAnalysis は経験エントリの最新の分析結果を取得する。
// GET /api/experiences/:id/analysis
func (h *AnalysisHandler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	experienceID := chi.URLParam(r, "id")

	analysis, err := h.service.GetAnalysis(r.Context(), userID, experienceID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	sections := make([]sectionAnalysisResponse, 0, len(analysis.Sections))
	for _, sa := range analysis.Sections {
		sections = append(sections, sectionAnalysisResponse{
			SectionID:         sa.SectionID,
			Method:            string(sa.Method),
			Improvement:       sa.Improvement,
			SuggestedCategory: sa.SuggestedCategory,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(analysisResponse{
		ID:                     analysis.ID,
		ExperienceID:           analysis.ExperienceID,
		Summary:                analysis.Summary,
		Feedback:               analysis.Feedback,
		ClarityScore:           analysis.ClarityScore,
		ConcretenessScore:      analysis.ConcretenessScore,
		ImpactScore:            analysis.ImpactScore,
		GrowthScore:            analysis.GrowthScore,
		GoalImprovement:        analysis.GoalImprovement,
		AchievementImprovement: analysis.AchievementImprovement,
		Keywords:               analysis.Keywords,
		Sections:               sections,
		CreatedAt:              analysis.CreatedAt,
	})
}

// --- 共通エラーヘルパー ---

// writeAPIErrorResponse は統一エラーフォーマットでレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeUnauthorized は未認証エラーのレスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeExperienceNotFound, model.ErrCodeAnalysisNotFound, model.ErrCodeNotificationNotFound:
		return http.StatusNotFound
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeExperienceIncomplete, model.ErrCodeAnalysisInProgress, model.ErrCodeAlreadyAnalyzed:
		return http.StatusConflict
	case model.ErrCodeQuotaExceeded:
		return http.StatusTooManyRequests
	case model.ErrCodeUserNotFound:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
