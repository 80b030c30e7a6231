// Package llm はAI分析プロバイダとの連携機能を提供する。
// OpenAI互換のChat Completions APIを呼び出し、構造化レスポンスを取得する。
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const (
	// defaultBaseURL はOpenAI APIのベースURL。
	defaultBaseURL = "https://api.openai.com/v1"
)

// CompletionRequest はChat Completions APIへのリクエスト内容。
type CompletionRequest struct {
	Model          string
	SystemPrompt   string
	UserPrompt     string
	SchemaName     string
	ResponseSchema json.RawMessage // json_schema形式の構造化出力スキーマ
}

// Result はChat Completions APIのレスポンスから抽出した結果。
type Result struct {
	ProviderID       string // プロバイダ側のレスポンスID
	Model            string // 実際に使用されたモデル名
	Content          string // 構造化出力のJSON文字列
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client はAI分析プロバイダのクライアントインターフェース。
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*Result, error)
}

// OpenAIClient はOpenAI互換APIを使用するClient実装。
type OpenAIClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient はOpenAIClient の新しいインスタンスを生成する。
// baseURLが空の場合は公式APIのエンドポイントを使用する。
func NewOpenAIClient(httpClient *http.Client, logger *slog.Logger, apiKey, baseURL string) *OpenAIClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OpenAIClient{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// chatRequest はChat Completions APIのリクエストボディ。
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

// chatResponse はChat Completions APIのレスポンスボディ。
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete はChat Completions APIを呼び出して構造化レスポンスを取得する。
// タイムアウトやキャンセルは呼び出し元のcontextで制御する。
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*Result, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("APIキーが設定されていません")
	}

	// リクエストボディ構築
	body := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
	}
	if len(req.ResponseSchema) > 0 {
		body.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaSpec{
				Name:   req.SchemaName,
				Strict: true,
				Schema: req.ResponseSchema,
			},
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("リクエストボディのシリアライズに失敗しました: %w", err)
	}

	// HTTPリクエスト作成
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	// HTTPリクエスト実行
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("AI分析APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("model", req.Model),
		)
		return nil, fmt.Errorf("AI分析APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	// HTTPステータスチェック
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("AI分析APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("model", req.Model),
		)
		return nil, fmt.Errorf("AI分析APIがステータス %d を返しました: %s",
			resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	// レスポンスボディ読み取り
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	// JSONデコード
	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("AI分析APIのレスポンスにchoicesが含まれていません")
	}

	return &Result{
		ProviderID:       parsed.ID,
		Model:            parsed.Model,
		Content:          parsed.Choices[0].Message.Content,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		TotalTokens:      parsed.Usage.TotalTokens,
	}, nil
}
