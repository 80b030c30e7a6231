package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
)

// mockNotificationService はNotificationServiceInterfaceのモック実装。
type mockNotificationService struct {
	listFn     func(ctx context.Context, userID string) ([]*model.Notification, error)
	markReadFn func(ctx context.Context, userID, notificationID string) error
}

func (m *mockNotificationService) List(ctx context.Context, userID string) ([]*model.Notification, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockNotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, userID, notificationID)
	}
	return nil
}

// --- GET /api/notifications テスト ---

func TestNotificationHandler_List_Success(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	url := "/experiences/exp-1/analysis"
	svc := &mockNotificationService{
		listFn: func(ctx context.Context, userID string) ([]*model.Notification, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			return []*model.Notification{
				{
					ID:        "notif-2",
					UserID:    userID,
					Type:      model.NotificationTypeAnalysisComplete,
					Title:     "AI分析が完了しました",
					Content:   "「ECサイト構築」の分析結果を確認できます。",
					URL:       &url,
					IsRead:    false,
					CreatedAt: now,
				},
				{
					ID:        "notif-1",
					UserID:    userID,
					Type:      model.NotificationTypeNotice,
					Title:     "お知らせ",
					Content:   "メンテナンスのお知らせ",
					IsRead:    true,
					CreatedAt: now.Add(-time.Hour),
				},
			}, nil
		},
	}
	h := NewNotificationHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.List(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	list, ok := result["notifications"].([]interface{})
	if !ok || len(list) != 2 {
		t.Fatalf("notifications = %v, want 2 entries", result["notifications"])
	}
	first := list[0].(map[string]interface{})
	if first["id"] != "notif-2" {
		t.Errorf("first id = %v, want notif-2", first["id"])
	}
	if first["type"] != "ai_analysis_complete" {
		t.Errorf("first type = %v", first["type"])
	}
	if first["url"] != url {
		t.Errorf("first url = %v, want %q", first["url"], url)
	}
	second := list[1].(map[string]interface{})
	if _, exists := second["url"]; exists {
		t.Errorf("notice url should be omitted: %v", second["url"])
	}
	if second["is_read"] != true {
		t.Errorf("second is_read = %v, want true", second["is_read"])
	}
}

func TestNotificationHandler_List_Empty(t *testing.T) {
	svc := &mockNotificationService{
		listFn: func(ctx context.Context, userID string) ([]*model.Notification, error) {
			return nil, nil
		},
	}
	h := NewNotificationHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.List(w, req)

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	// 空の場合もnullではなく空配列を返す
	list, ok := result["notifications"].([]interface{})
	if !ok {
		t.Fatalf("notifications should be an array, got %T", result["notifications"])
	}
	if len(list) != 0 {
		t.Errorf("notifications = %v, want empty", list)
	}
}

func TestNotificationHandler_List_Unauthenticated(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{})

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

// --- PATCH /api/notifications/:id/read テスト ---

func TestNotificationHandler_MarkRead_Success(t *testing.T) {
	svc := &mockNotificationService{
		markReadFn: func(ctx context.Context, userID, notificationID string) error {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			if notificationID != "notif-1" {
				t.Errorf("notificationID = %q, want %q", notificationID, "notif-1")
			}
			return nil
		},
	}
	h := NewNotificationHandler(svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/notifications/notif-1/read", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "notif-1")
	w := httptest.NewRecorder()

	h.MarkRead(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
}

func TestNotificationHandler_MarkRead_NotFound(t *testing.T) {
	svc := &mockNotificationService{
		markReadFn: func(ctx context.Context, userID, notificationID string) error {
			return model.NewNotificationNotFoundError(notificationID)
		},
	}
	h := NewNotificationHandler(svc)

	req := httptest.NewRequest(http.MethodPatch, "/api/notifications/notif-x/read", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "notif-x")
	w := httptest.NewRecorder()

	h.MarkRead(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
	body := parseAPIErrorResponse(t, w)
	if body["code"] != model.ErrCodeNotificationNotFound {
		t.Errorf("code = %q, want %q", body["code"], model.ErrCodeNotificationNotFound)
	}
}

func TestNotificationHandler_MarkRead_Unauthenticated(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationService{})

	req := httptest.NewRequest(http.MethodPatch, "/api/notifications/notif-1/read", nil)
	req = withChiURLParam(req, "id", "notif-1")
	w := httptest.NewRecorder()

	h.MarkRead(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}
