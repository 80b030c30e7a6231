package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Create は通知を作成する。
func (r *PostgresNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	var url sql.NullString
	if n.URL != nil {
		url = sql.NullString{String: *n.URL, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, title, content, url, is_read, read_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.UserID, n.Type, n.Title, n.Content, url, n.IsRead, n.ReadAt, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("通知の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの通知を取得する。見つからない場合はnilを返す。
func (r *PostgresNotificationRepo) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	n := &model.Notification{}
	var url sql.NullString
	var readAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, type, title, content, url, is_read, read_at, created_at
		 FROM notifications WHERE id = $1`,
		id,
	).Scan(
		&n.ID, &n.UserID, &n.Type, &n.Title, &n.Content, &url, &n.IsRead, &readAt, &n.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("通知の取得に失敗しました: %w", err)
	}

	if url.Valid {
		n.URL = &url.String
	}
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}

	return n, nil
}

// ListByUserID はユーザーの通知一覧を作成日時降順で返す。
func (r *PostgresNotificationRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, title, content, url, is_read, read_at, created_at
		 FROM notifications WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []*model.Notification
	for rows.Next() {
		n := &model.Notification{}
		var url sql.NullString
		var readAt sql.NullTime

		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Title, &n.Content, &url, &n.IsRead, &readAt, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("通知の読み取りに失敗しました: %w", err)
		}

		if url.Valid {
			n.URL = &url.String
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}

		results = append(results, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("通知一覧の走査に失敗しました: %w", err)
	}

	return results, nil
}

// UpdateReadState は通知の既読状態と既読日時を更新する。
func (r *PostgresNotificationRepo) UpdateReadState(ctx context.Context, id string, isRead bool, readAt *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = $2, read_at = $3 WHERE id = $1`,
		id, isRead, readAt,
	)
	if err != nil {
		return fmt.Errorf("通知の既読状態の更新に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
