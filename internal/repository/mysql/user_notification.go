package mysql

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roundbuy/notification-api/internal/model"
	"github.com/roundbuy/notification-api/internal/repository"
)

type userNotificationRepository struct {
	BaseRepository
}

func NewUserNotificationRepository(base BaseRepository) repository.UserNotificationRepository {
	return &userNotificationRepository{base}
}

// BulkCreate is insert-if-absent on (notification_id, user_id): duplicate
// target resolution or a retried dispatch never creates duplicate records.
func (r *userNotificationRepository) BulkCreate(ctx context.Context, notificationID uuid.UUID, userIDs []uuid.UUID, deliveredAt time.Time) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	placeholders := make([]string, 0, len(userIDs))
	args := make([]interface{}, 0, len(userIDs)*4)
	for _, userID := range userIDs {
		placeholders = append(placeholders, "(?, ?, ?, ?)")
		args = append(args, uuid.New(), notificationID, userID, deliveredAt)
	}

	query := `
        INSERT IGNORE INTO user_notifications (id, notification_id, user_id, delivered_at)
        VALUES ` + strings.Join(placeholders, ", ")

	result, err := r.GetDB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to create user notifications: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

func (r *userNotificationRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.UserNotificationView, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
        SELECT un.id, un.notification_id, n.title, n.message, n.kind,
               n.image_url, n.action_type, n.action_data,
               un.delivered_at, un.is_read, un.read_at, un.is_clicked, un.clicked_at
        FROM user_notifications un
        JOIN notifications n ON n.id = un.notification_id
        WHERE un.user_id = ?
        AND n.is_active = TRUE
        AND (n.expires_at IS NULL OR n.expires_at > ?)
        ORDER BY un.delivered_at DESC
        LIMIT ? OFFSET ?
    `

	var records []*model.UserNotificationView
	if err := r.GetDB().SelectContext(ctx, &records, query, userID, time.Now().UTC(), limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list user notifications: %w", err)
	}

	return records, nil
}

func (r *userNotificationRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM user_notifications un
        JOIN notifications n ON n.id = un.notification_id
        WHERE un.user_id = ?
        AND un.is_read = FALSE
        AND n.is_active = TRUE
        AND (n.expires_at IS NULL OR n.expires_at > ?)
    `

	var count int
	if err := r.GetDB().GetContext(ctx, &count, query, userID, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

func (r *userNotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	query := `
        UPDATE user_notifications
        SET is_read = TRUE, read_at = COALESCE(read_at, ?)
        WHERE id = ? AND user_id = ?
    `

	result, err := r.GetDB().ExecContext(ctx, query, at, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// MarkClicked backfills read state: a clicked record is always read, with
// read_at no later than clicked_at.
func (r *userNotificationRepository) MarkClicked(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	query := `
        UPDATE user_notifications
        SET is_clicked = TRUE,
            clicked_at = COALESCE(clicked_at, ?),
            is_read = TRUE,
            read_at = COALESCE(read_at, ?)
        WHERE id = ? AND user_id = ?
    `

	result, err := r.GetDB().ExecContext(ctx, query, at, at, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification clicked: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *userNotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	query := `
        UPDATE user_notifications
        SET is_read = TRUE, read_at = COALESCE(read_at, ?)
        WHERE user_id = ? AND is_read = FALSE
    `

	result, err := r.GetDB().ExecContext(ctx, query, at, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}

	return result.RowsAffected()
}

func (r *userNotificationRepository) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	query := `
        DELETE FROM user_notifications
        WHERE id = ? AND user_id = ?
    `

	result, err := r.GetDB().ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete user notification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *userNotificationRepository) ListUnconfirmed(ctx context.Context, notificationID uuid.UUID) ([]uuid.UUID, error) {
	query := `
        SELECT user_id
        FROM user_notifications
        WHERE notification_id = ?
        AND delivered_at IS NOT NULL
        AND push_confirmed_at IS NULL
    `

	var userIDs []uuid.UUID
	if err := r.GetDB().SelectContext(ctx, &userIDs, query, notificationID); err != nil {
		return nil, fmt.Errorf("failed to list unconfirmed recipients: %w", err)
	}

	return userIDs, nil
}

func (r *userNotificationRepository) ConfirmPush(ctx context.Context, notificationID uuid.UUID, userIDs []uuid.UUID, at time.Time) error {
	if len(userIDs) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
        UPDATE user_notifications
        SET push_confirmed_at = COALESCE(push_confirmed_at, ?)
        WHERE notification_id = ? AND user_id IN (?)
    `, at, notificationID, userIDs)
	if err != nil {
		return fmt.Errorf("failed to build confirm query: %w", err)
	}

	if _, err := r.GetDB().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to confirm push delivery: %w", err)
	}

	return nil
}

// ListDeliveredSince serves heartbeat polls: records delivered after since
// whose notification is active, unexpired, and of a poll-delivered kind.
func (r *userNotificationRepository) ListDeliveredSince(ctx context.Context, userID uuid.UUID, since, now time.Time) ([]*model.UserNotificationView, error) {
	query := `
        SELECT un.id, un.notification_id, n.title, n.message, n.kind,
               n.image_url, n.action_type, n.action_data,
               un.delivered_at, un.is_read, un.read_at, un.is_clicked, un.clicked_at
        FROM user_notifications un
        JOIN notifications n ON n.id = un.notification_id
        WHERE un.user_id = ?
        AND un.delivered_at > ?
        AND n.is_active = TRUE
        AND (n.expires_at IS NULL OR n.expires_at > ?)
        AND n.kind IN (?, ?)
        ORDER BY un.delivered_at DESC
    `

	var records []*model.UserNotificationView
	err := r.GetDB().SelectContext(ctx, &records, query,
		userID, since, now,
		model.NotificationKindPopup, model.NotificationKindFullscreen,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivered notifications: %w", err)
	}

	return records, nil
}
