package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roundbuy/notification-api/internal/model"
	"github.com/roundbuy/notification-api/internal/repository"
	apperrors "github.com/roundbuy/notification-api/pkg/errors"
)

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(base BaseRepository) repository.NotificationRepository {
	return &notificationRepository{base}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
        INSERT INTO notifications (
            id, title, message, kind, priority, target_audience,
            target_user_ids, target_conditions, image_url, action_type,
            action_data, scheduled_at, expires_at, is_active, created_by,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		n.ID,
		n.Title,
		n.Message,
		n.Kind,
		n.Priority,
		n.TargetAudience,
		n.TargetUserIDs,
		n.TargetConditions,
		n.ImageURL,
		n.ActionType,
		n.ActionData,
		n.ScheduledAt,
		n.ExpiresAt,
		n.IsActive,
		n.CreatedBy,
		n.CreatedAt,
		n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	query := `
        SELECT * FROM notifications
        WHERE id = ? AND is_active = TRUE
    `

	var n model.Notification
	if err := r.GetDB().GetContext(ctx, &n, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("notification", err)
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return &n, nil
}

func (r *notificationRepository) List(ctx context.Context, filters *model.NotificationFilters) ([]*model.Notification, error) {
	query := `
        SELECT * FROM notifications WHERE is_active = TRUE
    `
	var args []interface{}

	if filters.Kind != nil {
		query += " AND kind = ?"
		args = append(args, *filters.Kind)
	}

	if filters.Priority != nil {
		query += " AND priority = ?"
		args = append(args, *filters.Priority)
	}

	if filters.TargetAudience != nil {
		query += " AND target_audience = ?"
		args = append(args, *filters.TargetAudience)
	}

	if filters.Sent != nil {
		if *filters.Sent {
			query += " AND sent_at IS NOT NULL"
		} else {
			query += " AND sent_at IS NULL"
		}
	}

	query += " ORDER BY created_at DESC"

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filters.Offset)

	var notifications []*model.Notification
	if err := r.GetDB().SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

func (r *notificationRepository) Update(ctx context.Context, id uuid.UUID, upd *model.NotificationUpdate) (bool, error) {
	query := "UPDATE notifications SET updated_at = ?"
	args := []interface{}{time.Now().UTC()}

	if upd.Title != nil {
		query += ", title = ?"
		args = append(args, *upd.Title)
	}
	if upd.Message != nil {
		query += ", message = ?"
		args = append(args, *upd.Message)
	}
	if upd.Priority != nil {
		query += ", priority = ?"
		args = append(args, *upd.Priority)
	}
	if upd.ImageURL != nil {
		query += ", image_url = ?"
		args = append(args, *upd.ImageURL)
	}
	if upd.ScheduledAt != nil {
		query += ", scheduled_at = ?"
		args = append(args, *upd.ScheduledAt)
	}
	if upd.ExpiresAt != nil {
		query += ", expires_at = ?"
		args = append(args, *upd.ExpiresAt)
	}

	query += " WHERE id = ? AND is_active = TRUE"
	args = append(args, id)

	result, err := r.GetDB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update notification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *notificationRepository) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
        UPDATE notifications
        SET is_active = FALSE, updated_at = ?
        WHERE id = ? AND is_active = TRUE
    `

	result, err := r.GetDB().ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete notification: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// MarkSent is safe to repeat: concurrent dispatches of the same notification
// both write the same-intent value, which is the idempotency the dispatch
// path relies on instead of locking.
func (r *notificationRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
        UPDATE notifications
        SET sent_at = COALESCE(sent_at, ?), updated_at = ?
        WHERE id = ?
    `

	_, err := r.GetDB().ExecContext(ctx, query, at, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	return nil
}

func (r *notificationRepository) ListScheduledReady(ctx context.Context, now time.Time) ([]*model.Notification, error) {
	query := `
        SELECT * FROM notifications
        WHERE is_active = TRUE
        AND scheduled_at IS NOT NULL
        AND scheduled_at <= ?
        AND sent_at IS NULL
        ORDER BY scheduled_at ASC
    `

	var notifications []*model.Notification
	if err := r.GetDB().SelectContext(ctx, &notifications, query, now); err != nil {
		return nil, fmt.Errorf("failed to list scheduled notifications: %w", err)
	}

	return notifications, nil
}

func (r *notificationRepository) Stats(ctx context.Context, id uuid.UUID) (*model.NotificationStats, error) {
	query := `
        SELECT
            COUNT(*) AS total_sent,
            COALESCE(SUM(is_read), 0) AS read_count,
            COALESCE(SUM(is_clicked), 0) AS clicked_count
        FROM user_notifications
        WHERE notification_id = ?
    `

	var stats model.NotificationStats
	if err := r.GetDB().GetContext(ctx, &stats, query, id); err != nil {
		return nil, fmt.Errorf("failed to get notification stats: %w", err)
	}

	stats.DeliveryRate = 100
	if stats.TotalSent > 0 {
		stats.ReadRate = float64(stats.ReadCount) / float64(stats.TotalSent) * 100
		stats.ClickThroughRate = float64(stats.ClickedCount) / float64(stats.TotalSent) * 100
	}

	return &stats, nil
}

func (r *notificationRepository) ListGuestVisibleSince(ctx context.Context, since, now time.Time) ([]*model.Notification, error) {
	query := `
        SELECT * FROM notifications
        WHERE is_active = TRUE
        AND sent_at IS NOT NULL
        AND sent_at > ?
        AND (expires_at IS NULL OR expires_at > ?)
        AND target_audience IN (?, ?)
        AND kind IN (?, ?)
        ORDER BY sent_at DESC
    `

	var notifications []*model.Notification
	err := r.GetDB().SelectContext(ctx, &notifications, query,
		since, now,
		model.TargetAudienceAll, model.TargetAudienceAllGuests,
		model.NotificationKindPopup, model.NotificationKindFullscreen,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list guest notifications: %w", err)
	}

	return notifications, nil
}
