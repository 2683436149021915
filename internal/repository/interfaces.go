package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/roundbuy/notification-api/internal/model"
)

// All repository interfaces in one file
type (
	// NotificationRepository persists notification definitions.
	NotificationRepository interface {
		Create(ctx context.Context, n *model.Notification) error
		Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
		List(ctx context.Context, filters *model.NotificationFilters) ([]*model.Notification, error)
		Update(ctx context.Context, id uuid.UUID, upd *model.NotificationUpdate) (bool, error)
		SoftDelete(ctx context.Context, id uuid.UUID) (bool, error)
		MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
		ListScheduledReady(ctx context.Context, now time.Time) ([]*model.Notification, error)
		Stats(ctx context.Context, id uuid.UUID) (*model.NotificationStats, error)
		// ListGuestVisibleSince returns active, unexpired popup/fullscreen
		// notifications sent after since whose audience includes guests.
		ListGuestVisibleSince(ctx context.Context, since, now time.Time) ([]*model.Notification, error)
	}

	// UserNotificationRepository persists per-recipient delivery records.
	UserNotificationRepository interface {
		// BulkCreate inserts one record per user id, skipping pairs that
		// already exist. Returns the number of rows actually inserted.
		BulkCreate(ctx context.Context, notificationID uuid.UUID, userIDs []uuid.UUID, deliveredAt time.Time) (int, error)
		ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.UserNotificationView, error)
		UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
		MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error)
		MarkClicked(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error)
		MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
		Delete(ctx context.Context, id, userID uuid.UUID) (bool, error)
		// ListUnconfirmed returns user ids with a delivery record for the
		// notification but no confirmed push.
		ListUnconfirmed(ctx context.Context, notificationID uuid.UUID) ([]uuid.UUID, error)
		ConfirmPush(ctx context.Context, notificationID uuid.UUID, userIDs []uuid.UUID, at time.Time) error
		ListDeliveredSince(ctx context.Context, userID uuid.UUID, since, now time.Time) ([]*model.UserNotificationView, error)
	}

	// DeviceTokenRepository persists push tokens.
	DeviceTokenRepository interface {
		Upsert(ctx context.Context, token *model.DeviceToken) error
		GetByToken(ctx context.Context, token string) (*model.DeviceToken, error)
		ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.DeviceToken, error)
		ListForUsers(ctx context.Context, userIDs []uuid.UUID) ([]*model.DeviceToken, error)
		ListGuestTokens(ctx context.Context, activeSince time.Time) ([]*model.DeviceToken, error)
		ListActive(ctx context.Context) ([]*model.DeviceToken, error)
		Deactivate(ctx context.Context, token string) (bool, error)
		Delete(ctx context.Context, token string) (bool, error)
		ClaimForUser(ctx context.Context, deviceID string, userID uuid.UUID) (bool, error)
		DeleteStale(ctx context.Context, unusedBefore, inactiveBefore time.Time) (int64, error)
	}

	// HeartbeatRepository persists per-identity poll checkpoints.
	HeartbeatRepository interface {
		GetForUser(ctx context.Context, userID uuid.UUID) (*model.HeartbeatCheckpoint, error)
		GetForDevice(ctx context.Context, deviceID string) (*model.HeartbeatCheckpoint, error)
		UpsertForUser(ctx context.Context, userID uuid.UUID, at time.Time) error
		UpsertForDevice(ctx context.Context, deviceID string, at time.Time) error
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	// UserRepository persists marketplace users referenced by targeting.
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		SetVerified(ctx context.Context, id uuid.UUID) error
		ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
		ListIDsMatching(ctx context.Context, cond *model.TargetConditions) ([]uuid.UUID, error)
	}

	// TokenRepository persists short-lived verification tokens.
	TokenRepository interface {
		StoreVerificationToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error
		ValidateVerificationToken(ctx context.Context, token string) (uuid.UUID, error)
		InvalidateVerificationToken(ctx context.Context, token string) error
	}
)
