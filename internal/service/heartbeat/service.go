package heartbeat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roundbuy/notification-api/internal/model"
	"github.com/roundbuy/notification-api/internal/repository"
	apperrors "github.com/roundbuy/notification-api/pkg/errors"
	"github.com/roundbuy/notification-api/pkg/logger"
	"github.com/roundbuy/notification-api/pkg/metrics"
)

// defaultWindow bounds the lookback for a first-time poller so a fresh
// client is not flooded with history.
const defaultWindow = time.Hour

const checkpointRetention = 30 * 24 * time.Hour

type Service interface {
	// A non-nil lastCheckAt overrides the stored checkpoint as the window
	// start; the checkpoint still advances to this poll's start time.
	CheckForUser(ctx context.Context, userID uuid.UUID, lastCheckAt *time.Time) (*model.HeartbeatResult, error)
	CheckForGuest(ctx context.Context, deviceID string, lastCheckAt *time.Time) (*model.HeartbeatResult, error)
	CleanupOldCheckpoints(ctx context.Context) (int64, error)
}

type service struct {
	heartbeatRepo repository.HeartbeatRepository
	notifRepo     repository.NotificationRepository
	userNotifRepo repository.UserNotificationRepository
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

func NewService(
	heartbeatRepo repository.HeartbeatRepository,
	notifRepo repository.NotificationRepository,
	userNotifRepo repository.UserNotificationRepository,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) Service {
	return &service{
		heartbeatRepo: heartbeatRepo,
		notifRepo:     notifRepo,
		userNotifRepo: userNotifRepo,
		logger:        logger,
		metrics:       metrics,
	}
}

// CheckForUser returns popup and fullscreen notifications delivered to the
// user since their last poll, then advances the checkpoint to this poll's
// start time. A notification dispatched mid-query is picked up next poll.
func (s *service) CheckForUser(ctx context.Context, userID uuid.UUID, lastCheckAt *time.Time) (*model.HeartbeatResult, error) {
	now := time.Now().UTC()

	since := now.Add(-defaultWindow)
	if lastCheckAt != nil {
		since = *lastCheckAt
	} else {
		cp, err := s.heartbeatRepo.GetForUser(ctx, userID)
		if err != nil && !apperrors.IsNotFound(err) {
			return nil, fmt.Errorf("failed to load heartbeat checkpoint: %w", err)
		}
		if cp != nil {
			since = cp.LastCheckAt
		}
	}

	notifications, err := s.userNotifRepo.ListDeliveredSince(ctx, userID, since, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list new notifications: %w", err)
	}

	if err := s.heartbeatRepo.UpsertForUser(ctx, userID, now); err != nil {
		return nil, fmt.Errorf("failed to update heartbeat checkpoint: %w", err)
	}

	s.metrics.HeartbeatChecks.WithLabelValues("user").Inc()
	return &model.HeartbeatResult{
		HasNew:        len(notifications) > 0,
		Count:         len(notifications),
		Notifications: notifications,
		LastCheckAt:   now,
	}, nil
}

// CheckForGuest is the guest variant keyed by device id; it sees broadcast
// notifications visible to guests rather than per-user delivery records.
func (s *service) CheckForGuest(ctx context.Context, deviceID string, lastCheckAt *time.Time) (*model.HeartbeatResult, error) {
	if deviceID == "" {
		return nil, apperrors.NewValidation("device_id is required", nil)
	}

	now := time.Now().UTC()

	since := now.Add(-defaultWindow)
	if lastCheckAt != nil {
		since = *lastCheckAt
	} else {
		cp, err := s.heartbeatRepo.GetForDevice(ctx, deviceID)
		if err != nil && !apperrors.IsNotFound(err) {
			return nil, fmt.Errorf("failed to load heartbeat checkpoint: %w", err)
		}
		if cp != nil {
			since = cp.LastCheckAt
		}
	}

	notifications, err := s.notifRepo.ListGuestVisibleSince(ctx, since, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list new notifications: %w", err)
	}

	if err := s.heartbeatRepo.UpsertForDevice(ctx, deviceID, now); err != nil {
		return nil, fmt.Errorf("failed to update heartbeat checkpoint: %w", err)
	}

	s.metrics.HeartbeatChecks.WithLabelValues("guest").Inc()
	return &model.HeartbeatResult{
		HasNew:        len(notifications) > 0,
		Count:         len(notifications),
		Notifications: notifications,
		LastCheckAt:   now,
	}, nil
}

func (s *service) CleanupOldCheckpoints(ctx context.Context) (int64, error) {
	deleted, err := s.heartbeatRepo.DeleteBefore(ctx, time.Now().UTC().Add(-checkpointRetention))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up heartbeat checkpoints: %w", err)
	}
	if deleted > 0 {
		s.metrics.RetentionDeletions.WithLabelValues("heartbeat_checkpoints").Add(float64(deleted))
	}
	return deleted, nil
}
