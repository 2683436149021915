package device

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
	"github.com/roundbuy/notification-api/pkg/validator"
)

const (
	staleUnusedAfter   = 90 * 24 * time.Hour
	staleInactiveAfter = 30 * 24 * time.Hour
)

type registration struct {
	DeviceToken string `validate:"required"`
	Platform    string `validate:"required,oneof=ios android web"`
}

type Service interface {
	Register(ctx context.Context, req *model.RegisterDeviceTokenRequest, userID *uuid.UUID) (*model.DeviceToken, error)
	GetForUser(ctx context.Context, userID uuid.UUID) ([]*model.DeviceToken, error)
	GetGuestTokens(ctx context.Context, activeSince time.Time) ([]*model.DeviceToken, error)
	GetAllActive(ctx context.Context) ([]*model.DeviceToken, error)
	Deactivate(ctx context.Context, token string) error
	Delete(ctx context.Context, token string) error
	AssociateWithUser(ctx context.Context, deviceID string, userID uuid.UUID) (bool, error)
	CleanupInactive(ctx context.Context) (int64, error)
}

type service struct {
	repo      repository.DeviceTokenRepository
	validator validator.Validator
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewService(repo repository.DeviceTokenRepository, logger *logger.Logger, metrics *metrics.Metrics) Service {
	return &service{
		repo:      repo,
		validator: validator.New(),
		logger:    logger,
		metrics:   metrics,
	}
}

// Register upserts a token. Re-registering an existing token refreshes its
// last-seen timestamp and reactivates it; ownership follows the latest
// registration.
func (s *service) Register(ctx context.Context, req *model.RegisterDeviceTokenRequest, userID *uuid.UUID) (*model.DeviceToken, error) {
	if err := s.validator.Validate(registration{
		DeviceToken: req.DeviceToken,
		Platform:    string(req.Platform),
	}); err != nil {
		return nil, apperrors.NewValidation("invalid device registration", err)
	}
	if userID == nil && (req.DeviceID == nil || *req.DeviceID == "") {
		return nil, apperrors.NewValidation("guest registrations require a device_id", nil)
	}

	now := time.Now().UTC()
	token := &model.DeviceToken{
		ID:          uuid.New(),
		UserID:      userID,
		DeviceToken: req.DeviceToken,
		Platform:    req.Platform,
		DeviceID:    req.DeviceID,
		DeviceName:  req.DeviceName,
		IsActive:    true,
		LastUsedAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Upsert(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to register device token: %w", err)
	}

	s.metrics.TokensRegistered.Inc()
	return s.repo.GetByToken(ctx, req.DeviceToken)
}

func (s *service) GetForUser(ctx context.Context, userID uuid.UUID) ([]*model.DeviceToken, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *service) GetGuestTokens(ctx context.Context, activeSince time.Time) ([]*model.DeviceToken, error) {
	return s.repo.ListGuestTokens(ctx, activeSince)
}

func (s *service) GetAllActive(ctx context.Context) ([]*model.DeviceToken, error) {
	return s.repo.ListActive(ctx)
}

func (s *service) Deactivate(ctx context.Context, token string) error {
	found, err := s.repo.Deactivate(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to deactivate token: %w", err)
	}
	if !found {
		return apperrors.NewNotFound("device token", nil)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, token string) error {
	found, err := s.repo.Delete(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	if !found {
		return apperrors.NewNotFound("device token", nil)
	}
	return nil
}

// AssociateWithUser claims a guest device's tokens for a user on login or
// registration. It reports whether any token changed hands; tokens already
// owned by a user are left untouched.
func (s *service) AssociateWithUser(ctx context.Context, deviceID string, userID uuid.UUID) (bool, error) {
	claimed, err := s.repo.ClaimForUser(ctx, deviceID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to claim device tokens: %w", err)
	}
	if claimed {
		s.logger.Info("guest tokens claimed", "device_id", deviceID, "user_id", userID.String())
	}
	return claimed, nil
}

func (s *service) CleanupInactive(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	deleted, err := s.repo.DeleteStale(ctx, now.Add(-staleUnusedAfter), now.Add(-staleInactiveAfter))
	if err != nil {
		return 0, fmt.Errorf("failed to clean up device tokens: %w", err)
	}
	if deleted > 0 {
		s.metrics.RetentionDeletions.WithLabelValues("device_tokens").Add(float64(deleted))
	}
	return deleted, nil
}
