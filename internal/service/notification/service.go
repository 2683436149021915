package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/roundbuy/notification-api/internal/model"
	"github.com/roundbuy/notification-api/internal/repository"
	apperrors "github.com/roundbuy/notification-api/pkg/errors"
	"github.com/roundbuy/notification-api/pkg/logger"
)

// Stats aggregate over the whole delivery-record table, so they are cached
// briefly instead of recomputed per request.
const statsCacheTTL = 30 * time.Second

type Service interface {
	Create(ctx context.Context, req *model.CreateNotificationRequest, createdBy *uuid.UUID) (*model.Notification, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	List(ctx context.Context, filters *model.NotificationFilters) ([]*model.Notification, error)
	Update(ctx context.Context, id uuid.UUID, update *model.NotificationUpdate) (*model.Notification, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, id uuid.UUID) (*model.NotificationStats, error)
}

type service struct {
	repo   repository.NotificationRepository
	cache  *cache.Cache
	logger *logger.Logger
}

func NewService(repo repository.NotificationRepository, logger *logger.Logger) Service {
	return &service{
		repo:   repo,
		cache:  cache.New(statsCacheTTL, time.Minute),
		logger: logger,
	}
}

func (s *service) Create(ctx context.Context, req *model.CreateNotificationRequest, createdBy *uuid.UUID) (*model.Notification, error) {
	if err := validateTargeting(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	n := &model.Notification{
		ID:             uuid.New(),
		Title:          req.Title,
		Message:        req.Message,
		Kind:           req.Kind,
		Priority:       req.Priority,
		TargetAudience: req.TargetAudience,
		TargetUserIDs:  req.TargetUserIDs,
		ActionType:     req.ActionType,
		ImageURL:       req.ImageURL,
		ScheduledAt:    req.ScheduledAt,
		ExpiresAt:      req.ExpiresAt,
		IsActive:       true,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if n.Priority == "" {
		n.Priority = model.NotificationPriorityMedium
	}
	if n.ActionType == "" {
		n.ActionType = model.ActionTypeNone
	}
	if req.TargetConditions != nil {
		n.TargetConditions = *req.TargetConditions
	}
	if req.ActionData != nil {
		n.ActionData = *req.ActionData
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	s.logger.Info("notification created", "notification_id", n.ID.String(), "audience", string(n.TargetAudience))
	return n, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

func (s *service) List(ctx context.Context, filters *model.NotificationFilters) ([]*model.Notification, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 20
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	return s.repo.List(ctx, filters)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, update *model.NotificationUpdate) (*model.Notification, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	if n.SentAt != nil {
		return nil, apperrors.NewValidation("cannot modify a sent notification", nil)
	}

	found, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update notification: %w", err)
	}
	if !found {
		return nil, apperrors.NewNotFound("notification", nil)
	}

	return s.repo.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	found, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if !found {
		return apperrors.NewNotFound("notification", nil)
	}
	return nil
}

func (s *service) Stats(ctx context.Context, id uuid.UUID) (*model.NotificationStats, error) {
	key := "stats:" + id.String()
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.NotificationStats), nil
	}

	stats, err := s.repo.Stats(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	s.cache.Set(key, stats, statsCacheTTL)
	return stats, nil
}

func validateTargeting(req *model.CreateNotificationRequest) error {
	switch req.TargetAudience {
	case model.TargetAudienceSpecificUsers:
		if len(req.TargetUserIDs) == 0 {
			return apperrors.NewValidation("target_user_ids is required for specific_users audience", nil)
		}
	case model.TargetAudienceCondition:
		if req.TargetConditions == nil || req.TargetConditions.IsEmpty() {
			return apperrors.NewValidation("target_conditions is required for condition audience", nil)
		}
	}
	return nil
}
