package usernotification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roundbuy/notification-api/internal/model"
	"github.com/roundbuy/notification-api/internal/repository"
	apperrors "github.com/roundbuy/notification-api/pkg/errors"
)

type Service interface {
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.UserNotificationView, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkClicked(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type service struct {
	repo repository.UserNotificationRepository
}

func NewService(repo repository.UserNotificationRepository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.UserNotificationView, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListForUser(ctx, userID, limit, offset)
}

func (s *service) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	found, err := s.repo.MarkRead(ctx, id, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !found {
		return apperrors.NewNotFound("notification", nil)
	}
	return nil
}

// MarkClicked also marks the record read; a clicked notification was seen.
func (s *service) MarkClicked(ctx context.Context, id, userID uuid.UUID) error {
	found, err := s.repo.MarkClicked(ctx, id, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark notification clicked: %w", err)
	}
	if !found {
		return apperrors.NewNotFound("notification", nil)
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	found, err := s.repo.Delete(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if !found {
		return apperrors.NewNotFound("notification", nil)
	}
	return nil
}
