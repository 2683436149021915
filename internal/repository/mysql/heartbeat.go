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

type heartbeatRepository struct {
	BaseRepository
}

func NewHeartbeatRepository(base BaseRepository) repository.HeartbeatRepository {
	return &heartbeatRepository{base}
}

func (r *heartbeatRepository) GetForUser(ctx context.Context, userID uuid.UUID) (*model.HeartbeatCheckpoint, error) {
	query := `
        SELECT * FROM heartbeat_checkpoints WHERE user_id = ?
    `

	var cp model.HeartbeatCheckpoint
	if err := r.GetDB().GetContext(ctx, &cp, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("heartbeat checkpoint", err)
		}
		return nil, fmt.Errorf("failed to get heartbeat checkpoint: %w", err)
	}

	return &cp, nil
}

func (r *heartbeatRepository) GetForDevice(ctx context.Context, deviceID string) (*model.HeartbeatCheckpoint, error) {
	query := `
        SELECT * FROM heartbeat_checkpoints WHERE device_id = ?
    `

	var cp model.HeartbeatCheckpoint
	if err := r.GetDB().GetContext(ctx, &cp, query, deviceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("heartbeat checkpoint", err)
		}
		return nil, fmt.Errorf("failed to get heartbeat checkpoint: %w", err)
	}

	return &cp, nil
}

func (r *heartbeatRepository) UpsertForUser(ctx context.Context, userID uuid.UUID, at time.Time) error {
	query := `
        INSERT INTO heartbeat_checkpoints (id, user_id, last_check_at)
        VALUES (?, ?, ?)
        ON DUPLICATE KEY UPDATE last_check_at = VALUES(last_check_at)
    `

	_, err := r.GetDB().ExecContext(ctx, query, uuid.New(), userID, at)
	if err != nil {
		return fmt.Errorf("failed to upsert heartbeat checkpoint: %w", err)
	}

	return nil
}

func (r *heartbeatRepository) UpsertForDevice(ctx context.Context, deviceID string, at time.Time) error {
	query := `
        INSERT INTO heartbeat_checkpoints (id, device_id, last_check_at)
        VALUES (?, ?, ?)
        ON DUPLICATE KEY UPDATE last_check_at = VALUES(last_check_at)
    `

	_, err := r.GetDB().ExecContext(ctx, query, uuid.New(), deviceID, at)
	if err != nil {
		return fmt.Errorf("failed to upsert heartbeat checkpoint: %w", err)
	}

	return nil
}

func (r *heartbeatRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
        DELETE FROM heartbeat_checkpoints WHERE last_check_at < ?
    `

	result, err := r.GetDB().ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old checkpoints: %w", err)
	}

	return result.RowsAffected()
}
