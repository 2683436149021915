package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roundbuy/notification-api/internal/model"
	"github.com/roundbuy/notification-api/internal/repository"
	apperrors "github.com/roundbuy/notification-api/pkg/errors"
)

type deviceTokenRepository struct {
	BaseRepository
}

func NewDeviceTokenRepository(base BaseRepository) repository.DeviceTokenRepository {
	return &deviceTokenRepository{base}
}

// Upsert keys on the globally unique device_token: re-registering an existing
// token reassigns owner and metadata and reactivates it instead of
// duplicating the row.
func (r *deviceTokenRepository) Upsert(ctx context.Context, token *model.DeviceToken) error {
	query := `
        INSERT INTO device_tokens (
            id, user_id, device_token, platform, device_id, device_name,
            is_active, last_used_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, TRUE, ?, ?, ?)
        ON DUPLICATE KEY UPDATE
            user_id = VALUES(user_id),
            platform = VALUES(platform),
            device_id = VALUES(device_id),
            device_name = VALUES(device_name),
            is_active = TRUE,
            last_used_at = VALUES(last_used_at),
            updated_at = VALUES(updated_at)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.DeviceToken,
		token.Platform,
		token.DeviceID,
		token.DeviceName,
		token.LastUsedAt,
		token.CreatedAt,
		token.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert device token: %w", err)
	}

	return nil
}

func (r *deviceTokenRepository) GetByToken(ctx context.Context, token string) (*model.DeviceToken, error) {
	query := `
        SELECT * FROM device_tokens WHERE device_token = ?
    `

	var dt model.DeviceToken
	if err := r.GetDB().GetContext(ctx, &dt, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("device token", err)
		}
		return nil, fmt.Errorf("failed to get device token: %w", err)
	}

	return &dt, nil
}

func (r *deviceTokenRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.DeviceToken, error) {
	query := `
        SELECT * FROM device_tokens
        WHERE user_id = ? AND is_active = TRUE
        ORDER BY last_used_at DESC
    `

	var tokens []*model.DeviceToken
	if err := r.GetDB().SelectContext(ctx, &tokens, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list user tokens: %w", err)
	}

	return tokens, nil
}

func (r *deviceTokenRepository) ListForUsers(ctx context.Context, userIDs []uuid.UUID) ([]*model.DeviceToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
        SELECT * FROM device_tokens
        WHERE user_id IN (?) AND is_active = TRUE
        ORDER BY last_used_at DESC
    `, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build token query: %w", err)
	}

	var tokens []*model.DeviceToken
	if err := r.GetDB().SelectContext(ctx, &tokens, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tokens for users: %w", err)
	}

	return tokens, nil
}

func (r *deviceTokenRepository) ListGuestTokens(ctx context.Context, activeSince time.Time) ([]*model.DeviceToken, error) {
	query := `
        SELECT * FROM device_tokens
        WHERE user_id IS NULL
        AND is_active = TRUE
        AND last_used_at >= ?
        ORDER BY last_used_at DESC
    `

	var tokens []*model.DeviceToken
	if err := r.GetDB().SelectContext(ctx, &tokens, query, activeSince); err != nil {
		return nil, fmt.Errorf("failed to list guest tokens: %w", err)
	}

	return tokens, nil
}

func (r *deviceTokenRepository) ListActive(ctx context.Context) ([]*model.DeviceToken, error) {
	query := `
        SELECT * FROM device_tokens
        WHERE is_active = TRUE
        ORDER BY last_used_at DESC
    `

	var tokens []*model.DeviceToken
	if err := r.GetDB().SelectContext(ctx, &tokens, query); err != nil {
		return nil, fmt.Errorf("failed to list active tokens: %w", err)
	}

	return tokens, nil
}

func (r *deviceTokenRepository) Deactivate(ctx context.Context, token string) (bool, error) {
	query := `
        UPDATE device_tokens
        SET is_active = FALSE, updated_at = ?
        WHERE device_token = ?
    `

	result, err := r.GetDB().ExecContext(ctx, query, time.Now().UTC(), token)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate device token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *deviceTokenRepository) Delete(ctx context.Context, token string) (bool, error) {
	query := `
        DELETE FROM device_tokens WHERE device_token = ?
    `

	result, err := r.GetDB().ExecContext(ctx, query, token)
	if err != nil {
		return false, fmt.Errorf("failed to delete device token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// ClaimForUser reassigns an unclaimed guest token to a newly authenticated
// user. Ownership moves at most once, from NULL to a concrete user.
func (r *deviceTokenRepository) ClaimForUser(ctx context.Context, deviceID string, userID uuid.UUID) (bool, error) {
	query := `
        UPDATE device_tokens
        SET user_id = ?, updated_at = ?
        WHERE device_id = ? AND user_id IS NULL
    `

	result, err := r.GetDB().ExecContext(ctx, query, userID, time.Now().UTC(), deviceID)
	if err != nil {
		return false, fmt.Errorf("failed to claim device token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *deviceTokenRepository) DeleteStale(ctx context.Context, unusedBefore, inactiveBefore time.Time) (int64, error) {
	query := `
        DELETE FROM device_tokens
        WHERE last_used_at < ?
        OR (is_active = FALSE AND updated_at < ?)
    `

	result, err := r.GetDB().ExecContext(ctx, query, unusedBefore, inactiveBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale tokens: %w", err)
	}

	return result.RowsAffected()
}
