package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/roundbuy/notification-api/internal/repository"
)

type tokenRepository struct {
	BaseRepository
}

func NewTokenRepository(base BaseRepository) repository.TokenRepository {
	return &tokenRepository{base}
}

func (r *tokenRepository) StoreVerificationToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO user_tokens (user_id, token, type, expires_at, created_at)
			VALUES (?, ?, 'verification', ?, NOW())
			ON DUPLICATE KEY UPDATE
				token = VALUES(token), expires_at = VALUES(expires_at), updated_at = NOW()
		`
		_, err := tx.ExecContext(ctx, query, userID, token, expiry)
		return err
	})
}

func (r *tokenRepository) ValidateVerificationToken(ctx context.Context, token string) (uuid.UUID, error) {
	query := `
		SELECT user_id
		FROM user_tokens
		WHERE token = ?
		AND type = 'verification'
		AND expires_at > NOW()
		AND used_at IS NULL
	`

	var userID uuid.UUID
	err := r.GetDB().GetContext(ctx, &userID, query, token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid or expired token")
	}

	return userID, nil
}

func (r *tokenRepository) InvalidateVerificationToken(ctx context.Context, token string) error {
	query := `
		UPDATE user_tokens
		SET used_at = NOW()
		WHERE token = ? AND type = 'verification'
	`

	_, err := r.GetDB().ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	return nil
}
