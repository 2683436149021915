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

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
        INSERT INTO users (
            id, email, name, password_hash, country, subscription_plan,
            is_verified, is_admin, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Country,
		user.SubscriptionPlan,
		user.IsVerified,
		user.IsAdmin,
		user.Status,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
        SELECT * FROM users WHERE id = ?
    `

	var user model.User
	if err := r.GetDB().GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
        SELECT * FROM users WHERE email = ?
    `

	var user model.User
	if err := r.GetDB().GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", err)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

func (r *userRepository) SetVerified(ctx context.Context, id uuid.UUID) error {
	query := `
        UPDATE users SET is_verified = TRUE, updated_at = ? WHERE id = ?
    `

	_, err := r.GetDB().ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}

	return nil
}

func (r *userRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `
        SELECT id FROM users WHERE status = ?
    `

	var ids []uuid.UUID
	if err := r.GetDB().SelectContext(ctx, &ids, query, model.UserStatusActive); err != nil {
		return nil, fmt.Errorf("failed to list active user ids: %w", err)
	}

	return ids, nil
}

// ListIDsMatching applies the supplied predicates conjunctively; absent
// predicates impose no filter.
func (r *userRepository) ListIDsMatching(ctx context.Context, cond *model.TargetConditions) ([]uuid.UUID, error) {
	query := `
        SELECT id FROM users WHERE status = ?
    `
	args := []interface{}{model.UserStatusActive}

	if len(cond.SubscriptionPlans) > 0 {
		query += " AND subscription_plan IN (?" + repeatPlaceholder(len(cond.SubscriptionPlans)-1) + ")"
		for _, plan := range cond.SubscriptionPlans {
			args = append(args, plan)
		}
	}

	if len(cond.Countries) > 0 {
		query += " AND country IN (?" + repeatPlaceholder(len(cond.Countries)-1) + ")"
		for _, country := range cond.Countries {
			args = append(args, country)
		}
	}

	if cond.IsVerified != nil {
		query += " AND is_verified = ?"
		args = append(args, *cond.IsVerified)
	}

	if cond.CreatedAfter != nil {
		query += " AND created_at >= ?"
		args = append(args, *cond.CreatedAfter)
	}

	if cond.CreatedBefore != nil {
		query += " AND created_at <= ?"
		args = append(args, *cond.CreatedBefore)
	}

	var ids []uuid.UUID
	if err := r.GetDB().SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list users matching conditions: %w", err)
	}

	return ids, nil
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
