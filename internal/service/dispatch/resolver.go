package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roundbuy/notification-api/internal/model"
	"github.com/roundbuy/notification-api/internal/repository"
	apperrors "github.com/roundbuy/notification-api/pkg/errors"
)

// Targets is the concrete recipient set for one notification.
type Targets struct {
	UserIDs     []uuid.UUID
	GuestTokens []*model.DeviceToken
}

// Resolver turns a notification's audience settings into user ids and guest
// tokens.
type Resolver struct {
	userRepo   repository.UserRepository
	deviceRepo repository.DeviceTokenRepository
	// guestRecency bounds how far back a guest token's last_used_at may be
	// for "all"/"all_guests" audiences.
	guestRecency time.Duration
}

func NewResolver(userRepo repository.UserRepository, deviceRepo repository.DeviceTokenRepository, guestRecency time.Duration) *Resolver {
	return &Resolver{
		userRepo:     userRepo,
		deviceRepo:   deviceRepo,
		guestRecency: guestRecency,
	}
}

func (r *Resolver) Resolve(ctx context.Context, n *model.Notification) (*Targets, error) {
	switch n.TargetAudience {
	case model.TargetAudienceAll:
		userIDs, err := r.userRepo.ListActiveIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve all users: %w", err)
		}
		guests, err := r.guestTokens(ctx)
		if err != nil {
			return nil, err
		}
		return &Targets{UserIDs: userIDs, GuestTokens: guests}, nil

	case model.TargetAudienceAllUsers:
		userIDs, err := r.userRepo.ListActiveIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve all users: %w", err)
		}
		return &Targets{UserIDs: userIDs}, nil

	case model.TargetAudienceAllGuests:
		guests, err := r.guestTokens(ctx)
		if err != nil {
			return nil, err
		}
		return &Targets{GuestTokens: guests}, nil

	case model.TargetAudienceSpecificUsers:
		return &Targets{UserIDs: dedupe(n.TargetUserIDs)}, nil

	case model.TargetAudienceCondition:
		userIDs, err := r.userRepo.ListIDsMatching(ctx, &n.TargetConditions)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve condition audience: %w", err)
		}
		return &Targets{UserIDs: userIDs}, nil

	default:
		return nil, apperrors.NewUnknownAudience(string(n.TargetAudience))
	}
}

func (r *Resolver) guestTokens(ctx context.Context) ([]*model.DeviceToken, error) {
	cutoff := time.Now().Add(-r.guestRecency)
	tokens, err := r.deviceRepo.ListGuestTokens(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve guest tokens: %w", err)
	}
	return tokens, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
