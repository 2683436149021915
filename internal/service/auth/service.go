package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/roundbuy/notification-api/internal/email"
	"github.com/roundbuy/notification-api/internal/model"
	"github.com/roundbuy/notification-api/internal/repository"
	"github.com/roundbuy/notification-api/internal/service/device"
	pkgauth "github.com/roundbuy/notification-api/pkg/auth"
	apperrors "github.com/roundbuy/notification-api/pkg/errors"
	"github.com/roundbuy/notification-api/pkg/logger"
)

const (
	bcryptCost              = 12
	verificationTokenExpiry = 24 * time.Hour
	defaultPlan             = "free"
)

type Service interface {
	Register(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenPair, *model.User, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error)
	VerifyEmail(ctx context.Context, token string) error
}

type service struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	devices   device.Service
	jwt       pkgauth.JWTService
	email     email.Service
	logger    *logger.Logger
}

func NewService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	devices device.Service,
	jwt pkgauth.JWTService,
	email email.Service,
	logger *logger.Logger,
) Service {
	return &service{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		devices:   devices,
		jwt:       jwt,
		email:     email,
		logger:    logger,
	}
}

func (s *service) Register(ctx context.Context, req *model.RegisterUserRequest) (*model.User, error) {
	if existing, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil && existing != nil {
		return nil, apperrors.NewValidation("email already registered", nil)
	} else if err != nil && !apperrors.IsNotFound(err) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:               uuid.New(),
		Email:            req.Email,
		Name:             req.Name,
		PasswordHash:     string(hash),
		Country:          req.Country,
		SubscriptionPlan: defaultPlan,
		Status:           model.UserStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}
	if err := s.tokenRepo.StoreVerificationToken(ctx, user.ID, token, now.Add(verificationTokenExpiry)); err != nil {
		return nil, fmt.Errorf("failed to store verification token: %w", err)
	}
	if err := s.email.SendVerification(ctx, user.Email, token); err != nil {
		// Registration stands even when the email cannot be delivered; the
		// client can request a resend.
		s.logger.Error(err, "failed to send verification email", "user_id", user.ID.String())
	}

	s.claimDevice(ctx, req.DeviceID, user.ID)
	return user, nil
}

func (s *service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenPair, *model.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, nil, apperrors.Unauthorized(nil)
		}
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Status != model.UserStatusActive {
		return nil, nil, apperrors.Forbidden(nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized(nil)
	}

	pair, err := s.tokenPair(user)
	if err != nil {
		return nil, nil, err
	}

	s.claimDevice(ctx, req.DeviceID, user.ID)
	return pair, user, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	user, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	if user.Status != model.UserStatusActive {
		return nil, apperrors.Forbidden(nil)
	}

	return s.tokenPair(user)
}

func (s *service) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.tokenRepo.ValidateVerificationToken(ctx, token)
	if err != nil {
		return apperrors.NewValidation("invalid or expired verification token", err)
	}

	if err := s.userRepo.SetVerified(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	if err := s.tokenRepo.InvalidateVerificationToken(ctx, token); err != nil {
		s.logger.Error(err, "failed to invalidate verification token")
	}

	if user, err := s.userRepo.Get(ctx, userID); err == nil {
		if err := s.email.SendWelcome(ctx, user.Email, user.Name); err != nil {
			s.logger.Error(err, "failed to send welcome email", "user_id", userID.String())
		}
	}
	return nil
}

func (s *service) tokenPair(user *model.User) (*model.TokenPair, error) {
	access, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// claimDevice moves any guest tokens for the device under the user so pushes
// sent before signup keep reaching the same phone. Best-effort.
func (s *service) claimDevice(ctx context.Context, deviceID string, userID uuid.UUID) {
	if deviceID == "" {
		return
	}
	if _, err := s.devices.AssociateWithUser(ctx, deviceID, userID); err != nil {
		s.logger.Error(err, "failed to claim guest device", "device_id", deviceID)
	}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
