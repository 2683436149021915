package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/roundbuy/notification-api/internal/model"
	apperrors "github.com/roundbuy/notification-api/pkg/errors"
	"github.com/roundbuy/notification-api/pkg/logger"
)

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}
func (m *mockUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if u, _ := args.Get(0).(*model.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*model.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserRepo) SetVerified(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockUserRepo) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}
func (m *mockUserRepo) ListIDsMatching(ctx context.Context, cond *model.TargetConditions) ([]uuid.UUID, error) {
	args := m.Called(ctx, cond)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type mockTokenRepo struct{ mock.Mock }

func (m *mockTokenRepo) StoreVerificationToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error {
	return m.Called(ctx, userID, token, expiry).Error(0)
}
func (m *mockTokenRepo) ValidateVerificationToken(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}
func (m *mockTokenRepo) InvalidateVerificationToken(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type mockDevices struct{ mock.Mock }

func (m *mockDevices) Register(ctx context.Context, req *model.RegisterDeviceTokenRequest, userID *uuid.UUID) (*model.DeviceToken, error) {
	args := m.Called(ctx, req, userID)
	if t, _ := args.Get(0).(*model.DeviceToken); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockDevices) GetForUser(ctx context.Context, userID uuid.UUID) ([]*model.DeviceToken, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*model.DeviceToken), args.Error(1)
}
func (m *mockDevices) GetGuestTokens(ctx context.Context, activeSince time.Time) ([]*model.DeviceToken, error) {
	args := m.Called(ctx, activeSince)
	return args.Get(0).([]*model.DeviceToken), args.Error(1)
}
func (m *mockDevices) GetAllActive(ctx context.Context) ([]*model.DeviceToken, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*model.DeviceToken), args.Error(1)
}
func (m *mockDevices) Deactivate(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}
func (m *mockDevices) Delete(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}
func (m *mockDevices) AssociateWithUser(ctx context.Context, deviceID string, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, deviceID, userID)
	return args.Bool(0), args.Error(1)
}
func (m *mockDevices) CleanupInactive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockJWT struct{ mock.Mock }

func (m *mockJWT) GenerateAccessToken(user *model.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}
func (m *mockJWT) GenerateRefreshToken(user *model.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}
func (m *mockJWT) ValidateToken(token string) (*model.TokenClaims, error) {
	args := m.Called(token)
	if c, _ := args.Get(0).(*model.TokenClaims); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockJWT) ValidateRefreshToken(token string) (*model.TokenClaims, error) {
	args := m.Called(token)
	if c, _ := args.Get(0).(*model.TokenClaims); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEmail struct{ mock.Mock }

func (m *mockEmail) SendVerification(ctx context.Context, email string, token string) error {
	return m.Called(ctx, email, token).Error(0)
}
func (m *mockEmail) SendWelcome(ctx context.Context, email string, name string) error {
	return m.Called(ctx, email, name).Error(0)
}

type testDeps struct {
	users   *mockUserRepo
	tokens  *mockTokenRepo
	devices *mockDevices
	jwt     *mockJWT
	email   *mockEmail
}

func testService() (Service, *testDeps) {
	deps := &testDeps{
		users:   new(mockUserRepo),
		tokens:  new(mockTokenRepo),
		devices: new(mockDevices),
		jwt:     new(mockJWT),
		email:   new(mockEmail),
	}
	svc := NewService(deps.users, deps.tokens, deps.devices, deps.jwt, deps.email, logger.NewLogger(nil))
	return svc, deps
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, deps := testService()
	deps.users.On("GetByEmail", mock.Anything, "taken@example.com").
		Return(&model.User{ID: uuid.New(), Email: "taken@example.com"}, nil)

	_, err := svc.Register(context.Background(), &model.RegisterUserRequest{
		Email:    "taken@example.com",
		Name:     "Someone",
		Password: "hunter2hunter2",
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	deps.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegisterStoresTokenAndSendsEmail(t *testing.T) {
	svc, deps := testService()
	deps.users.On("GetByEmail", mock.Anything, "new@example.com").
		Return(nil, apperrors.NewNotFound("user", nil))
	deps.users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "new@example.com" &&
			u.Status == model.UserStatusActive &&
			u.SubscriptionPlan == "free" &&
			u.PasswordHash != "" &&
			u.PasswordHash != "hunter2hunter2"
	})).Return(nil)
	deps.tokens.On("StoreVerificationToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	deps.email.On("SendVerification", mock.Anything, "new@example.com", mock.Anything).Return(nil)

	user, err := svc.Register(context.Background(), &model.RegisterUserRequest{
		Email:    "new@example.com",
		Name:     "New User",
		Password: "hunter2hunter2",
	})

	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	deps.tokens.AssertExpectations(t)
	deps.email.AssertExpectations(t)
}

func TestRegisterClaimsGuestDevice(t *testing.T) {
	svc, deps := testService()
	deps.users.On("GetByEmail", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewNotFound("user", nil))
	deps.users.On("Create", mock.Anything, mock.Anything).Return(nil)
	deps.tokens.On("StoreVerificationToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	deps.email.On("SendVerification", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	deps.devices.On("AssociateWithUser", mock.Anything, "device-42", mock.Anything).Return(true, nil)

	_, err := svc.Register(context.Background(), &model.RegisterUserRequest{
		Email:    "new@example.com",
		Name:     "New User",
		Password: "hunter2hunter2",
		DeviceID: "device-42",
	})

	require.NoError(t, err)
	deps.devices.AssertExpectations(t)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	require.NoError(t, err)

	svc, deps := testService()
	deps.users.On("GetByEmail", mock.Anything, "user@example.com").Return(&model.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: string(hash),
		Status:       model.UserStatusActive,
	}, nil)

	_, _, err = svc.Login(context.Background(), &model.LoginRequest{
		Email:    "user@example.com",
		Password: "wrong-password",
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, deps := testService()
	deps.users.On("GetByEmail", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewNotFound("user", nil))

	_, _, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever",
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestLoginDisabledUser(t *testing.T) {
	svc, deps := testService()
	deps.users.On("GetByEmail", mock.Anything, mock.Anything).Return(&model.User{
		ID:     uuid.New(),
		Status: model.UserStatusDisabled,
	}, nil)

	_, _, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "banned@example.com",
		Password: "whatever",
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestLoginIssuesTokenPair(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: string(hash),
		Status:       model.UserStatusActive,
	}

	svc, deps := testService()
	deps.users.On("GetByEmail", mock.Anything, "user@example.com").Return(user, nil)
	deps.jwt.On("GenerateAccessToken", user).Return("access-token", nil)
	deps.jwt.On("GenerateRefreshToken", user).Return("refresh-token", nil)

	pair, got, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "user@example.com",
		Password: "correct-password",
	})

	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "access-token", pair.AccessToken)
	assert.Equal(t, "refresh-token", pair.RefreshToken)
}

func TestRefreshInvalidToken(t *testing.T) {
	svc, deps := testService()
	deps.jwt.On("ValidateRefreshToken", "garbage").
		Return(nil, assert.AnError)

	_, err := svc.Refresh(context.Background(), "garbage")

	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestVerifyEmailHappyPath(t *testing.T) {
	userID := uuid.New()

	svc, deps := testService()
	deps.tokens.On("ValidateVerificationToken", mock.Anything, "tok").Return(userID, nil)
	deps.users.On("SetVerified", mock.Anything, userID).Return(nil)
	deps.tokens.On("InvalidateVerificationToken", mock.Anything, "tok").Return(nil)
	deps.users.On("Get", mock.Anything, userID).
		Return(&model.User{ID: userID, Email: "user@example.com", Name: "User"}, nil)
	deps.email.On("SendWelcome", mock.Anything, "user@example.com", "User").Return(nil)

	err := svc.VerifyEmail(context.Background(), "tok")

	require.NoError(t, err)
	deps.users.AssertExpectations(t)
	deps.email.AssertExpectations(t)
}

func TestVerifyEmailBadToken(t *testing.T) {
	svc, deps := testService()
	deps.tokens.On("ValidateVerificationToken", mock.Anything, "expired").
		Return(uuid.Nil, assert.AnError)

	err := svc.VerifyEmail(context.Background(), "expired")

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	deps.users.AssertNotCalled(t, "SetVerified", mock.Anything, mock.Anything)
}
