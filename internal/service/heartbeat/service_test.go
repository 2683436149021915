package heartbeat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/roundbuy/notification-api/internal/model"
	apperrors "github.com/roundbuy/notification-api/pkg/errors"
	"github.com/roundbuy/notification-api/pkg/logger"
	"github.com/roundbuy/notification-api/pkg/metrics"
)

type mockHeartbeatRepo struct{ mock.Mock }

func (m *mockHeartbeatRepo) GetForUser(ctx context.Context, userID uuid.UUID) (*model.HeartbeatCheckpoint, error) {
	args := m.Called(ctx, userID)
	if cp, _ := args.Get(0).(*model.HeartbeatCheckpoint); cp != nil {
		return cp, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockHeartbeatRepo) GetForDevice(ctx context.Context, deviceID string) (*model.HeartbeatCheckpoint, error) {
	args := m.Called(ctx, deviceID)
	if cp, _ := args.Get(0).(*model.HeartbeatCheckpoint); cp != nil {
		return cp, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockHeartbeatRepo) UpsertForUser(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return m.Called(ctx, userID, at).Error(0)
}
func (m *mockHeartbeatRepo) UpsertForDevice(ctx context.Context, deviceID string, at time.Time) error {
	return m.Called(ctx, deviceID, at).Error(0)
}
func (m *mockHeartbeatRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockNotifRepo struct{ mock.Mock }

func (m *mockNotifRepo) Create(ctx context.Context, n *model.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockNotifRepo) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	args := m.Called(ctx, id)
	if n, _ := args.Get(0).(*model.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotifRepo) List(ctx context.Context, f *model.NotificationFilters) ([]*model.Notification, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]*model.Notification), args.Error(1)
}
func (m *mockNotifRepo) Update(ctx context.Context, id uuid.UUID, u *model.NotificationUpdate) (bool, error) {
	args := m.Called(ctx, id, u)
	return args.Bool(0), args.Error(1)
}
func (m *mockNotifRepo) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *mockNotifRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}
func (m *mockNotifRepo) ListScheduledReady(ctx context.Context, now time.Time) ([]*model.Notification, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]*model.Notification), args.Error(1)
}
func (m *mockNotifRepo) Stats(ctx context.Context, id uuid.UUID) (*model.NotificationStats, error) {
	args := m.Called(ctx, id)
	if s, _ := args.Get(0).(*model.NotificationStats); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotifRepo) ListGuestVisibleSince(ctx context.Context, since, now time.Time) ([]*model.Notification, error) {
	args := m.Called(ctx, since, now)
	return args.Get(0).([]*model.Notification), args.Error(1)
}

type mockUserNotifRepo struct{ mock.Mock }

func (m *mockUserNotifRepo) BulkCreate(ctx context.Context, notificationID uuid.UUID, userIDs []uuid.UUID, deliveredAt time.Time) (int, error) {
	args := m.Called(ctx, notificationID, userIDs, deliveredAt)
	return args.Int(0), args.Error(1)
}
func (m *mockUserNotifRepo) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.UserNotificationView, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]*model.UserNotificationView), args.Error(1)
}
func (m *mockUserNotifRepo) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
func (m *mockUserNotifRepo) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, userID, at)
	return args.Bool(0), args.Error(1)
}
func (m *mockUserNotifRepo) MarkClicked(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, userID, at)
	return args.Bool(0), args.Error(1)
}
func (m *mockUserNotifRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, at)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockUserNotifRepo) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, id, userID)
	return args.Bool(0), args.Error(1)
}
func (m *mockUserNotifRepo) ListUnconfirmed(ctx context.Context, notificationID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, notificationID)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}
func (m *mockUserNotifRepo) ConfirmPush(ctx context.Context, notificationID uuid.UUID, userIDs []uuid.UUID, at time.Time) error {
	return m.Called(ctx, notificationID, userIDs, at).Error(0)
}
func (m *mockUserNotifRepo) ListDeliveredSince(ctx context.Context, userID uuid.UUID, since, now time.Time) ([]*model.UserNotificationView, error) {
	args := m.Called(ctx, userID, since, now)
	return args.Get(0).([]*model.UserNotificationView), args.Error(1)
}

func newTestService(hb *mockHeartbeatRepo, notif *mockNotifRepo, userNotif *mockUserNotifRepo) Service {
	return NewService(hb, notif, userNotif, logger.NewLogger(nil), metrics.New("test"))
}

func TestCheckForUserFirstPollUsesDefaultWindow(t *testing.T) {
	userID := uuid.New()

	hbRepo := new(mockHeartbeatRepo)
	userNotifRepo := new(mockUserNotifRepo)

	hbRepo.On("GetForUser", mock.Anything, userID).Return(nil, apperrors.NewNotFound("heartbeat checkpoint", nil))
	userNotifRepo.On("ListDeliveredSince", mock.Anything, userID, mock.MatchedBy(func(since time.Time) bool {
		// First poll looks back one hour, not to the beginning of time.
		expected := time.Now().UTC().Add(-time.Hour)
		diff := since.Sub(expected)
		return diff > -time.Minute && diff < time.Minute
	}), mock.Anything).Return([]*model.UserNotificationView{}, nil)
	hbRepo.On("UpsertForUser", mock.Anything, userID, mock.Anything).Return(nil)

	svc := newTestService(hbRepo, new(mockNotifRepo), userNotifRepo)
	result, err := svc.CheckForUser(context.Background(), userID, nil)

	require.NoError(t, err)
	assert.False(t, result.HasNew)
	assert.Equal(t, 0, result.Count)
	hbRepo.AssertCalled(t, "UpsertForUser", mock.Anything, userID, mock.Anything)
}

func TestCheckForUserUsesCheckpoint(t *testing.T) {
	userID := uuid.New()
	lastCheck := time.Now().UTC().Add(-10 * time.Minute)

	hbRepo := new(mockHeartbeatRepo)
	userNotifRepo := new(mockUserNotifRepo)

	hbRepo.On("GetForUser", mock.Anything, userID).Return(&model.HeartbeatCheckpoint{
		UserID:      &userID,
		LastCheckAt: lastCheck,
	}, nil)
	userNotifRepo.On("ListDeliveredSince", mock.Anything, userID, lastCheck, mock.Anything).Return([]*model.UserNotificationView{
		{ID: uuid.New(), Title: "Order shipped", Kind: model.NotificationKindPopup},
	}, nil)
	hbRepo.On("UpsertForUser", mock.Anything, userID, mock.Anything).Return(nil)

	svc := newTestService(hbRepo, new(mockNotifRepo), userNotifRepo)
	result, err := svc.CheckForUser(context.Background(), userID, nil)

	require.NoError(t, err)
	assert.True(t, result.HasNew)
	assert.Equal(t, 1, result.Count)
}

func TestCheckForUserSuppliedLastCheckSkipsCheckpoint(t *testing.T) {
	userID := uuid.New()
	lastCheck := time.Now().UTC().Add(-15 * time.Minute)

	hbRepo := new(mockHeartbeatRepo)
	userNotifRepo := new(mockUserNotifRepo)

	userNotifRepo.On("ListDeliveredSince", mock.Anything, userID, lastCheck, mock.Anything).Return([]*model.UserNotificationView{
		{ID: uuid.New(), Title: "Payment received", Kind: model.NotificationKindPopup},
	}, nil)
	hbRepo.On("UpsertForUser", mock.Anything, userID, mock.Anything).Return(nil)

	svc := newTestService(hbRepo, new(mockNotifRepo), userNotifRepo)
	result, err := svc.CheckForUser(context.Background(), userID, &lastCheck)

	require.NoError(t, err)
	assert.True(t, result.HasNew)
	assert.Equal(t, 1, result.Count)
	hbRepo.AssertNotCalled(t, "GetForUser", mock.Anything, userID)
}

func TestCheckForGuestSuppliedLastCheckSkipsCheckpoint(t *testing.T) {
	deviceID := "device-456"
	lastCheck := time.Now().UTC().Add(-20 * time.Minute)

	hbRepo := new(mockHeartbeatRepo)
	notifRepo := new(mockNotifRepo)

	notifRepo.On("ListGuestVisibleSince", mock.Anything, lastCheck, mock.Anything).Return([]*model.Notification{}, nil)
	hbRepo.On("UpsertForDevice", mock.Anything, deviceID, mock.Anything).Return(nil)

	svc := newTestService(hbRepo, notifRepo, new(mockUserNotifRepo))
	result, err := svc.CheckForGuest(context.Background(), deviceID, &lastCheck)

	require.NoError(t, err)
	assert.False(t, result.HasNew)
	hbRepo.AssertNotCalled(t, "GetForDevice", mock.Anything, deviceID)
}

func TestCheckForGuestRequiresDeviceID(t *testing.T) {
	svc := newTestService(new(mockHeartbeatRepo), new(mockNotifRepo), new(mockUserNotifRepo))

	_, err := svc.CheckForGuest(context.Background(), "", nil)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCheckForGuestSeesBroadcasts(t *testing.T) {
	deviceID := "device-123"
	lastCheck := time.Now().UTC().Add(-5 * time.Minute)

	hbRepo := new(mockHeartbeatRepo)
	notifRepo := new(mockNotifRepo)

	hbRepo.On("GetForDevice", mock.Anything, deviceID).Return(&model.HeartbeatCheckpoint{
		DeviceID:    &deviceID,
		LastCheckAt: lastCheck,
	}, nil)
	notifRepo.On("ListGuestVisibleSince", mock.Anything, lastCheck, mock.Anything).Return([]*model.Notification{
		{ID: uuid.New(), Kind: model.NotificationKindFullscreen},
	}, nil)
	hbRepo.On("UpsertForDevice", mock.Anything, deviceID, mock.Anything).Return(nil)

	svc := newTestService(hbRepo, notifRepo, new(mockUserNotifRepo))
	result, err := svc.CheckForGuest(context.Background(), deviceID, nil)

	require.NoError(t, err)
	assert.True(t, result.HasNew)
	assert.Equal(t, 1, result.Count)
}

func TestCleanupOldCheckpoints(t *testing.T) {
	hbRepo := new(mockHeartbeatRepo)
	hbRepo.On("DeleteBefore", mock.Anything, mock.Anything).Return(int64(7), nil)

	svc := newTestService(hbRepo, new(mockNotifRepo), new(mockUserNotifRepo))
	deleted, err := svc.CleanupOldCheckpoints(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
}
