package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundbuy/notification-api/internal/model"
	"github.com/roundbuy/notification-api/pkg/logger"
	"github.com/roundbuy/notification-api/pkg/metrics"
)

type stubNotificationRepo struct {
	due []*model.Notification
	err error
}

func (s *stubNotificationRepo) Create(ctx context.Context, n *model.Notification) error { return nil }
func (s *stubNotificationRepo) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	return nil, nil
}
func (s *stubNotificationRepo) List(ctx context.Context, f *model.NotificationFilters) ([]*model.Notification, error) {
	return nil, nil
}
func (s *stubNotificationRepo) Update(ctx context.Context, id uuid.UUID, u *model.NotificationUpdate) (bool, error) {
	return false, nil
}
func (s *stubNotificationRepo) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}
func (s *stubNotificationRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}
func (s *stubNotificationRepo) ListScheduledReady(ctx context.Context, now time.Time) ([]*model.Notification, error) {
	return s.due, s.err
}
func (s *stubNotificationRepo) Stats(ctx context.Context, id uuid.UUID) (*model.NotificationStats, error) {
	return nil, nil
}
func (s *stubNotificationRepo) ListGuestVisibleSince(ctx context.Context, since, now time.Time) ([]*model.Notification, error) {
	return nil, nil
}

type fakeDispatcher struct {
	mu      sync.Mutex
	calls   []uuid.UUID
	failFor map[uuid.UUID]error
	blockOn chan struct{}
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, id uuid.UUID) (*model.DispatchResult, error) {
	if f.blockOn != nil {
		<-f.blockOn
	}
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if err, ok := f.failFor[id]; ok {
		return nil, err
	}
	return &model.DispatchResult{NotificationID: id, Success: true}, nil
}

func (f *fakeDispatcher) Resend(ctx context.Context, id uuid.UUID) (*model.ResendResult, error) {
	return &model.ResendResult{NotificationID: id}, nil
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestScheduler(repo *stubNotificationRepo, d *fakeDispatcher) *Scheduler {
	return New(repo, d, Config{Interval: time.Hour}, logger.NewLogger(nil), metrics.New("test"))
}

func TestTriggerNowDispatchesDue(t *testing.T) {
	due := []*model.Notification{
		{ID: uuid.New()},
		{ID: uuid.New()},
	}
	dispatcher := &fakeDispatcher{}
	s := newTestScheduler(&stubNotificationRepo{due: due}, dispatcher)

	ok := s.TriggerNow(context.Background())

	assert.True(t, ok)
	assert.Equal(t, 2, dispatcher.callCount())
	status := s.Status()
	assert.Equal(t, 2, status.LastCount)
	require.NotNil(t, status.LastRunAt)
}

func TestTriggerSkipsWhileRunning(t *testing.T) {
	release := make(chan struct{})
	dispatcher := &fakeDispatcher{blockOn: release}
	s := newTestScheduler(&stubNotificationRepo{due: []*model.Notification{{ID: uuid.New()}}}, dispatcher)

	first := make(chan bool)
	go func() { first <- s.TriggerNow(context.Background()) }()

	// Wait until the first run is in flight.
	require.Eventually(t, func() bool {
		return s.Status().State == StateRunning
	}, time.Second, 5*time.Millisecond)

	assert.False(t, s.TriggerNow(context.Background()))

	close(release)
	assert.True(t, <-first)
	assert.Equal(t, 1, dispatcher.callCount())
}

func TestRunContinuesPastFailures(t *testing.T) {
	bad := uuid.New()
	good := uuid.New()
	dispatcher := &fakeDispatcher{failFor: map[uuid.UUID]error{bad: errors.New("gateway down")}}
	s := newTestScheduler(&stubNotificationRepo{due: []*model.Notification{{ID: bad}, {ID: good}}}, dispatcher)

	s.TriggerNow(context.Background())

	assert.Equal(t, 2, dispatcher.callCount())
	assert.Equal(t, 1, s.Status().LastCount)
}

func TestStartStopIdempotent(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	s := newTestScheduler(&stubNotificationRepo{}, dispatcher)

	ctx := context.Background()
	s.Start(ctx)
	s.Start(ctx)
	assert.True(t, s.Status().Started)

	s.Stop()
	s.Stop()
	assert.False(t, s.Status().Started)
}

func TestListErrorDoesNotCrashRun(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	s := newTestScheduler(&stubNotificationRepo{err: errors.New("db gone")}, dispatcher)

	ok := s.TriggerNow(context.Background())

	assert.True(t, ok)
	assert.Equal(t, 0, dispatcher.callCount())
}
