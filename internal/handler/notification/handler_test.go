package notification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/roundbuy/notification-api/internal/model"
)

type mockNotificationSvc struct{ mock.Mock }

func (m *mockNotificationSvc) Create(ctx context.Context, req *model.CreateNotificationRequest, createdBy *uuid.UUID) (*model.Notification, error) {
	args := m.Called(ctx, req, createdBy)
	if n, _ := args.Get(0).(*model.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNotificationSvc) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	args := m.Called(ctx, id)
	if n, _ := args.Get(0).(*model.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNotificationSvc) List(ctx context.Context, filters *model.NotificationFilters) ([]*model.Notification, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*model.Notification), args.Error(1)
}

func (m *mockNotificationSvc) Update(ctx context.Context, id uuid.UUID, update *model.NotificationUpdate) (*model.Notification, error) {
	args := m.Called(ctx, id, update)
	if n, _ := args.Get(0).(*model.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNotificationSvc) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockNotificationSvc) Stats(ctx context.Context, id uuid.UUID) (*model.NotificationStats, error) {
	args := m.Called(ctx, id)
	if s, _ := args.Get(0).(*model.NotificationStats); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestRouter(svc *mockNotificationSvc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(svc, nil, nil)
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestListNotificationsFilters(t *testing.T) {
	svc := new(mockNotificationSvc)
	svc.On("List", mock.Anything, mock.MatchedBy(func(f *model.NotificationFilters) bool {
		return f.Kind != nil && *f.Kind == model.NotificationKindPush &&
			f.Priority != nil && *f.Priority == model.NotificationPriorityHigh &&
			f.Sent != nil && *f.Sent
	})).Return([]*model.Notification{{ID: uuid.New(), Title: "Flash sale"}}, nil)

	r := newTestRouter(svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?kind=push&priority=high&sent=true", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestListNotificationsNoFilters(t *testing.T) {
	svc := new(mockNotificationSvc)
	svc.On("List", mock.Anything, mock.MatchedBy(func(f *model.NotificationFilters) bool {
		return f.Kind == nil && f.Priority == nil && f.TargetAudience == nil &&
			f.Sent == nil && f.Limit == 20 && f.Offset == 0
	})).Return([]*model.Notification{}, nil)

	r := newTestRouter(svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
}
