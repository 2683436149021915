package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roundbuy/notification-api/internal/model"
	"github.com/roundbuy/notification-api/internal/repository"
	"github.com/roundbuy/notification-api/pkg/logger"
	"github.com/roundbuy/notification-api/pkg/messaging"
	"github.com/roundbuy/notification-api/pkg/metrics"
	"github.com/roundbuy/notification-api/pkg/push"
)

const eventChannel = "notification.sent"

type Service interface {
	Dispatch(ctx context.Context, notificationID uuid.UUID) (*model.DispatchResult, error)
	Resend(ctx context.Context, notificationID uuid.UUID) (*model.ResendResult, error)
}

type service struct {
	notifRepo     repository.NotificationRepository
	userNotifRepo repository.UserNotificationRepository
	deviceRepo    repository.DeviceTokenRepository
	resolver      *Resolver
	gateway       push.Gateway
	broker        messaging.Broker
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

func NewService(
	notifRepo repository.NotificationRepository,
	userNotifRepo repository.UserNotificationRepository,
	deviceRepo repository.DeviceTokenRepository,
	resolver *Resolver,
	gateway push.Gateway,
	broker messaging.Broker,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) Service {
	return &service{
		notifRepo:     notifRepo,
		userNotifRepo: userNotifRepo,
		deviceRepo:    deviceRepo,
		resolver:      resolver,
		gateway:       gateway,
		broker:        broker,
		logger:        logger,
		metrics:       metrics,
	}
}

// Dispatch delivers one notification: resolve targets, create delivery
// records, push to every reachable token, reconcile invalid tokens, and mark
// the notification sent.
//
// There is no lock around the sent check. Two concurrent dispatches can both
// pass it; correctness relies on every downstream effect being idempotent
// (insert-if-absent records, repeat-safe deactivation, set-once sent mark).
func (s *service) Dispatch(ctx context.Context, notificationID uuid.UUID) (*model.DispatchResult, error) {
	timer := prometheus.NewTimer(s.metrics.DispatchDuration)
	defer timer.ObserveDuration()

	n, err := s.notifRepo.Get(ctx, notificationID)
	if err != nil {
		s.metrics.DispatchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}

	if n.SentAt != nil {
		s.metrics.DispatchesTotal.WithLabelValues("already_sent").Inc()
		return &model.DispatchResult{
			NotificationID: n.ID,
			TargetAudience: n.TargetAudience,
			AlreadySent:    true,
		}, nil
	}

	targets, err := s.resolver.Resolve(ctx, n)
	if err != nil {
		s.metrics.DispatchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to resolve targets: %w", err)
	}

	now := time.Now().UTC()

	created, err := s.userNotifRepo.BulkCreate(ctx, n.ID, targets.UserIDs, now)
	if err != nil {
		s.metrics.DispatchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to create delivery records: %w", err)
	}
	s.metrics.RecordsCreated.Add(float64(created))

	tokens, tokenOwners, err := s.gatherTokens(ctx, targets)
	if err != nil {
		s.metrics.DispatchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	result := &model.DispatchResult{
		NotificationID:           n.ID,
		TargetAudience:           n.TargetAudience,
		Success:                  true,
		UserNotificationsCreated: created,
	}

	if len(tokens) > 0 {
		batch, err := s.gateway.SendBatch(ctx, tokens, renderPayload(n))
		if err != nil {
			// Transport errors count as failures for the whole batch; the
			// notification is still marked sent below.
			s.logger.Error(err, "push batch failed", "notification_id", n.ID.String())
			result.PushNotificationsFailed = len(tokens)
		} else {
			result.PushNotificationsSent = batch.SentCount
			result.PushNotificationsFailed = batch.FailedCount
			result.InvalidTokens = batch.InvalidTokens

			s.reconcileInvalidTokens(ctx, batch.InvalidTokens)
			s.confirmPushedUsers(ctx, n.ID, batch.Results, tokenOwners, now)
		}

		s.metrics.PushSent.Add(float64(result.PushNotificationsSent))
		s.metrics.PushFailed.Add(float64(result.PushNotificationsFailed))
		s.metrics.InvalidTokens.Add(float64(len(result.InvalidTokens)))
	}

	// "Sent" means dispatch was attempted, not that every recipient was
	// reached; partial push failure never blocks the sent mark.
	if err := s.notifRepo.MarkSent(ctx, n.ID, now); err != nil {
		s.metrics.DispatchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to mark notification sent: %w", err)
	}

	s.publishSentEvent(ctx, result)
	s.metrics.DispatchesTotal.WithLabelValues("success").Inc()

	s.logger.Info("notification dispatched",
		"notification_id", n.ID.String(),
		"audience", string(n.TargetAudience),
		"records_created", strconv.Itoa(created),
		"push_sent", strconv.Itoa(result.PushNotificationsSent),
		"push_failed", strconv.Itoa(result.PushNotificationsFailed))

	return result, nil
}

// Resend re-pushes to recipients whose delivery record was never confirmed
// pushed. It does not touch sent_at and creates no new records.
func (s *service) Resend(ctx context.Context, notificationID uuid.UUID) (*model.ResendResult, error) {
	n, err := s.notifRepo.Get(ctx, notificationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}

	userIDs, err := s.userNotifRepo.ListUnconfirmed(ctx, n.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unconfirmed recipients: %w", err)
	}

	result := &model.ResendResult{
		NotificationID: n.ID,
		UsersRetried:   len(userIDs),
	}
	if len(userIDs) == 0 {
		return result, nil
	}

	deviceTokens, err := s.deviceRepo.ListForUsers(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tokens: %w", err)
	}
	if len(deviceTokens) == 0 {
		return result, nil
	}

	tokens := make([]string, 0, len(deviceTokens))
	tokenOwners := make(map[string]uuid.UUID, len(deviceTokens))
	for _, dt := range deviceTokens {
		tokens = append(tokens, dt.DeviceToken)
		if dt.UserID != nil {
			tokenOwners[dt.DeviceToken] = *dt.UserID
		}
	}

	batch, err := s.gateway.SendBatch(ctx, tokens, renderPayload(n))
	if err != nil {
		s.logger.Error(err, "resend push batch failed", "notification_id", n.ID.String())
		result.PushNotificationsFailed = len(tokens)
		return result, nil
	}

	result.PushNotificationsSent = batch.SentCount
	result.PushNotificationsFailed = batch.FailedCount

	s.reconcileInvalidTokens(ctx, batch.InvalidTokens)
	s.confirmPushedUsers(ctx, n.ID, batch.Results, tokenOwners, time.Now().UTC())

	s.metrics.PushSent.Add(float64(batch.SentCount))
	s.metrics.PushFailed.Add(float64(batch.FailedCount))

	return result, nil
}

// gatherTokens unions the target users' tokens with the resolved guest
// tokens, deduplicated by token value, and maps tokens back to owners for
// push confirmation.
func (s *service) gatherTokens(ctx context.Context, targets *Targets) ([]string, map[string]uuid.UUID, error) {
	var deviceTokens []*model.DeviceToken

	if len(targets.UserIDs) > 0 {
		userTokens, err := s.deviceRepo.ListForUsers(ctx, targets.UserIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch user tokens: %w", err)
		}
		deviceTokens = append(deviceTokens, userTokens...)
	}
	deviceTokens = append(deviceTokens, targets.GuestTokens...)

	seen := make(map[string]struct{}, len(deviceTokens))
	tokens := make([]string, 0, len(deviceTokens))
	owners := make(map[string]uuid.UUID, len(deviceTokens))
	for _, dt := range deviceTokens {
		if _, ok := seen[dt.DeviceToken]; ok {
			continue
		}
		seen[dt.DeviceToken] = struct{}{}
		tokens = append(tokens, dt.DeviceToken)
		if dt.UserID != nil {
			owners[dt.DeviceToken] = *dt.UserID
		}
	}

	return tokens, owners, nil
}

// reconcileInvalidTokens deactivates tokens the gateway reported as gone.
// Best-effort: a failed deactivation is logged, never fails the dispatch.
func (s *service) reconcileInvalidTokens(ctx context.Context, invalid []string) {
	for _, token := range invalid {
		if _, err := s.deviceRepo.Deactivate(ctx, token); err != nil {
			s.logger.Error(err, "failed to deactivate invalid token")
		}
	}
}

// confirmPushedUsers marks push_confirmed_at for users whose every token in
// this batch was accepted by the gateway.
func (s *service) confirmPushedUsers(ctx context.Context, notificationID uuid.UUID, results []push.Result, owners map[string]uuid.UUID, at time.Time) {
	failed := make(map[uuid.UUID]bool)
	succeeded := make(map[uuid.UUID]bool)
	for _, r := range results {
		owner, ok := owners[r.Token]
		if !ok {
			continue
		}
		if r.Success {
			succeeded[owner] = true
		} else {
			failed[owner] = true
		}
	}

	confirmed := make([]uuid.UUID, 0, len(succeeded))
	for userID := range succeeded {
		if !failed[userID] {
			confirmed = append(confirmed, userID)
		}
	}

	if err := s.userNotifRepo.ConfirmPush(ctx, notificationID, confirmed, at); err != nil {
		s.logger.Error(err, "failed to confirm push delivery", "notification_id", notificationID.String())
	}
}

func (s *service) publishSentEvent(ctx context.Context, result *model.DispatchResult) {
	if s.broker == nil {
		return
	}
	event := messaging.Message{Type: eventChannel, Payload: result}
	if err := s.broker.Publish(ctx, eventChannel, event); err != nil {
		s.logger.Error(err, "failed to publish sent event", "notification_id", result.NotificationID.String())
	}
}

func renderPayload(n *model.Notification) *push.Payload {
	data := map[string]string{
		"notification_id": n.ID.String(),
		"kind":            string(n.Kind),
		"action_type":     string(n.ActionType),
	}
	if n.ActionData.URL != "" {
		data["action_url"] = n.ActionData.URL
	}
	if n.ActionData.Screen != "" {
		data["action_screen"] = n.ActionData.Screen
	}
	for k, v := range n.ActionData.Params {
		data["param_"+k] = v
	}

	p := &push.Payload{
		Title: n.Title,
		Body:  n.Message,
		Data:  data,
	}
	if n.ImageURL != nil {
		p.ImageURL = *n.ImageURL
	}
	return p
}
