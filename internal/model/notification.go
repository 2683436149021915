package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationKindPush       NotificationKind = "push"
	NotificationKindPopup      NotificationKind = "popup"
	NotificationKindFullscreen NotificationKind = "fullscreen"
)

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityMedium NotificationPriority = "medium"
	NotificationPriorityHigh   NotificationPriority = "high"
)

type TargetAudience string

const (
	TargetAudienceAll           TargetAudience = "all"
	TargetAudienceAllUsers      TargetAudience = "all_users"
	TargetAudienceAllGuests     TargetAudience = "all_guests"
	TargetAudienceSpecificUsers TargetAudience = "specific_users"
	TargetAudienceCondition     TargetAudience = "condition"
)

type ActionType string

const (
	ActionTypeNone       ActionType = "none"
	ActionTypeOpenURL    ActionType = "open_url"
	ActionTypeOpenScreen ActionType = "open_screen"
	ActionTypeCustom     ActionType = "custom"
)

// TargetConditions is the predicate set for condition-targeted notifications.
// Absent fields impose no filter; supplied fields are combined conjunctively.
type TargetConditions struct {
	SubscriptionPlans []string   `json:"subscription_plans,omitempty"`
	Countries         []string   `json:"countries,omitempty"`
	IsVerified        *bool      `json:"is_verified,omitempty"`
	CreatedAfter      *time.Time `json:"created_after,omitempty"`
	CreatedBefore     *time.Time `json:"created_before,omitempty"`
}

func (t TargetConditions) Value() (driver.Value, error) {
	return json.Marshal(t)
}

func (t *TargetConditions) Scan(src interface{}) error {
	if src == nil {
		*t = TargetConditions{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("target conditions: unexpected type %T", src)
	}
	return json.Unmarshal(b, t)
}

func (t TargetConditions) IsEmpty() bool {
	return len(t.SubscriptionPlans) == 0 &&
		len(t.Countries) == 0 &&
		t.IsVerified == nil &&
		t.CreatedAfter == nil &&
		t.CreatedBefore == nil
}

// ActionPayload carries the client-side action attached to a notification.
type ActionPayload struct {
	URL    string            `json:"url,omitempty"`
	Screen string            `json:"screen,omitempty"`
	Params map[string]string `json:"params,omitempty"`
}

func (a ActionPayload) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *ActionPayload) Scan(src interface{}) error {
	if src == nil {
		*a = ActionPayload{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("action payload: unexpected type %T", src)
	}
	return json.Unmarshal(b, a)
}

// UUIDList is a JSON-encoded set of user ids stored in a single column.
type UUIDList []uuid.UUID

func (l UUIDList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]uuid.UUID{})
	}
	return json.Marshal([]uuid.UUID(l))
}

func (l *UUIDList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("uuid list: unexpected type %T", src)
	}
	return json.Unmarshal(b, (*[]uuid.UUID)(l))
}

type Notification struct {
	ID               uuid.UUID            `db:"id" json:"id"`
	Title            string               `db:"title" json:"title"`
	Message          string               `db:"message" json:"message"`
	Kind             NotificationKind     `db:"kind" json:"kind"`
	Priority         NotificationPriority `db:"priority" json:"priority"`
	TargetAudience   TargetAudience       `db:"target_audience" json:"target_audience"`
	TargetUserIDs    UUIDList             `db:"target_user_ids" json:"target_user_ids,omitempty"`
	TargetConditions TargetConditions     `db:"target_conditions" json:"target_conditions,omitempty"`
	ImageURL         *string              `db:"image_url" json:"image_url,omitempty"`
	ActionType       ActionType           `db:"action_type" json:"action_type"`
	ActionData       ActionPayload        `db:"action_data" json:"action_data,omitempty"`
	ScheduledAt      *time.Time           `db:"scheduled_at" json:"scheduled_at,omitempty"`
	ExpiresAt        *time.Time           `db:"expires_at" json:"expires_at,omitempty"`
	SentAt           *time.Time           `db:"sent_at" json:"sent_at,omitempty"`
	IsActive         bool                 `db:"is_active" json:"is_active"`
	CreatedBy        *uuid.UUID           `db:"created_by" json:"created_by,omitempty"`
	CreatedAt        time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time            `db:"updated_at" json:"updated_at"`
}

// IsExpired reports whether the notification has passed its expiry instant.
func (n *Notification) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && n.ExpiresAt.Before(now)
}

type CreateNotificationRequest struct {
	Title            string               `json:"title" binding:"required,notblank,max=255"`
	Message          string               `json:"message" binding:"required"`
	Kind             NotificationKind     `json:"kind" binding:"required,oneof=push popup fullscreen"`
	Priority         NotificationPriority `json:"priority" binding:"omitempty,oneof=low medium high"`
	TargetAudience   TargetAudience       `json:"target_audience" binding:"required,oneof=all all_users all_guests specific_users condition"`
	TargetUserIDs    []uuid.UUID          `json:"target_user_ids"`
	TargetConditions *TargetConditions    `json:"target_conditions"`
	ImageURL         *string              `json:"image_url" binding:"omitempty,url"`
	ActionType       ActionType           `json:"action_type" binding:"omitempty,oneof=none open_url open_screen custom"`
	ActionData       *ActionPayload       `json:"action_data"`
	ScheduledAt      *time.Time           `json:"scheduled_at"`
	ExpiresAt        *time.Time           `json:"expires_at"`
}

// NotificationUpdate carries partial-update fields; nil means unchanged.
type NotificationUpdate struct {
	Title       *string               `json:"title"`
	Message     *string               `json:"message"`
	Priority    *NotificationPriority `json:"priority"`
	ImageURL    *string               `json:"image_url"`
	ScheduledAt *time.Time            `json:"scheduled_at"`
	ExpiresAt   *time.Time            `json:"expires_at"`
}

type NotificationFilters struct {
	Kind           *NotificationKind
	Priority       *NotificationPriority
	TargetAudience *TargetAudience
	Sent           *bool
	Limit          int
	Offset         int
}

type NotificationStats struct {
	TotalSent        int     `db:"total_sent" json:"total_sent"`
	ReadCount        int     `db:"read_count" json:"read_count"`
	ClickedCount     int     `db:"clicked_count" json:"clicked_count"`
	DeliveryRate     float64 `json:"delivery_rate"`
	ReadRate         float64 `json:"read_rate"`
	ClickThroughRate float64 `json:"click_through_rate"`
}

// DispatchResult summarizes one dispatch attempt for operators.
type DispatchResult struct {
	NotificationID           uuid.UUID      `json:"notification_id"`
	TargetAudience           TargetAudience `json:"target_audience"`
	AlreadySent              bool           `json:"already_sent,omitempty"`
	Success                  bool           `json:"success"`
	UserNotificationsCreated int            `json:"user_notifications_created"`
	PushNotificationsSent    int            `json:"push_notifications_sent"`
	PushNotificationsFailed  int            `json:"push_notifications_failed"`
	InvalidTokens            []string       `json:"invalid_tokens,omitempty"`
}

type ResendResult struct {
	NotificationID          uuid.UUID `json:"notification_id"`
	UsersRetried            int       `json:"users_retried"`
	PushNotificationsSent   int       `json:"push_notifications_sent"`
	PushNotificationsFailed int       `json:"push_notifications_failed"`
}
