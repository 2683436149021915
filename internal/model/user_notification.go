package model

import (
	"time"

	"github.com/google/uuid"
)

// UserNotificationRecord is the per-recipient delivery/read/click state for
// one notification. At most one row exists per (notification, user) pair.
type UserNotificationRecord struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	NotificationID  uuid.UUID  `db:"notification_id" json:"notification_id"`
	UserID          uuid.UUID  `db:"user_id" json:"user_id"`
	DeliveredAt     time.Time  `db:"delivered_at" json:"delivered_at"`
	PushConfirmedAt *time.Time `db:"push_confirmed_at" json:"push_confirmed_at,omitempty"`
	IsRead          bool       `db:"is_read" json:"is_read"`
	ReadAt          *time.Time `db:"read_at" json:"read_at,omitempty"`
	IsClicked       bool       `db:"is_clicked" json:"is_clicked"`
	ClickedAt       *time.Time `db:"clicked_at" json:"clicked_at,omitempty"`
}

// UserNotificationView joins a delivery record with its notification content
// for the mobile-facing list and heartbeat responses.
type UserNotificationView struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	NotificationID uuid.UUID        `db:"notification_id" json:"notification_id"`
	Title          string           `db:"title" json:"title"`
	Message        string           `db:"message" json:"message"`
	Kind           NotificationKind `db:"kind" json:"kind"`
	ImageURL       *string          `db:"image_url" json:"image_url,omitempty"`
	ActionType     ActionType       `db:"action_type" json:"action_type"`
	ActionData     ActionPayload    `db:"action_data" json:"action_data,omitempty"`
	DeliveredAt    time.Time        `db:"delivered_at" json:"delivered_at"`
	IsRead         bool             `db:"is_read" json:"is_read"`
	ReadAt         *time.Time       `db:"read_at" json:"read_at,omitempty"`
	IsClicked      bool             `db:"is_clicked" json:"is_clicked"`
	ClickedAt      *time.Time       `db:"clicked_at" json:"clicked_at,omitempty"`
}
