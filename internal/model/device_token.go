package model

import (
	"time"

	"github.com/google/uuid"
)

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

// DeviceToken is one push-capable endpoint. UserID is nil for guest devices,
// which must then carry a stable client-generated DeviceID.
type DeviceToken struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	DeviceToken string     `db:"device_token" json:"device_token"`
	Platform    Platform   `db:"platform" json:"platform"`
	DeviceID    *string    `db:"device_id" json:"device_id,omitempty"`
	DeviceName  *string    `db:"device_name" json:"device_name,omitempty"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	LastUsedAt  time.Time  `db:"last_used_at" json:"last_used_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

type RegisterDeviceTokenRequest struct {
	DeviceToken string   `json:"device_token" binding:"required"`
	Platform    Platform `json:"platform" binding:"required,oneof=ios android web"`
	DeviceID    *string  `json:"device_id"`
	DeviceName  *string  `json:"device_name"`
}
