package model

import (
	"time"

	"github.com/google/uuid"
)

// HeartbeatCheckpoint tracks the last poll instant for one identity, either a
// user id or a guest device id, never both.
type HeartbeatCheckpoint struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	DeviceID    *string    `db:"device_id" json:"device_id,omitempty"`
	LastCheckAt time.Time  `db:"last_check_at" json:"last_check_at"`
}

// HeartbeatResult answers one "what's new since my last check" poll.
type HeartbeatResult struct {
	HasNew        bool        `json:"has_new"`
	Count         int         `json:"count"`
	Notifications interface{} `json:"notifications"`
	LastCheckAt   time.Time   `json:"last_check_at"`
}
