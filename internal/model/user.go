package model

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

type User struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Email            string     `db:"email" json:"email"`
	Name             string     `db:"name" json:"name"`
	Password         string     `db:"-" json:"-"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Country          string     `db:"country" json:"country"`
	SubscriptionPlan string     `db:"subscription_plan" json:"subscription_plan"`
	IsVerified       bool       `db:"is_verified" json:"is_verified"`
	IsAdmin          bool       `db:"is_admin" json:"is_admin"`
	Status           UserStatus `db:"status" json:"status"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

type RegisterUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,max=100"`
	Password string `json:"password" binding:"required,min=8"`
	Country  string `json:"country" binding:"omitempty,len=2"`
	DeviceID string `json:"device_id"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type TokenClaims struct {
	UserID  uuid.UUID
	Email   string
	IsAdmin bool
}
