package models

import (
	"time"
)

// User is a credential-store entry
type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string // "user" or "admin"
	Status       string // "active", "disabled"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)
