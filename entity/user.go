package entity

import (
	"time"
)

// User represents a user that has signed in at least once
type User struct {
	ID           int        `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	RegisteredAt time.Time  `db:"registered_at" json:"registered_at"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at"`
}

// TableName returns the table name for the User entity
func (User) TableName() string {
	return "users"
}

// LogoutResponse represents the logout response structure
type LogoutResponse struct {
	Message string `json:"message"`
}
