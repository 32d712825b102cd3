package domain

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")

// User is a chat-platform account known to the bot. Rows are created on the
// first interaction and never updated afterwards.
type User struct {
	ExternalID  int64     `json:"external_id" bson:"external_id"`
	Handle      string    `json:"handle,omitempty" bson:"handle,omitempty"`
	DisplayName string    `json:"display_name" bson:"display_name"`
	IsAdmin     bool      `json:"is_admin" bson:"is_admin"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// DailyStat is the number of users registered on a calendar day (UTC).
type DailyStat struct {
	Date     string `json:"date"`
	NewUsers int    `json:"new_users"`
}

// Overview is the admin summary of the store.
type Overview struct {
	TotalUsers    int `json:"total_users"`
	ActiveConfigs int `json:"active_configs"`
}
