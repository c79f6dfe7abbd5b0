package users

import (
	"strings"
	"time"
)

// Profile captures a store user's account data plus their favorite and downloaded
// app references.
type Profile struct {
	UserID      string    `gorm:"column:user_id;primaryKey;size:190;not null" json:"userId"`
	Email       string    `gorm:"column:email;size:320" json:"email"`
	DisplayName string    `gorm:"column:display_name;size:320" json:"displayName"`
	Favorites   []string  `gorm:"column:favorites;serializer:json" json:"favorites"`
	Downloads   []string  `gorm:"column:downloads;serializer:json" json:"downloads"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	LastSeenAt  time.Time `gorm:"column:last_seen_at" json:"lastSeenAt"`
}

// TableName exposes the table backing user profiles.
func (Profile) TableName() string {
	return "user_profiles"
}

// normalize value helper used across service implementation.
func normalize(value string) string {
	return strings.TrimSpace(value)
}
