package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:100;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         string    `gorm:"size:20;not null;default:'member'" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	UserRoleMember    = "member"
	UserRoleModerator = "moderator"
)
